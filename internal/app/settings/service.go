package settings

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"forumcore/internal/apperr"
	"forumcore/internal/providers/cache"
)

// Service resolves effective configuration values by cascading across
// scopes, most specific first: user, then forum, then global, then the
// compiled-in default. The resolver is read-only; Set and Unset are the
// mutating edges and own the cache invalidation.
type Service interface {
	Resolve(ctx context.Context, name string, userID, forumID *uint64) string
	ResolveInt(ctx context.Context, name string, userID, forumID *uint64) (int64, error)
	ResolveBool(ctx context.Context, name string, userID, forumID *uint64) (bool, error)
	Set(ctx context.Context, scope Scope, ownerID uint64, name, value string) error
	Unset(ctx context.Context, scope Scope, ownerID uint64, name string) error
}

type service struct {
	repo       Repository
	cacheStore cache.Store
	logger     *zap.SugaredLogger
}

func NewService(repo Repository, cacheStore cache.Store, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		cacheStore: cacheStore,
		logger:     logger.Sugar(),
	}
}

// Resolve cascades on raw string values. A blank value is treated the
// same as an absent row at every level, so an explicit empty override
// never shadows a more general non-empty value — setting "" is how an
// admin unsets without deleting the row.
func (s *service) Resolve(ctx context.Context, name string, userID, forumID *uint64) string {
	if userID != nil {
		if v := s.scopeValue(ctx, ScopeUser, *userID, name); v != "" {
			return v
		}
	}
	if forumID != nil {
		if v := s.scopeValue(ctx, ScopeForum, *forumID, name); v != "" {
			return v
		}
	}
	if v := s.scopeValue(ctx, ScopeGlobal, 0, name); v != "" {
		return v
	}
	return Defaults[name]
}

func (s *service) ResolveInt(ctx context.Context, name string, userID, forumID *uint64) (int64, error) {
	raw := s.Resolve(ctx, name, userID, forumID)
	if raw == "" {
		return 0, apperr.Validationf("option %q resolves to no value", name)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, apperr.Validationf("option %q value %q is not an integer", name, raw)
	}
	return v, nil
}

func (s *service) ResolveBool(ctx context.Context, name string, userID, forumID *uint64) (bool, error) {
	raw := s.Resolve(ctx, name, userID, forumID)
	if raw == "" {
		return false, apperr.Validationf("option %q resolves to no value", name)
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, apperr.Validationf("option %q value %q is not a boolean", name, raw)
	}
	return v, nil
}

// scopeValue fetches one scope's full option map through the cache: at
// most one store query per scope per cache generation.
func (s *service) scopeValue(ctx context.Context, scope Scope, ownerID uint64, name string) string {
	key := cache.SettingsKey{Scope: string(scope), OwnerID: ownerID}
	values, err := cache.Fetch(ctx, s.cacheStore, key, func(context.Context) (map[string]string, error) {
		return s.repo.ListByScope(scope, ownerID)
	})
	if err != nil {
		s.logger.Warnw("Failed to load config scope", "scope", scope, "owner_id", ownerID, "error", err)
		return ""
	}
	return values[name]
}

func (s *service) Set(ctx context.Context, scope Scope, ownerID uint64, name, value string) error {
	if !scope.Valid() {
		return apperr.Validationf("unknown config scope %q", scope)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validationf("option name must not be blank")
	}
	if err := s.repo.Upsert(scope, ownerID, name, value); err != nil {
		return err
	}
	return s.invalidate(ctx, scope, ownerID)
}

func (s *service) Unset(ctx context.Context, scope Scope, ownerID uint64, name string) error {
	if !scope.Valid() {
		return apperr.Validationf("unknown config scope %q", scope)
	}
	removed, err := s.repo.Delete(scope, ownerID, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if removed == 0 {
		return apperr.NotFoundf("option %q in scope %s/%d", name, scope, ownerID)
	}
	return s.invalidate(ctx, scope, ownerID)
}

func (s *service) invalidate(ctx context.Context, scope Scope, ownerID uint64) error {
	key := cache.SettingsKey{Scope: string(scope), OwnerID: ownerID}
	if err := cache.Invalidate(ctx, s.cacheStore, key); err != nil {
		s.logger.Warnw("Failed to invalidate config cache", "scope", scope, "owner_id", ownerID, "error", err)
	}
	return nil
}
