package readmark

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"forumcore/internal/apperr"
	"forumcore/internal/providers/cache"
	"forumcore/internal/utils"
)

const EventChannel = "readmarks"

type Service interface {
	MarkRead(ctx context.Context, userID uint64, messageIDs []uint64) ([]ReadMarker, error)
	MarkUnread(ctx context.Context, userID uint64, messageIDs []uint64) (int64, error)
	CountUnread(ctx context.Context, userID uint64, forumIDs []uint64) (UnreadCounts, error)
}

type service struct {
	repo       Repository
	cacheStore cache.Store
	eventBus   *utils.EventBus
	logger     *zap.SugaredLogger
}

func NewService(repo Repository, cacheStore cache.Store, eventBus *utils.EventBus, logger *zap.Logger) Service {
	return &service{
		repo:       repo,
		cacheStore: cacheStore,
		eventBus:   eventBus,
		logger:     logger.Sugar(),
	}
}

// MarkRead is idempotent: already-marked messages are skipped and only
// the newly created markers come back, so a caller can broadcast "N
// messages just marked read" without double counting.
func (s *service) MarkRead(ctx context.Context, userID uint64, messageIDs []uint64) ([]ReadMarker, error) {
	if len(messageIDs) == 0 {
		return nil, apperr.Validationf("no message ids to mark read")
	}
	inserted, err := s.repo.Insert(userID, messageIDs)
	if err != nil {
		return nil, err
	}
	if len(inserted) == 0 {
		return inserted, nil
	}

	s.invalidateCounts(ctx, userID)

	ids := make([]uint64, len(inserted))
	for i, m := range inserted {
		ids[i] = m.MessageID
	}
	s.eventBus.Publish(EventChannel, "messages_read", map[string]interface{}{
		"user_id":     userID,
		"message_ids": ids,
		"count":       len(ids),
	})
	return inserted, nil
}

func (s *service) MarkUnread(ctx context.Context, userID uint64, messageIDs []uint64) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, apperr.Validationf("no message ids to mark unread")
	}
	removed, err := s.repo.Delete(userID, messageIDs)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	s.invalidateCounts(ctx, userID)

	s.eventBus.Publish(EventChannel, "messages_unread", map[string]interface{}{
		"user_id": userID,
		"count":   removed,
	})
	return removed, nil
}

func (s *service) CountUnread(ctx context.Context, userID uint64, forumIDs []uint64) (UnreadCounts, error) {
	key := cache.UnreadCountKey{UserID: userID, Forums: forumFingerprint(forumIDs)}
	return cache.Fetch(ctx, s.cacheStore, key, func(context.Context) (UnreadCounts, error) {
		return s.repo.CountUnread(userID, forumIDs)
	})
}

func (s *service) invalidateCounts(ctx context.Context, userID uint64) {
	if err := s.cacheStore.DeletePrefix(ctx, cache.UnreadPrefix(userID)); err != nil {
		s.logger.Warnw("Failed to invalidate unread counts", "user_id", userID, "error", err)
	}
}

// forumFingerprint canonicalizes a visible-forum set so equal sets hit
// the same cache entry regardless of argument order.
func forumFingerprint(forumIDs []uint64) string {
	ids := append([]uint64(nil), forumIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}
