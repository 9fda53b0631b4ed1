package message

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"forumcore/internal/apperr"
	"forumcore/internal/providers/cache"
	"forumcore/internal/utils"
)

// EventChannel is the broadcast channel for message mutations.
const EventChannel = "messages"

// Threads is the slice of the thread service the mutation engine needs:
// the full (unfiltered) tree for closure computation, the post-write
// cache refresh hook, and activity bumping on creation.
type Threads interface {
	FullTree(ctx context.Context, threadID uint64) (*Tree, error)
	Refresh(ctx context.Context, threadID uint64)
	Bump(ctx context.Context, threadID uint64) error
	Exists(ctx context.Context, threadID uint64) (bool, error)
}

// Tags is the tag store slice used by retag.
type Tags interface {
	Ensure(names []string) ([]uint64, error)
	Replace(messageID uint64, tagIDs []uint64) error
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*Message, error)
	Get(ctx context.Context, id uint64) (*Message, error)
	Edit(ctx context.Context, id uint64, content string) (*Message, error)
	Delete(ctx context.Context, anchorID uint64, reason string) error
	Restore(ctx context.Context, anchorID uint64) error
	SetFlag(ctx context.Context, anchorID uint64, key, value string, cascade bool) error
	ClearFlag(ctx context.Context, anchorID uint64, key string, cascade bool) error
	Retag(ctx context.Context, anchorID uint64, tags []string, cascade bool) error
	Accept(ctx context.Context, id uint64) error
	Unaccept(ctx context.Context, id uint64) error
	MarkNoAnswer(ctx context.Context, id uint64) error
	Vote(ctx context.Context, id uint64, up bool) error
}

type service struct {
	repo       Repository
	threads    Threads
	tags       Tags
	cacheStore cache.Store
	eventBus   *utils.EventBus
	logger     *zap.SugaredLogger
}

func NewService(
	repo Repository,
	threads Threads,
	tags Tags,
	cacheStore cache.Store,
	eventBus *utils.EventBus,
	logger *zap.Logger,
) Service {
	return &service{
		repo:       repo,
		threads:    threads,
		tags:       tags,
		cacheStore: cacheStore,
		eventBus:   eventBus,
		logger:     logger.Sugar(),
	}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Message, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validationf("message content must not be blank")
	}
	ok, err := s.threads.Exists(ctx, in.ThreadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFoundf("thread %d", in.ThreadID)
	}
	if in.ParentID != nil {
		parent, err := s.repo.GetByID(*in.ParentID)
		if err != nil {
			return nil, apperr.Validationf("parent message %d does not exist", *in.ParentID)
		}
		if parent.ThreadID != in.ThreadID {
			return nil, apperr.Validationf("parent message %d belongs to thread %d, not %d",
				parent.ID, parent.ThreadID, in.ThreadID)
		}
	}

	authorName := in.AuthorName
	if authorName == "" && in.AuthorID == nil {
		authorName = "Anonymous"
	}

	m := &Message{
		ThreadID:   in.ThreadID,
		ParentID:   in.ParentID,
		AuthorID:   in.AuthorID,
		AuthorName: authorName,
		Content:    in.Content,
		Draft:      in.Draft,
	}
	if err := s.repo.Create(m); err != nil {
		return nil, err
	}

	if !m.Draft {
		if err := s.threads.Bump(ctx, m.ThreadID); err != nil {
			s.logger.Warnw("Failed to bump thread activity", "thread_id", m.ThreadID, "error", err)
		}
	}

	s.afterMutation(ctx, m.ThreadID, []uint64{m.ID}, "message_created", map[string]interface{}{
		"message_id": m.ID,
		"thread_id":  m.ThreadID,
		"parent_id":  m.ParentID,
	})
	return m, nil
}

func (s *service) Get(ctx context.Context, id uint64) (*Message, error) {
	return cache.Fetch(ctx, s.cacheStore, cache.MessageKey{MessageID: id},
		func(context.Context) (*Message, error) {
			return s.repo.GetByID(id)
		})
}

func (s *service) Edit(ctx context.Context, id uint64, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperr.Validationf("message content must not be blank")
	}
	m, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateContent(id, content); err != nil {
		return nil, err
	}
	s.afterMutation(ctx, m.ThreadID, []uint64{id}, "message_edited", map[string]interface{}{
		"message_id": id,
		"thread_id":  m.ThreadID,
	})
	return s.repo.GetByID(id)
}

func (s *service) Delete(ctx context.Context, anchorID uint64, reason string) error {
	anchor, ids, err := s.closure(ctx, anchorID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkDeleted(ids, anchorID, reason); err != nil {
		return err
	}
	s.afterMutation(ctx, anchor.ThreadID, ids, "subtree_deleted", map[string]interface{}{
		"anchor_id": anchorID,
		"thread_id": anchor.ThreadID,
		"reason":    reason,
		"affected":  len(ids),
	})
	return nil
}

func (s *service) Restore(ctx context.Context, anchorID uint64) error {
	anchor, ids, err := s.closure(ctx, anchorID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkRestored(ids); err != nil {
		return err
	}
	s.afterMutation(ctx, anchor.ThreadID, ids, "subtree_restored", map[string]interface{}{
		"anchor_id": anchorID,
		"thread_id": anchor.ThreadID,
		"affected":  len(ids),
	})
	return nil
}

func (s *service) SetFlag(ctx context.Context, anchorID uint64, key, value string, cascade bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperr.Validationf("flag key must not be blank")
	}
	if value == "" {
		return apperr.Validationf("flag %q value must not be blank", key)
	}
	anchor, ids, err := s.scope(ctx, anchorID, cascade)
	if err != nil {
		return err
	}
	if err := s.repo.SetFlag(ids, key, value); err != nil {
		return err
	}
	s.afterMutation(ctx, anchor.ThreadID, ids, "flag_set", map[string]interface{}{
		"anchor_id": anchorID,
		"thread_id": anchor.ThreadID,
		"key":       key,
		"affected":  len(ids),
	})
	return nil
}

func (s *service) ClearFlag(ctx context.Context, anchorID uint64, key string, cascade bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperr.Validationf("flag key must not be blank")
	}
	anchor, ids, err := s.scope(ctx, anchorID, cascade)
	if err != nil {
		return err
	}
	if err := s.repo.ClearFlag(ids, key); err != nil {
		return err
	}
	s.afterMutation(ctx, anchor.ThreadID, ids, "flag_cleared", map[string]interface{}{
		"anchor_id": anchorID,
		"thread_id": anchor.ThreadID,
		"key":       key,
		"affected":  len(ids),
	})
	return nil
}

// Retag replaces the anchor's tag set. With cascade the same set is
// applied to every descendant in the precomputed closure, depth-first,
// each as a non-cascading application — the fan-out is exactly one level.
func (s *service) Retag(ctx context.Context, anchorID uint64, tags []string, cascade bool) error {
	names := normalizeTags(tags)
	anchor, ids, err := s.scope(ctx, anchorID, cascade)
	if err != nil {
		return err
	}
	tagIDs, err := s.tags.Ensure(names)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.tags.Replace(id, tagIDs); err != nil {
			return err
		}
	}
	s.afterMutation(ctx, anchor.ThreadID, ids, "retagged", map[string]interface{}{
		"anchor_id": anchorID,
		"thread_id": anchor.ThreadID,
		"tags":      names,
		"cascade":   cascade,
		"affected":  len(ids),
	})
	return nil
}

func (s *service) Accept(ctx context.Context, id uint64) error {
	return s.SetFlag(ctx, id, FlagAccepted, "true", false)
}

func (s *service) Unaccept(ctx context.Context, id uint64) error {
	return s.ClearFlag(ctx, id, FlagAccepted, false)
}

func (s *service) MarkNoAnswer(ctx context.Context, id uint64) error {
	return s.SetFlag(ctx, id, FlagNoAnswer, "true", false)
}

func (s *service) Vote(ctx context.Context, id uint64, up bool) error {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	var upDelta, downDelta int64
	if up {
		upDelta = 1
	} else {
		downDelta = 1
	}
	if err := s.repo.AdjustVotes(id, upDelta, downDelta); err != nil {
		return err
	}
	s.afterMutation(ctx, m.ThreadID, []uint64{id}, "message_voted", map[string]interface{}{
		"message_id": id,
		"thread_id":  m.ThreadID,
		"up":         up,
	})
	return nil
}

// closure resolves the anchor and its full descendant id set from the
// thread's materialized tree: one subtree traversal, O(subtree size).
func (s *service) closure(ctx context.Context, anchorID uint64) (*Message, []uint64, error) {
	anchor, err := s.repo.GetByID(anchorID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.threads.FullTree(ctx, anchor.ThreadID)
	if err != nil {
		return nil, nil, err
	}
	ids := t.Subtree(anchorID)
	if len(ids) == 0 {
		// Stale tree snapshot that predates the anchor. The anchor row
		// itself is authoritative, so fall back to a single-row scope.
		ids = []uint64{anchorID}
	}
	return anchor, ids, nil
}

func (s *service) scope(ctx context.Context, anchorID uint64, cascade bool) (*Message, []uint64, error) {
	if cascade {
		return s.closure(ctx, anchorID)
	}
	anchor, err := s.repo.GetByID(anchorID)
	if err != nil {
		return nil, nil, err
	}
	return anchor, []uint64{anchorID}, nil
}

// afterMutation runs the cache and broadcast steps once the store write
// is acknowledged. Cache failures are logged and swallowed: the next read
// repopulates from the store, so the mutation still reports success.
func (s *service) afterMutation(ctx context.Context, threadID uint64, ids []uint64, event string, payload map[string]interface{}) {
	keys := make([]cache.Key, len(ids))
	for i, id := range ids {
		keys[i] = cache.MessageKey{MessageID: id}
	}
	if err := cache.Invalidate(ctx, s.cacheStore, keys...); err != nil {
		s.logger.Warnw("Failed to invalidate message snapshots", "error", err, "affected", len(ids))
	}
	if err := s.cacheStore.DeletePrefix(ctx, cache.AllUnreadPrefix()); err != nil {
		s.logger.Warnw("Failed to invalidate unread counts", "error", err)
	}
	s.threads.Refresh(ctx, threadID)
	s.eventBus.Publish(EventChannel, event, payload)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
