package thread

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"forumcore/internal/app/message"
	"forumcore/internal/providers/cache"
	"forumcore/internal/utils"
)

const EventChannel = "threads"

// Messages is the record-store slice this service reads trees from,
// satisfied by message.Repository.
type Messages interface {
	ListByThreadID(threadID uint64) ([]*message.Message, error)
}

type Service interface {
	Get(ctx context.Context, id uint64) (*Thread, error)
	Create(ctx context.Context, forumID uint64, title string) (*Thread, error)
	GetTree(ctx context.Context, threadID uint64, vis message.Visibility, order message.Order) (*message.Tree, error)
	FullTree(ctx context.Context, threadID uint64) (*message.Tree, error)
	Refresh(ctx context.Context, threadID uint64)
	Invalidate(ctx context.Context, threadID uint64)
	Bump(ctx context.Context, threadID uint64) error
	Exists(ctx context.Context, threadID uint64) (bool, error)
	SetArchived(ctx context.Context, threadID uint64, archived bool) error
	Hide(ctx context.Context, userID, threadID uint64) error
	Unhide(ctx context.Context, userID, threadID uint64) error
}

type service struct {
	repo       Repository
	messages   Messages
	cacheStore cache.Store
	eventBus   *utils.EventBus
	logger     *zap.SugaredLogger
}

func NewService(
	repo Repository,
	messages Messages,
	cacheStore cache.Store,
	eventBus *utils.EventBus,
	logger *zap.Logger,
) Service {
	return &service{
		repo:       repo,
		messages:   messages,
		cacheStore: cacheStore,
		eventBus:   eventBus,
		logger:     logger.Sugar(),
	}
}

func (s *service) Get(ctx context.Context, id uint64) (*Thread, error) {
	return s.repo.GetByID(id)
}

func (s *service) Create(ctx context.Context, forumID uint64, title string) (*Thread, error) {
	t := &Thread{ForumID: forumID, Title: title}
	if err := s.repo.Create(t); err != nil {
		return nil, err
	}
	s.eventBus.Publish(EventChannel, "thread_created", map[string]interface{}{
		"thread_id": t.ID,
		"forum_id":  t.ForumID,
	})
	return t, nil
}

// GetTree returns the materialized tree for one thread, visibility and
// ordering applied, through the cache. A miss rebuilds from the flat
// record set; the builder never sees a record the visibility filter
// rejected, so orphan promotion handles partially-deleted branches.
func (s *service) GetTree(ctx context.Context, threadID uint64, vis message.Visibility, order message.Order) (*message.Tree, error) {
	if order != message.OrderNewest {
		order = message.OrderOldest
	}
	key := cache.ThreadTreeKey{ThreadID: threadID, Variant: variant(vis, order)}
	return cache.Fetch(ctx, s.cacheStore, key, func(context.Context) (*message.Tree, error) {
		return s.buildTree(threadID, vis, order)
	})
}

// FullTree is the unfiltered oldest-first variant the mutation engine
// computes closures against: deleted and draft records included.
func (s *service) FullTree(ctx context.Context, threadID uint64) (*message.Tree, error) {
	return s.GetTree(ctx, threadID, message.Everything, message.OrderOldest)
}

func (s *service) buildTree(threadID uint64, vis message.Visibility, order message.Order) (*message.Tree, error) {
	records, err := s.messages.ListByThreadID(threadID)
	if err != nil {
		return nil, err
	}
	visible := make([]*message.Message, 0, len(records))
	for _, m := range records {
		if vis.Admits(m) {
			visible = append(visible, m)
		}
	}
	return message.BuildTree(visible, order), nil
}

// Refresh drops every cached variant of the thread's tree and eagerly
// repopulates the full variant so the first post-mutation reader does not
// pay the rebuild. Failures are logged only: the cache self-heals on the
// next read, and the store write this call follows is already committed.
func (s *service) Refresh(ctx context.Context, threadID uint64) {
	s.Invalidate(ctx, threadID)

	t, err := s.buildTree(threadID, message.Everything, message.OrderOldest)
	if err != nil {
		s.logger.Warnw("Failed to rebuild thread tree after mutation", "thread_id", threadID, "error", err)
		return
	}
	key := cache.ThreadTreeKey{ThreadID: threadID, Variant: variant(message.Everything, message.OrderOldest)}
	if err := cache.Put(ctx, s.cacheStore, key, t); err != nil {
		s.logger.Warnw("Failed to refresh thread tree cache", "thread_id", threadID, "error", err)
	}
}

func (s *service) Invalidate(ctx context.Context, threadID uint64) {
	if err := s.cacheStore.DeletePrefix(ctx, cache.ThreadTreePrefix(threadID)); err != nil {
		s.logger.Warnw("Failed to invalidate thread tree cache", "thread_id", threadID, "error", err)
	}
}

func (s *service) Bump(ctx context.Context, threadID uint64) error {
	return s.repo.Bump(threadID)
}

func (s *service) Exists(ctx context.Context, threadID uint64) (bool, error) {
	return s.repo.Exists(threadID)
}

func (s *service) SetArchived(ctx context.Context, threadID uint64, archived bool) error {
	if _, err := s.repo.GetByID(threadID); err != nil {
		return err
	}
	if err := s.repo.SetArchived(threadID, archived); err != nil {
		return err
	}
	// Archived threads drop out of unread counts for every user.
	if err := s.cacheStore.DeletePrefix(ctx, cache.AllUnreadPrefix()); err != nil {
		s.logger.Warnw("Failed to invalidate unread counts", "error", err)
	}
	s.eventBus.Publish(EventChannel, "thread_archived", map[string]interface{}{
		"thread_id": threadID,
		"archived":  archived,
	})
	return nil
}

func (s *service) Hide(ctx context.Context, userID, threadID uint64) error {
	if err := s.repo.Hide(userID, threadID); err != nil {
		return err
	}
	return s.cacheStore.DeletePrefix(ctx, cache.UnreadPrefix(userID))
}

func (s *service) Unhide(ctx context.Context, userID, threadID uint64) error {
	if err := s.repo.Unhide(userID, threadID); err != nil {
		return err
	}
	return s.cacheStore.DeletePrefix(ctx, cache.UnreadPrefix(userID))
}

func variant(vis message.Visibility, order message.Order) string {
	return fmt.Sprintf("del=%t:draft=%t:%s", vis.IncludeDeleted, vis.IncludeDrafts, order)
}
