package thread_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"forumcore/internal/apperr"
	"forumcore/internal/app/message"
	"forumcore/internal/app/thread"
	"forumcore/internal/providers/cache"
	"forumcore/internal/utils"
)

type staticMessages struct {
	records []*message.Message
	lists   atomic.Int64
}

func (s *staticMessages) ListByThreadID(uint64) ([]*message.Message, error) {
	s.lists.Add(1)
	return s.records, nil
}

type memThreads struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*thread.Thread
	hidden map[[2]uint64]bool
}

func newMemThreads() *memThreads {
	return &memThreads{rows: make(map[uint64]*thread.Thread), hidden: make(map[[2]uint64]bool)}
}

func (f *memThreads) Create(t *thread.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	f.rows[t.ID] = t
	return nil
}

func (f *memThreads) GetByID(id uint64) (*thread.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFoundf("thread %d", id)
	}
	return t, nil
}

func (f *memThreads) Exists(id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok, nil
}

func (f *memThreads) Bump(id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.rows[id]; ok {
		t.BumpedAt = time.Now()
	}
	return nil
}

func (f *memThreads) SetArchived(id uint64, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Archived = archived
	return nil
}

func (f *memThreads) Hide(userID, threadID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[[2]uint64{userID, threadID}] = true
	return nil
}

func (f *memThreads) Unhide(userID, threadID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hidden, [2]uint64{userID, threadID})
	return nil
}

func record(id uint64, parent *uint64, deleted, draft bool) *message.Message {
	return &message.Message{
		ID:        id,
		ThreadID:  1,
		ParentID:  parent,
		Deleted:   deleted,
		Draft:     draft,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Second),
	}
}

func u(v uint64) *uint64 { return &v }

func setup(t *testing.T, records []*message.Message) (thread.Service, *staticMessages, *cache.Memory) {
	t.Helper()
	src := &staticMessages{records: records}
	store := cache.NewMemory()
	svc := thread.NewService(newMemThreads(), src, store, utils.NewEventBus(), zap.NewNop())
	return svc, src, store
}

func TestGetTreeCachesPerVariant(t *testing.T) {
	svc, src, _ := setup(t, []*message.Message{
		record(1, nil, false, false),
		record(2, u(1), false, false),
	})
	ctx := context.Background()

	_, err := svc.GetTree(ctx, 1, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	_, err = svc.GetTree(ctx, 1, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	require.Equal(t, int64(1), src.lists.Load(), "second read must come from cache")

	_, err = svc.GetTree(ctx, 1, message.VisibleOnly, message.OrderNewest)
	require.NoError(t, err)
	require.Equal(t, int64(2), src.lists.Load(), "a different variant is a different entry")
}

func TestGetTreeAppliesVisibility(t *testing.T) {
	svc, _, _ := setup(t, []*message.Message{
		record(1, nil, false, false),
		record(2, u(1), true, false),
		record(3, u(2), false, false),
		record(4, u(1), false, true),
	})
	ctx := context.Background()

	visible, err := svc.GetTree(ctx, 1, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	// 2 is deleted, 4 is a draft; 3 loses its parent and is promoted.
	require.Equal(t, 2, visible.Size())
	require.Len(t, visible.Roots, 2)
	require.Nil(t, visible.Node(2))
	require.NotNil(t, visible.Node(3))

	full, err := svc.FullTree(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, full.Size())
	require.Len(t, full.Roots, 1)
}

func TestInvalidateForcesRebuild(t *testing.T) {
	svc, src, _ := setup(t, []*message.Message{record(1, nil, false, false)})
	ctx := context.Background()

	_, err := svc.GetTree(ctx, 1, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)

	svc.Invalidate(ctx, 1)

	_, err = svc.GetTree(ctx, 1, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	require.Equal(t, int64(2), src.lists.Load())
}

func TestRefreshPrepopulatesFullVariant(t *testing.T) {
	svc, src, _ := setup(t, []*message.Message{record(1, nil, false, false)})
	ctx := context.Background()

	svc.Refresh(ctx, 1)
	require.Equal(t, int64(1), src.lists.Load())

	// A full-tree read right after a refresh hits the eager snapshot.
	_, err := svc.FullTree(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), src.lists.Load())
}

func TestSetArchivedUnknownThread(t *testing.T) {
	svc, _, _ := setup(t, nil)
	err := svc.SetArchived(context.Background(), 9, true)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
