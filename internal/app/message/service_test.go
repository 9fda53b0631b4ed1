package message_test

import (
	"context"
	"sort"
	"sync"
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

// fakeMessages is an in-memory record store implementing both
// message.Repository and thread.Messages, mimicking the bulk-update
// semantics of the SQL repository.
type fakeMessages struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*message.Message
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{rows: make(map[uint64]*message.Message)}
}

func (f *fakeMessages) Create(m *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(f.nextID) * time.Second)
	m.UpdatedAt = m.CreatedAt
	f.rows[m.ID] = clone(m)
	return nil
}

func (f *fakeMessages) GetByID(id uint64) (*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFoundf("message %d", id)
	}
	return clone(m), nil
}

func (f *fakeMessages) ListByThreadID(threadID uint64) ([]*message.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*message.Message
	for _, m := range f.rows {
		if m.ThreadID == threadID {
			out = append(out, clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMessages) MarkDeleted(ids []uint64, anchorID uint64, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		m := f.rows[id]
		m.Deleted = true
		delete(m.Flags, message.FlagReason)
	}
	if reason != "" {
		anchor := f.rows[anchorID]
		if anchor.Flags == nil {
			anchor.Flags = message.FlagMap{}
		}
		anchor.Flags[message.FlagReason] = reason
	}
	return nil
}

func (f *fakeMessages) MarkRestored(ids []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		m := f.rows[id]
		m.Deleted = false
		delete(m.Flags, message.FlagReason)
	}
	return nil
}

func (f *fakeMessages) SetFlag(ids []uint64, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		m := f.rows[id]
		if m.Flags == nil {
			m.Flags = message.FlagMap{}
		}
		m.Flags[key] = value
	}
	return nil
}

func (f *fakeMessages) ClearFlag(ids []uint64, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.rows[id].Flags, key)
	}
	return nil
}

func (f *fakeMessages) UpdateContent(id uint64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Content = content
	return nil
}

func (f *fakeMessages) AdjustVotes(id uint64, up, down int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Upvotes += up
	f.rows[id].Downvotes += down
	return nil
}

func clone(m *message.Message) *message.Message {
	out := *m
	if m.Flags != nil {
		out.Flags = make(message.FlagMap, len(m.Flags))
		for k, v := range m.Flags {
			out.Flags[k] = v
		}
	}
	return &out
}

type fakeThreadRows struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*thread.Thread
	hidden map[[2]uint64]bool
}

func newFakeThreadRows() *fakeThreadRows {
	return &fakeThreadRows{rows: make(map[uint64]*thread.Thread), hidden: make(map[[2]uint64]bool)}
}

func (f *fakeThreadRows) Create(t *thread.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t.ID = f.nextID
	f.rows[t.ID] = t
	return nil
}

func (f *fakeThreadRows) GetByID(id uint64) (*thread.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFoundf("thread %d", id)
	}
	return t, nil
}

func (f *fakeThreadRows) Exists(id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeThreadRows) Bump(id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.rows[id]; ok {
		t.BumpedAt = time.Now()
	}
	return nil
}

func (f *fakeThreadRows) SetArchived(id uint64, archived bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Archived = archived
	return nil
}

func (f *fakeThreadRows) Hide(userID, threadID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[[2]uint64{userID, threadID}] = true
	return nil
}

func (f *fakeThreadRows) Unhide(userID, threadID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hidden, [2]uint64{userID, threadID})
	return nil
}

type fakeTags struct {
	mu       sync.Mutex
	nextID   uint64
	ids      map[string]uint64
	assigned map[uint64][]uint64
}

func newFakeTags() *fakeTags {
	return &fakeTags{ids: make(map[string]uint64), assigned: make(map[uint64][]uint64)}
}

func (f *fakeTags) Ensure(names []string) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, 0, len(names))
	for _, n := range names {
		if _, ok := f.ids[n]; !ok {
			f.nextID++
			f.ids[n] = f.nextID
		}
		out = append(out, f.ids[n])
	}
	return out, nil
}

func (f *fakeTags) Replace(messageID uint64, tagIDs []uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned[messageID] = append([]uint64(nil), tagIDs...)
	return nil
}

type engine struct {
	msgs    *fakeMessages
	tags    *fakeTags
	store   *cache.Memory
	bus     *utils.EventBus
	threads thread.Service
	svc     message.Service
	thread  *thread.Thread
}

// newEngine wires the real thread and message services over in-memory
// fakes and seeds one thread with messages 1 (root) <- 2 <- 3.
func newEngine(t *testing.T) *engine {
	t.Helper()
	logger := zap.NewNop()
	msgs := newFakeMessages()
	threadRows := newFakeThreadRows()
	tags := newFakeTags()
	store := cache.NewMemory()
	bus := utils.NewEventBus()

	threads := thread.NewService(threadRows, msgs, store, bus, logger)
	svc := message.NewService(msgs, threads, tags, store, bus, logger)

	th, err := threads.Create(context.Background(), 1, "seed thread")
	require.NoError(t, err)

	root, err := svc.Create(context.Background(), message.CreateInput{ThreadID: th.ID, Content: "root"})
	require.NoError(t, err)
	reply, err := svc.Create(context.Background(), message.CreateInput{ThreadID: th.ID, ParentID: &root.ID, Content: "reply"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), message.CreateInput{ThreadID: th.ID, ParentID: &reply.ID, Content: "nested"})
	require.NoError(t, err)

	return &engine{msgs: msgs, tags: tags, store: store, bus: bus, threads: threads, svc: svc, thread: th}
}

func TestDeleteCascadesWithAnchorReason(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	err := e.svc.Delete(ctx, 1, "off-topic")
	require.NoError(t, err)

	for id := uint64(1); id <= 3; id++ {
		m, err := e.msgs.GetByID(id)
		require.NoError(t, err)
		require.True(t, m.Deleted, "message %d", id)
		reason, ok := m.Flag(message.FlagReason)
		if id == 1 {
			require.True(t, ok)
			require.Equal(t, "off-topic", reason)
		} else {
			require.False(t, ok, "descendant %d must not carry the reason", id)
		}
	}
}

func TestDeleteTouchesOnlySubtree(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Delete(ctx, 2, "spam"))

	root, _ := e.msgs.GetByID(1)
	require.False(t, root.Deleted)
	for _, id := range []uint64{2, 3} {
		m, _ := e.msgs.GetByID(id)
		require.True(t, m.Deleted)
	}
}

func TestRestoreUndoesDelete(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Delete(ctx, 1, "mistake"))
	require.NoError(t, e.svc.Restore(ctx, 1))

	for id := uint64(1); id <= 3; id++ {
		m, _ := e.msgs.GetByID(id)
		require.False(t, m.Deleted, "message %d", id)
		_, ok := m.Flag(message.FlagReason)
		require.False(t, ok)
	}
}

func TestDeleteAnchorNotFound(t *testing.T) {
	e := newEngine(t)
	err := e.svc.Delete(context.Background(), 404, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetFlagCascadeToggle(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.SetFlag(ctx, 2, "locked", "true", true))
	for _, id := range []uint64{2, 3} {
		m, _ := e.msgs.GetByID(id)
		v, ok := m.Flag("locked")
		require.True(t, ok)
		require.Equal(t, "true", v)
	}
	root, _ := e.msgs.GetByID(1)
	_, ok := root.Flag("locked")
	require.False(t, ok)

	require.NoError(t, e.svc.ClearFlag(ctx, 2, "locked", false))
	m2, _ := e.msgs.GetByID(2)
	_, ok = m2.Flag("locked")
	require.False(t, ok)
	m3, _ := e.msgs.GetByID(3)
	_, ok = m3.Flag("locked")
	require.True(t, ok, "non-cascading clear must leave descendants alone")
}

func TestSetFlagValidation(t *testing.T) {
	e := newEngine(t)
	err := e.svc.SetFlag(context.Background(), 1, "  ", "x", false)
	require.ErrorIs(t, err, apperr.ErrValidation)
	err = e.svc.SetFlag(context.Background(), 1, "k", "", false)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRetagCascade(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Retag(ctx, 1, []string{"Go", "  help ", "go"}, true))

	want, _ := e.tags.Ensure([]string{"go", "help"})
	for id := uint64(1); id <= 3; id++ {
		require.Equal(t, want, e.tags.assigned[id], "message %d", id)
	}
}

func TestRetagAnchorOnly(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Retag(ctx, 1, []string{"meta"}, false))
	require.NotEmpty(t, e.tags.assigned[1])
	require.Empty(t, e.tags.assigned[2])
	require.Empty(t, e.tags.assigned[3])
}

func TestTreeCacheReflectsMutations(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	before, err := e.threads.GetTree(ctx, e.thread.ID, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	require.Equal(t, 3, before.Size())

	require.NoError(t, e.svc.Delete(ctx, 2, "noise"))

	after, err := e.threads.GetTree(ctx, e.thread.ID, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	require.Equal(t, 1, after.Size(), "cached tree must never show the pre-mutation snapshot")
	require.Nil(t, after.Node(2))

	require.NoError(t, e.svc.Restore(ctx, 2))
	restored, err := e.threads.GetTree(ctx, e.thread.ID, message.VisibleOnly, message.OrderOldest)
	require.NoError(t, err)
	require.Equal(t, 3, restored.Size())
}

func TestCreateValidatesParent(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	other, err := e.threads.Create(ctx, 1, "other thread")
	require.NoError(t, err)

	parent := uint64(1) // belongs to the seed thread
	_, err = e.svc.Create(ctx, message.CreateInput{ThreadID: other.ID, ParentID: &parent, Content: "cross-thread"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	missing := uint64(999)
	_, err = e.svc.Create(ctx, message.CreateInput{ThreadID: e.thread.ID, ParentID: &missing, Content: "orphan"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Create(ctx, message.CreateInput{ThreadID: e.thread.ID, Content: "   "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Create(ctx, message.CreateInput{ThreadID: 42, Content: "nowhere"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVoteAndEdit(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Vote(ctx, 1, true))
	require.NoError(t, e.svc.Vote(ctx, 1, true))
	require.NoError(t, e.svc.Vote(ctx, 1, false))
	m, _ := e.msgs.GetByID(1)
	require.Equal(t, int64(2), m.Upvotes)
	require.Equal(t, int64(1), m.Downvotes)

	edited, err := e.svc.Edit(ctx, 1, "updated body")
	require.NoError(t, err)
	require.Equal(t, "updated body", edited.Content)

	_, err = e.svc.Edit(ctx, 1, " ")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAcceptWrappers(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.svc.Accept(ctx, 2))
	m, _ := e.msgs.GetByID(2)
	v, ok := m.Flag(message.FlagAccepted)
	require.True(t, ok)
	require.Equal(t, "true", v)
	m3, _ := e.msgs.GetByID(3)
	_, ok = m3.Flag(message.FlagAccepted)
	require.False(t, ok, "accept never cascades")

	require.NoError(t, e.svc.Unaccept(ctx, 2))
	m, _ = e.msgs.GetByID(2)
	_, ok = m.Flag(message.FlagAccepted)
	require.False(t, ok)
}

func TestMutationPublishesEvent(t *testing.T) {
	e := newEngine(t)

	var mu sync.Mutex
	var got []utils.Event
	e.bus.Subscribe(message.EventChannel, func(ev utils.Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	require.NoError(t, e.svc.Delete(context.Background(), 1, "done"))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, got)
	require.Equal(t, "subtree_deleted", got[len(got)-1].Event)
}
