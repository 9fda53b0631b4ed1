package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Key is the closed set of cache addresses. Every derived value the core
// caches has a Key variant here, so invalidation call sites stay
// exhaustively checkable instead of interpolating ad hoc strings.
type Key interface {
	CacheKey() string
}

// ThreadTreeKey addresses one materialized tree snapshot of a thread.
// Variant encodes the visibility/ordering combination the snapshot was
// built with; all variants of one thread share the prefix returned by
// ThreadTreePrefix.
type ThreadTreeKey struct {
	ThreadID uint64
	Variant  string
}

func (k ThreadTreeKey) CacheKey() string {
	return fmt.Sprintf("thread:tree:%d:%s", k.ThreadID, k.Variant)
}

func ThreadTreePrefix(threadID uint64) string {
	return fmt.Sprintf("thread:tree:%d:", threadID)
}

// MessageKey addresses a single-message snapshot.
type MessageKey struct {
	MessageID uint64
}

func (k MessageKey) CacheKey() string {
	return fmt.Sprintf("message:%d", k.MessageID)
}

// UnreadCountKey addresses one user's unread counts for a given set of
// visible forums. Forums is a canonical fingerprint of that set; all
// entries of one user share the prefix returned by UnreadPrefix.
type UnreadCountKey struct {
	UserID uint64
	Forums string
}

func (k UnreadCountKey) CacheKey() string {
	return fmt.Sprintf("unread:%d:forums:%s", k.UserID, k.Forums)
}

func UnreadPrefix(userID uint64) string {
	return fmt.Sprintf("unread:%d:", userID)
}

// AllUnreadPrefix covers every user's unread counts. Subtree mutations
// cannot enumerate the users they affect, so they drop the whole space.
func AllUnreadPrefix() string {
	return "unread:"
}

// SettingsKey addresses the option map of one configuration scope.
type SettingsKey struct {
	Scope   string
	OwnerID uint64
}

func (k SettingsKey) CacheKey() string {
	return fmt.Sprintf("settings:%s:%d", k.Scope, k.OwnerID)
}

// Store is the process-wide cache. Entries have no expiry of their own;
// staleness is bounded by explicit invalidation from the mutation paths.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Fetch returns the cached value for k, invoking produce and caching the
// result on a miss. Concurrent misses may each invoke produce; the last
// writer wins. A failure to cache the produced value is swallowed — the
// value itself is still returned.
func Fetch[T any](ctx context.Context, s Store, k Key, produce func(context.Context) (T, error)) (T, error) {
	if raw, ok := s.Get(ctx, k.CacheKey()); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	v, err := produce(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		_ = s.Set(ctx, k.CacheKey(), raw)
	}
	return v, nil
}

// Put unconditionally overwrites the entry for k, used to eagerly refresh
// after a mutation instead of merely invalidating.
func Put[T any](ctx context.Context, s Store, k Key, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", k.CacheKey(), err)
	}
	return s.Set(ctx, k.CacheKey(), raw)
}

func Invalidate(ctx context.Context, s Store, keys ...Key) error {
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.CacheKey()
	}
	return s.Delete(ctx, raw...)
}
