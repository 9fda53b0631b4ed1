package thread

import "time"

// Thread is the persisted discussion row. The materialized reply tree is
// derived state: rebuilt from the flat message set on every cache miss,
// never stored here.
type Thread struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	ForumID   uint64    `json:"forum_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Archived  bool      `json:"archived" gorm:"not null;default:false"`
	BumpedAt  time.Time `json:"bumped_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HiddenThread marks a thread a user has hidden; hidden threads are
// excluded from that user's unread counts.
type HiddenThread struct {
	UserID    uint64    `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	ThreadID  uint64    `json:"thread_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
}
