package readmark

import "time"

// ReadMarker asserts one user has read one message. Absence means
// unread: marking many messages unread is a single bulk delete, not a
// flag flip per row.
type ReadMarker struct {
	UserID    uint64    `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	MessageID uint64    `json:"message_id" gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (ReadMarker) TableName() string {
	return "read_markers"
}

// UnreadCounts pairs the two derived quantities; both come out of one
// consistent read pass so they can never disagree.
type UnreadCounts struct {
	Threads  int64 `json:"threads"`
	Messages int64 `json:"messages"`
}
