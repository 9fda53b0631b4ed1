package message

import "time"

// Conventional flag keys. Flags is an open map; these are the keys the
// core itself reads or writes.
const (
	FlagReason   = "reason"
	FlagAccepted = "accepted"
	FlagNoAnswer = "no-answer"
)

type FlagMap map[string]string

// Message is the flat, parent-linked record a thread is reconstructed
// from. Rows are never physically deleted; Deleted is a soft flag so a
// restore can undo a whole subtree removal.
type Message struct {
	ID         uint64    `json:"id" gorm:"primaryKey"`
	ThreadID   uint64    `json:"thread_id" gorm:"index;not null"`
	ParentID   *uint64   `json:"parent_id,omitempty"`
	AuthorID   *uint64   `json:"author_id,omitempty"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	Deleted    bool      `json:"deleted" gorm:"not null;default:false"`
	Draft      bool      `json:"draft" gorm:"not null;default:false"`
	Flags      FlagMap   `json:"flags,omitempty" gorm:"type:jsonb;serializer:json"`
	Upvotes    int64     `json:"upvotes" gorm:"not null;default:0"`
	Downvotes  int64     `json:"downvotes" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (m *Message) Flag(key string) (string, bool) {
	if m.Flags == nil {
		return "", false
	}
	v, ok := m.Flags[key]
	return v, ok
}

type CreateInput struct {
	ThreadID   uint64  `json:"thread_id"`
	ParentID   *uint64 `json:"parent_id,omitempty"`
	AuthorID   *uint64 `json:"author_id,omitempty"`
	AuthorName string  `json:"author_name"`
	Content    string  `json:"content"`
	Draft      bool    `json:"draft"`
}
