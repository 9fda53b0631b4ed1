package tag

import "time"

type Tag struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageTag struct {
	MessageID uint64 `json:"message_id" gorm:"primaryKey;autoIncrement:false"`
	TagID     uint64 `json:"tag_id" gorm:"primaryKey;autoIncrement:false"`
}
