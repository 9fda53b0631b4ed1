package message

import (
	"errors"

	"gorm.io/gorm"

	"forumcore/internal/apperr"
)

type Repository interface {
	Create(m *Message) error
	GetByID(id uint64) (*Message, error)
	ListByThreadID(threadID uint64) ([]*Message, error)
	MarkDeleted(ids []uint64, anchorID uint64, reason string) error
	MarkRestored(ids []uint64) error
	SetFlag(ids []uint64, key, value string) error
	ClearFlag(ids []uint64, key string) error
	UpdateContent(id uint64, content string) error
	AdjustVotes(id uint64, up, down int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(m *Message) error {
	if err := r.db.Create(m).Error; err != nil {
		return apperr.Store("create message", err)
	}
	return nil
}

func (r *repository) GetByID(id uint64) (*Message, error) {
	var m Message
	err := r.db.Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("message %d", id)
	}
	if err != nil {
		return nil, apperr.Store("get message", err)
	}
	return &m, nil
}

func (r *repository) ListByThreadID(threadID uint64) ([]*Message, error) {
	var messages []*Message
	err := r.db.
		Where("thread_id = ?", threadID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, apperr.Store("list thread messages", err)
	}
	return messages, nil
}

// MarkDeleted soft-deletes the whole id set in one transaction: a single
// bulk statement for the non-anchor rows (dropping any stale reason) and
// one for the anchor, which alone records the supplied reason.
func (r *repository) MarkDeleted(ids []uint64, anchorID uint64, reason string) error {
	descendants := without(ids, anchorID)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if len(descendants) > 0 {
			if err := tx.Exec(`
				UPDATE messages
				SET deleted = TRUE,
				    flags = COALESCE(flags, '{}'::jsonb) - ?::text,
				    updated_at = NOW()
				WHERE id IN ?
			`, FlagReason, descendants).Error; err != nil {
				return err
			}
		}
		if reason == "" {
			return tx.Exec(`
				UPDATE messages
				SET deleted = TRUE,
				    flags = COALESCE(flags, '{}'::jsonb) - ?::text,
				    updated_at = NOW()
				WHERE id = ?
			`, FlagReason, anchorID).Error
		}
		return tx.Exec(`
			UPDATE messages
			SET deleted = TRUE,
			    flags = jsonb_set(COALESCE(flags, '{}'::jsonb), ARRAY[?::text], to_jsonb(?::text)),
			    updated_at = NOW()
			WHERE id = ?
		`, FlagReason, reason, anchorID).Error
	})
	return apperr.Store("mark deleted", err)
}

func (r *repository) MarkRestored(ids []uint64) error {
	err := r.db.Exec(`
		UPDATE messages
		SET deleted = FALSE,
		    flags = COALESCE(flags, '{}'::jsonb) - ?::text,
		    updated_at = NOW()
		WHERE id IN ?
	`, FlagReason, ids).Error
	return apperr.Store("mark restored", err)
}

func (r *repository) SetFlag(ids []uint64, key, value string) error {
	err := r.db.Exec(`
		UPDATE messages
		SET flags = jsonb_set(COALESCE(flags, '{}'::jsonb), ARRAY[?::text], to_jsonb(?::text)),
		    updated_at = NOW()
		WHERE id IN ?
	`, key, value, ids).Error
	return apperr.Store("set flag", err)
}

func (r *repository) ClearFlag(ids []uint64, key string) error {
	err := r.db.Exec(`
		UPDATE messages
		SET flags = COALESCE(flags, '{}'::jsonb) - ?::text,
		    updated_at = NOW()
		WHERE id IN ?
	`, key, ids).Error
	return apperr.Store("clear flag", err)
}

func (r *repository) UpdateContent(id uint64, content string) error {
	err := r.db.Exec(`
		UPDATE messages SET content = ?, updated_at = NOW() WHERE id = ?
	`, content, id).Error
	return apperr.Store("update content", err)
}

func (r *repository) AdjustVotes(id uint64, up, down int64) error {
	err := r.db.Exec(`
		UPDATE messages
		SET upvotes = GREATEST(upvotes + ?, 0),
		    downvotes = GREATEST(downvotes + ?, 0),
		    updated_at = NOW()
		WHERE id = ?
	`, up, down, id).Error
	return apperr.Store("adjust votes", err)
}

func without(ids []uint64, exclude uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
