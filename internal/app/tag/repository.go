package tag

import (
	"errors"

	"gorm.io/gorm"

	"forumcore/internal/apperr"
)

type Repository interface {
	Ensure(names []string) ([]uint64, error)
	Replace(messageID uint64, tagIDs []uint64) error
	GetByName(name string) (*Tag, error)
	ListForMessage(messageID uint64) ([]string, error)
	Merge(fromID, toID uint64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Ensure upserts the given tag names and returns their ids in input
// order. Names are assumed normalized by the caller.
func (r *repository) Ensure(names []string) ([]uint64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	err := r.db.Exec(`
		INSERT INTO tags (name, created_at)
		SELECT unnest(?::text[]), NOW()
		ON CONFLICT (name) DO NOTHING
	`, names).Error
	if err != nil {
		return nil, apperr.Store("ensure tags", err)
	}

	var tags []Tag
	if err := r.db.Where("name IN ?", names).Find(&tags).Error; err != nil {
		return nil, apperr.Store("ensure tags", err)
	}
	byName := make(map[string]uint64, len(tags))
	for _, t := range tags {
		byName[t.Name] = t.ID
	}
	ids := make([]uint64, 0, len(names))
	for _, n := range names {
		if id, ok := byName[n]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Replace swaps a message's tag set atomically: delete then insert in
// one transaction.
func (r *repository) Replace(messageID uint64, tagIDs []uint64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM message_tags WHERE message_id = ?`, messageID).Error; err != nil {
			return err
		}
		if len(tagIDs) == 0 {
			return nil
		}
		return tx.Exec(`
			INSERT INTO message_tags (message_id, tag_id)
			SELECT ?, unnest(?::bigint[])
			ON CONFLICT DO NOTHING
		`, messageID, tagIDs).Error
	})
	return apperr.Store("replace message tags", err)
}

func (r *repository) GetByName(name string) (*Tag, error) {
	var t Tag
	err := r.db.Where("name = ?", name).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("tag %q", name)
	}
	if err != nil {
		return nil, apperr.Store("get tag", err)
	}
	return &t, nil
}

func (r *repository) ListForMessage(messageID uint64) ([]string, error) {
	var names []string
	err := r.db.Raw(`
		SELECT t.name FROM tags t
		JOIN message_tags mt ON mt.tag_id = t.id
		WHERE mt.message_id = ?
		ORDER BY t.name
	`, messageID).Scan(&names).Error
	if err != nil {
		return nil, apperr.Store("list message tags", err)
	}
	return names, nil
}

// Merge repoints every association of fromID onto toID and drops the
// source tag row. Associations that would duplicate an existing toID row
// are deleted instead of repointed.
func (r *repository) Merge(fromID, toID uint64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			DELETE FROM message_tags mt
			WHERE mt.tag_id = ?
			  AND EXISTS (
			      SELECT 1 FROM message_tags x
			      WHERE x.message_id = mt.message_id AND x.tag_id = ?
			  )
		`, fromID, toID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			UPDATE message_tags SET tag_id = ? WHERE tag_id = ?
		`, toID, fromID).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM tags WHERE id = ?`, fromID).Error
	})
	return apperr.Store("merge tags", err)
}
