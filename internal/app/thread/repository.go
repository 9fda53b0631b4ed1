package thread

import (
	"errors"

	"gorm.io/gorm"

	"forumcore/internal/apperr"
)

type Repository interface {
	Create(t *Thread) error
	GetByID(id uint64) (*Thread, error)
	Exists(id uint64) (bool, error)
	Bump(id uint64) error
	SetArchived(id uint64, archived bool) error
	Hide(userID, threadID uint64) error
	Unhide(userID, threadID uint64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(t *Thread) error {
	if err := r.db.Create(t).Error; err != nil {
		return apperr.Store("create thread", err)
	}
	return nil
}

func (r *repository) GetByID(id uint64) (*Thread, error) {
	var t Thread
	err := r.db.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("thread %d", id)
	}
	if err != nil {
		return nil, apperr.Store("get thread", err)
	}
	return &t, nil
}

func (r *repository) Exists(id uint64) (bool, error) {
	var count int64
	err := r.db.Model(&Thread{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, apperr.Store("thread exists", err)
	}
	return count > 0, nil
}

func (r *repository) Bump(id uint64) error {
	err := r.db.Exec(`
		UPDATE threads SET bumped_at = NOW(), updated_at = NOW() WHERE id = ?
	`, id).Error
	return apperr.Store("bump thread", err)
}

func (r *repository) SetArchived(id uint64, archived bool) error {
	err := r.db.Exec(`
		UPDATE threads SET archived = ?, updated_at = NOW() WHERE id = ?
	`, archived, id).Error
	return apperr.Store("archive thread", err)
}

func (r *repository) Hide(userID, threadID uint64) error {
	err := r.db.Exec(`
		INSERT INTO hidden_threads (user_id, thread_id, created_at)
		VALUES (?, ?, NOW())
		ON CONFLICT (user_id, thread_id) DO NOTHING
	`, userID, threadID).Error
	return apperr.Store("hide thread", err)
}

func (r *repository) Unhide(userID, threadID uint64) error {
	err := r.db.Exec(`
		DELETE FROM hidden_threads WHERE user_id = ? AND thread_id = ?
	`, userID, threadID).Error
	return apperr.Store("unhide thread", err)
}
