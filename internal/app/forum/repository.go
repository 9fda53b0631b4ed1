package forum

import (
	"errors"

	"gorm.io/gorm"

	"forumcore/internal/apperr"
)

type Repository interface {
	List() ([]*Forum, error)
	GetByID(id uint64) (*Forum, error)
	GetBySlug(slug string) (*Forum, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List() ([]*Forum, error) {
	var forums []*Forum
	err := r.db.
		Order("created_at ASC").
		Find(&forums).Error
	if err != nil {
		return nil, apperr.Store("list forums", err)
	}
	return forums, nil
}

func (r *repository) GetByID(id uint64) (*Forum, error) {
	var f Forum
	err := r.db.Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("forum %d", id)
	}
	if err != nil {
		return nil, apperr.Store("get forum", err)
	}
	return &f, nil
}

func (r *repository) GetBySlug(slug string) (*Forum, error) {
	var f Forum
	err := r.db.Where("slug = ?", slug).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("forum %q", slug)
	}
	if err != nil {
		return nil, apperr.Store("get forum", err)
	}
	return &f, nil
}
