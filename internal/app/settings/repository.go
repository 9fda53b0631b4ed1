package settings

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"forumcore/internal/apperr"
)

type Repository interface {
	ListByScope(scope Scope, ownerID uint64) (map[string]string, error)
	Upsert(scope Scope, ownerID uint64, name, value string) error
	Delete(scope Scope, ownerID uint64, name string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByScope(scope Scope, ownerID uint64) (map[string]string, error) {
	var options []Option
	err := r.db.
		Where("scope = ? AND owner_id = ?", scope, ownerID).
		Find(&options).Error
	if err != nil {
		return nil, apperr.Store("list config options", err)
	}
	values := make(map[string]string, len(options))
	for _, o := range options {
		values[o.Name] = o.Value
	}
	return values, nil
}

func (r *repository) Upsert(scope Scope, ownerID uint64, name, value string) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "owner_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Option{
		Scope:   scope,
		OwnerID: ownerID,
		Name:    name,
		Value:   value,
	}).Error
	return apperr.Store("upsert config option", err)
}

func (r *repository) Delete(scope Scope, ownerID uint64, name string) (int64, error) {
	res := r.db.Exec(`
		DELETE FROM config_options WHERE scope = ? AND owner_id = ? AND name = ?
	`, scope, ownerID, name)
	if res.Error != nil {
		return 0, apperr.Store("delete config option", res.Error)
	}
	return res.RowsAffected, nil
}
