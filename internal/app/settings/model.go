package settings

import "time"

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeForum  Scope = "forum"
	ScopeUser   Scope = "user"
)

func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeForum || s == ScopeUser
}

// Option is one configuration row. The global scope uses owner id 0.
// At most one row exists per (scope, owner, name).
type Option struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Scope     Scope     `json:"scope" gorm:"uniqueIndex:idx_scope_owner_name;not null"`
	OwnerID   uint64    `json:"owner_id" gorm:"uniqueIndex:idx_scope_owner_name;not null"`
	Name      string    `json:"name" gorm:"uniqueIndex:idx_scope_owner_name;not null"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Option) TableName() string {
	return "config_options"
}
