package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a registered account. The table is owned and mutated by the
// CRUD application; the alert engine only ever reads it.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"uniqueIndex;not null" json:"username"`
	Email         string    `json:"email"`
	Role          string    `gorm:"default:'user'" json:"role"` // user, admin
	Symbols       string    `gorm:"type:text" json:"symbols"`   // one raw ticker per line
	NotifyEnabled bool      `json:"notify_enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NotificationHistory records one alert that was sent (or is about to be sent
// in the current cycle) for a (user, symbol, pattern) triple. Rows are
// insert-only; the dedup window query only ever looks back a few minutes.
type NotificationHistory struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UserID uint      `gorm:"index:idx_user_symbol_kind" json:"user_id"`
	Symbol string    `gorm:"index:idx_user_symbol_kind" json:"symbol"` // canonical form
	Kind   string    `gorm:"index:idx_user_symbol_kind" json:"kind"`
	SentAt time.Time `gorm:"index" json:"sent_at"`
}

// MigrateNotificationModels runs database migrations for engine-owned tables.
// The users table belongs to the CRUD app, but migrating it here keeps local
// sqlite setups and tests self-contained.
func MigrateNotificationModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&NotificationHistory{},
	)
}
