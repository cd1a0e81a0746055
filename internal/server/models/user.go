// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/server/auth"
)

// User is a registered account. Email is stored lower-cased and is unique
// regardless of case.
type User struct {
	ID           uuid.UUID  `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Phone        string     `db:"phone"`
	Role         auth.Role  `db:"role"`
	CreatedAt    time.Time  `db:"created_at"`
	LastLogin    *time.Time `db:"last_login"`
}

// Record returns the identity subset consumed by the authentication pipeline.
func (u *User) Record() auth.UserRecord {
	return auth.UserRecord{ID: u.ID, Email: u.Email, Role: u.Role}
}
