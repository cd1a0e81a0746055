// Package users persists user accounts. Email comparisons are always
// case-insensitive.
package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/server/models"
)

// SortField is a whitelisted column for listing users.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByEmail     SortField = "email"
	SortByName      SortField = "name"
	SortByLastLogin SortField = "lastLogin"
)

// Valid reports whether f names a sortable column.
func (f SortField) Valid() bool {
	_, ok := sortColumns[f]
	return ok
}

var sortColumns = map[SortField]string{
	SortByCreatedAt: "created_at",
	SortByEmail:     "email",
	SortByName:      "name",
	SortByLastLogin: "last_login",
}

// ListQuery selects one page of users.
type ListQuery struct {
	Offset int
	Limit  int
	SortBy SortField
	Desc   bool
}

// Repository is the credential store used by the lifecycle service.
//
// Lookups return common.ErrorNotFound for unknown users. Save inserts when
// the user has no ID yet and updates otherwise; a clash on the email index
// surfaces as common.ErrDuplicateEmail.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q ListQuery) ([]*models.User, int64, error)
}
