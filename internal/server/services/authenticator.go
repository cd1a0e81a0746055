package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/server/models"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/users"
)

// Hasher hashes and checks raw passwords. Compare returns
// common.ErrInvalidCredentials on mismatch.
type Hasher interface {
	Hash(raw string) (string, error)
	Compare(hash, raw string) error
}

// Authenticator verifies raw credentials and returns the matching user, or
// common.ErrInvalidCredentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// PasswordAuthenticator checks an email/password pair against the store.
// Unknown emails still pay for one hash comparison so that response time
// does not reveal which accounts exist.
type PasswordAuthenticator struct {
	users  users.Repository
	hasher Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewPasswordAuthenticator(repo users.Repository, hasher Hasher) *PasswordAuthenticator {
	return &PasswordAuthenticator{users: repo, hasher: hasher}
}

func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := a.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.burnComparison(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *PasswordAuthenticator) burnComparison(password string) {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = a.hasher.Hash("tgms-timing-equaliser")
	})
	if a.dummyHash != "" {
		_ = a.hasher.Compare(a.dummyHash, password)
	}
}
