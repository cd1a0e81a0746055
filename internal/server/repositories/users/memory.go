package users

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/server/models"
)

// MemoryRepository is an in-process Repository. It enforces the same
// case-insensitive email uniqueness as the Postgres schema.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[uuid.UUID]*models.User),
		now:   time.Now,
	}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func (r *MemoryRepository) findByEmailLocked(email string) *models.User {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.findByEmailLocked(email); u != nil {
		return clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[id]; ok {
		return clone(u), nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.findByEmailLocked(email) != nil, nil
}

func (r *MemoryRepository) Save(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if other := r.findByEmailLocked(user.Email); other != nil && other.ID != user.ID {
		return nil, common.ErrDuplicateEmail
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
		user.CreatedAt = r.now().UTC()
	} else if _, ok := r.users[user.ID]; !ok {
		return nil, common.ErrorNotFound
	}

	r.users[user.ID] = clone(user)
	return user, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, q ListQuery) ([]*models.User, int64, error) {
	r.mu.RLock()
	all := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, clone(u))
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b *models.User) int {
		c := compareBy(q.SortBy, q.Desc, a, b)
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})

	total := int64(len(all))
	start := min(max(q.Offset, 0), len(all))
	end := len(all)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(all))
	}
	return all[start:end], total, nil
}

// compareBy orders like the SQL query: NULL last logins sort last in both
// directions.
func compareBy(field SortField, desc bool, a, b *models.User) int {
	var c int
	switch field {
	case SortByEmail:
		c = cmp.Compare(a.Email, b.Email)
	case SortByName:
		c = cmp.Compare(a.Name, b.Name)
	case SortByLastLogin:
		switch {
		case a.LastLogin == nil && b.LastLogin == nil:
			return 0
		case a.LastLogin == nil:
			return 1
		case b.LastLogin == nil:
			return -1
		}
		c = a.LastLogin.Compare(*b.LastLogin)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if desc {
		return -c
	}
	return c
}
