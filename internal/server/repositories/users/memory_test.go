package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/models"
)

func TestMemoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	u, err := repo.Save(ctx, &models.User{Email: "ann@test.com", Name: "Ann", Role: auth.RoleTourist})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, u.ID)
	require.False(t, u.CreatedAt.IsZero())

	byEmail, err := repo.FindByEmail(ctx, "ANN@Test.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	exists, err := repo.ExistsByEmail(ctx, "Ann@TEST.com")
	require.NoError(t, err)
	assert.True(t, exists)

	// Returned values are copies.
	byEmail.Name = "changed"
	again, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", again.Name)

	again.Name = "Annie"
	_, err = repo.Save(ctx, again)
	require.NoError(t, err)
	updated, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, u.ID), common.ErrorNotFound)
}

func TestMemoryRepository_DuplicateEmailIgnoresCase(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.Save(ctx, &models.User{Email: "a@test.com", Role: auth.RoleTourist})
	require.NoError(t, err)

	_, err = repo.Save(ctx, &models.User{Email: "A@TEST.COM", Role: auth.RoleTourist})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)
}

func TestMemoryRepository_ConcurrentRegisterKeepsOne(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Save(ctx, &models.User{Email: "race@test.com", Role: auth.RoleTourist})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, common.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, ok)
}

func TestMemoryRepository_SaveUnknownID(t *testing.T) {
	_, err := NewMemoryRepository().Save(context.Background(), &models.User{ID: uuid.New(), Email: "x@test.com"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Hour)
	}

	login := base.Add(48 * time.Hour)
	for _, e := range []string{"c@test.com", "a@test.com", "b@test.com"} {
		u := &models.User{Email: e, Name: e, Role: auth.RoleTourist}
		if e == "b@test.com" {
			u.LastLogin = &login
		}
		_, err := repo.Save(ctx, u)
		require.NoError(t, err)
	}

	emails := func(us []*models.User) []string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = u.Email
		}
		return out
	}

	page, total, err := repo.List(ctx, ListQuery{Limit: 10, SortBy: SortByCreatedAt, Desc: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"b@test.com", "a@test.com", "c@test.com"}, emails(page))

	page, _, err = repo.List(ctx, ListQuery{Offset: 1, Limit: 1, SortBy: SortByEmail})
	require.NoError(t, err)
	assert.Equal(t, []string{"b@test.com"}, emails(page))

	page, _, err = repo.List(ctx, ListQuery{Limit: 10, SortBy: SortByLastLogin, Desc: true})
	require.NoError(t, err)
	assert.Equal(t, "b@test.com", page[0].Email)

	page, _, err = repo.List(ctx, ListQuery{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, page)
}
