package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/repomanager"
)

func strPtr(s string) *string { return &s }

func TestGetUser(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	reg := f.register(t, "a@test.com", "Pw1234")
	ctx := context.Background()

	byEmail, err := f.svc.GetUserByEmail(ctx, "A@Test.com")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, byEmail.ID)

	byID, err := f.svc.GetUserByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@test.com", byID.Email)

	_, err = f.svc.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrUserNotFound)
	_, err = f.svc.GetUserByEmail(ctx, "b@test.com")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestEmailExists(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	f.register(t, "a@test.com", "Pw1234")
	ctx := context.Background()

	tests := []struct {
		email string
		want  bool
	}{
		{"a@test.com", true},
		{"A@TEST.COM", true},
		{"b@test.com", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := f.svc.EmailExists(ctx, tt.email)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.email)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	reg := f.register(t, "a@test.com", "Pw1234")
	ctx := context.Background()

	view, err := f.svc.UpdateProfile(ctx, reg.User.ID, ProfileUpdate{
		Name:  strPtr("  Annabel "),
		Phone: strPtr("+44 20 7031 3000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Annabel", view.Name)
	assert.Equal(t, "+442070313000", view.Phone)

	view, err = f.svc.UpdateProfile(ctx, reg.User.ID, ProfileUpdate{Name: strPtr("   "), Phone: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Annabel", view.Name)
	assert.Equal(t, "+442070313000", view.Phone)

	stored, err := f.svc.GetUserByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Annabel", stored.Name)
}

func TestUpdateProfile_Failures(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	reg := f.register(t, "a@test.com", "Pw1234")
	ctx := context.Background()

	_, err := f.svc.UpdateProfile(ctx, reg.User.ID, ProfileUpdate{Phone: strPtr("not a phone")})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = f.svc.UpdateProfile(ctx, uuid.New(), ProfileUpdate{Name: strPtr("Bob")})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestGetPublicProfile(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	reg := f.register(t, "a@test.com", "Pw1234")

	p, err := f.svc.GetPublicProfile(context.Background(), reg.User.ID)
	require.NoError(t, err)

	assert.Equal(t, &PublicProfile{
		ID:        reg.User.ID,
		Name:      "Ann",
		Role:      auth.RoleTourist,
		CreatedAt: reg.User.CreatedAt,
	}, p)
}

func TestListUsers_Paging(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	for _, email := range []string{"c@test.com", "a@test.com", "b@test.com"} {
		f.register(t, email, "Pw1234")
	}
	ctx := context.Background()

	page, err := f.svc.ListUsers(ctx, PageRequest{Page: 1, Size: 2, SortBy: "email", Direction: "asc"})
	require.NoError(t, err)

	require.Len(t, page.Content, 1)
	assert.Equal(t, "c@test.com", page.Content[0].Email)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.First)
	assert.True(t, page.Last)
	assert.False(t, page.Empty)

	page, err = f.svc.ListUsers(ctx, PageRequest{Page: 5, Size: 2})
	require.NoError(t, err)
	assert.True(t, page.Empty)
	assert.True(t, page.Last)
}

func TestListUsers_DefaultsToNewestFirst(t *testing.T) {
	f := newFixture(t, repomanager.NewMemoryRepositoryManager())
	first := f.register(t, "first@test.com", "Pw1234")
	last := f.register(t, "last@test.com", "Pw1234")
	require.True(t, last.User.CreatedAt.After(first.User.CreatedAt))

	page, err := f.svc.ListUsers(context.Background(), PageRequest{})
	require.NoError(t, err)

	require.Len(t, page.Content, 2)
	assert.Equal(t, "last@test.com", page.Content[0].Email)
	assert.Equal(t, 20, page.PageSize)
	assert.True(t, page.First)
}

func TestToListQuery(t *testing.T) {
	tests := []struct {
		name      string
		req       PageRequest
		wantLimit int
		wantDesc  bool
		wantErr   error
	}{
		{name: "defaults", req: PageRequest{}, wantLimit: 20, wantDesc: true},
		{name: "size capped", req: PageRequest{Size: 500}, wantLimit: 100, wantDesc: true},
		{name: "negative size", req: PageRequest{Size: -3}, wantLimit: 1, wantDesc: true},
		{name: "ascending", req: PageRequest{Size: 10, Direction: "ASC"}, wantLimit: 10},
		{name: "bad sort", req: PageRequest{SortBy: "password"}, wantErr: common.ErrInvalidArgument},
		{name: "bad direction", req: PageRequest{Direction: "sideways"}, wantErr: common.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := toListQuery(tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantDesc, q.Desc)
		})
	}
}
