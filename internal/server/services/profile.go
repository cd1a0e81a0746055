package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/models"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/users"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ProfileUpdate lists the editable profile fields. Nil or blank values are
// left untouched.
type ProfileUpdate struct {
	Name  *string
	Phone *string
}

// PublicProfile is the subset of an account visible without authentication.
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// PageRequest selects a page of users. Page is zero-based; Direction is
// ASC or DESC.
type PageRequest struct {
	Page      int
	Size      int
	SortBy    string
	Direction string
}

// Page is one slice of the user listing plus paging metadata.
type Page struct {
	Content       []*UserView `json:"content"`
	PageNumber    int         `json:"pageNumber"`
	PageSize      int         `json:"pageSize"`
	TotalElements int64       `json:"totalElements"`
	TotalPages    int         `json:"totalPages"`
	First         bool        `json:"first"`
	Last          bool        `json:"last"`
	Empty         bool        `json:"empty"`
}

func (s *UserService) findByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*UserView, error) {
	u, err := s.users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return newUserView(u), nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uuid.UUID) (*UserView, error) {
	u, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newUserView(u), nil
}

// EmailExists reports whether an account uses email, ignoring case.
func (s *UserService) EmailExists(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}
	ok, err := s.users().ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return ok, nil
}

// UpdateProfile applies the non-blank fields of upd and persists only when
// something changed.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (view *UserView, err error) {
	defer func() { s.observe(ctx, "update_profile", err) }()

	var phone string
	if upd.Phone != nil {
		if phone, err = NormalizePhone(*upd.Phone, s.phoneRegion); err != nil {
			return nil, err
		}
	}

	err = s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		u, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}

		changed := false
		if upd.Name != nil {
			if name := strings.TrimSpace(*upd.Name); name != "" && name != u.Name {
				u.Name = name
				changed = true
			}
		}
		if phone != "" && phone != u.Phone {
			u.Phone = phone
			changed = true
		}

		if changed {
			if u, err = repo.Save(ctx, u); err != nil {
				return err
			}
		}
		view = newUserView(u)
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return view, nil
}

func (s *UserService) GetPublicProfile(ctx context.Context, id uuid.UUID) (*PublicProfile, error) {
	u, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PublicProfile{ID: u.ID, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}, nil
}

// ListUsers returns one page of accounts. The default order is newest
// first; size is clamped to [1, 100].
func (s *UserService) ListUsers(ctx context.Context, req PageRequest) (*Page, error) {
	q, err := toListQuery(req)
	if err != nil {
		return nil, err
	}

	list, total, err := s.users().List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	page := q.Offset / q.Limit
	totalPages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	content := make([]*UserView, 0, len(list))
	for _, u := range list {
		content = append(content, newUserView(u))
	}

	return &Page{
		Content:       content,
		PageNumber:    page,
		PageSize:      q.Limit,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
		Empty:         len(content) == 0,
	}, nil
}

func toListQuery(req PageRequest) (users.ListQuery, error) {
	size := req.Size
	switch {
	case size == 0:
		size = defaultPageSize
	case size < 1:
		size = 1
	case size > maxPageSize:
		size = maxPageSize
	}
	page := max(req.Page, 0)

	sortBy := users.SortByCreatedAt
	if req.SortBy != "" {
		sortBy = users.SortField(req.SortBy)
		if !sortBy.Valid() {
			return users.ListQuery{}, fmt.Errorf("%w: unknown sort field %q", common.ErrInvalidArgument, req.SortBy)
		}
	}

	desc := true
	switch strings.ToUpper(strings.TrimSpace(req.Direction)) {
	case "", "DESC":
	case "ASC":
		desc = false
	default:
		return users.ListQuery{}, fmt.Errorf("%w: unknown sort direction %q", common.ErrInvalidArgument, req.Direction)
	}

	return users.ListQuery{Offset: page * size, Limit: size, SortBy: sortBy, Desc: desc}, nil
}
