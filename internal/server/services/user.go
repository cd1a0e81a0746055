// Package services contains server-side business logic. This file implements
// UserService, the credential lifecycle: registration, login, password
// change and reset, and account deletion.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/dbx"
	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/metrics"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/config"
	"github.com/teamterraforge/tgmsauth/internal/server/models"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/repomanager"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/users"
)

const resetInstructionsMessage = "Password reset instructions have been sent to your email"

// TokenCodec issues and checks signed tokens. *auth.Codec satisfies it.
type TokenCodec interface {
	Issue(subject string, userID uuid.UUID, roles []string, ttl time.Duration, extra map[string]any) (string, error)
	ExtractSubject(token string) (string, error)
	Verify(token, expectedSubject string) (*auth.Claims, error)
}

// UserView is the outward representation of an account. It never carries
// the password hash.
type UserView struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone,omitempty"`
	Role      auth.Role  `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func newUserView(u *models.User) *UserView {
	return &UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	User        *UserView `json:"user"`
}

// RegisterInput carries the fields of a new account. An empty Role means
// the default role.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     string
}

// ForgotPasswordResult acknowledges a reset request. ResetToken is only
// filled when inline exposure is enabled.
type ForgotPasswordResult struct {
	Message    string `json:"message"`
	Email      string `json:"email"`
	ResetToken string `json:"resetToken,omitempty"`
}

// UserService implements the credential lifecycle on top of the users
// repository.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      TokenCodec
	hasher      Hasher
	authn       Authenticator
	sender      ResetTokenSender
	log         logging.Logger
	now         func() time.Time

	accessTTL   time.Duration
	resetTTL    time.Duration
	exposeReset bool
	phoneRegion string
}

// Option customises a UserService.
type Option func(*UserService)

func WithResetTokenSender(s ResetTokenSender) Option {
	return func(u *UserService) { u.sender = s }
}

func WithClock(now func() time.Time) Option {
	return func(u *UserService) { u.now = now }
}

func WithAuthenticator(a Authenticator) Option {
	return func(u *UserService) { u.authn = a }
}

func WithHasher(h Hasher) Option {
	return func(u *UserService) { u.hasher = h }
}

// NewUserService constructs a UserService. db may be nil when m does not
// need a database (the in-memory manager).
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens TokenCodec, cfg *config.Config, log logging.Logger, opts ...Option) *UserService {
	s := &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		log:         log.With("module", "services.user"),
		now:         time.Now,
		accessTTL:   cfg.AccessTokenValidityDuration,
		resetTTL:    cfg.ResetTokenValidityDuration,
		exposeReset: cfg.ExposeResetToken,
		phoneRegion: cfg.DefaultPhoneRegion,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher = auth.NewBcryptHasher(cfg.BcryptCost)
	}
	if s.authn == nil {
		s.authn = NewPasswordAuthenticator(s.users(), s.hasher)
	}
	if s.sender == nil {
		s.sender = NewLogSender(log)
	}
	return s
}

func (s *UserService) users() users.Repository {
	if s.db == nil {
		return s.repomanager.Users(nil)
	}
	return s.repomanager.Users(s.db)
}

// inTx runs fn against a repository bound to one transaction.
func (s *UserService) inTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	if s.db == nil {
		return fn(ctx, s.repomanager.Users(nil))
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Users(tx))
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) observe(ctx context.Context, op string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
		s.log.Warn(ctx, "lifecycle operation failed", "operation", op, "error", err)
	} else {
		s.log.Info(ctx, "lifecycle operation succeeded", "operation", op)
	}
	metrics.LifecycleOperationsTotal.WithLabelValues(op, outcome).Inc()
}

func (s *UserService) issueAccessToken(u *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.Email, u.ID, []string{u.Role.Authority()}, s.accessTTL, nil)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()

	return &AuthResult{
		AccessToken: token,
		TokenType:   common.TokenType,
		ExpiresIn:   int64(s.accessTTL / time.Second),
		User:        newUserView(u),
	}, nil
}

// Register creates an account and returns an access token for it. A
// case-insensitive email clash yields common.ErrDuplicateEmail.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (res *AuthResult, err error) {
	defer func() { s.observe(ctx, "register", err) }()

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrInvalidArgument)
	}

	role := auth.DefaultRole
	if strings.TrimSpace(in.Role) != "" {
		if role, err = auth.ParseRole(in.Role); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
		}
	}

	phone, err := NormalizePhone(in.Phone, s.phoneRegion)
	if err != nil {
		return nil, err
	}

	repo := s.users()
	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, common.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := repo.Save(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        phone,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	return s.issueAccessToken(user)
}

// Login checks credentials, records the login time and only then issues a
// fresh access token.
func (s *UserService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	defer func() { s.observe(ctx, "login", err) }()

	email = normalizeEmail(email)
	if _, err := s.authn.Authenticate(ctx, email, password); err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	var user *models.User
	err = s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		u, err := repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}
		now := s.now().UTC()
		u.LastLogin = &now
		user, err = repo.Save(ctx, u)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	return s.issueAccessToken(user)
}

// ChangePassword replaces the password of userID after checking the current
// one. Reusing the current password is rejected with common.ErrNoOpChange.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm string) (err error) {
	defer func() { s.observe(ctx, "change_password", err) }()

	if next != confirm {
		return common.ErrPasswordMismatch
	}
	if next == "" {
		return fmt.Errorf("%w: new password is required", common.ErrInvalidArgument)
	}

	return s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		u, err := repo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}
		if err := s.hasher.Compare(u.PasswordHash, current); err != nil {
			return err
		}
		if current == next {
			return common.ErrNoOpChange
		}

		hash, err := s.hasher.Hash(next)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		_, err = repo.Save(ctx, u)
		return err
	})
}

// ForgotPassword issues a single-purpose reset token for email and hands it
// to the configured sender.
func (s *UserService) ForgotPassword(ctx context.Context, email string) (res *ForgotPasswordResult, err error) {
	defer func() { s.observe(ctx, "forgot_password", err) }()

	email = normalizeEmail(email)
	u, err := s.users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("forgot password: %w", err)
	}

	token, err := s.tokens.Issue(u.Email, u.ID, nil, s.resetTTL, map[string]any{
		auth.ClaimPurpose: common.PurposePasswordReset,
	})
	if err != nil {
		return nil, fmt.Errorf("issue reset token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("reset").Inc()

	if err := s.sender.SendResetToken(ctx, u.Email, token); err != nil {
		return nil, fmt.Errorf("send reset token: %w", err)
	}

	res = &ForgotPasswordResult{Message: resetInstructionsMessage, Email: u.Email}
	if s.exposeReset {
		res.ResetToken = token
	}
	return res, nil
}

// ResetPassword sets a new password using a token from ForgotPassword.
// Anything other than a valid, unexpired reset token yields
// common.ErrInvalidOrExpiredToken.
func (s *UserService) ResetPassword(ctx context.Context, token, next, confirm string) (err error) {
	defer func() { s.observe(ctx, "reset_password", err) }()

	if next != confirm {
		return common.ErrPasswordMismatch
	}
	if next == "" {
		return fmt.Errorf("%w: new password is required", common.ErrInvalidArgument)
	}

	subject, err := s.tokens.ExtractSubject(token)
	if err != nil {
		return common.ErrInvalidOrExpiredToken
	}
	claims, err := s.tokens.Verify(token, subject)
	if err != nil {
		return common.ErrInvalidOrExpiredToken
	}
	if claims.Purpose != common.PurposePasswordReset {
		return common.ErrInvalidOrExpiredToken
	}

	return s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		u, err := repo.FindByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return err
		}

		hash, err := s.hasher.Hash(next)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		_, err = repo.Save(ctx, u)
		return err
	})
}

// DeleteAccount permanently removes userID.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) (err error) {
	defer func() { s.observe(ctx, "delete_account", err) }()

	if err := s.users().Delete(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// LookupByEmail resolves the identity used by the authentication pipeline.
func (s *UserService) LookupByEmail(ctx context.Context, email string) (auth.UserRecord, error) {
	u, err := s.users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.UserRecord{}, common.ErrUserNotFound
		}
		return auth.UserRecord{}, err
	}
	return u.Record(), nil
}
