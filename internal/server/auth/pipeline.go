package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/metrics"
)

// headerPreviewLen bounds how much of a malformed header is logged.
const headerPreviewLen = 20

// UserRecord is the stored identity the pipeline resolves a subject to.
type UserRecord struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// UserLookup loads a user by case-insensitive email. It returns
// common.ErrUserNotFound when there is no such user.
type UserLookup interface {
	LookupByEmail(ctx context.Context, email string) (UserRecord, error)
}

// TokenVerifier is the part of Codec the pipeline depends on.
type TokenVerifier interface {
	ExtractSubject(token string) (string, error)
	Verify(token, expectedSubject string) (*Claims, error)
}

// Pipeline turns a raw Authorization value into a request Principal. It never
// fails a request: any problem leaves the context anonymous and rejection is
// left to the authorization gate.
type Pipeline struct {
	tokens    TokenVerifier
	users     UserLookup
	log       logging.Logger
	transport string
}

// NewPipeline wires a pipeline. transport labels metrics ("http", "grpc").
func NewPipeline(tokens TokenVerifier, users UserLookup, log logging.Logger, transport string) *Pipeline {
	return &Pipeline{
		tokens:    tokens,
		users:     users,
		log:       log.With("module", "auth.pipeline", "transport", transport),
		transport: transport,
	}
}

// BearerToken extracts the token from an Authorization value. Only the exact
// "Bearer " prefix is accepted. malformed is true when a value was present
// but did not carry that prefix.
func BearerToken(header string) (token string, malformed bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", true
	}
	return strings.TrimPrefix(header, common.BearerPrefix), false
}

// Authenticate returns ctx with a Principal attached when header carries a
// valid access token for an existing user. Otherwise ctx is returned
// unchanged. Running it on a context that already has a principal is a no-op.
func (p *Pipeline) Authenticate(ctx context.Context, header string) (out context.Context) {
	out = ctx
	outcome := metrics.OutcomeAnonymous

	defer func() {
		if r := recover(); r != nil {
			p.log.Error(ctx, "authentication pipeline panicked", "panic", fmt.Sprint(r))
			out = ctx
			outcome = metrics.OutcomeRejected
		}
		metrics.AuthenticationsTotal.WithLabelValues(p.transport, outcome).Inc()
	}()

	token, malformed := BearerToken(header)
	if malformed {
		p.log.Warn(ctx, "authorization header present but does not start with 'Bearer '",
			"header_prefix", preview(header))
		return ctx
	}
	if token == "" {
		p.log.Debug(ctx, "no bearer token in request")
		return ctx
	}

	if existing, ok := PrincipalFromContext(ctx); ok {
		outcome = metrics.OutcomeAuthenticated
		p.log.Debug(ctx, "principal already attached", "subject", existing.Subject)
		return ctx
	}

	principal, err := p.resolve(ctx, token)
	if err != nil {
		outcome = metrics.OutcomeRejected
		p.log.Warn(ctx, "bearer token rejected", "error", err)
		return ctx
	}

	outcome = metrics.OutcomeAuthenticated
	p.log.Debug(ctx, "authenticated request", "user_id", principal.UserID, "role", principal.Role)
	return WithPrincipal(ctx, principal)
}

// resolve decodes the subject, loads the stored user and then verifies the
// token against the stored, canonical email.
func (p *Pipeline) resolve(ctx context.Context, token string) (Principal, error) {
	subject, err := p.tokens.ExtractSubject(token)
	if err != nil {
		return Principal{}, err
	}

	user, err := p.users.LookupByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return Principal{}, fmt.Errorf("subject has no account: %w", err)
		}
		return Principal{}, fmt.Errorf("lookup user: %w", err)
	}

	claims, err := p.tokens.Verify(token, user.Email)
	if err != nil {
		return Principal{}, err
	}
	if claims.Purpose != "" {
		return Principal{}, fmt.Errorf("%w: %s token used as access token", common.ErrTokenMalformed, claims.Purpose)
	}

	return Principal{
		Subject:       user.Email,
		UserID:        user.ID,
		Role:          user.Role,
		Authenticated: true,
	}, nil
}

func preview(s string) string {
	if len(s) <= headerPreviewLen {
		return s
	}
	return s[:headerPreviewLen]
}
