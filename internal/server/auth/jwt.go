// Package auth implements token signing and verification, password hashing,
// request principals and the per-request authentication pipeline.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/teamterraforge/tgmsauth/internal/common"
)

// Claim names on the wire.
const (
	ClaimSubject   = "sub"
	ClaimUserID    = "userId"
	ClaimRoles     = "roles"
	ClaimPurpose   = "purpose"
	ClaimIssuedAt  = "iat"
	ClaimExpiresAt = "exp"
	ClaimID        = "jti"
)

var reservedClaims = map[string]struct{}{
	ClaimSubject:   {},
	ClaimUserID:    {},
	ClaimRoles:     {},
	ClaimIssuedAt:  {},
	ClaimExpiresAt: {},
	ClaimID:        {},
}

// Claims is the decoded content of a token.
type Claims struct {
	Subject   string
	UserID    string
	Roles     []string
	Purpose   string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Extra holds every non-standard claim, purpose included.
	Extra map[string]any
}

// Codec issues and verifies HMAC-signed JWTs with a single process-wide key.
// It is safe for concurrent use.
type Codec struct {
	key    []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

type CodecOption func(*Codec)

// WithClock replaces the wall clock used for iat, exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec validates the secret and picks the strongest HMAC variant the
// key length allows: 64+ bytes HS512, 48+ HS384, otherwise HS256.
func NewCodec(secret string, minLength int, opts ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: signing key is empty", common.ErrConfig)
	}
	if len(secret) < minLength {
		return nil, fmt.Errorf("%w: signing key is %d bytes, need at least %d", common.ErrConfig, len(secret), minLength)
	}

	c := &Codec{
		key:    []byte(secret),
		method: methodForKey(len(secret)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func methodForKey(n int) *jwt.SigningMethodHMAC {
	switch {
	case n >= 64:
		return jwt.SigningMethodHS512
	case n >= 48:
		return jwt.SigningMethodHS384
	default:
		return jwt.SigningMethodHS256
	}
}

// Algorithm returns the JWS alg name the codec signs with.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Issue signs a token for subject. Extra claims are written first so they
// can never override the standard ones.
func (c *Codec) Issue(subject string, userID uuid.UUID, roles []string, ttl time.Duration, extra map[string]any) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := c.now()
	claims := jwt.MapClaims{}
	for k, v := range extra {
		claims[k] = v
	}

	claims[ClaimSubject] = subject
	claims[ClaimUserID] = userID.String()
	if len(roles) > 0 {
		claims[ClaimRoles] = roles
	} else {
		delete(claims, ClaimRoles)
	}
	claims[ClaimIssuedAt] = jwt.NewNumericDate(now)
	claims[ClaimExpiresAt] = jwt.NewNumericDate(now.Add(ttl))
	claims[ClaimID] = uuid.NewString()

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and that the subject equals
// expectedSubject exactly.
func (c *Codec) Verify(token, expectedSubject string) (*Claims, error) {
	mc, err := c.parse(token,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}

	claims, err := toClaims(mc)
	if err != nil {
		return nil, err
	}
	if claims.Subject != expectedSubject {
		return nil, common.ErrSubjectMismatch
	}
	return claims, nil
}

// ExtractSubject returns the sub claim of a correctly signed token without
// checking expiry or subject.
func (c *Codec) ExtractSubject(token string) (string, error) {
	mc, err := c.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing subject", common.ErrTokenMalformed)
	}
	return sub, nil
}

// ExtractUserID returns the userId claim of a correctly signed token.
func (c *Codec) ExtractUserID(token string) (uuid.UUID, error) {
	mc, err := c.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
	}

	raw, _ := mc[ClaimUserID].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid userId claim", common.ErrTokenMalformed)
	}
	return id, nil
}

func (c *Codec) parse(token string, opts ...jwt.ParserOption) (jwt.MapClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{c.method.Alg()}))

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func toClaims(mc jwt.MapClaims) (*Claims, error) {
	out := &Claims{Extra: map[string]any{}}

	out.Subject, _ = mc[ClaimSubject].(string)
	out.UserID, _ = mc[ClaimUserID].(string)
	out.ID, _ = mc[ClaimID].(string)
	out.Purpose, _ = mc[ClaimPurpose].(string)

	if raw, ok := mc[ClaimRoles].([]any); ok {
		for _, r := range raw {
			s, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("%w: roles claim must be strings", common.ErrTokenMalformed)
			}
			out.Roles = append(out.Roles, s)
		}
	}

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	for k, v := range mc {
		if _, ok := reservedClaims[k]; !ok {
			out.Extra[k] = v
		}
	}
	return out, nil
}
