// Package authz decides whether the principal attached to a request may run
// an operation. Requirements are static per operation.
package authz

import (
	"context"
	"errors"
	"strings"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/metrics"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
)

// Requirement is the access predicate of one operation.
type Requirement struct {
	public bool
	roles  []auth.Role
}

var (
	// Public lets anyone through, anonymous callers included.
	Public = Requirement{public: true}

	// Authenticated needs any principal, whatever its role.
	Authenticated = Requirement{}

	// AdminOnly needs a principal with the admin role.
	AdminOnly = AnyOf(auth.RoleAdmin)
)

// AnyOf needs a principal holding one of roles.
func AnyOf(roles ...auth.Role) Requirement {
	return Requirement{roles: append([]auth.Role(nil), roles...)}
}

func (r Requirement) String() string {
	switch {
	case r.public:
		return "public"
	case len(r.roles) == 0:
		return "authenticated"
	}
	names := make([]string, len(r.roles))
	for i, role := range r.roles {
		names[i] = strings.ToLower(role.String())
	}
	return "roles:" + strings.Join(names, ",")
}

// Evaluate returns common.ErrUnauthenticated when there is no principal and
// common.ErrForbidden when the principal's role does not satisfy r.
func (r Requirement) Evaluate(p auth.Principal, present bool) error {
	if r.public {
		return nil
	}
	if !present || !p.Authenticated {
		return common.ErrUnauthenticated
	}
	if len(r.roles) > 0 && !p.HasAnyRole(r.roles...) {
		return common.ErrForbidden
	}
	return nil
}

// Check evaluates r against the principal attached to ctx and returns it.
func Check(ctx context.Context, r Requirement) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(ctx)
	err := r.Evaluate(p, ok)

	decision := "allow"
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		decision = "unauthenticated"
	case errors.Is(err, common.ErrForbidden):
		decision = "forbidden"
	}
	metrics.AuthorizationDecisionsTotal.WithLabelValues(r.String(), decision).Inc()

	return p, err
}
