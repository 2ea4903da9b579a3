package permission

import (
	"context"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/request"
)

// safeMethods never modify state; read-only rules allow them outright.
var safeMethods = map[string]bool{"GET": true, "HEAD": true, "OPTIONS": true}

// AllowAny passes every request.
type AllowAny struct{}

// Check implements Rule.
func (AllowAny) Check(*request.Request) error { return Allow }

// DenyAll rejects every request.
type DenyAll struct{}

// Check implements Rule.
func (DenyAll) Check(*request.Request) error { return Deny }

// IsAuthenticated requires a non-anonymous identity. The identity may come
// from a store-backed authenticator, so the rule is suspending.
type IsAuthenticated struct{}

// CheckContext implements ContextRule.
func (IsAuthenticated) CheckContext(ctx context.Context, r *request.Request) error {
	user, err := r.User(ctx)
	if err != nil {
		return err
	}
	if !user.IsAuthenticated() {
		return restflow.NewAuthenticationError("")
	}
	return Allow
}

// IsAuthenticatedOrReadOnly requires an identity for writing methods and
// passes safe methods through.
type IsAuthenticatedOrReadOnly struct{}

// CheckContext implements ContextRule.
func (IsAuthenticatedOrReadOnly) CheckContext(ctx context.Context, r *request.Request) error {
	if safeMethods[r.Method()] {
		return Allow
	}
	return IsAuthenticated{}.CheckContext(ctx, r)
}

// IsAdmin requires a staff identity.
type IsAdmin struct{}

// CheckContext implements ContextRule.
func (IsAdmin) CheckContext(ctx context.Context, r *request.Request) error {
	user, err := r.User(ctx)
	if err != nil {
		return err
	}
	u, ok := user.(*request.User)
	if !ok || !u.Staff {
		return Denyf("You do not have permission to perform this action.")
	}
	return Allow
}
