package request

import "context"

// Identity is the authenticated principal attached to a request.
type Identity interface {
	// Identifier names the principal for logs and throttle scoping.
	Identifier() string

	// IsAuthenticated distinguishes real principals from Anonymous.
	IsAuthenticated() bool
}

// User is the common concrete Identity.
type User struct {
	ID    any
	Name  string
	Staff bool
}

// Identifier implements Identity.
func (u *User) Identifier() string { return u.Name }

// IsAuthenticated implements Identity.
func (u *User) IsAuthenticated() bool { return true }

// Anonymous is the identity of unauthenticated requests.
type Anonymous struct{}

// Identifier implements Identity.
func (Anonymous) Identifier() string { return "" }

// IsAuthenticated implements Identity.
func (Anonymous) IsAuthenticated() bool { return false }

// Authenticator inspects a request's credentials inline. Returning a nil
// Identity with a nil error means "not my scheme, try the next one"; an
// AuthenticationError aborts the whole chain.
type Authenticator interface {
	Authenticate(r *Request) (Identity, any, error)
}

// ContextAuthenticator is the suspend-capable authenticator variant, for
// credential checks that hit a store.
type ContextAuthenticator interface {
	AuthenticateContext(ctx context.Context, r *Request) (Identity, any, error)
}
