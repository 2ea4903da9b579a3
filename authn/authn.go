// Package authn implements the built-in authenticators. Basic verifies
// credentials inline and classifies sync; Token resolves its key against a
// store and classifies suspending. Both plug into the request package's
// lazy authenticator chain.
package authn

import (
	"context"
	"encoding/base64"
	"strings"

	"golang.org/x/text/secure/precis"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/storage"
)

// Challenger supplies the WWW-Authenticate value advertised on 401s.
type Challenger interface {
	Challenge() string
}

// Basic authenticates HTTP Basic credentials through a caller-supplied
// verify function. Verify must not block; store-backed verification belongs
// in a ContextAuthenticator.
type Basic struct {
	// Realm is advertised in the challenge. Defaults to "api".
	Realm string

	// Verify checks a username/password pair and returns the identity, or
	// false when the pair is unknown.
	Verify func(username, password string) (request.Identity, bool)
}

// Authenticate implements request.Authenticator.
func (b *Basic) Authenticate(r *request.Request) (request.Identity, any, error) {
	if b.Verify == nil {
		panic(restflow.Contractf("authn: Basic requires a Verify function"))
	}
	header := r.Header().Get("Authorization")
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Basic") {
		return nil, nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest))
	if err != nil {
		return nil, nil, challengeError("invalid basic header", b.Challenge())
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, nil, challengeError("invalid basic header", b.Challenge())
	}
	// Usernames are compared in PRECIS UsernameCaseMapped form, so
	// visually identical credentials match regardless of case or encoding.
	username, err = precis.UsernameCaseMapped.String(username)
	if err != nil {
		return nil, nil, challengeError("invalid username or password", b.Challenge())
	}
	user, ok := b.Verify(username, password)
	if !ok {
		return nil, nil, challengeError("invalid username or password", b.Challenge())
	}
	return user, nil, nil
}

// Challenge implements Challenger.
func (b *Basic) Challenge() string {
	realm := b.Realm
	if realm == "" {
		realm = "api"
	}
	return `Basic realm="` + realm + `"`
}

// Token authenticates "Authorization: Token <key>" headers against a store
// of token records. Records are objects with a "key" attribute plus the
// identity attributes named below.
type Token struct {
	// Store holds token records keyed by token string.
	Store storage.Queryset

	// Keyword is the Authorization scheme. Defaults to "Token".
	Keyword string

	// UserField and IDField name the token-record attributes carrying the
	// principal's name and id. Default "username" and "user_id".
	UserField string
	IDField   string
}

func (t *Token) keyword() string {
	if t.Keyword == "" {
		return "Token"
	}
	return t.Keyword
}

// AuthenticateContext implements request.ContextAuthenticator. The token
// lookup may suspend on the store.
func (t *Token) AuthenticateContext(ctx context.Context, r *request.Request) (request.Identity, any, error) {
	if t.Store == nil {
		panic(restflow.Contractf("authn: Token requires a store"))
	}
	header := r.Header().Get("Authorization")
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, t.keyword()) {
		return nil, nil, nil
	}
	key := strings.TrimSpace(rest)
	if key == "" {
		return nil, nil, challengeError("invalid token header", t.Challenge())
	}
	record, err := t.Store.Get(ctx, key)
	if err != nil {
		if restflow.IsNotFound(err) {
			return nil, nil, challengeError("invalid token", t.Challenge())
		}
		return nil, nil, err
	}
	user := &request.User{}
	userField := t.UserField
	if userField == "" {
		userField = "username"
	}
	idField := t.IDField
	if idField == "" {
		idField = "user_id"
	}
	if v, ok := storage.Attr(record, userField); ok {
		user.Name, _ = v.(string)
	}
	if v, ok := storage.Attr(record, idField); ok {
		user.ID = v
	}
	return user, record, nil
}

// Challenge implements Challenger.
func (t *Token) Challenge() string { return t.keyword() }

func challengeError(msg, challenge string) error {
	err := restflow.NewAuthenticationError(msg)
	err.Scheme = challenge
	return err
}
