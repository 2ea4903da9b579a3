// Package request wraps *http.Request with the parsed payload and the lazy
// authentication slots the dispatch core and serializers consume.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/restflow"
)

// Request is the framework-level view of one HTTP request. It is built once
// per dispatch and handed to actions, permissions and throttles.
type Request struct {
	// Raw is the underlying request.
	Raw *http.Request

	// ID tags logs and responses for correlation.
	ID string

	// Action is the bound action name, set by viewset dispatch.
	Action string

	authenticators []any

	data       any
	dataParsed bool
	dataErr    error

	user     Identity
	auth     any
	authRan  bool
	authErr  error
	forced   bool
}

// Option configures a Request.
type Option func(*Request)

// WithAuthenticators sets the authenticator chain consulted by User and
// Auth. Entries must implement Authenticator or ContextAuthenticator.
func WithAuthenticators(chain ...any) Option {
	return func(r *Request) { r.authenticators = chain }
}

// New wraps an http.Request. Every wrapped request carries a fresh ID.
func New(raw *http.Request, opts ...Option) *Request {
	r := &Request{Raw: raw, ID: uuid.NewString()}
	for _, opt := range opts {
		opt(r)
	}
	if fa, ok := raw.Context().Value(forcedKey{}).(forcedIdentity); ok {
		ForceAuthenticate(r, fa.user, fa.auth)
	}
	return r
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.Raw.Method }

// Header returns the request headers.
func (r *Request) Header() http.Header { return r.Raw.Header }

// Query returns the first query parameter value for name.
func (r *Request) Query(name string) string {
	return r.Raw.URL.Query().Get(name)
}

// Data parses and caches the request payload. The content type selects the
// parser: JSON (default), msgpack, or urlencoded form. JSON objects decode
// to map[string]any, JSON arrays to []any.
func (r *Request) Data() (any, error) {
	if r.dataParsed {
		return r.data, r.dataErr
	}
	r.dataParsed = true
	r.data, r.dataErr = r.parse()
	return r.data, r.dataErr
}

// DataMap returns the payload as an object, or a validation error when the
// payload is not an object.
func (r *Request) DataMap() (map[string]any, error) {
	data, err := r.Data()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return map[string]any{}, nil
	}
	m, ok := data.(map[string]any)
	if !ok {
		return nil, restflow.NewValidationError(fmt.Sprintf("Invalid data. Expected a dictionary, but got %T.", data))
	}
	return m, nil
}

func (r *Request) parse() (any, error) {
	if r.Raw.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Raw.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	ct := r.Raw.Header.Get("Content-Type")
	mediaType := ct
	if ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}
	switch {
	case mediaType == "application/x-msgpack" || mediaType == "application/msgpack":
		var v any
		if err := msgpack.Unmarshal(body, &v); err != nil {
			return nil, restflow.NewValidationError("Malformed request payload.")
		}
		return normalizeMsgpack(v), nil
	case mediaType == "application/x-www-form-urlencoded":
		return parseForm(string(body))
	default:
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, restflow.NewValidationError("Malformed request payload.")
		}
		return v, nil
	}
}

func parseForm(body string) (any, error) {
	out := make(map[string]any)
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, restflow.NewValidationError("Malformed request payload.")
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, restflow.NewValidationError("Malformed request payload.")
		}
		if _, dup := out[k]; !dup {
			out[k] = v
		}
	}
	return out, nil
}

// normalizeMsgpack lifts map[any]any keys into strings so downstream code
// sees one payload shape regardless of wire format.
func normalizeMsgpack(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, mv := range t {
			t[k] = normalizeMsgpack(mv)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, mv := range t {
			out[fmt.Sprint(k)] = normalizeMsgpack(mv)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeMsgpack(item)
		}
		return t
	}
	return v
}

// User runs the authenticator chain once and returns the request identity.
// A chain that produces nothing yields Anonymous. Authentication failures
// are sticky: every later call reports the same error.
func (r *Request) User(ctx context.Context) (Identity, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, err
	}
	return r.user, nil
}

// Auth returns the credential object produced alongside the identity, such
// as the matched token record.
func (r *Request) Auth(ctx context.Context) (any, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, err
	}
	return r.auth, nil
}

func (r *Request) authenticate(ctx context.Context) error {
	if r.forced || r.authRan {
		return r.authErr
	}
	r.authRan = true
	for _, a := range r.authenticators {
		var (
			user Identity
			auth any
			err  error
		)
		switch t := a.(type) {
		case ContextAuthenticator:
			user, auth, err = t.AuthenticateContext(ctx, r)
		case Authenticator:
			user, auth, err = t.Authenticate(r)
		default:
			panic(restflow.Contractf("unsupported authenticator type %T", a))
		}
		if err != nil {
			r.authErr = err
			return err
		}
		if user != nil {
			r.user, r.auth = user, auth
			return nil
		}
	}
	r.user = Anonymous{}
	return nil
}

// ForceAuthenticate pins the request identity, bypassing the authenticator
// chain entirely. Test helper.
func ForceAuthenticate(r *Request, user Identity, auth any) {
	r.forced = true
	r.user, r.auth = user, auth
	if user == nil {
		r.user = Anonymous{}
	}
	r.authErr = nil
}

type forcedKey struct{}

type forcedIdentity struct {
	user Identity
	auth any
}

// WithForcedIdentity returns a copy of raw carrying a pinned identity.
// Wrapping such a request picks the identity up and skips the chain, so
// handlers that wrap internally can still be tested with a fixed user.
func WithForcedIdentity(raw *http.Request, user Identity, auth any) *http.Request {
	ctx := context.WithValue(raw.Context(), forcedKey{}, forcedIdentity{user: user, auth: auth})
	return raw.WithContext(ctx)
}
