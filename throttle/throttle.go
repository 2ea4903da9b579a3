// Package throttle rate-limits requests. The window math is pure and
// deterministic; throttles differ only in where window state lives. In
// aggregate checks every throttle is always consulted, never
// short-circuited, and the largest wait among denials is reported so a
// client retrying after Retry-After clears all of them.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/request"
)

// Throttle is consulted inline.
type Throttle interface {
	Allow(r *request.Request) (Decision, error)
}

// ContextThrottle is the suspend-capable variant, for store-backed state.
type ContextThrottle interface {
	AllowContext(ctx context.Context, r *request.Request) (Decision, error)
}

// ModeOf classifies a throttle.
func ModeOf(t any) capability.Mode {
	if _, ok := t.(ContextThrottle); ok {
		return capability.ModeSuspending
	}
	return capability.ModeSync
}

// CheckAll consults every throttle. All throttles run even after a denial,
// so each one records the request against its own window; the returned
// ThrottledError carries the maximum wait across denials.
func CheckAll(ctx context.Context, throttles []any, r *request.Request) error {
	var (
		denied  bool
		maxWait time.Duration
	)
	note := func(d Decision) {
		if d.Allowed {
			return
		}
		denied = true
		if d.Wait > maxWait {
			maxWait = d.Wait
		}
	}

	syncs, susps := capability.Partition(throttles, ModeOf)
	for _, t := range syncs {
		st, ok := t.(Throttle)
		if !ok {
			panic(restflow.Contractf("unsupported throttle type %T", t))
		}
		d, err := st.Allow(r)
		if err != nil {
			return err
		}
		note(d)
	}

	decisions := make([]Decision, len(susps))
	fns := make([]func(context.Context) error, len(susps))
	for i, t := range susps {
		i, ct := i, t.(ContextThrottle)
		fns[i] = func(ctx context.Context) error {
			d, err := ct.AllowContext(ctx, r)
			if err != nil {
				return err
			}
			decisions[i] = d
			return nil
		}
	}
	if len(fns) > 0 {
		for _, err := range capability.Gather(ctx, fns...) {
			if err != nil {
				return err
			}
		}
		for _, d := range decisions {
			note(d)
		}
	}

	if denied {
		return &restflow.ThrottledError{Wait: maxWait}
	}
	return nil
}

// Ident derives the throttle key for a request: the authenticated identity
// when the chain already ran, otherwise the client address.
func Ident(r *request.Request) string {
	if user, err := r.User(context.Background()); err == nil && user.IsAuthenticated() {
		return "user:" + user.Identifier()
	}
	return "addr:" + r.Raw.RemoteAddr
}

// Simple is an in-memory fixed-window throttle. It is sync: state lives in
// the process and consulting it never blocks.
type Simple struct {
	// Rate is the allowance. A zero rate never throttles.
	Rate Rate

	// Scope separates windows of different views sharing one throttle key.
	Scope string

	// Key derives the per-client key. Defaults to Ident.
	Key func(r *request.Request) string

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	windows map[string]Window
}

// Allow implements Throttle.
func (t *Simple) Allow(r *request.Request) (Decision, error) {
	key := t.key(r)
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.windows == nil {
		t.windows = make(map[string]Window)
	}
	w, d := Check(t.windows[key], t.Rate, now)
	t.windows[key] = w
	return d, nil
}

func (t *Simple) key(r *request.Request) string {
	ident := Ident
	if t.Key != nil {
		ident = t.Key
	}
	return t.Scope + "|" + ident(r)
}

// Store persists throttle windows outside the process.
type Store interface {
	Get(ctx context.Context, key string) (Window, bool, error)
	Set(ctx context.Context, key string, w Window, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Stored is a fixed-window throttle over a Store; consulting it may
// suspend.
type Stored struct {
	Rate  Rate
	Scope string
	Store Store

	// Key derives the per-client key. Defaults to Ident.
	Key func(r *request.Request) string

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// AllowContext implements ContextThrottle.
func (t *Stored) AllowContext(ctx context.Context, r *request.Request) (Decision, error) {
	if t.Store == nil {
		panic(restflow.Contractf("throttle: Stored requires a store"))
	}
	ident := Ident
	if t.Key != nil {
		ident = t.Key
	}
	key := t.Scope + "|" + ident(r)
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	w, _, err := t.Store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	w, d := Check(w, t.Rate, now)
	if err := t.Store.Set(ctx, key, w, t.Rate.Window); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// FromSettings builds a Stored throttle whose rate comes from a scope-keyed
// rate table ("user": "100/min"). Unknown scopes are a configuration error.
func FromSettings(scope string, rates map[string]string, store Store) (*Stored, error) {
	spec, ok := rates[scope]
	if !ok {
		return nil, restflow.Configf("no throttle rate configured for scope %q", scope)
	}
	rate, err := ParseRate(spec)
	if err != nil {
		return nil, err
	}
	return &Stored{Rate: rate, Scope: scope, Store: store}, nil
}

// MemStore is the in-memory Store, for tests and single-process servers.
type MemStore struct {
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	windows map[string]memEntry
}

type memEntry struct {
	w       Window
	expires time.Time
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore { return &MemStore{windows: make(map[string]memEntry)} }

func (s *MemStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, key string) (Window, bool, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.windows[key]
	if !ok || (!e.expires.IsZero() && s.now().After(e.expires)) {
		return Window{}, false, nil
	}
	return e.w, true, nil
}

// Set implements Store.
func (s *MemStore) Set(ctx context.Context, key string, w Window, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{w: w}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.windows[key] = e
	return nil
}

// Delete implements Store.
func (s *MemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}
