// Package viewset binds maps of HTTP methods to named actions. A Set
// declares its actions through a factory that yields a fresh instance per
// request, so no mutable state is shared across requests. Binding
// validates the whole configuration up front; a broken binding never
// reaches dispatch.
package viewset

import (
	"net/http"
	"strings"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/pagination"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/view"
)

// Binding maps HTTP methods to action names, e.g. {"GET": "list"}. Keys
// are case-insensitive.
type Binding map[string]string

// Actions is one per-request instance of a viewset: its named actions plus
// the configuration shared by all of them. Closures returned by a factory
// may capture instance state freely; the instance lives for one request.
type Actions struct {
	Authenticators []any
	Permissions    []any
	Throttles      []any
	Renderers      []response.Renderer
	Paginator      pagination.Paginator

	// Sync holds inline actions by name.
	Sync map[string]view.Action

	// Suspending holds context-taking actions by name. A name present in
	// both maps resolves to the suspending variant.
	Suspending map[string]view.ContextAction
}

// Set is a viewset declaration: a name plus an instance factory. Its
// capability descriptor is computed once, from a probe instance, so
// classification questions never touch live request state.
type Set struct {
	name    string
	factory func() *Actions
	desc    *capability.Descriptor
	actions map[string]capability.Mode
}

// New builds a Set and classifies its actions.
func New(name string, factory func() *Actions) (*Set, error) {
	if factory == nil {
		return nil, restflow.Configf("viewset %q: nil factory", name)
	}
	probe := factory()
	if probe == nil {
		return nil, restflow.Configf("viewset %q: factory returned nil", name)
	}
	members := make(map[string]capability.Mode, len(probe.Sync)+len(probe.Suspending))
	for action := range probe.Sync {
		members[action] = capability.ModeSync
	}
	for action := range probe.Suspending {
		members[action] = capability.ModeSuspending
	}
	if len(members) == 0 {
		return nil, restflow.Configf("viewset %q: no actions declared", name)
	}
	return &Set{
		name:    name,
		factory: factory,
		desc:    capability.Describe(members),
		actions: members,
	}, nil
}

// Name returns the set name.
func (s *Set) Name() string { return s.name }

// Mode returns the aggregate classification: suspending when any declared
// action is suspending.
func (s *Set) Mode() capability.Mode { return s.desc.Mode() }

// Descriptor returns the precomputed capability descriptor.
func (s *Set) Descriptor() *capability.Descriptor { return s.desc }

// Has reports whether the set declares the named action.
func (s *Set) Has(action string) bool {
	_, ok := s.actions[action]
	return ok
}

// BindOption adjusts the bound handler's naming.
type BindOption func(*bindConfig)

type bindConfig struct {
	name   string
	suffix string
}

// WithName overrides the bound handler's name outright. Mutually exclusive
// with WithSuffix.
func WithName(name string) BindOption {
	return func(c *bindConfig) { c.name = name }
}

// WithSuffix appends a suffix to the set name, e.g. "list" or "detail".
// Mutually exclusive with WithName.
func WithSuffix(suffix string) BindOption {
	return func(c *bindConfig) { c.suffix = suffix }
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// reservedActions are names the dispatch machinery owns; a binding may not
// target them.
var reservedActions = map[string]bool{
	"dispatch":  true,
	"initial":   true,
	"finalize":  true,
	"exception": true,
}

// Bind validates a method-to-action map against the set and returns the
// request handler. Every configuration defect surfaces here, not on the
// first request.
func (s *Set) Bind(b Binding, opts ...BindOption) (*Bound, error) {
	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name != "" && cfg.suffix != "" {
		return nil, restflow.Configf("viewset %q: name and suffix are mutually exclusive", s.name)
	}
	if len(b) == 0 {
		return nil, restflow.Configf("viewset %q: empty binding", s.name)
	}

	binding := make(map[string]string, len(b)+1)
	for method, action := range b {
		method = strings.ToUpper(method)
		if !knownMethods[method] {
			return nil, restflow.Configf("viewset %q: unknown HTTP method %q", s.name, method)
		}
		if action == "" {
			return nil, restflow.Configf("viewset %q: empty action for method %s", s.name, method)
		}
		if reservedActions[action] || knownMethods[strings.ToUpper(action)] {
			return nil, restflow.Configf("viewset %q: action name %q is reserved", s.name, action)
		}
		if !s.Has(action) {
			return nil, restflow.Configf("viewset %q: unknown action %q", s.name, action)
		}
		if prev, dup := binding[method]; dup {
			return nil, restflow.Configf("viewset %q: method %s bound to both %q and %q",
				s.name, method, prev, action)
		}
		binding[method] = action
	}
	if action, ok := binding[http.MethodGet]; ok {
		if _, ok := binding[http.MethodHead]; !ok {
			binding[http.MethodHead] = action
		}
	}

	name := s.name
	switch {
	case cfg.name != "":
		name = cfg.name
	case cfg.suffix != "":
		name = s.name + "-" + cfg.suffix
	}
	return &Bound{set: s, name: name, binding: binding}, nil
}

// MustBind is Bind for statically known bindings.
func (s *Set) MustBind(b Binding, opts ...BindOption) *Bound {
	bound, err := s.Bind(b, opts...)
	if err != nil {
		panic(err)
	}
	return bound
}

// Bound is a validated binding, ready to serve. Each request gets a fresh
// instance from the set's factory and a fresh view with the instance's
// actions rebound onto it.
type Bound struct {
	set     *Set
	name    string
	binding map[string]string
}

// Name returns the bound handler name.
func (b *Bound) Name() string { return b.name }

// Binding returns the validated method-to-action map.
func (b *Bound) Binding() map[string]string {
	out := make(map[string]string, len(b.binding))
	for m, a := range b.binding {
		out[m] = a
	}
	return out
}

// ServeHTTP implements http.Handler.
func (b *Bound) ServeHTTP(w http.ResponseWriter, raw *http.Request) {
	inst := b.set.factory()
	req := request.New(raw, request.WithAuthenticators(inst.Authenticators...))
	b.dispatch(w, req, inst)
}

// Dispatch serves an already-wrapped request.
func (b *Bound) Dispatch(w http.ResponseWriter, req *request.Request) {
	b.dispatch(w, req, b.set.factory())
}

func (b *Bound) dispatch(w http.ResponseWriter, req *request.Request, inst *Actions) {
	if action, ok := b.binding[req.Method()]; ok {
		req.Action = action
	}
	b.buildView(inst).Dispatch(w, req)
}

// buildView rebinds the instance's actions onto a fresh view per the
// binding. Suspending variants win when an action name is declared both
// ways.
func (b *Bound) buildView(inst *Actions) *view.View {
	v := view.New(b.name).
		Authenticate(inst.Authenticators...).
		Permit(inst.Permissions...).
		Throttle(inst.Throttles...)
	if len(inst.Renderers) > 0 {
		v.Render(inst.Renderers...)
	}
	for method, action := range b.binding {
		if fn, ok := inst.Suspending[action]; ok {
			v.Handle(method, fn)
			continue
		}
		if fn, ok := inst.Sync[action]; ok {
			v.Handle(method, fn)
			continue
		}
		panic(restflow.Contractf("viewset %q: instance lost action %q", b.set.name, action))
	}
	return v
}
