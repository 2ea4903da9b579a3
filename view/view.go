// Package view is the dispatch core. A View binds HTTP methods to actions,
// runs the pre-handler gauntlet (authentication, permissions, throttles) in
// a fixed order on both the sync and suspending paths, and funnels every
// failure through one exception translator so error responses are produced
// in exactly one place.
package view

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/permission"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/throttle"
)

// Action handles a request inline.
type Action func(r *request.Request) (*response.Response, error)

// ContextAction is the suspend-capable action variant.
type ContextAction func(ctx context.Context, r *request.Request) (*response.Response, error)

// View dispatches HTTP requests to bound actions. Configure it with the
// chainable setters, then serve it; the capability descriptor is computed
// once on first use and the configuration is frozen from then on.
type View struct {
	name string

	authenticators []any
	permissions    []any
	throttles      []any
	renderers      []response.Renderer
	logger         zerolog.Logger

	initial   func(ctx context.Context, r *request.Request) error
	finalize  func(r *request.Request, resp *response.Response) *response.Response
	exception func(r *request.Request, err error) *response.Response

	actions map[string]any

	once sync.Once
	desc *capability.Descriptor
}

// New returns an empty view.
func New(name string) *View {
	return &View{
		name:    name,
		logger:  log.Logger,
		actions: make(map[string]any),
	}
}

// Name returns the view name used in logs and metrics.
func (v *View) Name() string { return v.name }

// Authenticate sets the authenticator chain.
func (v *View) Authenticate(chain ...any) *View { v.authenticators = chain; return v }

// Permit sets the permission rule chain.
func (v *View) Permit(rules ...any) *View { v.permissions = rules; return v }

// Throttle sets the throttles consulted per request.
func (v *View) Throttle(ts ...any) *View { v.throttles = ts; return v }

// Render sets the renderer list; the first is the negotiation default.
func (v *View) Render(rs ...response.Renderer) *View { v.renderers = rs; return v }

// Logger sets the structured logger.
func (v *View) Logger(l zerolog.Logger) *View { v.logger = l; return v }

// OnInitial installs a hook run after the gauntlet, before the action.
func (v *View) OnInitial(fn func(ctx context.Context, r *request.Request) error) *View {
	v.initial = fn
	return v
}

// OnFinalize installs a hook run on every outgoing response.
func (v *View) OnFinalize(fn func(r *request.Request, resp *response.Response) *response.Response) *View {
	v.finalize = fn
	return v
}

// OnException replaces the default exception translator.
func (v *View) OnException(fn func(r *request.Request, err error) *response.Response) *View {
	v.exception = fn
	return v
}

// Handle binds an action to an HTTP method. Binding after the view started
// serving, or binding an unsupported function form, is an integrator
// defect.
func (v *View) Handle(method string, fn any) *View {
	if v.desc != nil {
		panic(restflow.Contractf("view %q: cannot bind actions after first dispatch", v.name))
	}
	switch fn.(type) {
	case Action, ContextAction,
		func(*request.Request) (*response.Response, error),
		func(context.Context, *request.Request) (*response.Response, error):
	default:
		panic(restflow.Contractf("view %q: unsupported action type %T", v.name, fn))
	}
	v.actions[method] = fn
	return v
}

// ActionMode classifies one action function.
func ActionMode(fn any) capability.Mode {
	switch fn.(type) {
	case ContextAction, func(context.Context, *request.Request) (*response.Response, error):
		return capability.ModeSuspending
	}
	return capability.ModeSync
}

// Descriptor returns the view's capability descriptor, built once from the
// bound actions.
func (v *View) Descriptor() *capability.Descriptor {
	v.once.Do(func() {
		members := make(map[string]capability.Mode, len(v.actions))
		for method, fn := range v.actions {
			members[method] = ActionMode(fn)
		}
		for _, rule := range v.permissions {
			if permission.ModeOf(rule) == capability.ModeSuspending {
				members["__permissions__"] = capability.ModeSuspending
			}
		}
		for _, t := range v.throttles {
			if throttle.ModeOf(t) == capability.ModeSuspending {
				members["__throttles__"] = capability.ModeSuspending
			}
		}
		v.desc = capability.Describe(members)
	})
	return v.desc
}

// Mode returns the aggregate view mode.
func (v *View) Mode() capability.Mode { return v.Descriptor().Mode() }

// Methods returns the bound HTTP methods, sorted.
func (v *View) Methods() []string {
	out := make([]string, 0, len(v.actions))
	for m := range v.actions {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// ServeHTTP implements http.Handler.
func (v *View) ServeHTTP(w http.ResponseWriter, raw *http.Request) {
	req := request.New(raw, request.WithAuthenticators(v.authenticators...))
	v.Dispatch(w, req)
}

// Dispatch runs the per-request state machine on an already-wrapped
// request and writes the outcome. Contract violations panic through;
// everything else becomes a translated error response.
func (v *View) Dispatch(w http.ResponseWriter, req *request.Request) {
	v.Descriptor()
	defer func() {
		if rec := recover(); rec != nil {
			v.logger.Error().Interface("panic", rec).
				Str("view", v.name).Str("request_id", req.ID).
				Msg("panic during dispatch")
			panic(rec)
		}
	}()
	ctx := req.Raw.Context()
	resp, err := v.run(ctx, req)
	if err != nil {
		resp = v.translate(req, err)
	}
	if resp == nil {
		panic(restflow.Contractf("view %q: action returned neither response nor error", v.name))
	}
	if v.finalize != nil {
		resp = v.finalize(req, resp)
	}
	resp.Header("X-Request-ID", req.ID)
	renderer := response.Negotiate(v.rendererList(), req.Header().Get("Accept"))
	if err := resp.Write(w, renderer); err != nil {
		v.logger.Error().Err(err).Str("view", v.name).Str("request_id", req.ID).
			Msg("response write failed")
	}
	requestsTotal.WithLabelValues(v.name, req.Method(), strconv.Itoa(resp.Status)).Inc()
}

func (v *View) rendererList() []response.Renderer {
	if len(v.renderers) == 0 {
		return []response.Renderer{response.JSONRenderer{}}
	}
	return v.renderers
}

// run performs the fixed step order: authenticate, permissions, throttles,
// initial hook, resolve action, invoke. The sync and suspending invocation
// branches perform identical steps; only the final call shape differs.
func (v *View) run(ctx context.Context, req *request.Request) (*response.Response, error) {
	if _, err := req.User(ctx); err != nil {
		return nil, err
	}
	if err := permission.Check(ctx, v.permissions, req); err != nil {
		return nil, v.escalate(ctx, req, err)
	}
	if err := throttle.CheckAll(ctx, v.throttles, req); err != nil {
		return nil, err
	}
	if v.initial != nil {
		if err := v.initial(ctx, req); err != nil {
			return nil, err
		}
	}
	fn, ok := v.action(req.Method())
	if !ok {
		if req.Method() == http.MethodOptions {
			return v.defaultOptions(), nil
		}
		return nil, &restflow.MethodNotAllowedError{Method: req.Method()}
	}
	switch t := fn.(type) {
	case ContextAction:
		return t(ctx, req)
	case func(context.Context, *request.Request) (*response.Response, error):
		return t(ctx, req)
	case Action:
		return t(req)
	case func(*request.Request) (*response.Response, error):
		return t(req)
	}
	panic(restflow.Contractf("view %q: unsupported action type %T", v.name, fn))
}

func (v *View) action(method string) (any, bool) {
	if fn, ok := v.actions[method]; ok {
		return fn, true
	}
	if method == http.MethodHead {
		fn, ok := v.actions[http.MethodGet]
		return fn, ok
	}
	return nil, false
}

func (v *View) defaultOptions() *response.Response {
	methods := append(v.Methods(), http.MethodOptions)
	sort.Strings(methods)
	resp := response.New(http.StatusOK, map[string]any{
		"name":  v.name,
		"allow": methods,
	})
	allow := ""
	for i, m := range methods {
		if i > 0 {
			allow += ", "
		}
		allow += m
	}
	return resp.Header("Allow", allow)
}

// escalate turns a permission denial on an unauthenticated request into an
// authentication failure, so clients that never presented credentials get
// a 401 challenge instead of a 403.
func (v *View) escalate(ctx context.Context, req *request.Request, err error) error {
	if !restflow.IsPermissionDenied(err) || len(v.authenticators) == 0 {
		return err
	}
	user, uerr := req.User(ctx)
	if uerr != nil {
		return uerr
	}
	if !user.IsAuthenticated() {
		return restflow.NewAuthenticationError("")
	}
	return err
}
