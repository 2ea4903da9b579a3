package view

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/pagination"
	"github.com/syssam/restflow/permission"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/serializer"
	"github.com/syssam/restflow/storage"
)

// Generic is a queryset-plus-schema view. Operation capabilities attach the
// standard list, create, retrieve, update and destroy actions to it.
type Generic struct {
	// Queryset is the object source. Operations read and, where the set
	// supports it, mutate through it.
	Queryset storage.Queryset

	// Schema validates incoming data and renders objects.
	Schema *serializer.Schema

	// LookupParam is the URL capture holding the object key. Defaults to
	// "pk".
	LookupParam string

	// Paginator, when set, paginates list responses into the standard
	// envelope.
	Paginator pagination.Paginator

	// Destroy removes an object. Defaults to deleting through the queryset
	// when it supports deletion.
	Destroy func(ctx context.Context, obj any, key string) error

	view *View
}

// NewGeneric returns a generic view with no operations attached.
func NewGeneric(name string, qs storage.Queryset, schema *serializer.Schema) *Generic {
	return &Generic{Queryset: qs, Schema: schema, view: New(name)}
}

// View returns the underlying dispatch view.
func (g *Generic) View() *View { return g.view }

// Authenticate sets the authenticator chain.
func (g *Generic) Authenticate(chain ...any) *Generic { g.view.Authenticate(chain...); return g }

// Permit sets the permission rule chain. Object rules in the chain run
// against fetched objects in GetObject.
func (g *Generic) Permit(rules ...any) *Generic { g.view.Permit(rules...); return g }

// Throttle sets the throttles consulted per request.
func (g *Generic) Throttle(ts ...any) *Generic { g.view.Throttle(ts...); return g }

// Render sets the renderer list.
func (g *Generic) Render(rs ...response.Renderer) *Generic { g.view.Render(rs...); return g }

// Paginate sets the list paginator.
func (g *Generic) Paginate(p pagination.Paginator) *Generic { g.Paginator = p; return g }

// Lookup sets the URL capture name for detail routes.
func (g *Generic) Lookup(param string) *Generic { g.LookupParam = param; return g }

// Use attaches operation capabilities.
func (g *Generic) Use(ops ...Op) *Generic {
	for _, op := range ops {
		op.Attach(g)
	}
	return g
}

func (g *Generic) lookupParam() string {
	if g.LookupParam == "" {
		return "pk"
	}
	return g.LookupParam
}

func (g *Generic) lookupKey(r *request.Request) string {
	return chi.URLParam(r.Raw, g.lookupParam())
}

// GetObject fetches the object addressed by the detail route and runs the
// view's object-level permission rules against it. Object permissions run
// here, not in the gauntlet, so they only fire for actions that fetch.
func (g *Generic) GetObject(ctx context.Context, r *request.Request) (any, error) {
	if g.Queryset == nil {
		panic(restflow.Contractf("view %q: generic view requires a queryset", g.view.name))
	}
	obj, err := g.Queryset.Get(ctx, g.lookupKey(r))
	if err != nil {
		return nil, err
	}
	if err := permission.CheckObject(ctx, g.view.permissions, r, obj); err != nil {
		return nil, g.view.escalate(ctx, r, err)
	}
	return obj, nil
}
