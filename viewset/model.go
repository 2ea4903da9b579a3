package viewset

import (
	"github.com/syssam/restflow/pagination"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/serializer"
	"github.com/syssam/restflow/storage"
	"github.com/syssam/restflow/view"
)

// ModelOptions carries the shared configuration of a model set.
type ModelOptions struct {
	Authenticators []any
	Permissions    []any
	Throttles      []any
	Renderers      []response.Renderer
	Paginator      pagination.Paginator

	// Lookup is the URL capture for detail actions. Defaults to "pk".
	Lookup string
}

// Model declares the standard queryset-backed set: list, create, retrieve,
// update, partial_update and destroy, built on the generic view's actions.
func Model(name string, qs storage.Queryset, schema *serializer.Schema, opts ModelOptions) (*Set, error) {
	factory := func() *Actions {
		g := view.NewGeneric(name, qs, schema).Permit(opts.Permissions...)
		if opts.Paginator != nil {
			g.Paginate(opts.Paginator)
		}
		if opts.Lookup != "" {
			g.Lookup(opts.Lookup)
		}
		return &Actions{
			Authenticators: opts.Authenticators,
			Permissions:    opts.Permissions,
			Throttles:      opts.Throttles,
			Renderers:      opts.Renderers,
			Paginator:      opts.Paginator,
			Suspending: map[string]view.ContextAction{
				"list":           g.ListAction(),
				"create":         g.CreateAction(),
				"retrieve":       g.RetrieveAction(),
				"update":         g.UpdateAction(false),
				"partial_update": g.UpdateAction(true),
				"destroy":        g.DestroyAction(),
			},
		}
	}
	return New(name, factory)
}
