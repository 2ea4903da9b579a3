// Package router maps viewsets to URL trees. Registration derives route
// basenames, binds the standard collection and detail actions, and mounts
// everything on a chi router.
package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/inflect"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/view"
	"github.com/syssam/restflow/viewset"
)

// LookupParam is the URL capture used by detail routes.
const LookupParam = "pk"

var (
	listBinding = viewset.Binding{
		http.MethodGet:  "list",
		http.MethodPost: "create",
	}
	detailBinding = viewset.Binding{
		http.MethodGet:    "retrieve",
		http.MethodPut:    "update",
		http.MethodPatch:  "partial_update",
		http.MethodDelete: "destroy",
	}
)

// Router collects viewset registrations and turns them into a URL tree.
type Router struct {
	withRoot      bool
	registrations []registration
}

type registration struct {
	prefix   string
	basename string
	set      *viewset.Set
}

// New returns a plain router.
func New() *Router { return &Router{} }

// Default returns a router that also serves an API root listing at "/".
func Default() *Router { return &Router{withRoot: true} }

// Register adds a viewset under prefix. An empty basename is derived by
// singularizing the prefix; duplicate basenames are a configuration error.
func (r *Router) Register(prefix string, set *viewset.Set, basename string) error {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return restflow.Configf("router: empty prefix")
	}
	if basename == "" {
		basename = inflect.Singularize(prefix)
	}
	for _, reg := range r.registrations {
		if reg.basename == basename {
			return restflow.Configf("router: duplicate basename %q", basename)
		}
	}
	r.registrations = append(r.registrations, registration{
		prefix:   prefix,
		basename: basename,
		set:      set,
	})
	return nil
}

// MustRegister is Register for statically known registrations.
func (r *Router) MustRegister(prefix string, set *viewset.Set, basename string) {
	if err := r.Register(prefix, set, basename); err != nil {
		panic(err)
	}
}

// URLs binds every registration and mounts the routes. Collection routes
// live at "/{prefix}/" named "{basename}-list", detail routes at
// "/{prefix}/{pk}/" named "{basename}-detail"; a viewset missing all
// actions of a route simply doesn't get that route.
func (r *Router) URLs() (chi.Router, error) {
	mux := chi.NewRouter()
	roots := make(map[string]string, len(r.registrations))

	for _, reg := range r.registrations {
		roots[reg.basename] = "/" + reg.prefix + "/"

		if b := filterBinding(listBinding, reg.set); len(b) > 0 {
			bound, err := reg.set.Bind(b, viewset.WithName(reg.basename+"-list"))
			if err != nil {
				return nil, err
			}
			mux.Handle("/"+reg.prefix+"/", bound)
		}
		if b := filterBinding(detailBinding, reg.set); len(b) > 0 {
			bound, err := reg.set.Bind(b, viewset.WithName(reg.basename+"-detail"))
			if err != nil {
				return nil, err
			}
			mux.Handle("/"+reg.prefix+"/{"+LookupParam+"}/", bound)
		}
	}

	if r.withRoot {
		mux.Handle("/", apiRoot(roots))
	}
	return mux, nil
}

// Names returns route names mapped to their URL patterns.
func (r *Router) Names() map[string]string {
	out := make(map[string]string, 2*len(r.registrations))
	for _, reg := range r.registrations {
		if len(filterBinding(listBinding, reg.set)) > 0 {
			out[reg.basename+"-list"] = "/" + reg.prefix + "/"
		}
		if len(filterBinding(detailBinding, reg.set)) > 0 {
			out[reg.basename+"-detail"] = "/" + reg.prefix + "/{" + LookupParam + "}/"
		}
	}
	return out
}

func filterBinding(b viewset.Binding, set *viewset.Set) viewset.Binding {
	out := make(viewset.Binding, len(b))
	for method, action := range b {
		if set.Has(action) {
			out[method] = action
		}
	}
	return out
}

// apiRoot lists registered collections, ordered by basename.
func apiRoot(roots map[string]string) *view.View {
	return view.Func("api-root", []string{http.MethodGet}, view.Action(
		func(req *request.Request) (*response.Response, error) {
			names := make([]string, 0, len(roots))
			for name := range roots {
				names = append(names, name)
			}
			sort.Strings(names)
			body := make(map[string]any, len(roots))
			for _, name := range names {
				body[name] = roots[name]
			}
			return response.New(http.StatusOK, body), nil
		}))
}
