package view

import (
	"context"
	"net/http"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/pagination"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/response"
	"github.com/syssam/restflow/serializer"
)

// Op attaches one standard operation to a generic view. List and create
// attach to the collection methods, retrieve, update and destroy to the
// detail methods; a collection view and a detail view over the same
// queryset therefore use disjoint op sets.
type Op interface {
	Attach(g *Generic)
}

// ListOp binds GET to a paginated, serialized listing of the queryset.
type ListOp struct{}

// Attach implements Op.
func (ListOp) Attach(g *Generic) { g.view.Handle(http.MethodGet, g.ListAction()) }

// CreateOp binds POST to validate-then-save through the schema.
type CreateOp struct{}

// Attach implements Op.
func (CreateOp) Attach(g *Generic) { g.view.Handle(http.MethodPost, g.CreateAction()) }

// RetrieveOp binds GET to fetch-and-serialize of the addressed object.
type RetrieveOp struct{}

// Attach implements Op.
func (RetrieveOp) Attach(g *Generic) { g.view.Handle(http.MethodGet, g.RetrieveAction()) }

// UpdateOp binds PUT to full update and PATCH to partial update of the
// addressed object.
type UpdateOp struct{}

// Attach implements Op.
func (UpdateOp) Attach(g *Generic) {
	g.view.Handle(http.MethodPut, g.UpdateAction(false))
	g.view.Handle(http.MethodPatch, g.UpdateAction(true))
}

// DestroyOp binds DELETE to remove the addressed object.
type DestroyOp struct{}

// Attach implements Op.
func (DestroyOp) Attach(g *Generic) { g.view.Handle(http.MethodDelete, g.DestroyAction()) }

// ListAction returns the standard listing action.
func (g *Generic) ListAction() ContextAction {
	return func(ctx context.Context, r *request.Request) (*response.Response, error) {
		if g.Paginator == nil {
			reps, err := serializer.RepresentMany(ctx, g.Schema, g.Queryset)
			if err != nil {
				return nil, err
			}
			return response.New(http.StatusOK, reps), nil
		}
		page, err := g.Paginator.Paginate(ctx, g.Queryset, r)
		if err != nil {
			return nil, err
		}
		reps, err := serializer.RepresentMany(ctx, g.Schema, page.Items)
		if err != nil {
			return nil, err
		}
		return response.New(http.StatusOK, pagination.Envelope(page, reps)), nil
	}
}

// CreateAction returns the standard creation action.
func (g *Generic) CreateAction() ContextAction {
	return func(ctx context.Context, r *request.Request) (*response.Response, error) {
		data, err := r.DataMap()
		if err != nil {
			return nil, err
		}
		ser := g.Schema.Bind(serializer.Data(data))
		ok, err := ser.IsValid(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ser.Errors()
		}
		if _, err := ser.Save(ctx); err != nil {
			return nil, err
		}
		rep, err := ser.Data(ctx)
		if err != nil {
			return nil, err
		}
		return response.New(http.StatusCreated, rep), nil
	}
}

// RetrieveAction returns the standard single-object action.
func (g *Generic) RetrieveAction() ContextAction {
	return func(ctx context.Context, r *request.Request) (*response.Response, error) {
		obj, err := g.GetObject(ctx, r)
		if err != nil {
			return nil, err
		}
		rep, err := g.Schema.Bind(serializer.Instance(obj)).Data(ctx)
		if err != nil {
			return nil, err
		}
		return response.New(http.StatusOK, rep), nil
	}
}

// UpdateAction returns the update action; partial skips absent required
// fields.
func (g *Generic) UpdateAction(partial bool) ContextAction {
	return func(ctx context.Context, r *request.Request) (*response.Response, error) {
		obj, err := g.GetObject(ctx, r)
		if err != nil {
			return nil, err
		}
		data, err := r.DataMap()
		if err != nil {
			return nil, err
		}
		opts := []serializer.Option{serializer.Instance(obj), serializer.Data(data)}
		if partial {
			opts = append(opts, serializer.Partial())
		}
		ser := g.Schema.Bind(opts...)
		ok, err := ser.IsValid(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ser.Errors()
		}
		if _, err := ser.Save(ctx); err != nil {
			return nil, err
		}
		rep, err := ser.Data(ctx)
		if err != nil {
			return nil, err
		}
		return response.New(http.StatusOK, rep), nil
	}
}

// deleter is the optional mutation surface a queryset may expose.
type deleter interface {
	Delete(key any) error
}

// DestroyAction returns the standard deletion action.
func (g *Generic) DestroyAction() ContextAction {
	return func(ctx context.Context, r *request.Request) (*response.Response, error) {
		obj, err := g.GetObject(ctx, r)
		if err != nil {
			return nil, err
		}
		key := g.lookupKey(r)
		if g.Destroy != nil {
			if err := g.Destroy(ctx, obj, key); err != nil {
				return nil, err
			}
			return response.NoContent(), nil
		}
		d, ok := g.Queryset.(deleter)
		if !ok {
			return nil, &restflow.MethodNotAllowedError{Method: r.Method()}
		}
		if err := d.Delete(key); err != nil {
			return nil, err
		}
		return response.NoContent(), nil
	}
}
