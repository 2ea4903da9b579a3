package view_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow/pagination"
	"github.com/syssam/restflow/permission"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/schema/field"
	"github.com/syssam/restflow/serializer"
	"github.com/syssam/restflow/storage"
	"github.com/syssam/restflow/view"
)

func userFixture() (*storage.MemStore, *serializer.Schema) {
	store := storage.NewMemStore("user", "id")
	store.Add(
		map[string]any{"id": 1, "username": "ada"},
		map[string]any{"id": 2, "username": "grace"},
	)
	nextID := 3

	schema := serializer.New("user",
		field.Int("id").ReadOnly(),
		field.String("username"),
	).OnCreate(func(ctx context.Context, validated map[string]any) (any, error) {
		obj := map[string]any{"id": nextID}
		nextID++
		for k, v := range validated {
			obj[k] = v
		}
		store.Add(obj)
		return obj, nil
	}).OnUpdate(func(ctx context.Context, instance any, validated map[string]any) (any, error) {
		obj := map[string]any{}
		for k, v := range instance.(map[string]any) {
			obj[k] = v
		}
		for k, v := range validated {
			obj[k] = v
		}
		if err := store.Replace(obj["id"], obj); err != nil {
			return nil, err
		}
		return obj, nil
	})
	return store, schema
}

// mount wires collection and detail views the way the router does.
func mount(list, detail *view.Generic) http.Handler {
	r := chi.NewRouter()
	if list != nil {
		r.Handle("/users/", list.View())
	}
	if detail != nil {
		r.Handle("/users/{pk}/", detail.View())
	}
	return r
}

func TestGenericList(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	list := view.NewGeneric("user-list", store, schema).
		Paginate(&pagination.PageNumber{Size: 10}).
		Use(view.ListOp{})

	w := httptest.NewRecorder()
	mount(list, nil).ServeHTTP(w, httptest.NewRequest("GET", "/users/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["count"])
	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.Equal(t, "ada", results[0].(map[string]any)["username"])
}

func TestGenericListUnpaginated(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	list := view.NewGeneric("user-list", store, schema).Use(view.ListOp{})

	w := httptest.NewRecorder()
	mount(list, nil).ServeHTTP(w, httptest.NewRequest("GET", "/users/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 2)
}

func TestGenericCreate(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	list := view.NewGeneric("user-list", store, schema).Use(view.CreateOp{})
	h := mount(list, nil)

	raw := httptest.NewRequest("POST", "/users/", jsonBody(`{"username": "linus"}`))
	raw.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, raw)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id": 3, "username": "linus"}`, w.Body.String())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGenericCreateInvalid(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	list := view.NewGeneric("user-list", store, schema).Use(view.CreateOp{})
	h := mount(list, nil)

	raw := httptest.NewRequest("POST", "/users/", jsonBody(`{}`))
	raw.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, raw)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"username": ["This field is required."]}`, w.Body.String())
}

func TestGenericRetrieve(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	detail := view.NewGeneric("user-detail", store, schema).Use(view.RetrieveOp{})
	h := mount(nil, detail)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/users/1/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": 1, "username": "ada"}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/users/99/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenericUpdate(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	detail := view.NewGeneric("user-detail", store, schema).Use(view.UpdateOp{})
	h := mount(nil, detail)

	raw := httptest.NewRequest("PATCH", "/users/2/", jsonBody(`{"username": "hopper"}`))
	raw.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, raw)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": 2, "username": "hopper"}`, w.Body.String())

	obj, err := store.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "hopper", obj.(map[string]any)["username"])
}

func TestGenericUpdateFullRequiresAllFields(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	detail := view.NewGeneric("user-detail", store, schema).Use(view.UpdateOp{})
	h := mount(nil, detail)

	raw := httptest.NewRequest("PUT", "/users/2/", jsonBody(`{}`))
	raw.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, raw)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"username": ["This field is required."]}`, w.Body.String())
}

func TestGenericDestroy(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	detail := view.NewGeneric("user-detail", store, schema).Use(view.DestroyOp{})
	h := mount(nil, detail)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("DELETE", "/users/1/", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// Object permissions run only for actions that fetch an object.
func TestObjectPermissionIsLazy(t *testing.T) {
	t.Parallel()

	var checks atomic.Int32
	rule := objectRule{n: &checks}

	store, schema := userFixture()
	list := view.NewGeneric("user-list", store, schema).Permit(rule).Use(view.ListOp{})
	detail := view.NewGeneric("user-detail", store, schema).Permit(rule).Use(view.RetrieveOp{})
	h := mount(list, detail)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/users/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(0), checks.Load())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/users/1/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), checks.Load())
}

func TestObjectPermissionDenies(t *testing.T) {
	t.Parallel()

	store, schema := userFixture()
	detail := view.NewGeneric("user-detail", store, schema).
		Permit(denyObjects{}).
		Use(view.RetrieveOp{})
	h := mount(nil, detail)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/users/1/", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type objectRule struct{ n *atomic.Int32 }

func (r objectRule) CheckObject(req *request.Request, obj any) error {
	r.n.Add(1)
	return permission.Allow
}

type denyObjects struct{}

func (denyObjects) CheckObject(req *request.Request, obj any) error {
	return permission.Deny
}
