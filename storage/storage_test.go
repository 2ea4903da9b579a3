package storage_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/storage"
)

type account struct {
	ID       int
	Username string
	Active   bool
}

func seeded() *storage.MemStore {
	s := storage.NewMemStore("account", "id")
	s.Add(
		map[string]any{"id": 1, "username": "ada", "active": true},
		map[string]any{"id": 2, "username": "brian", "active": false},
		map[string]any{"id": 3, "username": "carol", "active": true},
	)
	return s
}

func TestMemStoreGet(t *testing.T) {
	t.Parallel()

	s := seeded()
	ctx := context.Background()

	obj, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "brian", obj.(map[string]any)["username"])

	// Keys decoded from JSON arrive as float64.
	obj, err = s.Get(ctx, float64(2))
	require.NoError(t, err)
	assert.Equal(t, "brian", obj.(map[string]any)["username"])

	_, err = s.Get(ctx, 42)
	assert.True(t, restflow.IsNotFound(err))
	assert.ErrorIs(t, err, restflow.ErrNotFound)
}

func TestMemStoreStructItems(t *testing.T) {
	t.Parallel()

	s := storage.NewMemStore("account", "id")
	s.Add(&account{ID: 7, Username: "dora"})

	obj, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "dora", obj.(*account).Username)

	v, ok := storage.Attr(obj, "username")
	require.True(t, ok)
	assert.Equal(t, "dora", v)
}

func TestMemStoreCountSlice(t *testing.T) {
	t.Parallel()

	s := seeded()
	ctx := context.Background()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := s.Slice(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "brian", page[0].(map[string]any)["username"])

	page, err = s.Slice(ctx, 9, 5)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemStoreIteration(t *testing.T) {
	t.Parallel()

	s := seeded()
	ctx := context.Background()

	it, err := s.All(ctx)
	require.NoError(t, err)
	items, err := storage.Materialize(ctx, it)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "ada", items[0].(map[string]any)["username"])

	_, err = it.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestMemStoreFilter(t *testing.T) {
	t.Parallel()

	s := seeded()
	ctx := context.Background()

	active := s.Filter("active", true)
	n, err := active.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = active.Get(ctx, 2)
	assert.True(t, restflow.IsNotFound(err))

	obj, err := active.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "carol", obj.(map[string]any)["username"])

	// Filters compose.
	none := active.Filter("username", "ada").Filter("active", false)
	n, err = none.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemStoreReplaceDelete(t *testing.T) {
	t.Parallel()

	s := seeded()
	ctx := context.Background()

	require.NoError(t, s.Replace(2, map[string]any{"id": 2, "username": "bruno"}))
	obj, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bruno", obj.(map[string]any)["username"])

	require.NoError(t, s.Delete(2))
	_, err = s.Get(ctx, 2)
	assert.True(t, restflow.IsNotFound(err))
	assert.True(t, restflow.IsNotFound(s.Delete(2)))
}
