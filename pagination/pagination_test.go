package pagination_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/pagination"
	"github.com/syssam/restflow/request"
	"github.com/syssam/restflow/storage"
)

func seeded(n int) *storage.MemStore {
	s := storage.NewMemStore("thing", "id")
	for i := 1; i <= n; i++ {
		s.Add(map[string]any{"id": i, "name": fmt.Sprintf("thing-%d", i)})
	}
	return s
}

func reqFor(target string) *request.Request {
	return request.New(httptest.NewRequest("GET", target, nil))
}

func TestPageNumber(t *testing.T) {
	t.Parallel()

	p := &pagination.PageNumber{Size: 10}
	qs := seeded(25)
	ctx := context.Background()

	page, err := p.Paginate(ctx, qs, reqFor("/things/"))
	require.NoError(t, err)
	assert.Equal(t, 25, page.Count)
	require.Len(t, page.Items, 10)
	assert.Equal(t, 1, page.Items[0].(map[string]any)["id"])
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	page, err = p.Paginate(ctx, qs, reqFor("/things/?page=3"))
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Contains(t, *page.Previous, "page=2")

	// First-page previous link drops the parameter.
	page, err = p.Paginate(ctx, qs, reqFor("/things/?page=2"))
	require.NoError(t, err)
	require.NotNil(t, page.Previous)
	assert.NotContains(t, *page.Previous, "page=")
}

func TestPageNumberInvalidPage(t *testing.T) {
	t.Parallel()

	p := &pagination.PageNumber{Size: 10}
	qs := seeded(25)
	ctx := context.Background()

	for _, target := range []string{"/things/?page=0", "/things/?page=abc", "/things/?page=4"} {
		_, err := p.Paginate(ctx, qs, reqFor(target))
		assert.True(t, restflow.IsNotFound(err), "target %s", target)
	}
}

func TestPageNumberClientSize(t *testing.T) {
	t.Parallel()

	p := &pagination.PageNumber{Size: 10, SizeParam: "page_size", MaxSize: 15}
	qs := seeded(25)
	ctx := context.Background()

	page, err := p.Paginate(ctx, qs, reqFor("/things/?page_size=5"))
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	page, err = p.Paginate(ctx, qs, reqFor("/things/?page_size=100"))
	require.NoError(t, err)
	assert.Len(t, page.Items, 15)
}

func TestLimitOffset(t *testing.T) {
	t.Parallel()

	p := &pagination.LimitOffset{Default: 10}
	qs := seeded(25)
	ctx := context.Background()

	page, err := p.Paginate(ctx, qs, reqFor("/things/?limit=10&offset=10"))
	require.NoError(t, err)
	assert.Equal(t, 25, page.Count)
	require.Len(t, page.Items, 10)
	assert.Equal(t, 11, page.Items[0].(map[string]any)["id"])
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "offset=20")
	require.NotNil(t, page.Previous)
	assert.NotContains(t, *page.Previous, "offset=")

	// Offset past the end yields an empty page, not an error.
	page, err = p.Paginate(ctx, qs, reqFor("/things/?offset=100"))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Next)
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	next := "/things/?page=2"
	env := pagination.Envelope(&pagination.Page{Count: 3, Next: &next}, []any{"a"})
	assert.Equal(t, map[string]any{
		"count":    3,
		"next":     "/things/?page=2",
		"previous": nil,
		"results":  []any{"a"},
	}, env)
}
