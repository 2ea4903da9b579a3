package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/storage"
	"github.com/syssam/restflow/storage/sqlstore"
)

// End-to-end check of the Queryset contract against a real driver.
func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	db := openSQLite(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, username TEXT, active INTEGER)`)
	require.NoError(t, err)
	for _, row := range [][]any{
		{1, "ada", 1},
		{2, "brian", 0},
		{3, "carol", 1},
	} {
		_, err = db.ExecContext(ctx, `INSERT INTO users (id, username, active) VALUES (?, ?, ?)`, row...)
		require.NoError(t, err)
	}

	s := sqlstore.New(db, "users", "id").WithLabel("user")

	obj, err := s.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "brian", obj.(map[string]any)["username"])

	_, err = s.Get(ctx, 99)
	assert.True(t, restflow.IsNotFound(err))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	active := s.Filter("active", 1)
	n, err = active.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	page, err := s.Slice(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "brian", page[0].(map[string]any)["username"])

	it, err := s.All(ctx)
	require.NoError(t, err)
	items, err := storage.Materialize(ctx, it)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
