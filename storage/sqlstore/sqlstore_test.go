package sqlstore_test

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/storage"
	"github.com/syssam/restflow/storage/sqlstore"
)

func TestGet(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM users WHERE id = \\?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "ada"))

	s := sqlstore.New(db, "users", "id")
	obj, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(1), "username": "ada"}, obj)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM users WHERE id = \\?").
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	s := sqlstore.New(db, "users", "id").WithLabel("user")
	_, err = s.Get(context.Background(), 42)
	assert.True(t, restflow.IsNotFound(err))
	assert.EqualError(t, err, `restflow: user not found (key=42)`)
}

func TestCountWithFilter(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM users WHERE active = \\?").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	s := sqlstore.New(db, "users", "id").Filter("active", true)
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestSlice(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM users ORDER BY id LIMIT \\? OFFSET \\?").
		WithArgs(2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(2, "brian").
			AddRow(3, "carol"))

	s := sqlstore.New(db, "users", "id")
	page, err := s.Slice(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "brian", page[0].(map[string]any)["username"])
	assert.Equal(t, "carol", page[1].(map[string]any)["username"])
}

func TestAllIteratesLazily(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM users ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).
			AddRow(1, "ada").
			AddRow(2, "brian"))

	s := sqlstore.New(db, "users", "id")
	it, err := s.All(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	first, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada", first.(map[string]any)["username"])

	_, err = it.Next(ctx)
	require.NoError(t, err)
	_, err = it.Next(ctx)
	assert.Equal(t, io.EOF, err)
	// Exhausted iterators stay exhausted.
	_, err = it.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestByteColumnsDecodeToString(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT \\* FROM users WHERE id = \\?").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, []byte("ada")))

	s := sqlstore.New(db, "users", "id")
	obj, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", obj.(map[string]any)["username"])
}

var _ storage.Queryset = (*sqlstore.Store)(nil)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
