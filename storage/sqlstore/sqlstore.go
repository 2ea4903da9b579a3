// Package sqlstore implements storage.Queryset on top of database/sql.
// Rows are scanned into map[string]any objects keyed by column name, which
// the attribute resolver and serializers consume directly.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/storage"
)

// Store is a Queryset reading one table. Filters narrow the set with
// equality predicates; ordering follows the key column for deterministic
// slicing.
type Store struct {
	db      *sql.DB
	table   string
	keyCol  string
	label   string
	filters []filter
}

type filter struct {
	col   string
	value any
}

// New returns a Store over table, using keyCol for point lookups and
// ordering. The table label names objects in not-found errors.
func New(db *sql.DB, table, keyCol string) *Store {
	return &Store{db: db, table: table, keyCol: keyCol, label: table}
}

// WithLabel sets the object label used in not-found errors.
func (s *Store) WithLabel(label string) *Store {
	c := s.clone()
	c.label = label
	return c
}

func (s *Store) clone() *Store {
	c := *s
	c.filters = append([]filter(nil), s.filters...)
	return &c
}

func (s *Store) where(extra ...filter) (string, []any) {
	fs := append(append([]filter(nil), s.filters...), extra...)
	if len(fs) == 0 {
		return "", nil
	}
	var (
		preds []string
		args  []any
	)
	for _, f := range fs {
		preds = append(preds, fmt.Sprintf("%s = ?", f.col))
		args = append(args, f.value)
	}
	return " WHERE " + strings.Join(preds, " AND "), args
}

// Get implements storage.Queryset.
func (s *Store) Get(ctx context.Context, key any) (any, error) {
	where, args := s.where(filter{col: s.keyCol, value: key})
	query := fmt.Sprintf("SELECT * FROM %s%s", s.table, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	objs, err := scanAll(rows, 1)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, restflow.NewNotFoundErrorWithKey(s.label, key)
	}
	return objs[0], nil
}

// Count implements storage.Queryset.
func (s *Store) Count(ctx context.Context) (int, error) {
	where, args := s.where()
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table, where)
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Slice implements storage.Queryset.
func (s *Store) Slice(ctx context.Context, offset, limit int) ([]any, error) {
	where, args := s.where()
	query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s LIMIT ? OFFSET ?", s.table, where, s.keyCol)
	args = append(args, limit, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows, 0)
}

// All implements storage.Queryset. The iterator is lazy: rows are scanned
// one at a time as the representation engine consumes them.
func (s *Store) All(ctx context.Context) (storage.Iterator, error) {
	where, args := s.where()
	query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s", s.table, where, s.keyCol)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &rowIterator{rows: rows, cols: cols}, nil
}

// Filter implements storage.Queryset.
func (s *Store) Filter(name string, value any) storage.Queryset {
	c := s.clone()
	c.filters = append(c.filters, filter{col: name, value: value})
	return c
}

type rowIterator struct {
	rows *sql.Rows
	cols []string
	done bool
}

func (it *rowIterator) Next(ctx context.Context) (any, error) {
	if it.done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		it.close()
		return nil, err
	}
	if !it.rows.Next() {
		err := it.rows.Err()
		it.close()
		if err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return scanRow(it.rows, it.cols)
}

func (it *rowIterator) close() {
	if !it.done {
		it.done = true
		it.rows.Close()
	}
}

func scanAll(rows *sql.Rows, max int) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []any
	for rows.Next() {
		obj, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows, cols []string) (any, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	obj := make(map[string]any, len(cols))
	for i, col := range cols {
		v := vals[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		obj[col] = v
	}
	return obj, nil
}
