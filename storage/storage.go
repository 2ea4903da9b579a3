// Package storage defines the data-source collaborator consumed by the
// framework: a Queryset supporting point lookup, counting, slicing, and
// ordered iteration. Implementations may be eagerly materialized (in-memory)
// or lazily produced (SQL-backed); both are driven through context-taking
// methods since any of them may suspend.
package storage

import (
	"context"
	"io"
)

// Queryset is the minimal query surface the framework depends on.
type Queryset interface {
	// Get performs a point lookup by key. Returns a restflow.NotFoundError
	// when no object matches.
	Get(ctx context.Context, key any) (any, error)

	// Count returns the number of objects in the set.
	Count(ctx context.Context) (int, error)

	// Slice returns objects in [offset, offset+limit), preserving order.
	Slice(ctx context.Context, offset, limit int) ([]any, error)

	// All returns an iterator over every object, preserving order.
	All(ctx context.Context) (Iterator, error)

	// Filter narrows the set to objects whose named attribute equals value.
	Filter(name string, value any) Queryset
}

// Iterator lazily produces objects. Next returns io.EOF when exhausted.
type Iterator interface {
	Next(ctx context.Context) (any, error)
}

// Materialize drains an iterator into a slice.
func Materialize(ctx context.Context, it Iterator) ([]any, error) {
	var out []any
	for {
		v, err := it.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// SliceIterator adapts an eagerly materialized slice to the Iterator
// interface.
type SliceIterator struct {
	items []any
	pos   int
}

// NewSliceIterator returns an iterator over items.
func NewSliceIterator(items []any) *SliceIterator {
	return &SliceIterator{items: items}
}

// Next returns the next item, or io.EOF when exhausted.
func (it *SliceIterator) Next(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.items) {
		return nil, io.EOF
	}
	v := it.items[it.pos]
	it.pos++
	return v, nil
}
