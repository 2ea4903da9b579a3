package storage

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/syssam/restflow"
)

// MemStore is an ordered, mutex-guarded in-memory Queryset. It is primarily
// used in tests and examples, and as the reference implementation of the
// Queryset contract.
type MemStore struct {
	label    string
	keyField string

	mu    sync.RWMutex
	items []any
}

// NewMemStore returns an empty store. label names the object kind in
// not-found errors; keyField is the attribute compared by Get.
func NewMemStore(label, keyField string) *MemStore {
	return &MemStore{label: label, keyField: keyField}
}

// Add appends items, preserving insertion order.
func (s *MemStore) Add(items ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Replace swaps the object stored under key for item. Returns a not-found
// error when the key is absent.
func (s *MemStore) Replace(key any, item any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.items {
		if v, ok := Attr(existing, s.keyField); ok && looseEq(v, key) {
			s.items[i] = item
			return nil
		}
	}
	return restflow.NewNotFoundErrorWithKey(s.label, key)
}

// Delete removes the object stored under key.
func (s *MemStore) Delete(key any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.items {
		if v, ok := Attr(existing, s.keyField); ok && looseEq(v, key) {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return restflow.NewNotFoundErrorWithKey(s.label, key)
}

// Get implements Queryset.
func (s *MemStore) Get(ctx context.Context, key any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if v, ok := Attr(item, s.keyField); ok && looseEq(v, key) {
			return item, nil
		}
	}
	return nil, restflow.NewNotFoundErrorWithKey(s.label, key)
}

// Count implements Queryset.
func (s *MemStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

// Slice implements Queryset.
func (s *MemStore) Slice(ctx context.Context, offset, limit int) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset >= len(s.items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.items) {
		end = len(s.items)
	}
	out := make([]any, end-offset)
	copy(out, s.items[offset:end])
	return out, nil
}

// All implements Queryset.
func (s *MemStore) All(ctx context.Context) (Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]any, len(s.items))
	copy(items, s.items)
	return NewSliceIterator(items), nil
}

// Filter implements Queryset. The returned set shares the receiver's
// backing data and applies the predicate lazily.
func (s *MemStore) Filter(name string, value any) Queryset {
	return &filtered{base: s, name: name, value: value}
}

type filtered struct {
	base  Queryset
	name  string
	value any
}

func (f *filtered) matches(item any) bool {
	v, ok := Attr(item, f.name)
	return ok && looseEq(v, f.value)
}

func (f *filtered) all(ctx context.Context) ([]any, error) {
	it, err := f.base.All(ctx)
	if err != nil {
		return nil, err
	}
	items, err := Materialize(ctx, it)
	if err != nil {
		return nil, err
	}
	var out []any
	for _, item := range items {
		if f.matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *filtered) Get(ctx context.Context, key any) (any, error) {
	v, err := f.base.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !f.matches(v) {
		return nil, restflow.NewNotFoundErrorWithKey("object", key)
	}
	return v, nil
}

func (f *filtered) Count(ctx context.Context) (int, error) {
	items, err := f.all(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (f *filtered) Slice(ctx context.Context, offset, limit int) ([]any, error) {
	items, err := f.all(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(items) {
		return nil, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (f *filtered) All(ctx context.Context) (Iterator, error) {
	items, err := f.all(ctx)
	if err != nil {
		return nil, err
	}
	return NewSliceIterator(items), nil
}

func (f *filtered) Filter(name string, value any) Queryset {
	return &filtered{base: f, name: name, value: value}
}

// Attr fetches a single named attribute from an object, supporting both
// mapping-style and struct-style access. Struct lookup matches the exported
// field whose snake_cased name equals name.
func Attr(obj any, name string) (any, bool) {
	switch m := obj.(type) {
	case map[string]any:
		v, ok := m[name]
		return v, ok
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == name || snake(f.Name) == name {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// looseEq compares attribute values across the numeric representations that
// decoded payloads produce (json numbers arrive as float64).
func looseEq(a, b any) bool {
	if a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && fmt.Sprint(a) != ""
}

func snake(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
