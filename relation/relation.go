// Package relation provides schema nodes that reference objects in another
// queryset. Write-path decoding resolves incoming keys with a point lookup,
// so relation nodes always classify as suspending. Read-path encoding
// renders the related key; the key-only mode serves it straight from the
// instance's stored foreign key without touching the store.
package relation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/syssam/restflow/storage"
)

// Key is a placeholder carrying only the key of a related object. It lets
// the representation engine render a relation without materializing the
// object it points to.
type Key struct {
	Value any
}

// MarshalJSON renders the bare key.
func (k Key) MarshalJSON() ([]byte, error) { return json.Marshal(k.Value) }

// Keyer exposes a related object's key without resolving the object.
type Keyer interface {
	RelatedKey() any
}

// Lazy is a deferred relationship hop: a key plus the queryset that can
// resolve it. It implements field.Ref, so dotted source paths crossing the
// relation dereference it on demand, and Keyer, so key-only representation
// skips the lookup entirely.
type Lazy struct {
	Set storage.Queryset
	Key any
}

// Deref implements field.Ref.
func (l *Lazy) Deref(ctx context.Context) (any, error) {
	return l.Set.Get(ctx, l.Key)
}

// RelatedKey implements Keyer.
func (l *Lazy) RelatedKey() any { return l.Key }

// extractKey pulls the key out of whatever shape the attribute resolver
// produced: a Key placeholder, a lazy handle, a materialized object, or the
// raw key itself.
func extractKey(v any, keyField string) (any, error) {
	switch t := v.(type) {
	case Key:
		return t.Value, nil
	case Keyer:
		return t.RelatedKey(), nil
	case map[string]any:
		if k, ok := t[keyField]; ok {
			return k, nil
		}
		return nil, fmt.Errorf("restflow: related object has no key attribute %q", keyField)
	}
	if k, ok := storage.Attr(v, keyField); ok {
		return k, nil
	}
	// Raw scalar key.
	return v, nil
}

// scalarKey reports whether an input value has a plausible key shape.
// Mappings and lists are always incorrect input for a relation.
func scalarKey(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return v != nil
}

// OrderByKeys reorders items so their key attributes follow the order of
// keys. Items without a matching key are dropped. Useful for batch lookups
// that must preserve request order.
func OrderByKeys(items []any, keyField string, keys []any) []any {
	byKey := make(map[string]any, len(items))
	for _, item := range items {
		if k, ok := storage.Attr(item, keyField); ok {
			byKey[fmt.Sprint(k)] = item
		}
	}
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		if item, ok := byKey[fmt.Sprint(k)]; ok {
			out = append(out, item)
		}
	}
	return out
}

// GroupByKey buckets items by the printed form of an attribute, preserving
// item order within each bucket.
func GroupByKey(items []any, keyField string) map[string][]any {
	out := make(map[string][]any)
	for _, item := range items {
		k, ok := storage.Attr(item, keyField)
		if !ok {
			continue
		}
		s := fmt.Sprint(k)
		out[s] = append(out[s], item)
	}
	return out
}
