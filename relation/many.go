package relation

import (
	"context"
	"fmt"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/schema/field"
	"github.com/syssam/restflow/storage"
)

// ToMany references a list of objects in another queryset. Decoding resolves
// each incoming key; encoding renders the list of keys.
type ToMany struct {
	desc     field.Descriptor
	set      storage.Queryset
	keyField string
}

// Many returns a to-many relation backed by set.
func Many(name string, set storage.Queryset) *ToMany {
	r := &ToMany{
		desc:     field.Descriptor{Name: name, Required: true, Messages: relatedMessages()},
		set:      set,
		keyField: "id",
	}
	r.desc.Messages["not_a_list"] = `Expected a list of items but got type %q.`
	if name == "" {
		r.desc.Err = restflow.Configf("field name must not be empty")
	}
	if set == nil {
		r.desc.Err = restflow.Configf("field %q: relation requires a queryset", name)
	}
	return r
}

// Descriptor implements field.Node.
func (r *ToMany) Descriptor() *field.Descriptor { return &r.desc }

// Mode implements field.Moder.
func (r *ToMany) Mode() capability.Mode { return capability.ModeSuspending }

// KeyField sets the attribute that keys related objects.
func (r *ToMany) KeyField(name string) *ToMany { r.keyField = name; return r }

// Source sets the attribute path read from the instance.
func (r *ToMany) Source(source string) *ToMany { r.desc.Source = source; return r }

// Optional marks the relation as not required on input.
func (r *ToMany) Optional() *ToMany { r.desc.Required = false; return r }

// ReadOnly excludes the relation from the write path.
func (r *ToMany) ReadOnly() *ToMany { r.desc.ReadOnly = true; r.desc.Required = false; return r }

// Message overrides the error message for a single code on this relation.
func (r *ToMany) Message(code, text string) *ToMany {
	r.desc.Messages[code] = text
	return r
}

// Decode implements field.Decoder.
func (r *ToMany) Decode(v any) (any, error) { return r.DecodeContext(context.Background(), v) }

// DecodeContext implements field.ContextDecoder. Each key resolves with its
// own point lookup; failures are reported per index.
func (r *ToMany) DecodeContext(ctx context.Context, v any) (any, error) {
	keys, ok := v.([]any)
	if !ok {
		return nil, r.desc.Fail("not_a_list", typeOf(v))
	}
	out := make([]any, 0, len(keys))
	var itemErrs map[int]*restflow.ValidationError
	for i, key := range keys {
		if !scalarKey(key) {
			itemErrs = addItemErr(itemErrs, i, r.desc.Fail("incorrect_type", typeOf(key)))
			continue
		}
		obj, err := r.set.Get(ctx, key)
		if err != nil {
			if restflow.IsNotFound(err) {
				itemErrs = addItemErr(itemErrs, i, r.desc.Fail("does_not_exist", key))
				continue
			}
			return nil, err
		}
		out = append(out, obj)
	}
	if len(itemErrs) > 0 {
		return nil, restflow.ItemErrorsN(len(keys), itemErrs)
	}
	return out, nil
}

func addItemErr(m map[int]*restflow.ValidationError, i int, ve *restflow.ValidationError) map[int]*restflow.ValidationError {
	if m == nil {
		m = make(map[int]*restflow.ValidationError)
	}
	m[i] = ve
	return m
}

// Encode implements field.Encoder.
func (r *ToMany) Encode(v any) (any, error) { return r.EncodeContext(context.Background(), v) }

// EncodeContext implements field.ContextEncoder.
func (r *ToMany) EncodeContext(ctx context.Context, v any) (any, error) {
	items, err := manyItems(ctx, v)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		k, err := extractKey(item, r.keyField)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func manyItems(ctx context.Context, v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case storage.Queryset:
		it, err := t.All(ctx)
		if err != nil {
			return nil, err
		}
		return storage.Materialize(ctx, it)
	case storage.Iterator:
		return storage.Materialize(ctx, t)
	}
	return nil, fmt.Errorf("restflow: cannot represent %s as a related list", typeOf(v))
}
