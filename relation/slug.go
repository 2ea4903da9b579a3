package relation

import (
	"context"
	"fmt"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/schema/field"
	"github.com/syssam/restflow/storage"
)

// Slug references a single object by a unique non-key attribute.
type Slug struct {
	desc      field.Descriptor
	set       storage.Queryset
	slugField string
}

// BySlug returns a relation resolved through the slugField attribute.
func BySlug(name string, set storage.Queryset, slugField string) *Slug {
	r := &Slug{
		desc:      field.Descriptor{Name: name, Required: true, Messages: relatedMessages()},
		set:       set,
		slugField: slugField,
	}
	if name == "" {
		r.desc.Err = restflow.Configf("field name must not be empty")
	}
	if set == nil || slugField == "" {
		r.desc.Err = restflow.Configf("field %q: slug relation requires a queryset and a slug field", name)
	}
	return r
}

// Descriptor implements field.Node.
func (r *Slug) Descriptor() *field.Descriptor { return &r.desc }

// Mode implements field.Moder.
func (r *Slug) Mode() capability.Mode { return capability.ModeSuspending }

// Source sets the attribute path read from the instance.
func (r *Slug) Source(source string) *Slug { r.desc.Source = source; return r }

// Optional marks the relation as not required on input.
func (r *Slug) Optional() *Slug { r.desc.Required = false; return r }

// ReadOnly excludes the relation from the write path.
func (r *Slug) ReadOnly() *Slug { r.desc.ReadOnly = true; r.desc.Required = false; return r }

// Decode implements field.Decoder.
func (r *Slug) Decode(v any) (any, error) { return r.DecodeContext(context.Background(), v) }

// DecodeContext implements field.ContextDecoder.
func (r *Slug) DecodeContext(ctx context.Context, v any) (any, error) {
	if !scalarKey(v) {
		return nil, r.desc.Fail("incorrect_type", typeOf(v))
	}
	matches, err := r.set.Filter(r.slugField, v).Slice(ctx, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, r.desc.Fail("does_not_exist", v)
	}
	return matches[0], nil
}

// Encode implements field.Encoder.
func (r *Slug) Encode(v any) (any, error) { return r.EncodeContext(context.Background(), v) }

// EncodeContext implements field.ContextEncoder.
func (r *Slug) EncodeContext(ctx context.Context, v any) (any, error) {
	if ref, ok := v.(field.Ref); ok {
		obj, err := ref.Deref(ctx)
		if err != nil {
			return nil, err
		}
		v = obj
	}
	if s, ok := storage.Attr(v, r.slugField); ok {
		return s, nil
	}
	return nil, fmt.Errorf("restflow: related object has no attribute %q", r.slugField)
}

// StringRel is a read-only relation rendered through the object's string
// form.
type StringRel struct {
	desc field.Descriptor
}

// String returns a read-only relation rendered with fmt.Sprint.
func String(name string) *StringRel {
	r := &StringRel{desc: field.Descriptor{Name: name, ReadOnly: true}}
	if name == "" {
		r.desc.Err = restflow.Configf("field name must not be empty")
	}
	return r
}

// Descriptor implements field.Node.
func (r *StringRel) Descriptor() *field.Descriptor { return &r.desc }

// Source sets the attribute path read from the instance.
func (r *StringRel) Source(source string) *StringRel { r.desc.Source = source; return r }

// Encode implements field.Encoder.
func (r *StringRel) Encode(v any) (any, error) { return fmt.Sprint(v), nil }

// EncodeContext implements field.ContextEncoder. Lazy handles resolve first
// so the printed form reflects the object, not the handle.
func (r *StringRel) EncodeContext(ctx context.Context, v any) (any, error) {
	if ref, ok := v.(field.Ref); ok {
		obj, err := ref.Deref(ctx)
		if err != nil {
			return nil, err
		}
		v = obj
	}
	return fmt.Sprint(v), nil
}
