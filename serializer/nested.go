package serializer

import (
	"context"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/schema/field"
)

// NestedField embeds one schema as a field of another. Its mode follows the
// embedded schema.
type NestedField struct {
	desc   field.Descriptor
	schema *Schema
	many   bool
}

// Nested returns a field rendering and validating child objects through
// schema.
func Nested(name string, schema *Schema) *NestedField {
	n := &NestedField{
		desc:   field.Descriptor{Name: name, Required: true},
		schema: schema,
	}
	if name == "" {
		n.desc.Err = restflow.Configf("field name must not be empty")
	}
	if schema == nil {
		n.desc.Err = restflow.Configf("field %q: nested field requires a schema", name)
	} else if schema.err != nil {
		n.desc.Err = schema.err
	}
	return n
}

// Descriptor implements field.Node.
func (n *NestedField) Descriptor() *field.Descriptor { return &n.desc }

// Mode implements field.Moder.
func (n *NestedField) Mode() capability.Mode {
	if n.desc.DefaultContextFunc != nil {
		return capability.ModeSuspending
	}
	return n.schema.Mode()
}

// Many treats the attribute as a sequence of child objects.
func (n *NestedField) Many() *NestedField { n.many = true; return n }

// Source sets the attribute path read from the instance.
func (n *NestedField) Source(source string) *NestedField { n.desc.Source = source; return n }

// Optional marks the field as not required on input.
func (n *NestedField) Optional() *NestedField { n.desc.Required = false; return n }

// AllowNull accepts an explicit null and decodes it to nil.
func (n *NestedField) AllowNull() *NestedField { n.desc.AllowNull = true; return n }

// ReadOnly excludes the field from the write path.
func (n *NestedField) ReadOnly() *NestedField {
	n.desc.ReadOnly = true
	n.desc.Required = false
	return n
}

// Decode implements field.Decoder.
func (n *NestedField) Decode(v any) (any, error) { return n.DecodeContext(context.Background(), v) }

// DecodeContext implements field.ContextDecoder.
func (n *NestedField) DecodeContext(ctx context.Context, v any) (any, error) {
	if n.many {
		items, ok := v.([]any)
		if !ok {
			return nil, n.desc.Fail("not_a_list", typeLabel(v))
		}
		out := make([]any, 0, len(items))
		var itemErrs map[int]*restflow.ValidationError
		for i, item := range items {
			decoded, err := n.decodeOne(ctx, item)
			if err != nil {
				ve, isVE := restflow.AsValidation(err)
				if !isVE {
					return nil, err
				}
				itemErrs = addErr(itemErrs, i, ve)
				continue
			}
			out = append(out, decoded)
		}
		if len(itemErrs) > 0 {
			return nil, restflow.ItemErrorsN(len(items), itemErrs)
		}
		return out, nil
	}
	return n.decodeOne(ctx, v)
}

func (n *NestedField) decodeOne(ctx context.Context, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, n.desc.Fail("not_a_dict", typeLabel(v))
	}
	return n.schema.toInternal(ctx, m, false)
}

// Encode implements field.Encoder.
func (n *NestedField) Encode(v any) (any, error) { return n.EncodeContext(context.Background(), v) }

// EncodeContext implements field.ContextEncoder.
func (n *NestedField) EncodeContext(ctx context.Context, v any) (any, error) {
	if n.many {
		reps, err := RepresentMany(ctx, n.schema, v)
		if err != nil {
			return nil, err
		}
		return reps, nil
	}
	return n.schema.toRepresentation(ctx, v)
}
