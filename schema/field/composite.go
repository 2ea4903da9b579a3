package field

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
)

// List is a node holding a homogeneous sequence of child values. Its mode
// follows the child: a list of suspending children is itself suspending.
type List struct {
	desc       Descriptor
	child      Node
	allowEmpty bool
	maxItems   int
	minItems   int
}

// ListOf returns a list field over child. The child node is bound to the
// list and may not be reused elsewhere.
func ListOf(name string, child Node) *List {
	l := &List{
		desc:       Descriptor{Name: name, Required: true},
		child:      child,
		allowEmpty: true,
	}
	if name == "" {
		l.desc.fail(restflow.Configf("field name must not be empty"))
	}
	if err := child.Descriptor().Bind(l); err != nil {
		l.desc.fail(err)
	}
	if child.Descriptor().Err != nil {
		l.desc.fail(child.Descriptor().Err)
	}
	return l
}

// Descriptor implements Node.
func (l *List) Descriptor() *Descriptor { return &l.desc }

// Child returns the element node.
func (l *List) Child() Node { return l.child }

// Mode implements Moder.
func (l *List) Mode() capability.Mode {
	if ModeOf(l.child) == capability.ModeSuspending {
		return capability.ModeSuspending
	}
	return l.desc.mode()
}

// Source sets the attribute path read from the instance.
func (l *List) Source(source string) *List { l.desc.Source = source; return l }

// Optional marks the field as not required on input.
func (l *List) Optional() *List { l.desc.Required = false; return l }

// AllowNull accepts an explicit null and decodes it to nil.
func (l *List) AllowNull() *List { l.desc.AllowNull = true; return l }

// ReadOnly excludes the field from the write path.
func (l *List) ReadOnly() *List { l.desc.ReadOnly = true; l.desc.Required = false; return l }

// WriteOnly excludes the field from the read path.
func (l *List) WriteOnly() *List { l.desc.WriteOnly = true; return l }

// DisallowEmpty rejects an empty input list.
func (l *List) DisallowEmpty() *List { l.allowEmpty = false; return l }

// MaxItems caps the number of input elements.
func (l *List) MaxItems(n int) *List { l.maxItems = n; return l }

// MinItems sets the minimum number of input elements.
func (l *List) MinItems(n int) *List { l.minItems = n; return l }

// Validate appends list-level validators, run after every element decoded.
func (l *List) Validate(vs ...any) *List { l.desc.setValidators(vs); return l }

// Message overrides the error message for a single code on this field.
func (l *List) Message(code, text string) *List { l.desc.setMessage(code, text); return l }

// Decode implements Decoder.
func (l *List) Decode(v any) (any, error) { return l.decodeItems(context.Background(), v) }

// DecodeContext implements ContextDecoder.
func (l *List) DecodeContext(ctx context.Context, v any) (any, error) { return l.decodeItems(ctx, v) }

func (l *List) decodeItems(ctx context.Context, v any) (any, error) {
	items, ok := toSlice(v)
	if !ok {
		return nil, l.desc.Fail("not_a_list", typeName(v))
	}
	if len(items) == 0 && !l.allowEmpty {
		return nil, l.desc.Fail("empty")
	}
	if l.maxItems > 0 && len(items) > l.maxItems {
		return nil, l.desc.Fail("max_items", l.maxItems)
	}
	if l.minItems > 0 && len(items) < l.minItems {
		return nil, l.desc.Fail("min_items", l.minItems)
	}
	out := make([]any, 0, len(items))
	var itemErrs map[int]*restflow.ValidationError
	for i, item := range items {
		decoded, err := runValidation(ctx, l.child, item, false)
		if err != nil {
			ve, ok := restflow.AsValidation(err)
			if !ok {
				return nil, err
			}
			if itemErrs == nil {
				itemErrs = make(map[int]*restflow.ValidationError)
			}
			itemErrs[i] = ve
			continue
		}
		out = append(out, decoded)
	}
	if len(itemErrs) > 0 {
		return nil, restflow.ItemErrorsN(len(items), itemErrs)
	}
	return out, nil
}

// Encode implements Encoder.
func (l *List) Encode(v any) (any, error) { return l.encodeItems(context.Background(), v) }

// EncodeContext implements ContextEncoder.
func (l *List) EncodeContext(ctx context.Context, v any) (any, error) { return l.encodeItems(ctx, v) }

func (l *List) encodeItems(ctx context.Context, v any) (any, error) {
	items, ok := toSlice(v)
	if !ok {
		return nil, fmt.Errorf("restflow: field %q: cannot represent %s as a list", l.desc.Name, typeName(v))
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		encoded, err := represent(ctx, l.child, item)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded)
	}
	return out, nil
}

// Dict is a node holding a string-keyed mapping of homogeneous child values.
type Dict struct {
	desc  Descriptor
	child Node
}

// DictOf returns a dictionary field over child.
func DictOf(name string, child Node) *Dict {
	d := &Dict{
		desc:  Descriptor{Name: name, Required: true},
		child: child,
	}
	if name == "" {
		d.desc.fail(restflow.Configf("field name must not be empty"))
	}
	if err := child.Descriptor().Bind(d); err != nil {
		d.desc.fail(err)
	}
	if child.Descriptor().Err != nil {
		d.desc.fail(child.Descriptor().Err)
	}
	return d
}

// Descriptor implements Node.
func (d *Dict) Descriptor() *Descriptor { return &d.desc }

// Child returns the value node.
func (d *Dict) Child() Node { return d.child }

// Mode implements Moder.
func (d *Dict) Mode() capability.Mode {
	if ModeOf(d.child) == capability.ModeSuspending {
		return capability.ModeSuspending
	}
	return d.desc.mode()
}

// Source sets the attribute path read from the instance.
func (d *Dict) Source(source string) *Dict { d.desc.Source = source; return d }

// Optional marks the field as not required on input.
func (d *Dict) Optional() *Dict { d.desc.Required = false; return d }

// AllowNull accepts an explicit null and decodes it to nil.
func (d *Dict) AllowNull() *Dict { d.desc.AllowNull = true; return d }

// ReadOnly excludes the field from the write path.
func (d *Dict) ReadOnly() *Dict { d.desc.ReadOnly = true; d.desc.Required = false; return d }

// WriteOnly excludes the field from the read path.
func (d *Dict) WriteOnly() *Dict { d.desc.WriteOnly = true; return d }

// Validate appends dict-level validators.
func (d *Dict) Validate(vs ...any) *Dict { d.desc.setValidators(vs); return d }

// Message overrides the error message for a single code on this field.
func (d *Dict) Message(code, text string) *Dict { d.desc.setMessage(code, text); return d }

// Decode implements Decoder.
func (d *Dict) Decode(v any) (any, error) { return d.decodeEntries(context.Background(), v) }

// DecodeContext implements ContextDecoder.
func (d *Dict) DecodeContext(ctx context.Context, v any) (any, error) { return d.decodeEntries(ctx, v) }

func (d *Dict) decodeEntries(ctx context.Context, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, d.desc.Fail("not_a_dict", typeName(v))
	}
	out := make(map[string]any, len(m))
	var fieldErrs map[string]*restflow.ValidationError
	for key, item := range m {
		decoded, err := runValidation(ctx, d.child, item, false)
		if err != nil {
			ve, ok := restflow.AsValidation(err)
			if !ok {
				return nil, err
			}
			if fieldErrs == nil {
				fieldErrs = make(map[string]*restflow.ValidationError)
			}
			fieldErrs[key] = ve
			continue
		}
		out[key] = decoded
	}
	if len(fieldErrs) > 0 {
		return nil, restflow.FieldErrors(fieldErrs)
	}
	return out, nil
}

// Encode implements Encoder.
func (d *Dict) Encode(v any) (any, error) { return d.encodeEntries(context.Background(), v) }

// EncodeContext implements ContextEncoder.
func (d *Dict) EncodeContext(ctx context.Context, v any) (any, error) { return d.encodeEntries(ctx, v) }

func (d *Dict) encodeEntries(ctx context.Context, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("restflow: field %q: cannot represent %s as a dictionary", d.desc.Name, typeName(v))
	}
	out := make(map[string]any, len(m))
	for key, item := range m {
		encoded, err := represent(ctx, d.child, item)
		if err != nil {
			return nil, err
		}
		out[key] = encoded
	}
	return out, nil
}

// MethodField is a read-only node whose value is computed from the whole
// instance by a caller-supplied function.
type MethodField struct {
	desc  Descriptor
	fn    func(instance any) (any, error)
	ctxFn func(ctx context.Context, instance any) (any, error)
}

// Method returns a computed read-only field.
func Method(name string, fn func(instance any) (any, error)) *MethodField {
	m := &MethodField{desc: methodDescriptor(name), fn: fn}
	if fn == nil {
		m.desc.fail(restflow.Configf("field %q: method function must not be nil", name))
	}
	return m
}

// MethodContext returns a computed read-only field whose function may
// suspend. The field classifies as suspending.
func MethodContext(name string, fn func(ctx context.Context, instance any) (any, error)) *MethodField {
	m := &MethodField{desc: methodDescriptor(name), ctxFn: fn}
	if fn == nil {
		m.desc.fail(restflow.Configf("field %q: method function must not be nil", name))
	}
	return m
}

func methodDescriptor(name string) Descriptor {
	d := Descriptor{Name: name, Source: "*", ReadOnly: true}
	if name == "" {
		d.fail(restflow.Configf("field name must not be empty"))
	}
	return d
}

// Descriptor implements Node.
func (m *MethodField) Descriptor() *Descriptor { return &m.desc }

// Mode implements Moder.
func (m *MethodField) Mode() capability.Mode {
	if m.ctxFn != nil {
		return capability.ModeSuspending
	}
	return capability.ModeSync
}

// Encode implements Encoder.
func (m *MethodField) Encode(v any) (any, error) {
	if m.fn == nil {
		return m.ctxFn(context.Background(), v)
	}
	return m.fn(v)
}

// EncodeContext implements ContextEncoder.
func (m *MethodField) EncodeContext(ctx context.Context, v any) (any, error) {
	if m.ctxFn != nil {
		return m.ctxFn(ctx, v)
	}
	return m.fn(v)
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := v.(string); ok {
		return "string"
	}
	return reflect.TypeOf(v).String()
}
