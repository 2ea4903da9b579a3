// Package serializer composes schema nodes into object serializers: the
// write path decodes and validates payloads into validated data, the read
// path renders instances into ordered wire representations. A serializer's
// capability mode is the aggregate of its fields, so schemas made only of
// sync fields run inline while any suspending field (relations, context
// validators, nested suspending schemas) lifts the whole schema onto the
// suspending path.
package serializer

import (
	"context"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/schema/field"
)

// CreateFunc persists validated data as a new object.
type CreateFunc func(ctx context.Context, validated map[string]any) (any, error)

// UpdateFunc applies validated data to an existing object.
type UpdateFunc func(ctx context.Context, instance any, validated map[string]any) (any, error)

// Schema is an immutable, reusable description of one object shape. Build
// it once at startup and bind per-request serializers from it.
type Schema struct {
	name     string
	fields   []field.Node
	byName   map[string]field.Node
	createFn CreateFunc
	updateFn UpdateFunc

	// Object-level validators run against the whole validated map after
	// every field passed.
	validators []any

	err  error
	mode capability.Mode
}

// New builds a schema from fields in declaration order. Field builder
// errors, duplicate names and node reuse all surface through Err.
func New(name string, fields ...field.Node) *Schema {
	s := &Schema{
		name:   name,
		fields: fields,
		byName: make(map[string]field.Node, len(fields)),
	}
	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			s.fail(d.Err)
			continue
		}
		if _, dup := s.byName[d.Name]; dup {
			s.fail(restflow.Configf("schema %q: duplicate field %q", name, d.Name))
			continue
		}
		if err := d.Bind(s); err != nil {
			s.fail(err)
			continue
		}
		s.byName[d.Name] = f
		if field.ModeOf(f) == capability.ModeSuspending {
			s.mode = capability.ModeSuspending
		}
	}
	return s
}

// OnCreate sets the create function used by Save when no instance is bound.
func (s *Schema) OnCreate(fn CreateFunc) *Schema { s.createFn = fn; return s }

// OnUpdate sets the update function used by Save when an instance is bound.
func (s *Schema) OnUpdate(fn UpdateFunc) *Schema { s.updateFn = fn; return s }

// Validate appends object-level validators. Accepted forms:
// func(map[string]any) error and func(context.Context, map[string]any) error.
func (s *Schema) Validate(vs ...any) *Schema {
	for _, v := range vs {
		switch v.(type) {
		case func(map[string]any) error:
		case func(context.Context, map[string]any) error:
			s.mode = capability.ModeSuspending
		default:
			s.fail(restflow.Configf("schema %q: unsupported object validator type %T", s.name, v))
			continue
		}
		s.validators = append(s.validators, v)
	}
	return s
}

// Name returns the schema name used in errors and logs.
func (s *Schema) Name() string { return s.name }

// Fields returns the nodes in declaration order.
func (s *Schema) Fields() []field.Node { return s.fields }

// Field returns the node declared under name.
func (s *Schema) Field(name string) (field.Node, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Err reports any construction defect. Callers must check it before serving
// the schema; a broken schema fails fast at startup, not per request.
func (s *Schema) Err() error { return s.err }

// Mode returns the aggregate capability mode of the schema.
func (s *Schema) Mode() capability.Mode { return s.mode }

func (s *Schema) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// toInternal runs the full write path: per-field validation in declaration
// order, then object-level validators. All field failures are collected
// into one structured error so a single round trip reports everything.
func (s *Schema) toInternal(ctx context.Context, data map[string]any, partial bool) (map[string]any, error) {
	ret := make(map[string]any)
	var fieldErrs map[string]*restflow.ValidationError
	for _, f := range s.fields {
		d := f.Descriptor()
		if d.ReadOnly {
			continue
		}
		raw, ok := data[d.Name]
		var in any = field.Empty
		if ok {
			in = raw
		}
		v, err := field.RunValidationContext(ctx, f, in, partial)
		if err == restflow.ErrSkipField {
			continue
		}
		if err != nil {
			ve, ok := restflow.AsValidation(err)
			if !ok {
				return nil, err
			}
			if fieldErrs == nil {
				fieldErrs = make(map[string]*restflow.ValidationError)
			}
			fieldErrs[d.Name] = ve
			continue
		}
		setValue(ret, d.SourcePath(), v)
	}
	if len(fieldErrs) > 0 {
		return nil, restflow.FieldErrors(fieldErrs)
	}
	if err := s.runObjectValidators(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// runObjectValidators collects flat failures under the non-field key; a
// structured failure propagates unchanged.
func (s *Schema) runObjectValidators(ctx context.Context, data map[string]any) error {
	var messages []string
	for _, v := range s.validators {
		var err error
		switch fn := v.(type) {
		case func(map[string]any) error:
			err = fn(data)
		case func(context.Context, map[string]any) error:
			err = fn(ctx, data)
		}
		if err == nil {
			continue
		}
		ve, ok := restflow.AsValidation(err)
		if !ok {
			return err
		}
		if ve.Structured() {
			return ve
		}
		messages = append(messages, ve.Messages...)
	}
	if len(messages) > 0 {
		return restflow.FieldErrors(map[string]*restflow.ValidationError{
			restflow.NonFieldErrors: restflow.NewValidationError(messages...),
		})
	}
	return nil
}

// toRepresentation renders an instance through the readable fields in
// declaration order.
func (s *Schema) toRepresentation(ctx context.Context, instance any) (*Rep, error) {
	rep := newRep(len(s.fields))
	for _, f := range s.fields {
		d := f.Descriptor()
		if d.WriteOnly {
			continue
		}
		attr, err := field.Attribute(ctx, f, instance)
		if err == restflow.ErrSkipField {
			continue
		}
		if err != nil {
			return nil, err
		}
		if attr == nil {
			rep.set(d.Name, nil)
			continue
		}
		v, err := field.RepresentContext(ctx, f, attr)
		if err != nil {
			return nil, err
		}
		rep.set(d.Name, v)
	}
	return rep, nil
}

// setValue writes v into out at the dotted source path, creating
// intermediate maps. A nil path (whole-object sources) merges a map result
// into the root.
func setValue(out map[string]any, path []string, v any) {
	if path == nil {
		if m, ok := v.(map[string]any); ok {
			for k, mv := range m {
				out[k] = mv
			}
		}
		return
	}
	for _, part := range path[:len(path)-1] {
		next, ok := out[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			out[part] = next
		}
		out = next
	}
	out[path[len(path)-1]] = v
}
