package serializer

import (
	"context"

	"github.com/syssam/restflow"
)

// Option configures a bound serializer.
type Option func(*binding)

type binding struct {
	instance any
	data     map[string]any
	hasData  bool
	partial  bool
}

// Instance binds the object rendered by the read path and updated by Save.
func Instance(v any) Option {
	return func(b *binding) { b.instance = v }
}

// Data binds the input payload consumed by the write path.
func Data(data map[string]any) Option {
	return func(b *binding) {
		b.data = data
		b.hasData = true
	}
}

// Partial relaxes required handling so absent keys are skipped instead of
// failing, for update requests.
func Partial() Option {
	return func(b *binding) { b.partial = true }
}

// Serializer is one schema bound to one request's instance and payload. It
// is single-use and not safe for concurrent use; the schema it was bound
// from is both.
type Serializer struct {
	schema *Schema
	binding

	ran       bool
	validated map[string]any
	errs      *restflow.ValidationError
	saved     bool
	rep       *Rep
}

// Bind returns a serializer over this schema. Binding a broken schema is an
// integrator defect and panics with the construction error.
func (s *Schema) Bind(opts ...Option) *Serializer {
	if s.err != nil {
		panic(restflow.Contractf("schema %q is broken: %v", s.name, s.err))
	}
	ser := &Serializer{schema: s}
	for _, opt := range opts {
		opt(&ser.binding)
	}
	return ser
}

// Schema returns the schema the serializer was bound from.
func (ser *Serializer) Schema() *Schema { return ser.schema }

// IsValid runs the write path once and reports whether the payload passed.
// Repeat calls return the cached outcome. Calling IsValid on a serializer
// bound without data is an integrator defect.
func (ser *Serializer) IsValid(ctx context.Context) (bool, error) {
	if !ser.hasData {
		panic(restflow.Contractf("schema %q: cannot call IsValid, no input data was bound", ser.schema.name))
	}
	if ser.ran {
		return ser.errs == nil, nil
	}
	ser.ran = true
	validated, err := ser.schema.toInternal(ctx, ser.data, ser.partial)
	if err != nil {
		ve, ok := restflow.AsValidation(err)
		if !ok {
			ser.ran = false
			return false, err
		}
		ser.errs = ve
		return false, nil
	}
	ser.validated = validated
	return true, nil
}

// Errors returns the validation failures collected by IsValid.
func (ser *Serializer) Errors() *restflow.ValidationError {
	if !ser.ran {
		panic(restflow.Contractf("schema %q: call IsValid before accessing Errors", ser.schema.name))
	}
	return ser.errs
}

// ValidatedData returns the decoded payload after a successful IsValid.
func (ser *Serializer) ValidatedData() map[string]any {
	if !ser.ran {
		panic(restflow.Contractf("schema %q: call IsValid before accessing ValidatedData", ser.schema.name))
	}
	return ser.validated
}

// Save persists the validated data: update when an instance is bound,
// create otherwise. extra maps merge into the validated data first, for
// values the view injects (the requesting user, URL captures). The returned
// object becomes the bound instance. Save preconditions are integrator
// contracts and panic when broken.
func (ser *Serializer) Save(ctx context.Context, extra ...map[string]any) (any, error) {
	if ser.hasData && !ser.ran {
		panic(restflow.Contractf("schema %q: call IsValid before calling Save", ser.schema.name))
	}
	if ser.errs != nil {
		panic(restflow.Contractf("schema %q: cannot call Save on invalid data", ser.schema.name))
	}
	if ser.rep != nil {
		panic(restflow.Contractf("schema %q: cannot call Save after accessing Data", ser.schema.name))
	}
	if len(extra) > 0 {
		merged := make(map[string]any, len(ser.validated))
		for k, v := range ser.validated {
			merged[k] = v
		}
		for _, m := range extra {
			for k, v := range m {
				merged[k] = v
			}
		}
		ser.validated = merged
	}
	var (
		obj any
		err error
	)
	if ser.instance != nil {
		if ser.schema.updateFn == nil {
			panic(restflow.Contractf("schema %q: no update function registered", ser.schema.name))
		}
		obj, err = ser.schema.updateFn(ctx, ser.instance, ser.validated)
	} else {
		if ser.schema.createFn == nil {
			panic(restflow.Contractf("schema %q: no create function registered", ser.schema.name))
		}
		obj, err = ser.schema.createFn(ctx, ser.validated)
	}
	if err != nil {
		return nil, err
	}
	if obj == nil {
		panic(restflow.Contractf("schema %q: create/update returned no object", ser.schema.name))
	}
	ser.instance = obj
	ser.saved = true
	return obj, nil
}

// Data renders the representation and caches it. The source is the bound
// instance when present, otherwise the validated data.
func (ser *Serializer) Data(ctx context.Context) (*Rep, error) {
	if ser.rep != nil {
		return ser.rep, nil
	}
	if ser.hasData && !ser.ran {
		panic(restflow.Contractf("schema %q: call IsValid before accessing Data", ser.schema.name))
	}
	source := ser.instance
	if source == nil {
		if ser.errs != nil {
			panic(restflow.Contractf("schema %q: cannot access Data on invalid input", ser.schema.name))
		}
		source = any(ser.validated)
	}
	rep, err := ser.schema.toRepresentation(ctx, source)
	if err != nil {
		return nil, err
	}
	ser.rep = rep
	return rep, nil
}
