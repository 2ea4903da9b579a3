package serializer

import (
	"context"
	"fmt"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/storage"
)

// List is the many-mode serializer: it applies one schema to every element
// of a sequence. Read sources may be eager slices, querysets or iterators;
// iterators stream one element at a time.
type List struct {
	schema *Schema
	binding
	listData any

	allowEmpty bool
	maxItems   int
	minItems   int

	ran       bool
	validated []map[string]any
	errs      *restflow.ValidationError
	rep       []*Rep
}

// BindMany returns a many-mode serializer over schema. The data option is
// ignored here; use ListData for the payload sequence.
func (s *Schema) BindMany(opts ...Option) *List {
	if s.err != nil {
		panic(restflow.Contractf("schema %q is broken: %v", s.name, s.err))
	}
	l := &List{schema: s, allowEmpty: true}
	for _, opt := range opts {
		opt(&l.binding)
	}
	return l
}

// ListData binds the input payload sequence consumed by the write path.
func (l *List) ListData(data any) *List {
	l.listData = data
	l.hasData = true
	return l
}

// DisallowEmpty rejects an empty input sequence.
func (l *List) DisallowEmpty() *List { l.allowEmpty = false; return l }

// MaxItems caps the number of input elements.
func (l *List) MaxItems(n int) *List { l.maxItems = n; return l }

// MinItems sets the minimum number of input elements.
func (l *List) MinItems(n int) *List { l.minItems = n; return l }

// Mode returns the aggregate mode of the element schema.
func (l *List) Mode() capability.Mode { return l.schema.Mode() }

// IsValid runs the write path across every element, collecting per-index
// failures so one round trip reports them all.
func (l *List) IsValid(ctx context.Context) (bool, error) {
	if !l.hasData {
		panic(restflow.Contractf("schema %q: cannot call IsValid, no input data was bound", l.schema.name))
	}
	if l.ran {
		return l.errs == nil, nil
	}
	l.ran = true

	items, ok := l.listData.([]any)
	if !ok {
		l.errs = restflow.FieldErrors(map[string]*restflow.ValidationError{
			restflow.NonFieldErrors: restflow.NewValidationError(
				fmt.Sprintf("Expected a list of items but got type %q.", typeLabel(l.listData)),
			),
		})
		return false, nil
	}
	if msg, ok := l.sizeError(len(items)); ok {
		l.errs = restflow.FieldErrors(map[string]*restflow.ValidationError{
			restflow.NonFieldErrors: restflow.NewValidationError(msg),
		})
		return false, nil
	}

	validated := make([]map[string]any, 0, len(items))
	var itemErrs map[int]*restflow.ValidationError
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			itemErrs = addErr(itemErrs, i, restflow.NewValidationError(
				fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", typeLabel(item)),
			))
			continue
		}
		v, err := l.schema.toInternal(ctx, m, l.partial)
		if err != nil {
			ve, isVE := restflow.AsValidation(err)
			if !isVE {
				l.ran = false
				return false, err
			}
			itemErrs = addErr(itemErrs, i, ve)
			continue
		}
		validated = append(validated, v)
	}
	if len(itemErrs) > 0 {
		l.errs = restflow.ItemErrorsN(len(items), itemErrs)
		return false, nil
	}
	l.validated = validated
	return true, nil
}

func (l *List) sizeError(n int) (string, bool) {
	switch {
	case n == 0 && !l.allowEmpty:
		return "This list may not be empty.", true
	case l.maxItems > 0 && n > l.maxItems:
		return fmt.Sprintf("Ensure this field has no more than %d elements.", l.maxItems), true
	case l.minItems > 0 && n < l.minItems:
		return fmt.Sprintf("Ensure this field has at least %d elements.", l.minItems), true
	}
	return "", false
}

func addErr(m map[int]*restflow.ValidationError, i int, ve *restflow.ValidationError) map[int]*restflow.ValidationError {
	if m == nil {
		m = make(map[int]*restflow.ValidationError)
	}
	m[i] = ve
	return m
}

// Errors returns the validation failures collected by IsValid.
func (l *List) Errors() *restflow.ValidationError {
	if !l.ran {
		panic(restflow.Contractf("schema %q: call IsValid before accessing Errors", l.schema.name))
	}
	return l.errs
}

// ValidatedData returns the decoded elements after a successful IsValid.
func (l *List) ValidatedData() []map[string]any {
	if !l.ran {
		panic(restflow.Contractf("schema %q: call IsValid before accessing ValidatedData", l.schema.name))
	}
	return l.validated
}

// Save creates one object per validated element. Bulk update is not
// supported: sequence updates need an explicit matching strategy between
// incoming elements and stored objects, so schemas must provide their own.
func (l *List) Save(ctx context.Context) ([]any, error) {
	if l.hasData && !l.ran {
		panic(restflow.Contractf("schema %q: call IsValid before calling Save", l.schema.name))
	}
	if l.errs != nil {
		panic(restflow.Contractf("schema %q: cannot call Save on invalid data", l.schema.name))
	}
	if l.instance != nil {
		return nil, restflow.Configf("schema %q: bulk update is not supported", l.schema.name)
	}
	if l.schema.createFn == nil {
		panic(restflow.Contractf("schema %q: no create function registered", l.schema.name))
	}
	out := make([]any, 0, len(l.validated))
	for _, v := range l.validated {
		obj, err := l.schema.createFn(ctx, v)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			panic(restflow.Contractf("schema %q: create/update returned no object", l.schema.name))
		}
		out = append(out, obj)
	}
	l.instance = out
	return out, nil
}

// Data renders every element of the bound source. Eager sources fan out
// concurrently when the schema suspends; iterators render in stream order.
func (l *List) Data(ctx context.Context) ([]*Rep, error) {
	if l.rep != nil {
		return l.rep, nil
	}
	if l.hasData && !l.ran {
		panic(restflow.Contractf("schema %q: call IsValid before accessing Data", l.schema.name))
	}
	source := l.instance
	if source == nil {
		src := make([]any, len(l.validated))
		for i, v := range l.validated {
			src[i] = v
		}
		source = src
	}
	reps, err := RepresentMany(ctx, l.schema, source)
	if err != nil {
		return nil, err
	}
	l.rep = reps
	return reps, nil
}

// RepresentMany renders a sequence through schema. Slices of suspending
// schemas render concurrently with slot-stable ordering; querysets and
// iterators stream sequentially.
func RepresentMany(ctx context.Context, schema *Schema, source any) ([]*Rep, error) {
	switch src := source.(type) {
	case []*Rep:
		return src, nil
	case storage.Queryset:
		it, err := src.All(ctx)
		if err != nil {
			return nil, err
		}
		return representStream(ctx, schema, it)
	case storage.Iterator:
		return representStream(ctx, schema, src)
	}
	items, ok := toAnySlice(source)
	if !ok {
		return nil, fmt.Errorf("restflow: schema %q: cannot represent %s as a list", schema.name, typeLabel(source))
	}
	if schema.Mode() != capability.ModeSuspending || len(items) < 2 {
		out := make([]*Rep, 0, len(items))
		for _, item := range items {
			rep, err := schema.toRepresentation(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, rep)
		}
		return out, nil
	}
	out := make([]*Rep, len(items))
	fns := make([]func(context.Context) error, len(items))
	for i, item := range items {
		i, item := i, item
		fns[i] = func(ctx context.Context) error {
			rep, err := schema.toRepresentation(ctx, item)
			if err != nil {
				return err
			}
			out[i] = rep
			return nil
		}
	}
	for _, err := range capability.Gather(ctx, fns...) {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func representStream(ctx context.Context, schema *Schema, it storage.Iterator) ([]*Rep, error) {
	items, err := storage.Materialize(ctx, it)
	if err != nil {
		return nil, err
	}
	out := make([]*Rep, 0, len(items))
	for _, item := range items {
		rep, err := schema.toRepresentation(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}

func toAnySlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

func typeLabel(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := v.(string); ok {
		return "string"
	}
	return fmt.Sprintf("%T", v)
}
