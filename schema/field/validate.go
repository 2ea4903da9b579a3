package field

import (
	"context"

	"github.com/syssam/restflow"
)

// RunValidation drives a node's full write-path pipeline inline: empty-value
// handling, decode, then validators. A restflow.ErrSkipField return means
// the field contributes nothing to the validated data. partial relaxes
// required handling for update requests.
func RunValidation(n Node, data any, partial bool) (any, error) {
	return runValidation(context.Background(), n, data, partial)
}

// RunValidationContext is the suspend-capable variant of RunValidation. The
// two run the identical pipeline; this one passes ctx through to any
// context-taking decoder, default, or validator the node carries.
func RunValidationContext(ctx context.Context, n Node, data any, partial bool) (any, error) {
	return runValidation(ctx, n, data, partial)
}

func runValidation(ctx context.Context, n Node, data any, partial bool) (any, error) {
	handled, v, err := resolveEmpty(ctx, n, data, partial)
	if err != nil {
		return nil, err
	}
	if handled {
		return v, nil
	}
	out, err := decode(ctx, n, v)
	if err != nil {
		return nil, err
	}
	if err := runValidators(ctx, n.Descriptor(), out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveEmpty applies the empty-value state machine. handled means the
// pipeline is finished for this field: the returned value (or error) is
// final and decode never runs.
func resolveEmpty(ctx context.Context, n Node, data any, partial bool) (handled bool, v any, err error) {
	d := n.Descriptor()
	if d.ReadOnly {
		v, err = defaultValue(ctx, d, partial)
		return true, v, err
	}
	if data == Empty {
		if partial {
			return true, nil, restflow.ErrSkipField
		}
		if d.Required {
			return true, nil, d.Fail("required")
		}
		v, err = defaultValue(ctx, d, partial)
		return true, v, err
	}
	if data == nil {
		if !d.AllowNull {
			return true, nil, d.Fail("null")
		}
		if d.WholeObject() {
			// Whole-object nodes see the null and decide for themselves.
			return false, nil, nil
		}
		return true, nil, nil
	}
	return false, data, nil
}

func defaultValue(ctx context.Context, d *Descriptor, partial bool) (any, error) {
	if partial {
		return nil, restflow.ErrSkipField
	}
	switch {
	case d.DefaultContextFunc != nil:
		return d.DefaultContextFunc(ctx)
	case d.DefaultFunc != nil:
		return d.DefaultFunc()
	case d.HasDefault:
		return d.Default, nil
	}
	return nil, restflow.ErrSkipField
}

func decode(ctx context.Context, n Node, v any) (any, error) {
	switch dec := n.(type) {
	case ContextDecoder:
		return dec.DecodeContext(ctx, v)
	case Decoder:
		return dec.Decode(v)
	}
	panic(restflow.Contractf("field %q is not writable", n.Descriptor().Name))
}

// runValidators runs every validator and collects their flat messages so a
// single pass reports all failures. A structured (per-field or per-item)
// error propagates unchanged immediately; a non-validation error aborts the
// run as an internal failure.
func runValidators(ctx context.Context, d *Descriptor, v any) error {
	var messages []string
	for _, vld := range d.Validators {
		var err error
		switch t := vld.(type) {
		case ContextValidator:
			err = t.ValidateContext(ctx, v)
		case ContextFieldValidator:
			err = t.ValidateFieldContext(ctx, v, d)
		case Validator:
			err = t.Validate(v)
		case FieldValidator:
			err = t.ValidateField(v, d)
		case func(any) error:
			err = t(v)
		case func(context.Context, any) error:
			err = t(ctx, v)
		default:
			panic(restflow.Contractf("field %q: unsupported validator type %T", d.Name, vld))
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
		return restflow.NewValidationError(messages...)
	}
	return nil
}

// Represent drives a node's read path inline.
func Represent(n Node, v any) (any, error) {
	return represent(context.Background(), n, v)
}

// RepresentContext is the suspend-capable variant of Represent.
func RepresentContext(ctx context.Context, n Node, v any) (any, error) {
	return represent(ctx, n, v)
}

func represent(ctx context.Context, n Node, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch enc := n.(type) {
	case ContextEncoder:
		return enc.EncodeContext(ctx, v)
	case Encoder:
		return enc.Encode(v)
	}
	panic(restflow.Contractf("field %q is not readable", n.Descriptor().Name))
}
