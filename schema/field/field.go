package field

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
)

type emptyType struct{}

func (emptyType) String() string { return "<empty>" }

// Empty marks a key that was absent from the input payload, as opposed to a
// key that was present with a null value. The validation engine treats the
// two differently: Empty triggers required/default handling, nil triggers
// allow-null handling.
var Empty any = emptyType{}

// Node is the common surface of every schema node. Concrete nodes also
// implement Decoder and/or Encoder (or their context-taking variants).
type Node interface {
	Descriptor() *Descriptor
}

// Decoder converts wire input into an internal value on the write path.
type Decoder interface {
	Decode(v any) (any, error)
}

// ContextDecoder is the suspend-capable variant of Decoder.
type ContextDecoder interface {
	DecodeContext(ctx context.Context, v any) (any, error)
}

// Encoder converts an internal value into its wire shape on the read path.
type Encoder interface {
	Encode(v any) (any, error)
}

// ContextEncoder is the suspend-capable variant of Encoder.
type ContextEncoder interface {
	EncodeContext(ctx context.Context, v any) (any, error)
}

// Validator checks a decoded value. Returned validation errors are collected
// by the engine; any other error aborts the run.
type Validator interface {
	Validate(v any) error
}

// ContextValidator is the suspend-capable variant of Validator.
type ContextValidator interface {
	ValidateContext(ctx context.Context, v any) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(v any) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(v any) error { return f(v) }

// ContextValidatorFunc adapts a function to the ContextValidator interface.
type ContextValidatorFunc func(ctx context.Context, v any) error

// ValidateContext implements ContextValidator.
func (f ContextValidatorFunc) ValidateContext(ctx context.Context, v any) error { return f(ctx, v) }

// FieldValidator is a validator that also receives the node descriptor, for
// checks that depend on field configuration.
type FieldValidator interface {
	ValidateField(v any, d *Descriptor) error
}

// ContextFieldValidator is the suspend-capable variant of FieldValidator.
type ContextFieldValidator interface {
	ValidateFieldContext(ctx context.Context, v any, d *Descriptor) error
}

// Moder lets composite nodes report a mode derived from their children
// instead of the default interface-based classification.
type Moder interface {
	Mode() capability.Mode
}

// ModeOf classifies a node. Nodes implementing Moder decide for themselves;
// otherwise a node is suspending when it exposes a context-taking decode or
// encode, carries a context-taking default, or holds a suspending validator.
func ModeOf(n Node) capability.Mode {
	if m, ok := n.(Moder); ok {
		return m.Mode()
	}
	if _, ok := n.(ContextDecoder); ok {
		return capability.ModeSuspending
	}
	if _, ok := n.(ContextEncoder); ok {
		return capability.ModeSuspending
	}
	return n.Descriptor().mode()
}

// Descriptor holds the declarative state shared by all node kinds. Builders
// populate it; the engine and parent schemas read it.
type Descriptor struct {
	// Name is the wire key of the field.
	Name string

	// Source is the attribute path read from the instance, defaulting to
	// Name. Dotted paths traverse nested objects; "*" passes the whole
	// instance to the node.
	Source string

	Required   bool
	AllowNull  bool
	AllowBlank bool
	ReadOnly   bool
	WriteOnly  bool

	HasDefault         bool
	Default            any
	DefaultFunc        func() (any, error)
	DefaultContextFunc func(ctx context.Context) (any, error)

	Validators []any
	Messages   map[string]string

	// Err records a builder misuse; parent schemas surface it as a
	// ConfigError at build time.
	Err error

	bound  bool
	parent any
}

// SourceName returns the effective source, falling back to the field name.
func (d *Descriptor) SourceName() string {
	if d.Source != "" {
		return d.Source
	}
	return d.Name
}

// WholeObject reports whether the node consumes the entire instance rather
// than a single attribute.
func (d *Descriptor) WholeObject() bool { return d.SourceName() == "*" }

// SourcePath returns the dotted source split into traversal steps, or nil
// for whole-object nodes.
func (d *Descriptor) SourcePath() []string {
	s := d.SourceName()
	if s == "*" {
		return nil
	}
	return strings.Split(s, ".")
}

// Bind attaches the node to its parent schema. A node may be bound exactly
// once; schemas reject reuse of the same node instance.
func (d *Descriptor) Bind(parent any) error {
	if d.bound {
		return restflow.Configf("field %q is already bound to a parent", d.Name)
	}
	d.bound = true
	d.parent = parent
	return nil
}

// Parent returns the schema the node is bound to, or nil.
func (d *Descriptor) Parent() any { return d.parent }

// Fail builds the validation error registered for code, preferring a
// per-field message override. Unknown codes are an integrator defect.
func (d *Descriptor) Fail(code string, args ...any) *restflow.ValidationError {
	if msg, ok := d.Messages[code]; ok {
		return failMessage(msg, args...)
	}
	msg, ok := defaultMessages[code]
	if !ok {
		panic(restflow.Contractf("field %q: no error message registered for code %q", d.Name, code))
	}
	return failMessage(msg, args...)
}

func failMessage(msg string, args ...any) *restflow.ValidationError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return restflow.NewValidationError(msg)
}

func (d *Descriptor) mode() capability.Mode {
	if d.DefaultContextFunc != nil {
		return capability.ModeSuspending
	}
	for _, v := range d.Validators {
		switch v.(type) {
		case ContextValidator, ContextFieldValidator, func(context.Context, any) error:
			return capability.ModeSuspending
		}
	}
	return capability.ModeSync
}

func (d *Descriptor) setValidators(vs []any) {
	for _, v := range vs {
		switch v.(type) {
		case Validator, ContextValidator, FieldValidator, ContextFieldValidator,
			func(any) error, func(context.Context, any) error:
		default:
			d.fail(restflow.Configf("field %q: unsupported validator type %T", d.Name, v))
			return
		}
	}
	d.Validators = append(d.Validators, vs...)
}

func (d *Descriptor) setMessage(code, text string) {
	if d.Messages == nil {
		d.Messages = make(map[string]string)
	}
	d.Messages[code] = text
}

func (d *Descriptor) fail(err error) {
	if d.Err == nil {
		d.Err = err
	}
}

// defaultMessages is the error catalog shared by all node kinds. Builders
// override individual codes with Message.
var defaultMessages = map[string]string{
	"required":         "This field is required.",
	"null":             "This field may not be null.",
	"blank":            "This field may not be blank.",
	"invalid":          "Invalid value.",
	"invalid_bool":     "Must be a valid boolean.",
	"invalid_integer":  "A valid integer is required.",
	"invalid_number":   "A valid number is required.",
	"invalid_string":   "Not a valid string.",
	"invalid_datetime": "Datetime has wrong format. Use one of these formats instead: %s.",
	"invalid_duration": "Must be a valid duration.",
	"invalid_uuid":     "Must be a valid UUID.",
	"invalid_choice":   "%q is not a valid choice.",
	"not_a_list":       "Expected a list of items but got type %q.",
	"not_a_dict":       "Expected a dictionary of items but got type %q.",
	"empty":            "This list may not be empty.",
	"max_length":       "Ensure this field has no more than %d characters.",
	"min_length":       "Ensure this field has at least %d characters.",
	"max_value":        "Ensure this value is less than or equal to %v.",
	"min_value":        "Ensure this value is greater than or equal to %v.",
	"max_items":        "Ensure this field has no more than %d elements.",
	"min_items":        "Ensure this field has at least %d elements.",
}
