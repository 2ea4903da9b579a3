package field

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
)

// Scalar is the builder and node for all primitive field kinds. The kind
// constructors (Bool, String, Int, ...) differ only in their coercion
// functions; every chainable option is shared.
type Scalar struct {
	desc   Descriptor
	decode func(d *Descriptor, v any) (any, error)
	encode func(v any) (any, error)
}

func newScalar(name string, decode func(*Descriptor, any) (any, error), encode func(any) (any, error)) *Scalar {
	s := &Scalar{
		desc:   Descriptor{Name: name, Required: true},
		decode: decode,
		encode: encode,
	}
	if name == "" {
		s.desc.fail(restflow.Configf("field name must not be empty"))
	}
	return s
}

// Bool returns a boolean field. It accepts native booleans, the strings
// "true"/"false"/"1"/"0", and the numbers 0 and 1.
func Bool(name string) *Scalar { return newScalar(name, decodeBool, encodeIdentity) }

// String returns a string field. Numbers coerce to their decimal form;
// booleans are rejected.
func String(name string) *Scalar { return newScalar(name, decodeString, encodeIdentity) }

// Int returns an integer field decoding to int64. Floats must be integral.
func Int(name string) *Scalar { return newScalar(name, decodeInt, encodeIdentity) }

// Float returns a floating-point field decoding to float64.
func Float(name string) *Scalar { return newScalar(name, decodeFloat, encodeIdentity) }

// Time returns a timestamp field decoding to time.Time and encoding to
// RFC 3339.
func Time(name string) *Scalar { return newScalar(name, decodeTime, encodeTime) }

// Duration returns a duration field decoding to time.Duration. It accepts
// Go duration strings ("1h30m") and numbers of seconds.
func Duration(name string) *Scalar { return newScalar(name, decodeDuration, encodeDuration) }

// UUID returns a UUID field decoding to uuid.UUID and encoding to its
// canonical string form.
func UUID(name string) *Scalar { return newScalar(name, decodeUUID, encodeUUID) }

// JSON returns a field that passes arbitrary decoded payload values through
// unchanged.
func JSON(name string) *Scalar {
	return newScalar(name, func(_ *Descriptor, v any) (any, error) { return v, nil }, encodeIdentity)
}

// Enum returns a string field restricted to the given choices.
func Enum(name string, choices ...string) *Scalar {
	allowed := make(map[string]bool, len(choices))
	for _, c := range choices {
		allowed[c] = true
	}
	s := newScalar(name, func(d *Descriptor, v any) (any, error) {
		str, ok := v.(string)
		if !ok {
			return nil, d.Fail("invalid_choice", fmt.Sprint(v))
		}
		if !allowed[str] {
			return nil, d.Fail("invalid_choice", str)
		}
		return str, nil
	}, encodeIdentity)
	if len(choices) == 0 {
		s.desc.fail(restflow.Configf("field %q: enum requires at least one choice", name))
	}
	return s
}

// Descriptor implements Node.
func (s *Scalar) Descriptor() *Descriptor { return &s.desc }

// Decode implements Decoder.
func (s *Scalar) Decode(v any) (any, error) { return s.decode(&s.desc, v) }

// Encode implements Encoder.
func (s *Scalar) Encode(v any) (any, error) { return s.encode(v) }

// Mode implements Moder. Scalars are sync unless they carry a suspending
// default or validator.
func (s *Scalar) Mode() capability.Mode { return s.desc.mode() }

// Source sets the attribute path read from the instance.
func (s *Scalar) Source(source string) *Scalar {
	s.desc.Source = source
	return s
}

// Optional marks the field as not required on input.
func (s *Scalar) Optional() *Scalar {
	s.desc.Required = false
	return s
}

// AllowNull accepts an explicit null and decodes it to nil.
func (s *Scalar) AllowNull() *Scalar {
	s.desc.AllowNull = true
	return s
}

// AllowBlank accepts the empty string on string-kind fields.
func (s *Scalar) AllowBlank() *Scalar {
	s.desc.AllowBlank = true
	return s
}

// ReadOnly excludes the field from the write path. Implies not required.
func (s *Scalar) ReadOnly() *Scalar {
	s.desc.ReadOnly = true
	s.desc.Required = false
	return s
}

// WriteOnly excludes the field from the read path.
func (s *Scalar) WriteOnly() *Scalar {
	s.desc.WriteOnly = true
	return s
}

// Default supplies the value used when the key is absent. Implies not
// required.
func (s *Scalar) Default(v any) *Scalar {
	s.desc.HasDefault = true
	s.desc.Default = v
	s.desc.Required = false
	return s
}

// DefaultFunc supplies a computed default. Implies not required.
func (s *Scalar) DefaultFunc(f func() (any, error)) *Scalar {
	s.desc.DefaultFunc = f
	s.desc.Required = false
	return s
}

// DefaultContext supplies a suspend-capable computed default. Implies not
// required and marks the field suspending.
func (s *Scalar) DefaultContext(f func(ctx context.Context) (any, error)) *Scalar {
	s.desc.DefaultContextFunc = f
	s.desc.Required = false
	return s
}

// Validate appends validators. Accepted forms: Validator, ContextValidator,
// func(any) error, func(context.Context, any) error.
func (s *Scalar) Validate(vs ...any) *Scalar {
	s.desc.setValidators(vs)
	return s
}

// Message overrides the error message for a single code on this field.
func (s *Scalar) Message(code, text string) *Scalar {
	s.desc.setMessage(code, text)
	return s
}

func decodeBool(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch t {
		case "true", "True", "1":
			return true, nil
		case "false", "False", "0":
			return false, nil
		}
	case float64:
		if t == 0 {
			return false, nil
		}
		if t == 1 {
			return true, nil
		}
	case int:
		if t == 0 {
			return false, nil
		}
		if t == 1 {
			return true, nil
		}
	}
	return nil, d.Fail("invalid_bool")
}

func decodeString(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case string:
		if t == "" && !d.AllowBlank {
			return nil, d.Fail("blank")
		}
		return t, nil
	case json.Number:
		return t.String(), nil
	case int, int64, float64:
		return fmt.Sprint(t), nil
	}
	return nil, d.Fail("invalid_string")
}

func decodeInt(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t == math.Trunc(t) {
			return int64(t), nil
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return nil, d.Fail("invalid_integer")
}

func decodeFloat(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f, nil
		}
	}
	return nil, d.Fail("invalid_number")
}

// timeFormats are tried in order when decoding timestamp strings.
var timeFormats = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func decodeTime(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeFormats {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
	}
	return nil, d.Fail("invalid_datetime", formatList(timeFormats))
}

func formatList(formats []string) string {
	out := ""
	for i, f := range formats {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}

func encodeTime(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC().Format(time.RFC3339), nil
	}
	return v, nil
}

func decodeDuration(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		if dur, err := time.ParseDuration(t); err == nil {
			return dur, nil
		}
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	}
	return nil, d.Fail("invalid_duration")
}

func encodeDuration(v any) (any, error) {
	if dur, ok := v.(time.Duration); ok {
		return dur.String(), nil
	}
	return v, nil
}

func decodeUUID(d *Descriptor, v any) (any, error) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, nil
	case string:
		if id, err := uuid.Parse(t); err == nil {
			return id, nil
		}
	}
	return nil, d.Fail("invalid_uuid")
}

func encodeUUID(v any) (any, error) {
	if id, ok := v.(uuid.UUID); ok {
		return id.String(), nil
	}
	return v, nil
}

func encodeIdentity(v any) (any, error) { return v, nil }
