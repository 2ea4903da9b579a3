package relation

import (
	"context"
	"fmt"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/schema/field"
	"github.com/syssam/restflow/storage"
)

func relatedMessages() map[string]string {
	return map[string]string{
		"does_not_exist": `Invalid key "%v" - object does not exist.`,
		"incorrect_type": "Incorrect type. Expected key value, received %s.",
	}
}

// ToOne references a single object in another queryset. Decoding resolves
// the incoming key into the related object; encoding renders the key.
type ToOne struct {
	desc     field.Descriptor
	set      storage.Queryset
	keyField string
	keyOnly  bool
}

// One returns a to-one relation backed by set. Related objects are keyed by
// the "id" attribute unless KeyField overrides it.
func One(name string, set storage.Queryset) *ToOne {
	r := &ToOne{
		desc:     field.Descriptor{Name: name, Required: true, Messages: relatedMessages()},
		set:      set,
		keyField: "id",
	}
	if name == "" {
		r.desc.Err = restflow.Configf("field name must not be empty")
	}
	if set == nil {
		r.desc.Err = restflow.Configf("field %q: relation requires a queryset", name)
	}
	return r
}

// Descriptor implements field.Node.
func (r *ToOne) Descriptor() *field.Descriptor { return &r.desc }

// Mode implements field.Moder. Relations suspend on their write-path point
// lookup; a read-only key-only relation never touches the store and stays
// sync.
func (r *ToOne) Mode() capability.Mode {
	if r.keyOnly && r.desc.ReadOnly {
		return capability.ModeSync
	}
	return capability.ModeSuspending
}

// KeyField sets the attribute that keys related objects.
func (r *ToOne) KeyField(name string) *ToOne { r.keyField = name; return r }

// KeyOnly renders the relation from the foreign key stored on the instance,
// skipping the related-object lookup on the read path.
func (r *ToOne) KeyOnly() *ToOne { r.keyOnly = true; return r }

// Source sets the attribute path read from the instance.
func (r *ToOne) Source(source string) *ToOne { r.desc.Source = source; return r }

// Optional marks the relation as not required on input.
func (r *ToOne) Optional() *ToOne { r.desc.Required = false; return r }

// AllowNull accepts an explicit null, decoding it to nil.
func (r *ToOne) AllowNull() *ToOne { r.desc.AllowNull = true; return r }

// ReadOnly excludes the relation from the write path.
func (r *ToOne) ReadOnly() *ToOne { r.desc.ReadOnly = true; r.desc.Required = false; return r }

// Validate appends validators run against the resolved object.
func (r *ToOne) Validate(vs ...any) *ToOne {
	r.desc.Validators = append(r.desc.Validators, vs...)
	return r
}

// Message overrides the error message for a single code on this relation.
func (r *ToOne) Message(code, text string) *ToOne {
	r.desc.Messages[code] = text
	return r
}

// Decode implements field.Decoder.
func (r *ToOne) Decode(v any) (any, error) { return r.DecodeContext(context.Background(), v) }

// DecodeContext implements field.ContextDecoder. The incoming key resolves
// to the related object via a point lookup.
func (r *ToOne) DecodeContext(ctx context.Context, v any) (any, error) {
	// Form-encoded clients send "" for a cleared relation.
	if v == "" && r.desc.AllowNull {
		return nil, nil
	}
	if !scalarKey(v) {
		return nil, r.desc.Fail("incorrect_type", typeOf(v))
	}
	obj, err := r.set.Get(ctx, v)
	if err != nil {
		if restflow.IsNotFound(err) {
			return nil, r.desc.Fail("does_not_exist", v)
		}
		return nil, err
	}
	return obj, nil
}

// Encode implements field.Encoder.
func (r *ToOne) Encode(v any) (any, error) { return extractKey(v, r.keyField) }

// EncodeContext implements field.ContextEncoder.
func (r *ToOne) EncodeContext(_ context.Context, v any) (any, error) {
	return extractKey(v, r.keyField)
}

func typeOf(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
