package serializer

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Rep is the wire representation of one object. It preserves field
// declaration order, which plain maps cannot.
type Rep struct {
	keys   []string
	values map[string]any
}

func newRep(capacity int) *Rep {
	return &Rep{values: make(map[string]any, capacity)}
}

func (r *Rep) set(key string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Rep) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in declaration order.
func (r *Rep) Keys() []string { return r.keys }

// Len returns the number of fields.
func (r *Rep) Len() int { return len(r.keys) }

// Map returns the underlying values. The map does not carry ordering; use
// Keys for that.
func (r *Rep) Map() map[string]any { return r.values }

// MarshalJSON renders the object with fields in declaration order.
func (r *Rep) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeMsgpack implements msgpack.CustomEncoder, keeping declaration order.
func (r *Rep) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(r.keys)); err != nil {
		return err
	}
	for _, key := range r.keys {
		if err := enc.EncodeString(key); err != nil {
			return err
		}
		if err := enc.Encode(r.values[key]); err != nil {
			return err
		}
	}
	return nil
}

var _ json.Marshaler = (*Rep)(nil)
var _ msgpack.CustomEncoder = (*Rep)(nil)
