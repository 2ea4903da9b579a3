package field

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/restflow"
)

// Getter lets an object control its own attribute lookup instead of the
// default mapping/struct reflection.
type Getter interface {
	Attribute(name string) (any, bool)
}

// Ref is a lazy handle for a relationship hop. Resolution dereferences it
// with the request context before continuing down the source path, so a
// dotted source crossing a relation may suspend on a point lookup.
type Ref interface {
	Deref(ctx context.Context) (any, error)
}

type noAttributeError struct {
	name string
	path []string
}

func (e *noAttributeError) Error() string {
	return fmt.Sprintf("restflow: no attribute %q resolving path %q", e.name, strings.Join(e.path, "."))
}

// Attribute resolves the node's source path against instance and applies the
// missing-attribute policy: default, then null, then skip, then error. A
// restflow.ErrSkipField return means the field is omitted from the
// representation.
func Attribute(ctx context.Context, n Node, instance any) (any, error) {
	d := n.Descriptor()
	path := d.SourcePath()
	if path == nil {
		return instance, nil
	}
	v, err := Resolve(ctx, instance, path)
	if err == nil {
		return v, nil
	}
	if _, ok := err.(*noAttributeError); !ok {
		return nil, err
	}
	dv, derr := defaultValue(ctx, d, false)
	if derr == nil {
		return dv, nil
	}
	if derr != restflow.ErrSkipField {
		return nil, derr
	}
	if d.AllowNull {
		return nil, nil
	}
	if !d.Required {
		return nil, restflow.ErrSkipField
	}
	return nil, err
}

// Resolve walks a dotted attribute path through mappings, structs, Getter
// implementations and Ref relationship handles. Callable attributes are
// invoked after each hop; zero-argument and context-taking forms are
// supported.
func Resolve(ctx context.Context, instance any, path []string) (any, error) {
	cur := instance
	for _, name := range path {
		if ref, ok := cur.(Ref); ok {
			obj, err := ref.Deref(ctx)
			if err != nil {
				return nil, err
			}
			cur = obj
		}
		v, ok := attr(cur, name)
		if !ok {
			return nil, &noAttributeError{name: name, path: path}
		}
		v, err := call(ctx, v)
		if err != nil {
			return nil, err
		}
		cur = v
	}
	return cur, nil
}

func call(ctx context.Context, v any) (any, error) {
	switch f := v.(type) {
	case func() any:
		return f(), nil
	case func() (any, error):
		return f()
	case func(context.Context) (any, error):
		return f(ctx)
	}
	return v, nil
}

// attr fetches one attribute hop. Struct fields match by exact name or by
// their snake_cased form, so wire names resolve against Go structs without
// tags.
func attr(obj any, name string) (any, bool) {
	if obj == nil {
		return nil, false
	}
	if g, ok := obj.(Getter); ok {
		return g.Attribute(name)
	}
	if m, ok := obj.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Name == name || snakeCase(f.Name) == name {
			return rv.Field(i).Interface(), true
		}
	}
	for i := 0; i < reflect.ValueOf(obj).NumMethod(); i++ {
		m := reflect.TypeOf(obj).Method(i)
		if snakeCase(m.Name) != name {
			continue
		}
		if fn, ok := reflect.ValueOf(obj).Method(i).Interface().(func() any); ok {
			return fn, true
		}
		if fn, ok := reflect.ValueOf(obj).Method(i).Interface().(func() (any, error)); ok {
			return fn, true
		}
	}
	return nil, false
}

func snakeCase(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
