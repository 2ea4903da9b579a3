package field_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/schema/field"
)

type profile struct {
	DisplayName string
	Score       int
}

type lazyAuthor struct {
	obj any
	hit *int
}

func (l *lazyAuthor) Deref(context.Context) (any, error) {
	*l.hit++
	return l.obj, nil
}

func TestResolveDottedPath(t *testing.T) {
	t.Parallel()

	instance := map[string]any{
		"author": map[string]any{"profile": map[string]any{"name": "ada"}},
	}
	v, err := field.Resolve(context.Background(), instance, []string{"author", "profile", "name"})
	require.NoError(t, err)
	assert.Equal(t, "ada", v)
}

func TestResolveStructFields(t *testing.T) {
	t.Parallel()

	instance := map[string]any{"profile": &profile{DisplayName: "ada", Score: 9}}
	v, err := field.Resolve(context.Background(), instance, []string{"profile", "display_name"})
	require.NoError(t, err)
	assert.Equal(t, "ada", v)
}

func TestResolveCallables(t *testing.T) {
	t.Parallel()

	instance := map[string]any{
		"plain": func() any { return "a" },
		"erring": func() (any, error) { return "b", nil },
		"ctx": func(context.Context) (any, error) { return "c", nil },
	}
	for name, want := range map[string]string{"plain": "a", "erring": "b", "ctx": "c"} {
		v, err := field.Resolve(context.Background(), instance, []string{name})
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestResolveDereferencesRelationHops(t *testing.T) {
	t.Parallel()

	hits := 0
	instance := map[string]any{
		"author": &lazyAuthor{obj: map[string]any{"username": "ada"}, hit: &hits},
	}
	v, err := field.Resolve(context.Background(), instance, []string{"author", "username"})
	require.NoError(t, err)
	assert.Equal(t, "ada", v)
	assert.Equal(t, 1, hits)
}

func TestAttributeMissingPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	instance := map[string]any{}

	// Default wins first.
	v, err := field.Attribute(ctx, field.Int("n").Default(7), instance)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	// Then null.
	v, err = field.Attribute(ctx, field.String("s").AllowNull(), instance)
	require.NoError(t, err)
	assert.Nil(t, v)

	// Then skip for optional fields.
	_, err = field.Attribute(ctx, field.String("s").Optional(), instance)
	assert.ErrorIs(t, err, restflow.ErrSkipField)

	// Required fields with no fallback surface an internal error.
	_, err = field.Attribute(ctx, field.String("s"), instance)
	require.Error(t, err)
	assert.False(t, restflow.IsValidation(err))
}

func TestAttributeWholeObject(t *testing.T) {
	t.Parallel()

	instance := map[string]any{"k": 1}
	v, err := field.Attribute(context.Background(), field.JSON("all").Source("*"), instance)
	require.NoError(t, err)
	assert.Equal(t, instance, v)
}
