package field_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
	"github.com/syssam/restflow/capability"
	"github.com/syssam/restflow/schema/field"
)

func TestRequired(t *testing.T) {
	t.Parallel()

	f := field.String("username")
	_, err := field.RunValidation(f, field.Empty, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This field is required."}, ve.Messages)
}

func TestPartialSkipsMissingKeys(t *testing.T) {
	t.Parallel()

	f := field.String("username")
	_, err := field.RunValidation(f, field.Empty, true)
	assert.ErrorIs(t, err, restflow.ErrSkipField)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	f := field.Int("page_size").Default(25)
	v, err := field.RunValidation(f, field.Empty, false)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	// Partial updates never inject defaults.
	_, err = field.RunValidation(f, field.Empty, true)
	assert.ErrorIs(t, err, restflow.ErrSkipField)

	// Absent optional field without a default is skipped entirely.
	g := field.String("nickname").Optional()
	_, err = field.RunValidation(g, field.Empty, false)
	assert.ErrorIs(t, err, restflow.ErrSkipField)
}

func TestAllowNull(t *testing.T) {
	t.Parallel()

	f := field.String("bio")
	_, err := field.RunValidation(f, nil, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This field may not be null."}, ve.Messages)

	g := field.String("bio").AllowNull()
	v, err := field.RunValidation(g, nil, false)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestReadOnlySkipsInput(t *testing.T) {
	t.Parallel()

	f := field.Int("id").ReadOnly()
	_, err := field.RunValidation(f, 99, false)
	assert.ErrorIs(t, err, restflow.ErrSkipField)
}

func TestBoolCoercion(t *testing.T) {
	t.Parallel()

	f := field.Bool("active")
	for in, want := range map[any]bool{
		true: true, "true": true, "1": true, float64(1): true,
		false: false, "false": false, "0": false, float64(0): false,
	} {
		v, err := field.RunValidation(f, in, false)
		require.NoError(t, err, "input %v", in)
		assert.Equal(t, want, v)
	}

	_, err := field.RunValidation(f, "maybe", false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Must be a valid boolean."}, ve.Messages)
}

func TestIntCoercion(t *testing.T) {
	t.Parallel()

	f := field.Int("age")

	v, err := field.RunValidation(f, float64(30), false)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)

	v, err = field.RunValidation(f, "17", false)
	require.NoError(t, err)
	assert.Equal(t, int64(17), v)

	_, err = field.RunValidation(f, 1.5, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"A valid integer is required."}, ve.Messages)

	_, err = field.RunValidation(f, true, false)
	assert.True(t, restflow.IsValidation(err))
}

func TestStringCoercion(t *testing.T) {
	t.Parallel()

	f := field.String("title")

	v, err := field.RunValidation(f, float64(42), false)
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = field.RunValidation(f, "", false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This field may not be blank."}, ve.Messages)

	g := field.String("title").AllowBlank()
	v, err = field.RunValidation(g, "", false)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	_, err = field.RunValidation(f, true, false)
	assert.True(t, restflow.IsValidation(err))
}

func TestEnum(t *testing.T) {
	t.Parallel()

	f := field.Enum("state", "draft", "published")

	v, err := field.RunValidation(f, "draft", false)
	require.NoError(t, err)
	assert.Equal(t, "draft", v)

	_, err = field.RunValidation(f, "archived", false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{`"archived" is not a valid choice.`}, ve.Messages)
}

func TestUUIDField(t *testing.T) {
	t.Parallel()

	f := field.UUID("token")
	id := uuid.New()

	v, err := field.RunValidation(f, id.String(), false)
	require.NoError(t, err)
	assert.Equal(t, id, v)

	_, err = field.RunValidation(f, "not-a-uuid", false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Must be a valid UUID."}, ve.Messages)

	out, err := field.Represent(f, id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), out)
}

func TestTimeField(t *testing.T) {
	t.Parallel()

	f := field.Time("created")

	v, err := field.RunValidation(f, "2026-08-23T10:00:00Z", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC), v)

	v, err = field.RunValidation(f, "2026-08-23", false)
	require.NoError(t, err)
	assert.Equal(t, 2026, v.(time.Time).Year())

	_, err = field.RunValidation(f, "23/08/2026", false)
	assert.True(t, restflow.IsValidation(err))

	out, err := field.Represent(f, time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-08-23T10:00:00Z", out)
}

func TestDurationField(t *testing.T) {
	t.Parallel()

	f := field.Duration("timeout")

	v, err := field.RunValidation(f, "1h30m", false)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, v)

	v, err = field.RunValidation(f, float64(2), false)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, v)

	out, err := field.Represent(f, 90*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", out)
}

func TestValidatorsCollectAllFailures(t *testing.T) {
	t.Parallel()

	f := field.String("password").Validate(
		field.MinLen(8),
		field.ValidatorFunc(func(v any) error {
			return restflow.NewValidationError("Too predictable.")
		}),
	)
	_, err := field.RunValidation(f, "abc", false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{
		"Ensure this field has at least 8 characters.",
		"Too predictable.",
	}, ve.Messages)
}

func TestStructuredValidatorErrorPropagatesUnchanged(t *testing.T) {
	t.Parallel()

	structured := restflow.FieldErrors(map[string]*restflow.ValidationError{
		"inner": restflow.NewValidationError("Broken."),
	})
	f := field.JSON("payload").Validate(
		field.ValidatorFunc(func(any) error { return structured }),
		field.ValidatorFunc(func(any) error {
			t.Fatal("validator after a structured failure must not run")
			return nil
		}),
	)
	_, err := field.RunValidation(f, map[string]any{}, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Same(t, structured, ve)
}

func TestNonValidationErrorAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("store unavailable")
	f := field.String("slug").Validate(func(context.Context, any) error { return boom })
	_, err := field.RunValidationContext(context.Background(), f, "ok", false)
	assert.ErrorIs(t, err, boom)
}

func TestMessageOverride(t *testing.T) {
	t.Parallel()

	f := field.String("name").Message("required", "Name it.")
	_, err := field.RunValidation(f, field.Empty, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"Name it."}, ve.Messages)
}

func TestListDecode(t *testing.T) {
	t.Parallel()

	f := field.ListOf("scores", field.Int("scores"))

	v, err := field.RunValidation(f, []any{float64(1), "2"}, false)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)

	_, err = field.RunValidation(f, "not a list", false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{`Expected a list of items but got type "string".`}, ve.Messages)

	_, err = field.RunValidation(f, []any{float64(1), "x", true}, false)
	ve, ok = restflow.AsValidation(err)
	require.True(t, ok)
	require.Len(t, ve.Items, 2)
	assert.Equal(t, []string{"A valid integer is required."}, ve.Items[1].Messages)
	assert.Equal(t, []string{"A valid integer is required."}, ve.Items[2].Messages)
}

func TestListEmpty(t *testing.T) {
	t.Parallel()

	f := field.ListOf("tags", field.String("tags")).DisallowEmpty()
	_, err := field.RunValidation(f, []any{}, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"This list may not be empty."}, ve.Messages)
}

func TestDictDecode(t *testing.T) {
	t.Parallel()

	f := field.DictOf("limits", field.Int("limits"))

	v, err := field.RunValidation(f, map[string]any{"read": float64(10), "write": "5"}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"read": int64(10), "write": int64(5)}, v)

	_, err = field.RunValidation(f, []any{}, false)
	assert.True(t, restflow.IsValidation(err))

	_, err = field.RunValidation(f, map[string]any{"read": "x"}, false)
	ve, ok := restflow.AsValidation(err)
	require.True(t, ok)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, []string{"A valid integer is required."}, ve.Fields["read"].Messages)
}

func TestMethodField(t *testing.T) {
	t.Parallel()

	f := field.Method("display", func(instance any) (any, error) {
		m := instance.(map[string]any)
		return m["first"].(string) + " " + m["last"].(string), nil
	})
	assert.True(t, f.Descriptor().ReadOnly)
	assert.True(t, f.Descriptor().WholeObject())

	out, err := field.Represent(f, map[string]any{"first": "Ada", "last": "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", out)
}

func TestModeClassification(t *testing.T) {
	t.Parallel()

	assert.Equal(t, capability.ModeSync, field.ModeOf(field.String("a")))
	assert.Equal(t, capability.ModeSuspending, field.ModeOf(
		field.String("b").Validate(func(context.Context, any) error { return nil }),
	))
	assert.Equal(t, capability.ModeSuspending, field.ModeOf(
		field.Int("c").DefaultContext(func(context.Context) (any, error) { return 0, nil }),
	))
	assert.Equal(t, capability.ModeSync, field.ModeOf(field.ListOf("d", field.Int("d"))))
	assert.Equal(t, capability.ModeSuspending, field.ModeOf(
		field.ListOf("e", field.Int("e").Validate(func(context.Context, any) error { return nil })),
	))
	assert.Equal(t, capability.ModeSuspending, field.ModeOf(
		field.MethodContext("f", func(context.Context, any) (any, error) { return nil, nil }),
	))
}

func TestSyncAndContextPathsAgree(t *testing.T) {
	t.Parallel()

	f := field.Int("age").Validate(field.Min(18))

	syncV, syncErr := field.RunValidation(f, float64(30), false)
	ctxV, ctxErr := field.RunValidationContext(context.Background(), f, float64(30), false)
	assert.Equal(t, syncV, ctxV)
	assert.Equal(t, syncErr, ctxErr)

	_, syncErr = field.RunValidation(f, float64(3), false)
	_, ctxErr = field.RunValidationContext(context.Background(), f, float64(3), false)
	assert.Equal(t, syncErr, ctxErr)
}

func TestChildBindsOnce(t *testing.T) {
	t.Parallel()

	child := field.Int("n")
	field.ListOf("first", child)
	l := field.ListOf("second", child)
	assert.True(t, restflow.IsConfig(l.Descriptor().Err))
}

func TestUnknownMessageCodePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		field.String("x").Descriptor().Fail("no_such_code")
	})
}
