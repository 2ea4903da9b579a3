package restflow_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/restflow"
)

func TestSentinelForwarding(t *testing.T) {
	t.Parallel()

	nf := restflow.NewNotFoundErrorWithKey("user", 7)
	assert.True(t, errors.Is(nf, restflow.ErrNotFound))
	assert.True(t, restflow.IsNotFound(fmt.Errorf("lookup: %w", nf)))
	assert.Equal(t, "user", nf.Label())
	assert.Equal(t, 7, nf.Key())

	ae := restflow.NewAuthenticationError("")
	assert.True(t, errors.Is(ae, restflow.ErrNotAuthenticated))
	assert.True(t, restflow.IsAuthentication(ae))

	pe := restflow.NewPermissionError("nope")
	assert.True(t, errors.Is(pe, restflow.ErrPermissionDenied))
	assert.True(t, restflow.IsPermissionDenied(pe))
	assert.False(t, restflow.IsPermissionDenied(ae))
}

func TestValidationErrorShapes(t *testing.T) {
	t.Parallel()

	flat := restflow.NewValidationError("too short", "too plain")
	assert.False(t, flat.Structured())
	assert.Equal(t, []string{"too short", "too plain"}, flat.Detail())

	nested := restflow.FieldErrors(map[string]*restflow.ValidationError{
		"age": restflow.NewValidationError("This field is required."),
		"tags": restflow.ItemErrors(map[int]*restflow.ValidationError{
			1: restflow.NewValidationError("invalid"),
		}),
	})
	assert.True(t, nested.Structured())

	raw, err := json.Marshal(nested)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"age": ["This field is required."],
		"tags": [{}, ["invalid"]]
	}`, string(raw))
}

// Item errors render as an ordered sequence with one entry per item,
// valid items marked by empty mappings.
func TestItemErrorsRenderAsSequence(t *testing.T) {
	t.Parallel()

	ve := restflow.ItemErrors(map[int]*restflow.ValidationError{
		1: restflow.FieldErrors(map[string]*restflow.ValidationError{
			"age": restflow.NewValidationError("A valid integer is required."),
		}),
	})
	raw, err := json.Marshal(ve)
	require.NoError(t, err)
	assert.JSONEq(t, `[{}, {"age": ["A valid integer is required."]}]`, string(raw))

	var seq []any
	require.NoError(t, json.Unmarshal(raw, &seq))
	require.Len(t, seq, 2)

	// An explicit count pads trailing valid items too.
	ve = restflow.ItemErrorsN(4, map[int]*restflow.ValidationError{
		1: restflow.NewValidationError("invalid"),
	})
	raw, err = json.Marshal(ve)
	require.NoError(t, err)
	assert.JSONEq(t, `[{}, ["invalid"], {}, {}]`, string(raw))
}

func TestValidationErrorAs(t *testing.T) {
	t.Parallel()

	ve := restflow.NewValidationError("bad")
	wrapped := fmt.Errorf("decode: %w", ve)

	got, ok := restflow.AsValidation(wrapped)
	require.True(t, ok)
	assert.Same(t, ve, got)
	assert.True(t, restflow.IsValidation(wrapped))
	assert.False(t, restflow.IsValidation(errors.New("plain")))
}

func TestThrottledError(t *testing.T) {
	t.Parallel()

	te := &restflow.ThrottledError{Wait: 3 * time.Second}
	assert.True(t, restflow.IsThrottled(te))
	assert.Contains(t, te.Error(), "3s")
}

func TestConfigAndContract(t *testing.T) {
	t.Parallel()

	cfg := restflow.Configf("bad rate %q", "x/min")
	assert.True(t, restflow.IsConfig(cfg))
	assert.Contains(t, cfg.Error(), `"x/min"`)

	ct := restflow.Contractf("save before validation")
	assert.True(t, restflow.IsContract(ct))
	assert.False(t, restflow.IsConfig(ct))
}
