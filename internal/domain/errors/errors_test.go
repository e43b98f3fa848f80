package errors

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorCollectsFields(t *testing.T) {
	var ve ValidationError
	assert.False(t, ve.HasAny())

	ve.Add("site.title", "must not be empty")
	ve.Addf("render.toc.min_level", "must be between %d and %d", 1, 6)

	require.True(t, ve.HasAny())
	assert.Equal(t, []string{"site.title", "render.toc.min_level"}, ve.Fields())
	assert.Contains(t, ve.Error(), "site.title: must not be empty")
	assert.Contains(t, ve.Error(), "must be between 1 and 6")
}

func TestValidationErrorIsInvalid(t *testing.T) {
	var ve ValidationError
	ve.Add("x", "bad")

	var err error = ve
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.True(t, errors.Is(errors.Wrap(err, "load config"), ErrInvalid))
}

func TestFieldErrorWithoutField(t *testing.T) {
	assert.Equal(t, "boom", FieldError{Message: "boom"}.Error())
}

func TestErrCarriesHints(t *testing.T) {
	var empty ValidationError
	assert.NoError(t, empty.Err())

	var ve ValidationError
	ve.AddHint("site.mode", `unknown mode "sepia"`, "use light or dark")
	ve.Add("site.title", "must not be empty")

	err := ve.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, "site.mode: use light or dark", Hints(err))
	assert.Contains(t, err.Error(), "2 problems")

	var got ValidationError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, []string{"site.mode", "site.title"}, got.Fields())
}
