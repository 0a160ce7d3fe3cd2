package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsErrorType_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("add link: %w", NewValidation("name", "must not be blank"))

	assert.True(t, IsErrorType(err, ErrorTypeValidation))
	assert.False(t, IsErrorType(err, ErrorTypeNotFound))
	assert.False(t, IsErrorType(nil, ErrorTypeValidation))
	assert.Equal(t, ErrorType(""), TypeOf(stderrors.New("plain")))
}

func TestNotFound_AsTyped(t *testing.T) {
	err := fmt.Errorf("update: %w", NewNotFound("link", "name", "docs"))

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "link", nf.Entity)
	assert.Equal(t, "docs", nf.Value)
	assert.Contains(t, err.Error(), `name="docs"`)
}

func TestConstraintViolation_KeepsCause(t *testing.T) {
	cause := stderrors.New("UNIQUE constraint failed")
	err := NewConstraintViolation("tag", map[string]string{"name": "prod", "description": "d"}, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeConstraint, TypeOf(err))
	assert.Equal(t, "[constraint] constraint violated on tag with description=d, name=prod: UNIQUE constraint failed", err.Error())
}

func TestUnsupportedField_Message(t *testing.T) {
	err := NewUnsupportedField("link", "CLICK_COUNT")

	assert.Equal(t, `[unsupported_field] property "CLICK_COUNT" is not supported for link`, err.Error())
}
