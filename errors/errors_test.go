package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCallerLocation(t *testing.T) {
	err := New("something failed: %s", "detail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "errors_test.go:")
	assert.Contains(t, err.Error(), "something failed: detail")
}

func TestWrapfPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrapf(cause, "while doing %s", "work")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "while doing work")
	assert.ErrorIs(t, err, cause)
}

func TestWrapfNil(t *testing.T) {
	assert.NoError(t, Wrapf(nil, "ignored"))
}
