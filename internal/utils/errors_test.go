package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyInputError_Error(t *testing.T) {
	err := &EmptyInputError{
		Message: "test error message",
	}

	assert.Equal(t, "test error message", err.Error())
}

func TestNewEmptyInputError(t *testing.T) {
	err := NewEmptyInputError("no data points")

	assert.Error(t, err)
	assert.Equal(t, "no data points", err.Error())

	// Check that it's the correct type
	emptyErr, ok := err.(*EmptyInputError)
	assert.True(t, ok)
	assert.Equal(t, "no data points", emptyErr.Message)
}

func TestNewDegenerateInputErrorf(t *testing.T) {
	err := NewDegenerateInputErrorf("series %s has zero variance over %d points", "glucose", 21)

	assert.Error(t, err)
	assert.Equal(t, "series glucose has zero variance over 21 points", err.Error())

	// Check that it's the correct type
	degenerateErr, ok := err.(*DegenerateInputError)
	assert.True(t, ok)
	assert.Equal(t, "series glucose has zero variance over 21 points", degenerateErr.Message)
}
