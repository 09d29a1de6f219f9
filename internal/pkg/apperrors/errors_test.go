package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomErrorMatchesSentinel(t *testing.T) {
	err := NewCustomError(ErrInvalidQuantity, "quantity must be positive")

	assert.True(t, errors.Is(err, ErrInvalidQuantity))
	assert.Equal(t, "quantity must be positive", err.Error())
}

func TestCustomErrorFallsBackToSentinelMessage(t *testing.T) {
	err := NewCustomError(ErrInsufficientStock, "")
	assert.Equal(t, ErrInsufficientStock.Error(), err.Error())

	empty := &CustomError{}
	assert.Equal(t, "unknown error", empty.Error())
}

func TestCustomErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("approving request 7: %w", NewCustomError(ErrInvalidTransition, "cannot approve a Returned request"))

	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var custom *CustomError
	assert.True(t, errors.As(err, &custom))
	assert.Equal(t, "cannot approve a Returned request", custom.Message)
}
