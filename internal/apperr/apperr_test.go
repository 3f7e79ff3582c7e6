package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateConflict_ReportsCurrentStatus(t *testing.T) {
	err := fmt.Errorf("approve appointment: %w", StateConflict("appointment", "a-1", "pending", "approved"))

	assert.True(t, errors.Is(err, ErrStateConflict))
	assert.False(t, errors.Is(err, ErrConflict))

	status, ok := CurrentStatus(err)
	assert.True(t, ok)
	assert.Equal(t, "approved", status)
	assert.Contains(t, err.Error(), "appointment a-1 is approved, expected pending")
}

func TestStorage_KeepsExistingKind(t *testing.T) {
	nf := NotFound("appointment", "a-2")
	assert.Same(t, nf, Storage("get appointment", nf))

	raw := errors.New("connection reset")
	wrapped := Storage("get appointment", raw)
	assert.True(t, errors.Is(wrapped, ErrStorage))
	assert.True(t, errors.Is(wrapped, raw))
	assert.True(t, Retryable(wrapped))
	assert.Nil(t, Storage("noop", nil))
}

func TestValidation_Message(t *testing.T) {
	err := Validation("pain_level", "must be between 0 and 10")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, Retryable(err))
	assert.Equal(t, "validation failed: pain_level: must be between 0 and 10", err.Error())

	_, ok := CurrentStatus(err)
	assert.False(t, ok)
}
