package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_RenderingDoesNotRepeatCause(t *testing.T) {
	cause := errors.New("asset 1 is reserved: asset is not available")

	// A classified error that adopted the cause's text keeps it single.
	adopted := &Error{Kind: KindStateConflict, Message: cause.Error(), Err: cause}
	assert.Equal(t, cause.Error(), adopted.Error())
	assert.Equal(t, 1, strings.Count(adopted.Error(), "asset 1 is reserved"))

	// A distinct message still carries the cause.
	wrapped := &Error{Kind: KindInternal, Message: "operation failed", Err: cause}
	assert.Equal(t, "operation failed: "+cause.Error(), wrapped.Error())

	// No cause at all.
	bare := Invalid("days must be positive")
	assert.Equal(t, "days must be positive", bare.Error())
}

func TestError_UnwrapKeepsSentinelChain(t *testing.T) {
	sentinel := errors.New("status conflict")
	cause := fmt.Errorf("booking 7 is cancelled: %w", sentinel)

	typed := &Error{Kind: KindStateConflict, Message: cause.Error(), Err: cause}
	assert.ErrorIs(t, typed, sentinel)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Invalid("bad input")))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", NotFound("missing"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestError_Retryable(t *testing.T) {
	assert.True(t, Transient(nil, "busy").Retryable())
	assert.False(t, Exhausted("over limit").Retryable())
	assert.False(t, Forbidden("no").Retryable())
}
