package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NotFound("visit", nil), http.StatusNotFound},
		{BadRequest("bad input", nil), http.StatusBadRequest},
		{InvalidTransition("waiting", "completed"), http.StatusConflict},
		{StaleRead("visit"), http.StatusConflict},
		{CapacityExceeded("daily token limit reached"), http.StatusUnprocessableEntity},
		{Unauthorized(errors.New("invalid credentials")), http.StatusUnauthorized},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestErrorIncludesWrappedCause(t *testing.T) {
	cause := errors.New("row not found")
	err := NotFound("visit", cause)

	assert.Equal(t, "visit not found: row not found", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestErrorWithoutCause(t *testing.T) {
	err := InvalidTransition("waiting", "completed")
	assert.Equal(t, "invalid transition from waiting to completed", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestIsMatchesCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling request: %w", CapacityExceeded("daily token limit reached"))

	assert.True(t, Is(err, ErrCapacityExceeded))
	assert.False(t, Is(err, ErrNotFound))
}

func TestIsRejectsPlainErrors(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), ErrInternal))
	assert.False(t, Is(nil, ErrInternal))
}

func TestAsExposesTheAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", StaleRead("visit"))

	var appErr *AppError
	require.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, ErrStaleRead, appErr.Code)
}
