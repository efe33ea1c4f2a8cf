package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicq/queue-api/internal/lock"
	apperrors "github.com/clinicq/queue-api/pkg/errors"
)

func writeError(t *testing.T, err error) (int, *Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, err)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, &body
}

func TestErrorMapsAppErrorStatus(t *testing.T) {
	code, body := writeError(t, apperrors.NotFound("visit", errors.New("row not found")))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "error", body.Status)
	assert.Contains(t, body.Message, "visit")
}

func TestErrorMapsLockContentionToConflict(t *testing.T) {
	code, body := writeError(t, lock.ErrLockNotAcquired)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, body.Message, "retry")
}

func TestErrorMapsWrappedLockContention(t *testing.T) {
	code, _ := writeError(t, fmt.Errorf("booking: %w", lock.ErrLockNotAcquired))
	assert.Equal(t, http.StatusConflict, code)
}

func TestErrorHidesUnknownErrorDetails(t *testing.T) {
	code, body := writeError(t, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Message)
}
