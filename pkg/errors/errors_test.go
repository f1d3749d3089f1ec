package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLengthMismatchError(t *testing.T) {
	err := NewColumnLengthMismatchError()

	assert.Equal(t, ErrorCodeColumnLengthMismatch, err.Code)
	assert.Equal(t, "All columns must have the same number of rows.", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("add rows: %w", NewInvalidInputError("column \"a\" is not a sequence"))

	assert.True(t, HasCode(wrapped, ErrorCodeInvalidInput))
	assert.False(t, HasCode(wrapped, ErrorCodeClosedSink))
	assert.False(t, HasCode(stderrors.New("plain"), ErrorCodeInvalidInput))
	assert.False(t, HasCode(nil, ErrorCodeInvalidInput))
}

func TestFromError(t *testing.T) {
	t.Run("AppError in chain is returned as-is", func(t *testing.T) {
		appErr := NewClosedSinkError()
		got := FromError(fmt.Errorf("write: %w", appErr))
		assert.Same(t, appErr, got)
	})

	t.Run("Plain error becomes internal", func(t *testing.T) {
		cause := stderrors.New("disk full")
		got := FromError(cause)
		assert.Equal(t, ErrorCodeInternal, got.Code)
		assert.ErrorIs(t, got, cause)
	})

	t.Run("Nil stays nil", func(t *testing.T) {
		assert.Nil(t, FromError(nil))
	})
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(ErrorCodeInvalidInput))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(ErrorCodeColumnLengthMismatch))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(ErrorCodeClosedSink))
	assert.Equal(t, http.StatusUnauthorized, ToHTTPStatus(ErrorCodeUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(ErrorCode("SOMETHING_ELSE")))
}

func TestAppError_ErrorString(t *testing.T) {
	err := NewAppErrorWithErr(ErrorCodeInternal, "flush failed", http.StatusInternalServerError, stderrors.New("broken pipe"))
	assert.Equal(t, "INTERNAL_ERROR: flush failed (broken pipe)", err.Error())
	assert.Equal(t, "CLOSED_SINK: csv writer is closed", NewClosedSinkError().Error())
}
