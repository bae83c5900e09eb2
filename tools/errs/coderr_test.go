package errs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeError_IsMatchesOnCode(t *testing.T) {
	err := ErrNotFound.WrapMsg("message missing", "id", "42")

	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "1004 not found message missing, id=42", AsCode(err).Error())
}

func TestPersistence_KeepsCauseAndCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence(cause, "save message")

	require.True(t, errors.Is(err, ErrPersistence))
	require.True(t, errors.Is(err, cause))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.Nil(t, Persistence(nil, "noop"))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		ErrBadRequest.Wrap():      http.StatusBadRequest,
		ErrUnauthenticated.Wrap(): http.StatusUnauthorized,
		ErrUnauthorized.Wrap():    http.StatusForbidden,
		ErrNotFound.Wrap():        http.StatusNotFound,
		ErrDuplicate.Wrap():       http.StatusConflict,
		errors.New("boom"):        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestErrPanic(t *testing.T) {
	assert.Nil(t, ErrPanic(nil))
	err := ErrPanic("nil map write")
	assert.Equal(t, ServerInternalError, AsCode(err).Code)
	assert.Contains(t, err.Error(), "nil map write")
}
