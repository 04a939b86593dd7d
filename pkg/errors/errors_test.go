package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStringIncludesCause(t *testing.T) {
	err := ErrUpstream.WithInternal(stdErrors.New("disk full"))

	require.EqualError(t, err, "Storage or database operation failed: disk full")
	require.Equal(t, "Storage or database operation failed", ErrUpstream.Error())
}

func TestCopiesLeaveCatalogueUntouched(t *testing.T) {
	cause := stdErrors.New("oops")
	with := ErrBadRequest.WithInternal(cause).WithDetails(map[string]string{"name": "is required"})

	require.NotSame(t, ErrBadRequest, with)
	require.Nil(t, ErrBadRequest.Internal)
	require.Nil(t, ErrBadRequest.Details)
	require.ErrorIs(t, with, cause)
}

func TestIsComparesCodes(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewNotFound("slide not found"))

	require.ErrorIs(t, wrapped, ErrNotFound)
	require.NotErrorIs(t, wrapped, ErrForbidden)
	require.ErrorIs(t, NewConflict("partner exists"), ErrConflict)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))
	require.Same(t, ErrForbidden, FromError(fmt.Errorf("wrap: %w", ErrForbidden)))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.EqualError(t, out.Internal, "raw")
}

func TestConstructorsKeepStatus(t *testing.T) {
	cases := []struct {
		err    *AppError
		code   string
		status int
	}{
		{NewBadRequest("invalid payload"), "BAD_REQUEST", http.StatusBadRequest},
		{NewNotFound("slide not found"), "NOT_FOUND", http.StatusNotFound},
		{NewConflict("exists"), "CONFLICT", http.StatusConflict},
	}
	for _, tc := range cases {
		require.Equal(t, tc.code, tc.err.Code)
		require.Equal(t, tc.status, tc.err.Status())
	}
}

func TestStatusDefaultsToInternal(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, (&AppError{Code: "X"}).Status())
	var nilErr *AppError
	require.Equal(t, http.StatusInternalServerError, nilErr.Status())
}
