package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPilotError_Error(t *testing.T) {
	err := ServiceStartFailed("api", fmt.Errorf("port 4000 not ready"))
	assert.Equal(t, "[SERVICE_START_FAILED] Failed to start service: Service: api: port 4000 not ready", err.Error())

	plain := New(ErrInternal, "boom")
	assert.Equal(t, "[INTERNAL_ERROR] boom", plain.Error())
}

func TestGetCode_WrappedChain(t *testing.T) {
	inner := CoverageBelowTarget(42.5, 80)
	outer := fmt.Errorf("test run: %w", inner)

	assert.Equal(t, ErrCoverageTooLow, GetCode(outer))
	assert.True(t, HasCode(outer, ErrCoverageTooLow))
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := InstallFailed("api", cause)
	assert.ErrorIs(t, err, cause)
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		err      *PilotError
		expected int
	}{
		{ServiceNotFound("x"), http.StatusNotFound},
		{UnknownCommand("x"), http.StatusBadRequest},
		{New(ErrBuildInProgress, "busy"), http.StatusConflict},
		{TimeoutError("start", "30s"), http.StatusGatewayTimeout},
		{New(ErrE2EFailed, "e2e"), http.StatusInternalServerError},
		{&PilotError{Code: ErrInternal, HTTPStatus: http.StatusTeapot}, http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.GetHTTPStatus())
		})
	}
}

func TestToHTTPError(t *testing.T) {
	err := ToHTTPError(ServiceNotFound("web").WithContext("known", []string{"api"}))
	var he *echo.HTTPError
	require.True(t, stderrors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.Code)

	body, ok := he.Message.(HTTPErrorResponse)
	require.True(t, ok)
	assert.Equal(t, ErrServiceNotFound, body.Error.Code)
	assert.Equal(t, []string{"api"}, body.Context["known"])

	generic := ToHTTPError(stderrors.New("disk full"))
	require.True(t, stderrors.As(generic, &he))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
}
