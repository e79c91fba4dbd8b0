package server

import (
	"net/http"

	"devpilot/internal/errors"
	"devpilot/internal/logger"

	"github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as an errors.HTTPErrorResponse
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		he = errors.ToHTTPError(err).(*echo.HTTPError)
	}

	body, ok := he.Message.(errors.HTTPErrorResponse)
	if !ok {
		code := errors.ErrInternal
		if he.Code < http.StatusInternalServerError {
			code = errors.ErrInvalidInput
		}
		body = errors.HTTPErrorResponse{Error: errors.ErrorInfo{
			Code:    code,
			Message: http.StatusText(he.Code),
		}}
		if msg, isString := he.Message.(string); isString {
			body.Error.Message = msg
		}
	}

	if reqID, ok := c.Get("request_id").(string); ok {
		if body.Context == nil {
			body.Context = map[string]interface{}{}
		}
		body.Context["request_id"] = reqID
	}

	logger.GetLogger(c).WithField("status", he.Code).WithError(err).Debug("Request error")

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, body)
}
