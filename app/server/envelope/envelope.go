// Package envelope holds the JSON shape shared by every response, successful or not.
package envelope

import (
	"errors"
	"fmt"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
)

type Response struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// Error is the only error type that reaches the transport layer.
type Error struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d %s: %v", e.StatusCode, e.Message, e.cause)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(statusCode int, message string, errs ...string) *Error {
	if message == "" {
		message = http.StatusText(statusCode)
	}
	if errs == nil {
		errs = []string{}
	}
	return &Error{
		StatusCode: statusCode,
		Message:    message,
		Success:    false,
		Errors:     errs,
	}
}

func Validation(message string, errs ...string) *Error {
	return New(http.StatusBadRequest, message, errs...)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, message)
}

// Internal keeps cause for logging; only message is sent to the client.
func Internal(message string, cause error) *Error {
	e := New(http.StatusInternalServerError, message)
	e.cause = cause
	return e
}

func OK(c echo.Context, statusCode int, data interface{}, message string) error {
	return c.JSON(statusCode, &Response{
		StatusCode: statusCode,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// From converts any error into an *Error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			message = m
		}
		res := New(he.Code, message)
		res.cause = he.Internal
		return res
	}

	return Internal("Internal server error", err)
}

func ErrorHandler(l *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		e := From(err)
		if e.StatusCode >= http.StatusInternalServerError {
			l.Error("request failed",
				zap.String("URI", c.Request().RequestURI),
				zap.Int("status", e.StatusCode),
				zap.Error(err),
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(e.StatusCode)
		} else {
			writeErr = c.JSON(e.StatusCode, e)
		}
		if writeErr != nil {
			l.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}
