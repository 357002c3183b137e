package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the JSON body of every error reply.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBadRequestError(message string, cause error) *APIError {
	return withCause(&APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}, cause)
}

func NewTooLargeError(message string) *APIError {
	return &APIError{Status: http.StatusRequestEntityTooLarge, Code: "TOO_LARGE", Message: message}
}

func NewConflictError(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: "CONFLICT", Message: message}
}

func NewInternalError(message string, cause error) *APIError {
	return withCause(&APIError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}, cause)
}

func withCause(e *APIError, cause error) *APIError {
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// errorHandler renders any handler error as an APIError.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
		if httpErr.Code == http.StatusRequestEntityTooLarge {
			apiErr.Code = "TOO_LARGE"
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if s.debug {
			apiErr.Details = err.Error()
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request().URL.Path, "status", apiErr.Status, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", c.Request().URL.Path, "status", apiErr.Status, "code", apiErr.Code)
	}

	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		s.logger.Warn("failed to write error reply", "error", err)
	}
}
