package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/jobtracker/internal/domain"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Meta  *ListMeta `json:"meta,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// ListMeta describes a projected list.
type ListMeta struct {
	Total   int    `json:"total"`
	Visible int    `json:"visible"`
	Query   string `json:"query,omitempty"`
}

// APIError represents an error in the API response.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// JSONList writes a projected list with its meta.
func JSONList(c echo.Context, status int, data any, meta ListMeta) error {
	return c.JSON(status, Envelope{Data: data, Meta: &meta})
}

// HTTPErrorHandler is the global error handler for echo. API routes get the
// JSON envelope, everything else an HTML page.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request failed",
			"path", c.Request().URL.Path,
			"error", err,
		)
	}

	var sendErr error
	switch {
	case isAPI(c):
		sendErr = c.JSON(status, Envelope{Error: &apiErr})
	case status == http.StatusNotFound:
		sendErr = c.Render(status, "notfound", newView(c).withMessage(apiErr.Message))
	default:
		sendErr = c.Render(status, "error", newView(c).withMessage(apiErr.Message))
	}
	if sendErr != nil {
		slog.Error("failed to send error response", "error", sendErr)
	}
}

func mapError(err error) (int, APIError) {
	// Handle echo's own HTTP errors (404, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{
			Code:    http.StatusText(echoErr.Code),
			Message: msg,
		}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, APIError{
			Code:    "validation_error",
			Message: fieldMessage(validationErr),
			Details: []FieldError{
				{Field: validationErr.Field, Message: validationErr.Message},
			},
		}
	}

	var transportErr *domain.TransportError
	var statusErr *domain.StatusError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "The requested resource was not found",
		}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{
			Code:    "unauthorized",
			Message: "Authentication is required",
		}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{
			Code:    "invalid_credentials",
			Message: "Invalid username or password",
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, APIError{
			Code:    "already_exists",
			Message: "That username is already taken",
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, APIError{
			Code:    "invalid_input",
			Message: "The request body is invalid",
		}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, APIError{
			Code:    "store_unreachable",
			Message: "The record store could not be reached",
		}
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, APIError{
			Code:    "store_error",
			Message: "The record store rejected the request",
		}
	default:
		return http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "An unexpected error occurred",
		}
	}
}

var fieldLabels = map[string]string{
	"username":    "Username",
	"password":    "Password",
	"role":        "Role",
	"companyName": "Company",
	"location":    "Location",
}

func fieldMessage(err *domain.ValidationError) string {
	label, ok := fieldLabels[err.Field]
	if !ok {
		label = err.Field
	}
	return label + " is required"
}
