package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the single error shape exposed by the API. The message is
// always a short generic string; stack traces, file paths, environment
// variable names, and claim values never appear here.
type APIError struct {
	Error string `json:"error"`
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// Accepted sends a 202 response with data.
func Accepted(c echo.Context, data any) error {
	return c.JSON(http.StatusAccepted, data)
}

// Error sends an APIError with the given status.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, APIError{Error: message})
}

// Unauthorized sends 401. The message must be one of the two generic auth
// bodies; callers never pass token details through here.
func Unauthorized(c echo.Context, message string) error {
	return Error(c, http.StatusUnauthorized, message)
}

// NotFound sends 404 with the generic body.
func NotFound(c echo.Context) error {
	return Error(c, http.StatusNotFound, "Not found")
}

// TooManyRequests sends 429 with the generic body.
func TooManyRequests(c echo.Context) error {
	return Error(c, http.StatusTooManyRequests, "Too many requests")
}
