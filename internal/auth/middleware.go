package auth

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/logpipe-io/logpipe/internal/response"
)

// subjectKey is the echo context key RequireToken stores the subject under.
const subjectKey = "auth.subject"

// RequireToken gates a route behind a valid bearer token. A missing or
// non-bearer header and a present-but-bad token produce different generic
// bodies, but both are 401 and neither leaks claim values, expiry
// timestamps, or field names.
func RequireToken(issuer *Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return response.Unauthorized(c, "Unauthorized")
			}
			subject, err := issuer.Validate(raw)
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					return response.Unauthorized(c, "Token expired or invalid")
				}
				return response.Unauthorized(c, "Unauthorized")
			}
			c.Set(subjectKey, subject)
			return next(c)
		}
	}
}

// Subject returns the validated token subject stored by RequireToken, or
// "" when the route is not token-gated.
func Subject(c echo.Context) string {
	subject, _ := c.Get(subjectKey).(string)
	return subject
}
