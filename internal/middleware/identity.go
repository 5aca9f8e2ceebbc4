package middleware

// identity.go defines helpers shared by handlers to read what BearerAuth
// stored in the Echo context.

import "github.com/labstack/echo/v4"

const (
    userIDKey      = "user_id"
    accessTokenKey = "access_token"
)

// UserID returns the authenticated user id, or "" outside BearerAuth.
func UserID(c echo.Context) string {
    if v, ok := c.Get(userIDKey).(string); ok {
        return v
    }
    return ""
}

// AccessToken returns the bearer token of the current request.
func AccessToken(c echo.Context) string {
    if v, ok := c.Get(accessTokenKey).(string); ok {
        return v
    }
    return ""
}
