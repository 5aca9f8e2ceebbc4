package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // context for the token lookup
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming
    "time"

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers
    "go.uber.org/zap"

    "github.com/iliyamo/rental-listing/internal/logger"
)

// Authenticator resolves a bearer token to a user id, returning "" when the
// token is not acceptable.
type Authenticator interface {
    Authenticate(ctx context.Context, token string) string
}

// authTimeout bounds the session lookup, matching the handlers' request timeout.
const authTimeout = 5 * time.Second

// BearerAuth returns an Echo middleware that validates a Bearer access token
// through auth and injects the user id and raw token into the request
// context.  Handlers behind it read them with UserID(c) and AccessToken(c).
func BearerAuth(auth Authenticator) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the token.
            raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
            }

            // The provider checks signature, expiry and that the session
            // has not been signed out.
            ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
            uid := auth.Authenticate(ctx, raw)
            cancel()
            if uid == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
            }

            c.Set(userIDKey, uid)
            c.Set(accessTokenKey, raw)
            c.Set(logger.EchoKey, logger.FromEcho(c).With(zap.String("user_id", uid)))
            return next(c)
        }
    }
}

// bearerToken extracts the token from an Authorization header value.  The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
    const prefix = "bearer "
    if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
        return "", false
    }
    raw := strings.TrimSpace(header[len(prefix):])
    return raw, raw != ""
}
