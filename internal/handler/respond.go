package handler

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/rental-listing/internal/apperr"
    "github.com/iliyamo/rental-listing/internal/logger"
)

// requestTimeout bounds the store and provider calls of one request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail writes err as {"error": message} with the status of its kind.
// Causes are logged; only the message is sent to the client.
func fail(c echo.Context, err error, fallback string) error {
    ae := apperr.As(err, fallback)
    status := ae.HTTPStatus()
    if status >= http.StatusInternalServerError {
        logger.FromEcho(c).Error(ae.Message,
            zap.String("kind", ae.Kind.String()), zap.Error(ae.Err))
    }
    return c.JSON(status, echo.Map{"error": ae.Message})
}

// bindStrict decodes a JSON body into dst, rejecting unknown fields and
// trailing data.
func bindStrict(c echo.Context, dst any) error {
    dec := json.NewDecoder(c.Request().Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(dst); err != nil {
        if errors.Is(err, io.EOF) {
            return apperr.NewValidation("Request body is required")
        }
        return apperr.Wrap(apperr.Validation, "Invalid request body", err)
    }
    if dec.More() {
        return apperr.NewValidation("Invalid request body")
    }
    return nil
}
