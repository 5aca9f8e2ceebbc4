package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/rental-listing/internal/logger"
)

// RequestID tags every request with an X-Request-ID (kept from the client
// when present) and stores a logger carrying it in both the Echo context
// and the request context.
func RequestID(base *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            requestID := req.Header.Get(echo.HeaderXRequestID)
            if requestID == "" || len(requestID) > 128 {
                requestID = uuid.New().String()
            }
            req.Header.Set(echo.HeaderXRequestID, requestID)
            c.Response().Header().Set(echo.HeaderXRequestID, requestID)
            c.Set("request_id", requestID)

            log := base.With(zap.String("request_id", requestID))
            c.Set(logger.EchoKey, log)
            c.SetRequest(req.WithContext(logger.WithLogger(req.Context(), log)))
            return next(c)
        }
    }
}

// AccessLog writes one line per request with the request-scoped logger.
// Server errors are logged at error level.
func AccessLog(next echo.HandlerFunc) echo.HandlerFunc {
    return func(c echo.Context) error {
        start := time.Now()
        err := next(c)
        if err != nil {
            c.Error(err)
        }

        status := c.Response().Status
        fields := []zap.Field{
            zap.String("method", c.Request().Method),
            zap.String("path", c.Request().URL.Path),
            zap.Int("status", status),
            zap.Duration("latency", time.Since(start)),
            zap.Int64("bytes_out", c.Response().Size),
        }
        log := logger.FromEcho(c)
        switch {
        case status >= 500:
            log.Error("request", append(fields, zap.Error(err))...)
        case status >= 400:
            log.Warn("request", fields...)
        default:
            log.Info("request", fields...)
        }
        return nil
    }
}
