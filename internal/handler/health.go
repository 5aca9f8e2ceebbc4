package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds readiness probes
    "net/http" // net/http provides status codes and response helpers
    "time"     // probe timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is a simple liveness endpoint used by load balancers and
// monitoring systems to verify that the process is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Probe checks one backing service.
type Probe struct {
    Name  string
    Check func(ctx context.Context) error
}

// Ready answers 200 "ready" when every probe passes, and 503 naming the
// first failing dependency otherwise.
func Ready(probes ...Probe) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        for _, p := range probes {
            if err := p.Check(ctx); err != nil {
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": p.Name + " unavailable"})
            }
        }
        return c.String(http.StatusOK, "ready")
    }
}
