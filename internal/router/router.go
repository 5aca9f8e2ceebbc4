package router // package router defines how HTTP routes are registered for the API

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"                     // the Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Echo's stock middleware (CORS, recover, body limit)
	"go.uber.org/zap"

	"github.com/iliyamo/rental-listing/internal/handler"    // the handlers that implement the endpoints
	"github.com/iliyamo/rental-listing/internal/metrics"    // Prometheus metrics
	"github.com/iliyamo/rental-listing/internal/middleware" // bearer auth, request ids, access log
)

// Deps is everything the routes need.
type Deps struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Uploads    *handler.UploadHandler
	Properties *handler.PropertyHandler
	// Files is nil when objects are served by an external store.
	Files *handler.FilesHandler

	Authenticator  middleware.Authenticator
	Metrics        *metrics.Metrics
	Log            *zap.Logger
	Prefix         string
	MaxUploadBytes int64
	Probes         []handler.Probe
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Outermost first: request id and logging see the final status, the
	// metrics middleware renders errors so it can record it, and recover
	// turns handler panics into 500s underneath them.
	e.Use(middleware.RequestID(d.Log))
	e.Use(middleware.AccessLog)
	e.Use(d.Metrics.Middleware)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	// Leave headroom over the upload limit so oversize files reach the
	// uploader and get a 400 instead of a bare 413.
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", d.MaxUploadBytes+1<<20)))

	RegisterRoutes(e, d)
	g := e.Group(d.Prefix)
	RegisterAuth(g, d)
	RegisterUser(g, d)
	RegisterProperties(g, d)
	return e
}

// RegisterRoutes registers routes that do not require authentication:
// probes, metrics and signed file downloads.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(d.Probes...))
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	if d.Files != nil {
		// Access is granted by the signed token in the query string.
		e.GET(d.Prefix+"/files/*", d.Files.Get)
	}
}

// RegisterAuth registers signup/signin (public) and signout (protected).
func RegisterAuth(g *echo.Group, d Deps) {
	g.POST("/signup", d.Auth.Signup)
	g.POST("/signin", d.Auth.Signin)
	g.POST("/signout", d.Auth.Signout, middleware.BearerAuth(d.Authenticator))
}

// RegisterUser registers the profile and upload endpoints. All of them
// require a valid access token.
func RegisterUser(g *echo.Group, d Deps) {
	auth := middleware.BearerAuth(d.Authenticator)
	g.GET("/user", d.Users.Get, auth)
	g.PUT("/user/profile", d.Users.UpdateProfile, auth)
	g.PUT("/user/profile-picture", d.Users.SetProfilePicture, auth)
	g.POST("/upload-image", d.Uploads.Upload, auth)
}

// RegisterProperties registers listing creation and search.
func RegisterProperties(g *echo.Group, d Deps) {
	auth := middleware.BearerAuth(d.Authenticator)
	g.POST("/property", d.Properties.Create, auth)
	g.GET("/properties", d.Properties.List, auth)
	g.GET("/user-properties", d.Properties.ListMine, auth)
}
