package handler

import (
	"net/http" // HTTP status codes and primitives

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/rental-listing/internal/identity"   // identity gateway
	"github.com/iliyamo/rental-listing/internal/metrics"    // domain counters
	"github.com/iliyamo/rental-listing/internal/middleware" // authenticated request helpers
	"github.com/iliyamo/rental-listing/internal/validate"   // shared input rules
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Gateway *identity.Gateway
	Metrics *metrics.Metrics
}

func NewAuthHandler(g *identity.Gateway, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{Gateway: g, Metrics: m}
}

// ----- DTOs -----

type signupReq struct {
	Username        string `json:"username"`
	Location        string `json:"location"`
	PhoneNumber     string `json:"phoneNumber"`
	NIDNumber       string `json:"nidNumber"`
	UserType        string `json:"userType"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

type signinReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup: create the account and the profile record.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bindStrict(c, &req); err != nil {
		return fail(c, err, "Internal server error during signup")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	userID, err := h.Gateway.Signup(ctx, validate.SignupInput(req))
	if err != nil {
		return fail(c, err, "Internal server error during signup")
	}
	h.Metrics.SignupsTotal.Inc()

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "User created successfully",
		"userId":  userID,
	})
}

// Signin: verify credentials and return the access token with the profile.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinReq
	if err := bindStrict(c, &req); err != nil {
		return fail(c, err, "Internal server error during signin")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.Gateway.Signin(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err, "Internal server error during signin")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"accessToken": res.AccessToken,
		"user":        res.User,
	})
}

// Signout: end every session of the current user (protected).
func (h *AuthHandler) Signout(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Gateway.Signout(ctx, middleware.AccessToken(c)); err != nil {
		return fail(c, err, "Internal server error during signout")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
