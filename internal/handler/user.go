package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-listing/internal/apperr"
	"github.com/iliyamo/rental-listing/internal/middleware"
	"github.com/iliyamo/rental-listing/internal/model"
	"github.com/iliyamo/rental-listing/internal/repository"
	"github.com/iliyamo/rental-listing/internal/validate"
)

// UserHandler serves the current user's profile.
type UserHandler struct {
	Users *repository.UserRepo
}

func NewUserHandler(users *repository.UserRepo) *UserHandler {
	return &UserHandler{Users: users}
}

type profilePictureReq struct {
	ImageURL string `json:"imageUrl"`
}

// Get returns the profile of the authenticated user.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, userErr(err), "Internal server error while fetching user")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// UpdateProfile merges the supplied fields into the stored profile. Absent
// or empty fields keep their value.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var upd model.ProfileUpdate
	if err := bindStrict(c, &upd); err != nil {
		return fail(c, err, "Internal server error while updating profile")
	}
	if errs := validate.ProfileUpdate(upd); errs.HasErrors() {
		return fail(c, apperr.NewValidation(errs.First()), "")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, middleware.UserID(c), upd)
	if err != nil {
		return fail(c, userErr(err), "Internal server error while updating profile")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// SetProfilePicture stores an already uploaded image URL on the profile.
func (h *UserHandler) SetProfilePicture(c echo.Context) error {
	var req profilePictureReq
	if err := bindStrict(c, &req); err != nil {
		return fail(c, err, "Internal server error while updating profile picture")
	}
	if errs := validate.ProfilePicture(req.ImageURL); errs.HasErrors() {
		return fail(c, apperr.NewValidation(errs.First()), "")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.SetProfilePicture(ctx, middleware.UserID(c), req.ImageURL)
	if err != nil {
		return fail(c, userErr(err), "Internal server error while updating profile picture")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// userErr maps record-layer errors to the client-facing taxonomy.
func userErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NewNotFound("User data not found")
	case errors.Is(err, repository.ErrConflict):
		return apperr.Wrap(apperr.Internal, "Profile is being updated concurrently, please retry", err).
			WithStatus(http.StatusConflict)
	default:
		return err
	}
}
