package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/rental-listing/internal/apperr"
	"github.com/iliyamo/rental-listing/internal/model"
	"github.com/iliyamo/rental-listing/internal/repository"
	"github.com/iliyamo/rental-listing/internal/service"
	"github.com/iliyamo/rental-listing/internal/validate"
)

// Gateway couples the identity provider with the user records. Every error
// it returns is an *apperr.Error.
type Gateway struct {
	Provider     Provider
	Users        *repository.UserRepo
	Events       service.Publisher
	Log          *zap.Logger
	HandleDomain string
	Now          func() time.Time
}

func NewGateway(p Provider, users *repository.UserRepo, events service.Publisher, log *zap.Logger, domain string) *Gateway {
	if events == nil {
		events = service.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{Provider: p, Users: users, Events: events, Log: log, HandleDomain: domain, Now: time.Now}
}

// SigninResult is what a successful sign-in hands back to the client.
type SigninResult struct {
	AccessToken string     `json:"accessToken"`
	User        model.User `json:"user"`
}

// Signup creates the provider account and then the profile record. The two
// writes are not atomic: if the profile write fails the account stays behind
// and the failure is logged.
func (g *Gateway) Signup(ctx context.Context, in validate.SignupInput) (string, error) {
	if blank(in.Username, in.Location, in.PhoneNumber, in.NIDNumber, in.UserType, in.Password) {
		return "", apperr.NewValidation("All fields are required")
	}
	if errs := validate.Signup(in); errs.HasErrors() {
		return "", apperr.NewValidation(errs.First())
	}

	username := strings.TrimSpace(in.Username)
	userID, err := g.Provider.CreateAccount(ctx, LoginHandle(username, g.HandleDomain), in.Password, username)
	if err != nil {
		return "", providerError(err, "Failed to create account").WithStatus(http.StatusBadRequest)
	}

	user := model.User{
		UserID:      userID,
		Username:    username,
		Location:    strings.TrimSpace(in.Location),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		NIDNumber:   strings.TrimSpace(in.NIDNumber),
		UserType:    model.UserType(in.UserType),
		JoinedDate:  g.Now().UTC(),
	}
	if err := g.Users.Create(ctx, user); err != nil {
		g.Log.Error("signup: account created without profile record",
			zap.String("user_id", userID), zap.Error(err))
		return "", apperr.Wrap(apperr.Internal, "Failed to save user data", err)
	}

	if err := service.PublishUserRegistered(ctx, g.Events, user); err != nil {
		g.Log.Warn("signup: publish user.registered failed", zap.String("user_id", userID), zap.Error(err))
	}
	return userID, nil
}

// Signin checks the credentials and loads the profile record.
func (g *Gateway) Signin(ctx context.Context, username, password string) (SigninResult, error) {
	if errs := validate.Signin(username, password); errs.HasErrors() {
		return SigninResult{}, apperr.NewValidation(errs.First())
	}

	sess, err := g.Provider.SignInWithPassword(ctx, LoginHandle(username, g.HandleDomain), password)
	if errors.Is(err, ErrInvalidCredentials) {
		return SigninResult{}, apperr.Unauthorized("Invalid username or password")
	}
	if err != nil {
		return SigninResult{}, apperr.Wrap(apperr.Identity, "Sign in failed", err)
	}

	user, err := g.Users.Get(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return SigninResult{}, apperr.NewNotFound("User data not found")
	}
	if err != nil {
		return SigninResult{}, apperr.Wrap(apperr.Internal, "Failed to load user data", err)
	}
	return SigninResult{AccessToken: sess.AccessToken, User: user}, nil
}

// Signout ends every session of the token's owner.
func (g *Gateway) Signout(ctx context.Context, token string) error {
	userID := g.Authenticate(ctx, token)
	if userID == "" {
		return apperr.Unauthorized("Unauthorized")
	}
	if err := g.Provider.SignOut(ctx, userID); err != nil {
		return apperr.Wrap(apperr.Identity, "Failed to sign out", err)
	}
	return nil
}

// Authenticate returns the user id a token belongs to, or "" when the token
// is missing, malformed, expired or revoked.
func (g *Gateway) Authenticate(ctx context.Context, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	userID, err := g.Provider.GetUser(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidSession) {
			g.Log.Warn("authenticate: provider lookup failed", zap.Error(err))
		}
		return ""
	}
	return userID
}

// providerError keeps client-facing provider messages and hides the rest.
func providerError(err error, fallback string) *apperr.Error {
	for _, known := range []error{ErrEmailExists, ErrWeakPassword, ErrPasswordTooLong, ErrInvalidCredentials} {
		if errors.Is(err, known) {
			return apperr.Wrap(apperr.Identity, known.Error(), err)
		}
	}
	return apperr.Wrap(apperr.Identity, fallback, err)
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
