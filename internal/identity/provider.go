// Package identity authenticates users. The Gateway is what handlers talk
// to; the Provider behind it owns accounts and sessions.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
)

// DefaultHandleDomain is appended to usernames to form login handles.
const DefaultHandleDomain = "rental.local"

var (
	// Messages of these errors are shown to clients as-is.
	ErrEmailExists        = errors.New("User already registered")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrWeakPassword       = errors.New("Password should be at least 6 characters")
	ErrPasswordTooLong    = errors.New("Password should be at most 72 characters")

	ErrInvalidSession  = errors.New("invalid session")
	ErrAccountNotFound = errors.New("account not found")
)

// Session is the result of a successful password sign-in.
type Session struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// Provider is the account backend. Accounts created through it are usable
// immediately; there is no confirmation step.
type Provider interface {
	CreateAccount(ctx context.Context, handle, password, username string) (userID string, err error)
	SignInWithPassword(ctx context.Context, handle, password string) (Session, error)
	// GetUser resolves an access token to the user id it was issued for.
	GetUser(ctx context.Context, token string) (userID string, err error)
	// SignOut ends every session of the user.
	SignOut(ctx context.Context, userID string) error
}

// LoginHandle turns a username into the email-shaped handle the provider
// expects: lower-cased, all whitespace removed, followed by @domain.
func LoginHandle(username, domain string) string {
	if domain == "" {
		domain = DefaultHandleDomain
	}
	var b strings.Builder
	for _, r := range strings.ToLower(username) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String() + "@" + domain
}
