package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/rental-listing/internal/utils"
)

// Local is a self-hosted Provider: bcrypt password hashes in an
// AccountStore, server-side sessions in a SessionStore and HS256 access
// tokens that name both the user and the session.
type Local struct {
	Accounts   AccountStore
	Sessions   SessionStore
	Secret     string
	TTL        time.Duration
	BcryptCost int
	Now        func() time.Time
}

func NewLocal(accounts AccountStore, sessions SessionStore, secret string, ttl time.Duration, cost int) *Local {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Local{
		Accounts:   accounts,
		Sessions:   sessions,
		Secret:     secret,
		TTL:        ttl,
		BcryptCost: cost,
		Now:        time.Now,
	}
}

func (l *Local) CreateAccount(ctx context.Context, handle, password, username string) (string, error) {
	if len(password) < 6 {
		return "", ErrWeakPassword
	}
	hash, err := utils.HashPassword(password, l.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	id := uuid.NewString()
	err = l.Accounts.Create(ctx, Account{
		ID:           id,
		Email:        handle,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    l.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (l *Local) SignInWithPassword(ctx context.Context, handle, password string) (Session, error) {
	acc, err := l.Accounts.GetByEmail(ctx, handle)
	if errors.Is(err, ErrAccountNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load account: %w", err)
	}
	if !utils.VerifyPassword(acc.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	sid := uuid.NewString()
	access, err := utils.NewAccessToken(l.Secret, acc.ID, sid, l.TTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue access token: %w", err)
	}
	if err := l.Sessions.Create(ctx, acc.ID, utils.HashToken(sid), access.Exp); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return Session{UserID: acc.ID, AccessToken: access.Token, ExpiresAt: access.Exp}, nil
}

// GetUser accepts a token only while its session is still active, so
// signing out invalidates tokens that have not yet expired.
func (l *Local) GetUser(ctx context.Context, token string) (string, error) {
	claims, err := utils.ParseAccessToken(l.Secret, token)
	if err != nil {
		return "", ErrInvalidSession
	}
	owner, err := l.Sessions.Active(ctx, utils.HashToken(claims.SessionID))
	if err != nil {
		return "", err
	}
	if owner != claims.Subject {
		return "", ErrInvalidSession
	}
	return owner, nil
}

func (l *Local) SignOut(ctx context.Context, userID string) error {
	return l.Sessions.RevokeAllForUser(ctx, userID)
}
