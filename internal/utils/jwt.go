package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA‑256 hashing for session ids
	"encoding/hex"  // hex encoding of digests
	"errors"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned for any token that fails parsing, signature or
// expiry checks. Callers never need to know which check failed.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string that clients send back in the
// Authorization header. Exp stores the expiration timestamp.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims are the claims of an access token. The subject is the user
// id and the session id ties the token to a revocable server-side session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewAccessToken builds and signs an HS256 JWT for a user session. The JWT
// includes sub (user id), sid (session id), exp and iat.
func NewAccessToken(secret, userID, sessionID string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies the signature and expiry of raw and returns its
// claims. Tokens signed with anything but HMAC are rejected.
func ParseAccessToken(secret, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, hmacKey(secret), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || claims.Subject == "" || claims.SessionID == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// ObjectClaims grant read access to a single stored object until expiry.
type ObjectClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// NewObjectToken signs a short credential allowing a download of key.
func NewObjectToken(secret, key string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := ObjectClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseObjectToken returns the object key a valid token grants access to.
func ParseObjectToken(secret, raw string) (string, error) {
	var claims ObjectClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, hmacKey(secret), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || claims.Key == "" {
		return "", ErrInvalidToken
	}
	return claims.Key, nil
}

// hmacKey supplies the signing key and rejects non-HMAC algorithms.
func hmacKey(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}
}

// HashToken returns the SHA‑256 hash of a raw secret as a hex string. Only
// hashes of session ids are stored so a leaked sessions table cannot be
// replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
