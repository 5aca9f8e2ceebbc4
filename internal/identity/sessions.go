package identity

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// SessionStore persists sessions by the hash of their id. Raw session ids
// only ever live inside signed access tokens.
type SessionStore interface {
	Create(ctx context.Context, userID, sessionHash string, exp time.Time) error
	// Active returns the owner of a session that is neither revoked nor expired.
	Active(ctx context.Context, sessionHash string) (userID string, err error)
	RevokeAllForUser(ctx context.Context, userID string) error
}

const SessionsSchema = `CREATE TABLE IF NOT EXISTS sessions (
	id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	user_id      CHAR(36)        NOT NULL,
	session_hash CHAR(64)        NOT NULL,
	expires_at   DATETIME        NOT NULL,
	revoked_at   DATETIME        NULL,
	created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_sessions_hash (session_hash),
	KEY idx_sessions_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// MySQLSessions persists sessions (single 'session_hash' column).
type MySQLSessions struct{ DB *sql.DB }

func NewMySQLSessions(db *sql.DB) *MySQLSessions { return &MySQLSessions{DB: db} }

// Create inserts a session hash row.
func (r *MySQLSessions) Create(ctx context.Context, userID, sessionHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, session_hash, expires_at) VALUES (?,?,?)",
		userID, sessionHash, exp.UTC())
	return err
}

// Active returns userID if a non-revoked, non-expired session exists.
func (r *MySQLSessions) Active(ctx context.Context, sessionHash string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM sessions WHERE session_hash=? LIMIT 1",
		sessionHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidSession
	}
	if err != nil {
		return "", err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return "", ErrInvalidSession
	}
	return userID, nil
}

// RevokeAllForUser revokes all user's active sessions.
func (r *MySQLSessions) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

type memorySession struct {
	userID  string
	exp     time.Time
	revoked bool
}

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu     sync.Mutex
	byHash map[string]*memorySession
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{byHash: make(map[string]*memorySession)}
}

func (m *MemorySessions) Create(_ context.Context, userID, sessionHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[sessionHash] = &memorySession{userID: userID, exp: exp}
	return nil
}

func (m *MemorySessions) Active(_ context.Context, sessionHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byHash[sessionHash]
	if !ok || s.revoked || time.Now().After(s.exp) {
		return "", ErrInvalidSession
	}
	return s.userID, nil
}

func (m *MemorySessions) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byHash {
		if s.userID == userID {
			s.revoked = true
		}
	}
	return nil
}
