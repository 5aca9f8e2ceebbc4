package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Account mirrors the 'accounts' table.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// AccountStore persists accounts keyed by a unique email handle.
type AccountStore interface {
	Create(ctx context.Context, a Account) error
	GetByEmail(ctx context.Context, email string) (Account, error)
}

const AccountsSchema = `CREATE TABLE IF NOT EXISTS accounts (
	id            CHAR(36)     NOT NULL PRIMARY KEY,
	email         VARCHAR(320) NOT NULL,
	username      VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uq_accounts_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

type MySQLAccounts struct{ DB *sql.DB }

func NewMySQLAccounts(db *sql.DB) *MySQLAccounts { return &MySQLAccounts{DB: db} }

// Create inserts the account. A duplicate email maps to ErrEmailExists.
func (r *MySQLAccounts) Create(ctx context.Context, a Account) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (id, email, username, password_hash, created_at) VALUES (?,?,?,?,?)",
		a.ID, normalizeEmail(a.Email), a.Username, a.PasswordHash, a.CreatedAt)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches an account by normalized email.
func (r *MySQLAccounts) GetByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,username,password_hash,created_at FROM accounts WHERE email=? LIMIT 1",
		normalizeEmail(email)).Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// MemoryAccounts keeps accounts in process memory.
type MemoryAccounts struct {
	mu      sync.Mutex
	byEmail map[string]Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byEmail: make(map[string]Account)}
}

func (m *MemoryAccounts) Create(_ context.Context, a Account) error {
	a.Email = normalizeEmail(a.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return ErrEmailExists
	}
	m.byEmail[a.Email] = a
	return nil
}

func (m *MemoryAccounts) GetByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
