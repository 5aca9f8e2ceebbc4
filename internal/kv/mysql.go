package kv

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQLSchema creates the table backing the MySQL store. Values are kept as
// LONGTEXT rather than JSON so the bytes read back are exactly the bytes
// written, which CompareAndSwap depends on.
const MySQLSchema = "CREATE TABLE IF NOT EXISTS kv_store (" +
	"`key` VARCHAR(255) NOT NULL PRIMARY KEY, " +
	"value LONGTEXT NOT NULL, " +
	"updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

const upsertSQL = "INSERT INTO kv_store (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)"

const claimIndexSQL = "INSERT INTO kv_store (`key`, value) VALUES (?, '[]') ON DUPLICATE KEY UPDATE value = value"

// MySQL keeps every key as one row of the kv_store table.
type MySQL struct{ DB *sql.DB }

func NewMySQL(db *sql.DB) *MySQL { return &MySQL{DB: db} }

func (s *MySQL) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.DB.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE `key`=? LIMIT 1", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql get %s: %w", key, err)
	}
	return v, nil
}

func (s *MySQL) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := "SELECT `key`, value FROM kv_store WHERE `key` IN (?" + strings.Repeat(",?", len(keys)-1) + ")"
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql mget: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(keys))
	for rows.Next() {
		var (
			k string
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("mysql mget scan: %w", err)
		}
		found[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql mget: %w", err)
	}
	for i, k := range keys {
		out[i] = found[k]
	}
	return out, nil
}

func (s *MySQL) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.DB.ExecContext(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("mysql set %s: %w", key, err)
	}
	return nil
}

func (s *MySQL) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM kv_store WHERE `key`=?", key); err != nil {
		return fmt.Errorf("mysql delete %s: %w", key, err)
	}
	return nil
}

func (s *MySQL) CompareAndSwap(ctx context.Context, key string, prev, next []byte) error {
	if prev == nil {
		// Insert straight away: a locking read on an absent row only takes a
		// gap lock, and two creators holding it deadlock on their inserts.
		_, err := s.DB.ExecContext(ctx, "INSERT INTO kv_store (`key`, value) VALUES (?, ?)", key, next)
		if isDuplicate(err) || isDeadlock(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("mysql create %s: %w", key, err)
		}
		return nil
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, exists, err := lockRow(ctx, tx, key)
		if err != nil {
			return err
		}
		if !exists || !bytes.Equal(cur, prev) {
			return ErrConflict
		}
		_, err = tx.ExecContext(ctx, "UPDATE kv_store SET value=? WHERE `key`=?", next, key)
		return err
	})
	if isDeadlock(err) {
		return ErrConflict
	}
	return err
}

func (s *MySQL) PutIndexed(ctx context.Context, key string, value []byte, id string, indexKeys ...string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertSQL, key, value); err != nil {
			return err
		}
		for _, ik := range indexKeys {
			// Creating a missing list through the upsert takes the row lock
			// directly; a locking read on an absent row only takes a gap lock
			// and two concurrent first appends would deadlock.
			if _, err := tx.ExecContext(ctx, claimIndexSQL, ik); err != nil {
				return err
			}
			raw, _, err := lockRow(ctx, tx, ik)
			if err != nil {
				return err
			}
			ids, err := decodeIndex(ik, raw)
			if err != nil {
				return err
			}
			ids, changed := appendUnique(ids, id)
			if !changed {
				continue
			}
			enc, err := jsonList(ids)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, upsertSQL, ik, enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *MySQL) Close() error { return s.DB.Close() }

// inTx runs fn in a transaction, committing on success and rolling back on
// any error.
func (s *MySQL) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mysql begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("mysql tx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql commit: %w", err)
	}
	return nil
}

func lockRow(ctx context.Context, tx *sql.Tx, key string) ([]byte, bool, error) {
	var v []byte
	err := tx.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE `key`=? FOR UPDATE", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isDeadlock reports InnoDB rolling the transaction back to break a deadlock.
func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1213
}
