package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/sessions"
	_ "modernc.org/sqlite"
)

const sqliteSessionParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)"

type sqlitePersister struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the session database at path.
func NewSQLiteStore(path string, options *sessions.Options, keyPairs ...[]byte) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+sqliteSessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY NOT NULL,
		data TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return newStore(&sqlitePersister{db: db, now: time.Now}, options, keyPairs...), nil
}

func (p *sqlitePersister) load(ctx context.Context, id string) (string, bool, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ? AND (expires_at = 0 OR expires_at > ?)`,
		id, p.now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return data, true, nil
}

func (p *sqlitePersister) save(ctx context.Context, id string, data string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = p.now().Add(ttl).Unix()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		id, data, expiresAt)
	return err
}

func (p *sqlitePersister) delete(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (p *sqlitePersister) deleteExpired(ctx context.Context) (int64, error) {
	result, err := p.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at != 0 AND expires_at <= ?`, p.now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (p *sqlitePersister) close() error {
	return p.db.Close()
}
