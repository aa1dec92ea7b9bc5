package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	memoryConnectionString = ":memory:"
	defaultMaxConnections  = 5
	sqliteFileParams       = "_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(1)"
	sqliteWriteParams      = sqliteFileParams + "&_txlock=immediate"
	sqliteMemoryParams     = "_pragma=foreign_keys(1)"
)

var ErrUnknownLookupTable = errors.New("unknown lookup table")

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS Bicmid (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		value TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS Bicmid_value ON Bicmid (value)`,
	`INSERT OR IGNORE INTO Bicmid (id, value) VALUES (0, '')`,
	`CREATE TABLE IF NOT EXISTS UrlOrigin (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		value TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS UrlOrigin_value ON UrlOrigin (value)`,
	`INSERT OR IGNORE INTO UrlOrigin (id, value) VALUES (0, '')`,
	`CREATE TABLE IF NOT EXISTS Cat (
		id INTEGER PRIMARY KEY,
		bicmid_id INTEGER NOT NULL REFERENCES Bicmid (id),
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		url_origin_id INTEGER NOT NULL REFERENCES UrlOrigin (id),
		url_path TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS Cat_bicmid_id ON Cat (bicmid_id)`,
}

// SQLiteDatabase writes through db, whose transactions begin IMMEDIATE, and
// reads through readDB, whose deferred transactions read the WAL snapshot
// without waiting on an open writer. Both are the same pool for :memory:.
type SQLiteDatabase struct {
	db               *sql.DB
	readDB           *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string, maxConnections int) (*SQLiteDatabase, error) {
	if connectionString == "" {
		return nil, errors.New("sqlite connection string is empty")
	}
	if maxConnections <= 0 {
		maxConnections = defaultMaxConnections
	}

	inMemory := connectionString == memoryConnectionString
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(connectionString), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	if inMemory {
		db, err := sql.Open("sqlite", sqliteDSN(connectionString, sqliteMemoryParams))
		if err != nil {
			return nil, err
		}
		// every connection to :memory: opens its own empty database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return &SQLiteDatabase{
			db:               db,
			readDB:           db,
			connectionString: connectionString,
		}, nil
	}

	db, err := sql.Open("sqlite", sqliteDSN(connectionString, sqliteWriteParams))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxConnections)
	db.SetMaxIdleConns(maxConnections)

	readDB, err := sql.Open("sqlite", sqliteDSN(connectionString, sqliteFileParams))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	readDB.SetMaxOpenConns(maxConnections)
	readDB.SetMaxIdleConns(maxConnections)

	return &SQLiteDatabase{
		db:               db,
		readDB:           readDB,
		connectionString: connectionString,
	}, nil
}

func sqliteDSN(connectionString string, params string) string {
	separator := "?"
	if strings.Contains(connectionString, "?") {
		separator = "&"
	}
	return connectionString + separator + params
}

func (s *SQLiteDatabase) CreateDatabase(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, statement := range schemaStatements {
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("failed to apply schema statement: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteDatabase) Close() error {
	var errs []error
	if s.readDB != nil && s.readDB != s.db {
		errs = append(errs, s.readDB.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) LookupOrInsert(ctx context.Context, table LookupTable, value string) (id int64, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id, err = lookupOrInsert(ctx, tx, table, value)
		return err
	})
	return id, err
}

func (s *SQLiteDatabase) ListCats(ctx context.Context, bicmid string, offset int) ([]*Cat, error) {
	if offset < 0 {
		return nil, fmt.Errorf("negative offset %d", offset)
	}

	var cats []*Cat
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT Cat.id, UrlOrigin.value || Cat.url_path FROM Cat
			INNER JOIN Bicmid ON Cat.bicmid_id = Bicmid.id
			INNER JOIN UrlOrigin ON Cat.url_origin_id = UrlOrigin.id
			WHERE Bicmid.value = ?
			ORDER BY Cat.id DESC LIMIT ? OFFSET ?`, bicmid, PageSize, offset)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close() // Explicitly ignore error as rows.Err() reports iteration failures
		}()

		for rows.Next() {
			var cat Cat
			if err := rows.Scan(&cat.ID, &cat.URL); err != nil {
				return err
			}
			cats = append(cats, &cat)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cats: %w", err)
	}
	return cats, nil
}

func (s *SQLiteDatabase) CountCats(ctx context.Context, bicmid string) (int, error) {
	var count int
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT count(*) FROM Cat
			INNER JOIN Bicmid ON Cat.bicmid_id = Bicmid.id
			WHERE Bicmid.value = ?`, bicmid).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count cats: %w", err)
	}
	return count, nil
}

func (s *SQLiteDatabase) DeleteCat(ctx context.Context, bicmid string, id int64) (int64, error) {
	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM Cat
			WHERE id = ? AND bicmid_id = (SELECT id FROM Bicmid WHERE value = ?)`, id, bicmid)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete cat %d: %w", id, err)
	}
	return affected, nil
}

func (s *SQLiteDatabase) SaveCat(ctx context.Context, bicmid string, url string) (int64, error) {
	origin, path := SplitURL(url)

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		bicmidID, err := lookupOrInsert(ctx, tx, BicmidTable, bicmid)
		if err != nil {
			return err
		}
		originID, err := lookupOrInsert(ctx, tx, UrlOriginTable, origin)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `INSERT INTO Cat (bicmid_id, url_origin_id, url_path) VALUES (?, ?, ?)`,
			bicmidID, originID, path)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save cat: %w", err)
	}
	return id, nil
}

// lookupOrInsert must run inside a write transaction. The unique index on
// value turns a concurrent duplicate insert into a no-op, after which the
// winner's row is read back.
func lookupOrInsert(ctx context.Context, tx *sql.Tx, table LookupTable, value string) (int64, error) {
	if !table.valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLookupTable, table)
	}

	id, err := selectLookupID(ctx, tx, table, value)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up %s value: %w", table, err)
	}

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (value) VALUES (?) ON CONFLICT (value) DO NOTHING`, table), value)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s value: %w", table, err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if inserted == 0 {
		return selectLookupID(ctx, tx, table, value)
	}
	return result.LastInsertId()
}

func selectLookupID(ctx context.Context, tx *sql.Tx, table LookupTable, value string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE value = ?`, table), value).Scan(&id)
	return id, err
}

// withTx commits when fn succeeds and rolls back otherwise.
func (s *SQLiteDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// withReadTx always rolls back, reads never commit.
func (s *SQLiteDatabase) withReadTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
