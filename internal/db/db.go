package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// cursorTimeFormat matches the millisecond-resolution strftime defaults on
// the append-only ledgers, so `created_at > ?` cursors compare lexically.
const cursorTimeFormat = "2006-01-02T15:04:05.000Z"

type DB struct {
	*sql.DB
}

func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return db, nil
}

// OpenMemory opens a private in-memory database, used by tests.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file:veragraph?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening memory database: %w", err)
	}
	// A single connection keeps the shared-cache memory DB alive and
	// serialises writers the way the on-disk WAL database does.
	sqlDB.SetMaxOpenConns(1)
	db := &DB{sqlDB}
	if err := db.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating memory database: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.Exec(schema)
	return err
}

// Queryer is the query surface shared by *sql.DB and *sql.Tx. Snapshot reads
// and derived-record writes take a Queryer so they run inside the caller's
// transaction.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// busyRetries bounds the SQLITE_BUSY retry loop for concurrent writers.
const busyRetries = 5

// IsBusy reports whether err is a SQLITE_BUSY / locked-database error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// InTx runs fn inside a transaction, retrying the whole unit on SQLITE_BUSY.
// The loser of a lock race recomputes from the fresh snapshot on retry;
// recomputation is idempotent, so conflicts never surface to callers.
func (db *DB) InTx(fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		err = db.txOnce(fn)
		if err == nil || !IsBusy(err) {
			return err
		}
		time.Sleep(time.Duration(10*(attempt+1)) * time.Millisecond)
	}
	return err
}

func (db *DB) txOnce(fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
