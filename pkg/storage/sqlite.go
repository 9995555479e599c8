package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/lumenshop/searchkit/pkg/log"
)

var sqliteLogger = log.ForComponent("storage")

// SQLiteStore is the durable Store backend, a single kv table in a sqlite
// database file. A MaxBytes quota of 0 disables quota enforcement.
type SQLiteStore struct {
	db       *sql.DB
	maxBytes int64
}

// NewSQLiteStore opens (creating if needed) the kv database at dbPath.
// maxBytes bounds the total stored value size; writes that would exceed it
// fail with ErrQuotaExceeded.
func NewSQLiteStore(dbPath string, maxBytes int64) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &SQLiteStore{db: db, maxBytes: maxBytes}, nil
}

func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key string, value []byte) error {
	if s.maxBytes > 0 {
		used, err := s.usedBytesExcluding(key)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	_, err := s.db.Exec("INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	query := "SELECT key FROM kv ORDER BY key"
	var args []interface{}
	if prefix != "" {
		query = "SELECT key FROM kv WHERE key >= ? AND key < ? ORDER BY key"
		args = []interface{}{prefix, prefix + "￿"}
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("enumerating keys: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			sqliteLogger.Warnf("closing rows: %v", err)
		}
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// usedBytesExcluding sums stored value sizes ignoring key, which a Set is
// about to replace anyway.
func (s *SQLiteStore) usedBytesExcluding(key string) (int64, error) {
	var used sql.NullInt64
	err := s.db.QueryRow(
		"SELECT SUM(LENGTH(value)) FROM kv WHERE key != ?", key).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("computing used bytes: %w", err)
	}
	return used.Int64, nil
}
