// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/klauspost/compress/zstd"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// compressionThreshold is the value size above which SQLite values are
// stored zstd-compressed. Small values (ordinals, event-id pointers,
// membership markers) stay raw; event bodies and state payloads
// usually compress 3-5x.
const compressionThreshold = 256

// Value tag bytes. Every stored value is prefixed with one tag byte.
// These are format constants — changing them breaks existing
// databases.
const (
	valueRaw  byte = 0
	valueZstd byte = 2
)

// SQLiteConfig holds the parameters for opening a SQLite-backed store.
// Path is required; all other fields have defaults.
type SQLiteConfig struct {
	// Path is the filesystem path to the database file. The parent
	// directory must exist; the file is created if absent.
	Path string

	// PoolSize is the number of pooled connections. If zero or
	// negative, defaults to max(runtime.NumCPU(), 4). SQLite
	// serializes writes regardless; extra connections serve
	// concurrent readers.
	PoolSize int

	// Logger receives operational messages (open/close). If nil, a
	// no-op logger is used.
	Logger *slog.Logger
}

// SQLite is the durable ordered store: one kv table ordered by its
// BLOB primary key, one counters table for atomic sequences, pooled
// connections with WAL mode, and transparent zstd compression of
// large values.
//
// SQLite is safe for concurrent use. Individual connections are not;
// each operation takes its own connection from the pool.
type SQLite struct {
	pool       *sqlitex.Pool
	logger     *slog.Logger
	path       string
	compressor *zstd.Encoder
	expander   *zstd.Decoder
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS counters (
	name  BLOB PRIMARY KEY,
	value INTEGER NOT NULL
) WITHOUT ROWID;
`

// OpenSQLite opens (creating if necessary) a SQLite-backed store.
// The caller must Close the store when done.
func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", cfg.Path, err)
	}

	compressor, err := zstd.NewWriter(nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: initializing zstd encoder: %w", err)
	}
	expander, err := zstd.NewReader(nil)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: initializing zstd decoder: %w", err)
	}

	logger.Info("sqlite store opened", "path", cfg.Path, "pool_size", poolSize)

	return &SQLite{
		pool:       pool,
		logger:     logger,
		path:       cfg.Path,
		compressor: compressor,
		expander:   expander,
	}, nil
}

// prepareConnection applies standard pragmas and creates the schema.
// Runs once per pooled connection, on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("storage: creating schema: %w", err)
	}
	return nil
}

// encodeValue prefixes value with a tag byte, compressing when the
// payload is large enough to benefit.
func (s *SQLite) encodeValue(value []byte) []byte {
	if len(value) < compressionThreshold {
		return append([]byte{valueRaw}, value...)
	}
	compressed := s.compressor.EncodeAll(value, []byte{valueZstd})
	if len(compressed) >= len(value)+1 {
		// Incompressible payload; store raw.
		return append([]byte{valueRaw}, value...)
	}
	return compressed
}

// decodeValue reverses encodeValue.
func (s *SQLite) decodeValue(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("storage: empty stored value")
	}
	switch stored[0] {
	case valueRaw:
		return stored[1:], nil
	case valueZstd:
		value, err := s.expander.DecodeAll(stored[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("storage: decompressing value: %w", err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("storage: unknown value tag %d", stored[0])
	}
}

// withConn runs fn with a pooled connection.
func (s *SQLite) withConn(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("storage: take connection: %w", err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// columnBlob copies the blob in column col of the current result row.
func columnBlob(stmt *sqlite.Stmt, col int) []byte {
	buf := make([]byte, stmt.ColumnLen(col))
	stmt.ColumnBytes(col, buf)
	return buf
}

// Get returns the value stored under key.
func (s *SQLite) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	var value []byte
	found := false
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT value FROM kv WHERE key = ?`, &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				decoded, err := s.decodeValue(columnBlob(stmt, 0))
				if err != nil {
					return err
				}
				value = decoded
				found = true
				return nil
			},
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("storage: get: %w", err)
	}
	return value, found, nil
}

// Insert stores value under key, replacing any existing value.
func (s *SQLite) Insert(ctx context.Context, key, value []byte) error {
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			&sqlitex.ExecOptions{Args: []any{key, s.encodeValue(value)}})
	})
	if err != nil {
		return fmt.Errorf("storage: insert: %w", err)
	}
	return nil
}

// Remove deletes the entry under key, if present.
func (s *SQLite) Remove(ctx context.Context, key []byte) error {
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `DELETE FROM kv WHERE key = ?`,
			&sqlitex.ExecOptions{Args: []any{key}})
	})
	if err != nil {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

// probe runs a single-row ordered query and decodes the result.
func (s *SQLite) probe(ctx context.Context, query string, args []any) (Entry, bool, error) {
	var entry Entry
	found := false
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value, err := s.decodeValue(columnBlob(stmt, 1))
				if err != nil {
					return err
				}
				entry = Entry{Key: columnBlob(stmt, 0), Value: value}
				found = true
				return nil
			},
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("storage: ordered probe: %w", err)
	}
	return entry, found, nil
}

// NextGreater returns the first entry with key strictly greater than key.
func (s *SQLite) NextGreater(ctx context.Context, key []byte) (Entry, bool, error) {
	return s.probe(ctx,
		`SELECT key, value FROM kv WHERE key > ? ORDER BY key ASC LIMIT 1`,
		[]any{key})
}

// NextLess returns the last entry with key strictly less than key.
func (s *SQLite) NextLess(ctx context.Context, key []byte) (Entry, bool, error) {
	return s.probe(ctx,
		`SELECT key, value FROM kv WHERE key < ? ORDER BY key DESC LIMIT 1`,
		[]any{key})
}

// ScanPrefix returns all entries whose keys start with prefix, in
// ascending key order.
func (s *SQLite) ScanPrefix(ctx context.Context, prefix []byte) ([]Entry, error) {
	query := `SELECT key, value FROM kv WHERE key >= ? ORDER BY key ASC`
	args := []any{prefix}
	if upper, ok := prefixUpperBound(prefix); ok {
		query = `SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key ASC`
		args = []any{prefix, upper}
	}

	var entries []Entry
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value, err := s.decodeValue(columnBlob(stmt, 1))
				if err != nil {
					return err
				}
				entries = append(entries, Entry{Key: columnBlob(stmt, 0), Value: value})
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("storage: scan prefix: %w", err)
	}
	return entries, nil
}

// LastInPrefix returns the entry with the largest key starting with
// prefix.
func (s *SQLite) LastInPrefix(ctx context.Context, prefix []byte) (Entry, bool, error) {
	if upper, ok := prefixUpperBound(prefix); ok {
		return s.probe(ctx,
			`SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key DESC LIMIT 1`,
			[]any{prefix, upper})
	}
	return s.probe(ctx,
		`SELECT key, value FROM kv WHERE key >= ? ORDER BY key DESC LIMIT 1`,
		[]any{prefix})
}

// IncrementAndFetch atomically increments the named counter and
// returns the new value. The upsert executes as a single statement, so
// concurrent callers on different connections serialize on SQLite's
// write lock and each observe a distinct value.
func (s *SQLite) IncrementAndFetch(ctx context.Context, key []byte) (uint64, error) {
	var value uint64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`INSERT INTO counters (name, value) VALUES (?, 1)
			 ON CONFLICT (name) DO UPDATE SET value = value + 1
			 RETURNING value`,
			&sqlitex.ExecOptions{
				Args: []any{key},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					value = uint64(stmt.ColumnInt64(0))
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("storage: increment counter: %w", err)
	}
	return value, nil
}

// Counter returns the current value of the named counter without
// incrementing it.
func (s *SQLite) Counter(ctx context.Context, key []byte) (uint64, error) {
	var value uint64
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT value FROM counters WHERE name = ?`,
			&sqlitex.ExecOptions{
				Args: []any{key},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					value = uint64(stmt.ColumnInt64(0))
					return nil
				},
			})
	})
	if err != nil {
		return 0, fmt.Errorf("storage: read counter: %w", err)
	}
	return value, nil
}

// Close closes the connection pool and compression codecs. Blocks
// until all borrowed connections are returned.
func (s *SQLite) Close() error {
	s.compressor.Close()
	s.expander.Close()
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite store close error", "path", s.path, "error", err)
		return fmt.Errorf("storage: closing %s: %w", s.path, err)
	}
	s.logger.Info("sqlite store closed", "path", s.path)
	return nil
}
