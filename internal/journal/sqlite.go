// internal/journal/sqlite.go
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the journal to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL: audit reads while the executor writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.Named("journal")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Debug("Journal opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS operations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			pool_address TEXT NOT NULL,
			pool_id      TEXT,
			operation    TEXT NOT NULL,
			signer       TEXT,
			amount       TEXT,
			outcome      TEXT NOT NULL,
			code         INTEGER,
			error        TEXT,
			data         BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_pool ON operations(pool_address, id)`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record appends e and returns its row id.
func (r *SQLiteRecorder) Record(ctx context.Context, e *Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO operations
		(timestamp, pool_address, pool_id, operation, signer, amount, outcome, code, error, data)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), e.PoolAddress.String(), e.PoolID, e.Operation, e.Signer.String(),
		strconv.FormatUint(e.Amount, 10), e.Outcome, e.Code, e.Error, e.Data,
	)
	if err != nil {
		return 0, fmt.Errorf("record operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	e.ID = id
	return id, nil
}

// Recent returns the newest entries for pool.
func (r *SQLiteRecorder) Recent(ctx context.Context, pool solana.PublicKey, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, timestamp, pool_address, pool_id, operation, signer, amount, outcome, code, error, data
		FROM operations WHERE pool_address = ? ORDER BY id DESC LIMIT ?`,
		pool.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                    Entry
			ts                   int64
			address, signer, amt string
			poolID, errMsg       sql.NullString
			code                 sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &ts, &address, &poolID, &e.Operation, &signer, &amt, &e.Outcome, &code, &errMsg, &e.Data); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.Time = time.Unix(ts, 0).UTC()
		e.PoolID = poolID.String
		e.Error = errMsg.String
		e.Code = int(code.Int64)
		if e.PoolAddress, err = solana.PublicKeyFromBase58(address); err != nil {
			return nil, fmt.Errorf("journal row %d: %w", e.ID, err)
		}
		if e.Signer, err = solana.PublicKeyFromBase58(signer); err != nil {
			return nil, fmt.Errorf("journal row %d: %w", e.ID, err)
		}
		if e.Amount, err = strconv.ParseUint(amt, 10, 64); err != nil {
			return nil, fmt.Errorf("journal row %d: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

var (
	_ Recorder = (*SQLiteRecorder)(nil)
	_ Recorder = (*NoopRecorder)(nil)
)
