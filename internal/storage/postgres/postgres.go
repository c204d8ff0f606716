// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_records (
	pool_address TEXT PRIMARY KEY,
	data         BYTEA NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Store хранит записи пулов в Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore подключается к базе и создаёт таблицу при необходимости.
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &Store{pool: pool, logger: logger.Named("postgres")}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// RunMigrations создаёт схему.
func (s *Store) RunMigrations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Load returns the record for address, nil when the slot was never written.
func (s *Store) Load(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM pool_records WHERE pool_address=$1`, address.String())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pool %s: %w", address, err)
	}
	return data, nil
}

// Save upserts the record.
func (s *Store) Save(ctx context.Context, address solana.PublicKey, data []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_records (pool_address, data, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (pool_address) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, address.String(), data)
	if err != nil {
		return fmt.Errorf("save pool %s: %w", address, err)
	}
	s.logger.Debug("Pool record saved",
		zap.String("pool_address", address.String()),
		zap.Int("bytes", len(data)))
	return nil
}

// List returns every stored slot address ordered by raw key bytes.
func (s *Store) List(ctx context.Context) ([]solana.PublicKey, error) {
	rows, err := s.pool.Query(ctx, `SELECT pool_address FROM pool_records`)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	addresses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (solana.PublicKey, error) {
		var raw string
		if err := row.Scan(&raw); err != nil {
			return solana.PublicKey{}, err
		}
		return solana.PublicKeyFromBase58(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	storage.SortAddresses(addresses)
	return addresses, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ storage.PoolStore = (*Store)(nil)
