// internal/storage/filestore/filestore.go
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/storage"
)

const recordExt = ".pool"

// Store keeps one file per pool slot, named by the base58 slot address.
type Store struct {
	dir    string
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New создаёт каталог при необходимости.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filestore: data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger.Named("filestore")}, nil
}

func (s *Store) path(address solana.PublicKey) string {
	return filepath.Join(s.dir, address.String()+recordExt)
}

// Load reads the record for address.
func (s *Store) Load(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	data, err := os.ReadFile(s.path(address))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", address, err)
	}
	return data, nil
}

// Save replaces the record atomically: write to a temp file, fsync, rename.
func (s *Store) Save(ctx context.Context, address solana.PublicKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}

	tmp, err := os.CreateTemp(s.dir, address.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write pool %s: %w", address, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync pool %s: %w", address, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close pool %s: %w", address, err)
	}
	if err := os.Rename(tmp.Name(), s.path(address)); err != nil {
		return fmt.Errorf("commit pool %s: %w", address, err)
	}

	s.logger.Debug("Pool record saved",
		zap.String("pool_address", address.String()),
		zap.Int("bytes", len(data)))
	return nil
}

// List returns slot addresses found in the data dir.
func (s *Store) List(ctx context.Context) ([]solana.PublicKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list data dir: %w", err)
	}
	var out []solana.PublicKey
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordExt) {
			continue
		}
		address, err := solana.PublicKeyFromBase58(strings.TrimSuffix(name, recordExt))
		if err != nil {
			s.logger.Warn("Skipping foreign file in data dir", zap.String("file", name))
			continue
		}
		out = append(out, address)
	}
	storage.SortAddresses(out)
	return out, nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ storage.PoolStore = (*Store)(nil)
