// internal/storage/storage.go
package storage

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/gagliardetto/solana-go"
)

// ErrClosed возвращается после Close.
var ErrClosed = errors.New("storage: store is closed")

// PoolStore хранит закодированные записи пулов по адресу слота.
// Load неизвестного адреса возвращает nil без ошибки: это
// неинициализированный слот.
type PoolStore interface {
	Load(ctx context.Context, address solana.PublicKey) ([]byte, error)
	Save(ctx context.Context, address solana.PublicKey, data []byte) error
	// List возвращает адреса всех сохранённых слотов в порядке возрастания.
	List(ctx context.Context) ([]solana.PublicKey, error)
	Close() error
}

// SortAddresses orders keys by their raw bytes.
func SortAddresses(keys []solana.PublicKey) {
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
}
