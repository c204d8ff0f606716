// internal/journal/journal.go
package journal

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	OutcomeCommitted   = "committed"
	OutcomeRejected    = "rejected"
	OutcomeUnconfirmed = "unconfirmed" // transfer sent, outcome unknown
)

// Entry is one executed instruction against a pool slot.
type Entry struct {
	ID          int64
	Time        time.Time
	PoolAddress solana.PublicKey
	PoolID      string
	Operation   string
	Signer      solana.PublicKey
	Amount      uint64
	Outcome     string
	Code        int    // staking error code for rejected entries
	Error       string // rejection message
	Data        []byte // raw instruction data
}

// Recorder persists the operation history.
type Recorder interface {
	Record(ctx context.Context, e *Entry) (int64, error)
	// Recent returns up to limit entries for pool, newest first.
	Recent(ctx context.Context, pool solana.PublicKey, limit int) ([]Entry, error)
	Close() error
}

// NoopRecorder is used when no journal is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(_ context.Context, _ *Entry) (int64, error) { return 0, nil }
func (n *NoopRecorder) Close() error                                      { return nil }

func (n *NoopRecorder) Recent(_ context.Context, _ solana.PublicKey, _ int) ([]Entry, error) {
	return nil, nil
}
