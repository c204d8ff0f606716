// internal/staking/ledger_test.go
package staking

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_UpsertGetRemove(t *testing.T) {
	l := NewLedger()
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	require.NoError(t, l.Upsert(a, 10, t0))
	require.NoError(t, l.Upsert(b, 20, t0))
	assert.Equal(t, 2, l.Len())

	rec, ok := l.Get(a)
	require.True(t, ok)
	assert.Equal(t, uint64(10), rec.Amount)
	assert.Equal(t, NoTierClaimed, rec.RewardsClaimedUpTo)
	assert.True(t, t0.Equal(rec.Started()))

	assert.ErrorIs(t, l.Upsert(a, 5, t0), ErrDuplicatePosition)
	assert.ErrorIs(t, l.Upsert(solana.NewWallet().PublicKey(), 0, t0), ErrInvalidAmount)

	total, err := l.TotalAmount()
	require.NoError(t, err)
	assert.Equal(t, uint64(30), total)

	removed, err := l.Remove(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), removed.Amount)
	_, err = l.Remove(a)
	assert.ErrorIs(t, err, ErrNotFound)

	records := l.Records()
	require.Len(t, records, 1)
	assert.True(t, records[0].Participant.Equals(b))
}

func TestLedger_GetReturnsCopy(t *testing.T) {
	l := NewLedger()
	p := solana.NewWallet().PublicKey()
	require.NoError(t, l.Upsert(p, 10, t0))

	rec, _ := l.Get(p)
	rec.Amount = 999
	stored, _ := l.Get(p)
	assert.Equal(t, uint64(10), stored.Amount)
}

func TestLedger_MarkClaimedIsMonotonic(t *testing.T) {
	l := NewLedger()
	p := solana.NewWallet().PublicKey()
	require.NoError(t, l.Upsert(p, 10, t0))

	require.NoError(t, l.MarkClaimed(p, 1))
	assert.ErrorIs(t, l.MarkClaimed(p, 1), ErrAlreadyClaimed)
	assert.ErrorIs(t, l.MarkClaimed(p, 0), ErrAlreadyClaimed)
	require.NoError(t, l.MarkClaimed(p, 2))
	assert.ErrorIs(t, l.MarkClaimed(solana.NewWallet().PublicKey(), 0), ErrNotFound)
}

func TestLedger_CloneIsIndependent(t *testing.T) {
	l := NewLedger()
	p := solana.NewWallet().PublicKey()
	require.NoError(t, l.Upsert(p, 10, t0))

	c := l.Clone()
	require.NoError(t, c.MarkClaimed(p, 0))
	_, err := c.Remove(p)
	require.NoError(t, err)

	rec, ok := l.Get(p)
	require.True(t, ok)
	assert.Equal(t, NoTierClaimed, rec.RewardsClaimedUpTo)
}

func TestLedger_Restore(t *testing.T) {
	p := solana.NewWallet().PublicKey()
	tests := []struct {
		name    string
		recs    []StakeRecord
		wantErr bool
	}{
		{"valid", []StakeRecord{{Participant: p, Amount: 1, RewardsClaimedUpTo: 0}}, false},
		{"zero amount", []StakeRecord{{Participant: p, Amount: 0, RewardsClaimedUpTo: -1}}, true},
		{"claimed below none", []StakeRecord{{Participant: p, Amount: 1, RewardsClaimedUpTo: -2}}, true},
		{"duplicate", []StakeRecord{
			{Participant: p, Amount: 1, RewardsClaimedUpTo: -1},
			{Participant: p, Amount: 2, RewardsClaimedUpTo: -1},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			var err error
			for _, rec := range tt.recs {
				if err = l.Restore(rec); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLedger_TotalAmountOverflow(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Upsert(solana.NewWallet().PublicKey(), ^uint64(0), t0))
	require.NoError(t, l.Upsert(solana.NewWallet().PublicKey(), 1, t0))

	_, err := l.TotalAmount()
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNilLedger(t *testing.T) {
	var l *Ledger
	assert.Zero(t, l.Len())
	_, ok := l.Get(solana.PublicKey{})
	assert.False(t, ok)
	assert.Empty(t, l.Records())
}
