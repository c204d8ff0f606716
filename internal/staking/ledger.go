// internal/staking/ledger.go
package staking

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// NoTierClaimed marks a stake that has not been paid for any tier yet.
const NoTierClaimed int32 = -1

// StakeRecord is one participant's active position.
type StakeRecord struct {
	Participant        solana.PublicKey
	Amount             uint64
	StartedAt          int64 // unix seconds
	RewardsClaimedUpTo int32
}

// Started returns the stake start time.
func (r StakeRecord) Started() time.Time {
	return time.Unix(r.StartedAt, 0).UTC()
}

// Ledger хранит позиции участников с доступом по ключу и сохраняет порядок вставки,
// чтобы сериализация была детерминированной.
type Ledger struct {
	records map[solana.PublicKey]*StakeRecord
	order   []solana.PublicKey
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[solana.PublicKey]*StakeRecord)}
}

// Len returns the number of active positions.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}

// Get returns a copy of the participant's record.
func (l *Ledger) Get(participant solana.PublicKey) (StakeRecord, bool) {
	if l == nil {
		return StakeRecord{}, false
	}
	rec, ok := l.records[participant]
	if !ok {
		return StakeRecord{}, false
	}
	return *rec, true
}

// CanUpsert checks whether Upsert would succeed without touching the ledger.
func (l *Ledger) CanUpsert(participant solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("stake amount must be positive: %w", ErrInvalidAmount)
	}
	if _, exists := l.Get(participant); exists {
		return fmt.Errorf("participant %s already has an active stake: %w", participant, ErrDuplicatePosition)
	}
	return nil
}

// Upsert opens a new position. Re-staking with an active position is rejected.
func (l *Ledger) Upsert(participant solana.PublicKey, amount uint64, now time.Time) error {
	if err := l.CanUpsert(participant, amount); err != nil {
		return err
	}
	l.insert(StakeRecord{
		Participant:        participant,
		Amount:             amount,
		StartedAt:          now.Unix(),
		RewardsClaimedUpTo: NoTierClaimed,
	})
	return nil
}

// insert adds a fully formed record; used by Upsert and by decoders.
func (l *Ledger) insert(rec StakeRecord) {
	if l.records == nil {
		l.records = make(map[solana.PublicKey]*StakeRecord)
	}
	r := rec
	l.records[rec.Participant] = &r
	l.order = append(l.order, rec.Participant)
}

// Restore adds a decoded record, enforcing the per-participant and amount invariants.
func (l *Ledger) Restore(rec StakeRecord) error {
	if rec.Amount == 0 {
		return fmt.Errorf("stake of %s has zero amount: %w", rec.Participant, ErrMalformedInput)
	}
	if rec.RewardsClaimedUpTo < NoTierClaimed {
		return fmt.Errorf("stake of %s has claimed tier %d: %w", rec.Participant, rec.RewardsClaimedUpTo, ErrMalformedInput)
	}
	if _, exists := l.Get(rec.Participant); exists {
		return fmt.Errorf("participant %s appears twice: %w", rec.Participant, ErrMalformedInput)
	}
	l.insert(rec)
	return nil
}

// Remove deletes the participant's position.
func (l *Ledger) Remove(participant solana.PublicKey) (StakeRecord, error) {
	rec, ok := l.Get(participant)
	if !ok {
		return StakeRecord{}, fmt.Errorf("participant %s: %w", participant, ErrNotFound)
	}
	delete(l.records, participant)
	for i, key := range l.order {
		if key.Equals(participant) {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return rec, nil
}

// MarkClaimed records that tier has been paid. The claimed tier never moves backwards.
func (l *Ledger) MarkClaimed(participant solana.PublicKey, tier int32) error {
	rec, ok := l.records[participant]
	if !ok {
		return fmt.Errorf("participant %s: %w", participant, ErrNotFound)
	}
	if tier <= rec.RewardsClaimedUpTo {
		return fmt.Errorf("tier %d already paid (claimed up to %d): %w", tier, rec.RewardsClaimedUpTo, ErrAlreadyClaimed)
	}
	rec.RewardsClaimedUpTo = tier
	return nil
}

// TotalAmount sums all active stake amounts.
func (l *Ledger) TotalAmount() (uint64, error) {
	var total uint64
	for _, key := range l.orderedKeys() {
		sum, err := addAmount(total, l.records[key].Amount)
		if err != nil {
			return 0, err
		}
		total = sum
	}
	return total, nil
}

// Records returns copies of all positions in insertion order.
func (l *Ledger) Records() []StakeRecord {
	keys := l.orderedKeys()
	out := make([]StakeRecord, 0, len(keys))
	for _, key := range keys {
		out = append(out, *l.records[key])
	}
	return out
}

// Clone deep-copies the ledger.
func (l *Ledger) Clone() *Ledger {
	c := NewLedger()
	for _, rec := range l.Records() {
		c.insert(rec)
	}
	return c
}

func (l *Ledger) orderedKeys() []solana.PublicKey {
	if l == nil {
		return nil
	}
	return l.order
}
