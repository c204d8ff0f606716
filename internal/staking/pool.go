// =============================
// File: internal/staking/pool.go
// =============================
package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Pool is the accounting record of one staking pool.
type Pool struct {
	ID                string
	Asset             solana.PublicKey // mint of the staked token
	RewardTimelines   []uint32         // tier thresholds in engine time units
	RewardPercentages []uint8          // index-aligned with RewardTimelines
	Stakes            *Ledger
	TotalLiquidity    uint64
	AvailableRewards  uint64
	Owner             solana.PublicKey
}

// PoolConfig describes a pool to be created. Owner is attested by whoever
// provisioned the pool account.
type PoolConfig struct {
	ID                string
	Asset             solana.PublicKey
	Owner             solana.PublicKey
	RewardTimelines   []uint32
	RewardPercentages []uint8
}

// Initialized reports whether CreatePool has run on this record.
func (p Pool) Initialized() bool {
	return p.ID != ""
}

// Clone returns a deep copy that shares no memory with p.
func (p Pool) Clone() Pool {
	c := p
	c.RewardTimelines = append([]uint32(nil), p.RewardTimelines...)
	c.RewardPercentages = append([]uint8(nil), p.RewardPercentages...)
	if p.Stakes != nil {
		c.Stakes = p.Stakes.Clone()
	} else {
		c.Stakes = NewLedger()
	}
	return c
}

// StakedLiquidity returns the sum of all active stake amounts.
func (p Pool) StakedLiquidity() (uint64, error) {
	if p.Stakes == nil {
		return 0, nil
	}
	return p.Stakes.TotalAmount()
}

// Stake returns the participant's active position.
func (p Pool) Stake(participant solana.PublicKey) (StakeRecord, bool) {
	return p.Stakes.Get(participant)
}

// Validate checks the structural invariants of an initialized pool.
func (p Pool) Validate() error {
	if !p.Initialized() {
		if p.Stakes.Len() > 0 || p.TotalLiquidity != 0 || p.AvailableRewards != 0 {
			return fmt.Errorf("uninitialized pool carries state: %w", ErrMalformedInput)
		}
		return nil
	}
	if err := ValidateSchedule(p.RewardTimelines, p.RewardPercentages); err != nil {
		return err
	}
	maxTier := int32(len(p.RewardTimelines) - 1)
	for _, rec := range p.Stakes.Records() {
		if rec.RewardsClaimedUpTo > maxTier {
			return fmt.Errorf("stake of %s claimed tier %d beyond %d: %w",
				rec.Participant, rec.RewardsClaimedUpTo, maxTier, ErrMalformedInput)
		}
	}
	return nil
}

// Liability returns the most the reserve could still owe if every active
// stake went on to claim each remaining tier.
func Liability(p Pool) (uint64, error) {
	var total uint64
	for _, rec := range p.Stakes.Records() {
		for tier := int(rec.RewardsClaimedUpTo) + 1; tier < len(p.RewardPercentages); tier++ {
			reward, err := RewardAmount(p.RewardPercentages[tier], rec.Amount)
			if err != nil {
				return 0, err
			}
			if total, err = addAmount(total, reward); err != nil {
				return 0, err
			}
		}
	}
	return total, nil
}
