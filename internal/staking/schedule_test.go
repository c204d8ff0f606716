// internal/staking/schedule_test.go
package staking

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTier(t *testing.T) {
	timelines := []uint32{30, 90, 180}
	tests := []struct {
		elapsed  uint64
		wantTier int
		wantErr  error
	}{
		{0, 0, ErrNoTierReached},
		{29, 0, ErrNoTierReached},
		{30, 0, nil},
		{89, 0, nil},
		{90, 1, nil},
		{100, 1, nil},
		{179, 1, nil},
		{180, 2, nil},
		{1 << 40, 2, nil},
	}
	for _, tt := range tests {
		tier, err := ResolveTier(tt.elapsed, timelines)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "elapsed %d", tt.elapsed)
			continue
		}
		require.NoError(t, err, "elapsed %d", tt.elapsed)
		assert.Equal(t, tt.wantTier, tier, "elapsed %d", tt.elapsed)
	}
}

func TestResolveTier_EmptySchedule(t *testing.T) {
	_, err := ResolveTier(100, nil)
	assert.ErrorIs(t, err, ErrInvalidScheduleConfig)
}

func TestResolveTier_Monotonic(t *testing.T) {
	timelines := []uint32{30, 90, 180}
	prev := -1
	for e := uint64(0); e <= 400; e++ {
		tier, err := ResolveTier(e, timelines)
		if err != nil {
			require.ErrorIs(t, err, ErrNoTierReached)
			require.Equal(t, -1, prev, "no-tier must only precede the first threshold")
			continue
		}
		assert.GreaterOrEqual(t, tier, prev, "elapsed %d", e)
		prev = tier
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule([]uint32{0, 1}, []uint8{0, 100}))
	assert.ErrorIs(t, ValidateSchedule(nil, nil), ErrInvalidScheduleConfig)
	assert.ErrorIs(t, ValidateSchedule([]uint32{1}, []uint8{1, 2}), ErrInvalidScheduleConfig)
	assert.ErrorIs(t, ValidateSchedule([]uint32{5, 4}, []uint8{1, 2}), ErrInvalidScheduleConfig)
}

func TestRewardAmount(t *testing.T) {
	r, err := RewardAmount(10, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), r)

	r, err = RewardAmount(3, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), r, "rounds down")

	// the intermediate product exceeds u64 but the result fits
	r, err = RewardAmount(100, ^uint64(0))
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), r)

	_, err = RewardAmount(255, ^uint64(0))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLiability(t *testing.T) {
	pool := Pool{
		ID:                "p",
		RewardTimelines:   []uint32{30, 90, 180},
		RewardPercentages: []uint8{5, 10, 20},
		Stakes:            NewLedger(),
	}
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, pool.Stakes.Upsert(a, 1000, t0))
	require.NoError(t, pool.Stakes.Upsert(b, 100, t0))
	require.NoError(t, pool.Stakes.MarkClaimed(b, 1))

	owed, err := Liability(pool)
	require.NoError(t, err)
	// a: 50+100+200, b: 20
	assert.Equal(t, uint64(370), owed)
}

func TestPoolValidate(t *testing.T) {
	assert.NoError(t, Pool{}.Validate())
	assert.ErrorIs(t, Pool{TotalLiquidity: 1}.Validate(), ErrMalformedInput)

	pool := Pool{
		ID:                "p",
		RewardTimelines:   []uint32{30},
		RewardPercentages: []uint8{5},
		Stakes:            NewLedger(),
	}
	require.NoError(t, pool.Validate())

	p := solana.NewWallet().PublicKey()
	require.NoError(t, pool.Stakes.Restore(StakeRecord{Participant: p, Amount: 1, RewardsClaimedUpTo: 1}))
	assert.ErrorIs(t, pool.Validate(), ErrMalformedInput)
}
