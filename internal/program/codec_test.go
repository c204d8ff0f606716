// internal/program/codec_test.go
package program

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

func samplePool(t *testing.T) staking.Pool {
	t.Helper()
	pool := staking.Pool{
		ID:                "pool-1",
		Asset:             solana.NewWallet().PublicKey(),
		RewardTimelines:   []uint32{30, 90, 180},
		RewardPercentages: []uint8{5, 10, 20},
		Stakes:            staking.NewLedger(),
		TotalLiquidity:    1500,
		AvailableRewards:  900,
		Owner:             solana.NewWallet().PublicKey(),
	}
	start := time.Unix(1_700_000_000, 0)
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, pool.Stakes.Upsert(a, 1000, start))
	require.NoError(t, pool.Stakes.Upsert(b, 500, start.Add(time.Hour)))
	require.NoError(t, pool.Stakes.MarkClaimed(a, 1))
	return pool
}

func TestPoolRecord_RoundTrip(t *testing.T) {
	pool := samplePool(t)

	data, err := EncodePool(pool)
	require.NoError(t, err)

	decoded, err := DecodePool(data)
	require.NoError(t, err)
	assert.Equal(t, pool.ID, decoded.ID)
	assert.True(t, pool.Asset.Equals(decoded.Asset))
	assert.True(t, pool.Owner.Equals(decoded.Owner))
	assert.Equal(t, pool.RewardTimelines, decoded.RewardTimelines)
	assert.Equal(t, pool.RewardPercentages, decoded.RewardPercentages)
	assert.Equal(t, pool.Stakes.Records(), decoded.Stakes.Records())
	assert.Equal(t, pool.TotalLiquidity, decoded.TotalLiquidity)
	assert.Equal(t, pool.AvailableRewards, decoded.AvailableRewards)

	// decode → encode is byte-exact
	again, err := EncodePool(decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestPoolRecord_Uninitialized(t *testing.T) {
	data, err := EncodePool(staking.Pool{})
	require.NoError(t, err)
	assert.Empty(t, data)

	for _, raw := range [][]byte{nil, {}, make([]byte, 128)} {
		pool, err := DecodePool(raw)
		require.NoError(t, err)
		assert.False(t, pool.Initialized())
		assert.Zero(t, pool.Stakes.Len())

		// длина слота не сохраняется
		again, err := EncodePool(pool)
		require.NoError(t, err)
		assert.Empty(t, again)
	}
}

func TestDecodePool_Rejects(t *testing.T) {
	pool := samplePool(t)
	data, err := EncodePool(pool)
	require.NoError(t, err)

	dup := samplePool(t)
	rec := dup.Stakes.Records()[0]
	dupData, err := EncodePool(dup)
	require.NoError(t, err)
	// rewrite the second participant key with the first one
	secondKeyOffset := indexOf(dupData, dup.Stakes.Records()[1].Participant[:])
	require.Positive(t, secondKeyOffset)
	copy(dupData[secondKeyOffset:], rec.Participant[:])

	zeroAmount := append([]byte(nil), data...)
	firstKeyOffset := indexOf(zeroAmount, pool.Stakes.Records()[0].Participant[:])
	copy(zeroAmount[firstKeyOffset+32:], make([]byte, 8))

	tests := []struct {
		name string
		data []byte
	}{
		{"trailing byte", append(append([]byte(nil), data...), 1)},
		{"truncated", data[:len(data)-1]},
		{"duplicate participant", dupData},
		{"zero stake amount", zeroAmount},
		{"garbage", []byte{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePool(tt.data)
			assert.ErrorIs(t, err, staking.ErrMalformedInput)
		})
	}
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
