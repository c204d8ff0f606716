package screen

import (
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sonia-Koppisetti/SolStake/internal/journal"
	"github.com/Sonia-Koppisetti/SolStake/internal/monitor"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

func samplePool(t *testing.T) staking.Pool {
	t.Helper()
	ledger := staking.NewLedger()
	require.NoError(t, ledger.Restore(staking.StakeRecord{
		Participant:        solana.NewWallet().PublicKey(),
		Amount:             1_000,
		StartedAt:          1_700_000_000,
		RewardsClaimedUpTo: staking.NoTierClaimed,
	}))
	return staking.Pool{
		ID:                "gold",
		Asset:             solana.NewWallet().PublicKey(),
		RewardTimelines:   []uint32{30, 90},
		RewardPercentages: []uint8{5, 10},
		Stakes:            ledger,
		TotalLiquidity:    1_000,
		AvailableRewards:  100,
		Owner:             solana.NewWallet().PublicKey(),
	}
}

func TestPool(t *testing.T) {
	address := solana.NewWallet().PublicKey()

	out := Pool(address, samplePool(t))
	assert.Contains(t, out, "Pool gold")
	assert.Contains(t, out, "Reward schedule")
	assert.Contains(t, out, "Stakes (1)")
	assert.Contains(t, out, "reserve short", "150 outstanding against 100 reserve")

	assert.Contains(t, Pool(address, staking.Pool{}), "not initialized")
}

func TestQuote(t *testing.T) {
	out := Quote(staking.RewardQuote{Tier: 1, Percentage: 10, Amount: 100, Claimable: true})
	assert.Contains(t, out, "claimable")
	assert.NotContains(t, out, "not claimable")

	out = Quote(staking.RewardQuote{Reason: errors.New("tier 0 already paid")})
	assert.Contains(t, out, "not claimable")
	assert.Contains(t, out, "already paid")
}

func TestAudit(t *testing.T) {
	assert.Contains(t, Audit(monitor.Report{}), "no pools stored")

	balance := uint64(40)
	out := Audit(monitor.Report{
		Findings: []monitor.Finding{
			{Address: solana.NewWallet().PublicKey(), PoolID: "ok"},
			{
				Address:        solana.NewWallet().PublicKey(),
				PoolID:         "short",
				ReserveBalance: &balance,
				Alerts: []monitor.Alert{
					{Type: monitor.AlertReserveShortfall, Severity: "warning", Message: "outstanding rewards 50 exceed reserve 40"},
				},
			},
		},
		Shortfalls: 1,
		Duration:   1500 * time.Millisecond,
	})
	assert.Contains(t, out, "2 pools, 1 shortfalls, 0 failures")
	assert.Contains(t, out, "Alerts")
	assert.Contains(t, out, string(monitor.AlertReserveShortfall))
}

func TestHistory(t *testing.T) {
	assert.Contains(t, History(nil), "no operations recorded")

	out := History([]journal.Entry{
		{ID: 2, Time: time.Now(), Operation: "stake", Amount: 500, Outcome: journal.OutcomeCommitted},
		{ID: 1, Time: time.Now(), Operation: "claim", Outcome: journal.OutcomeRejected, Code: 6, Error: "no tier reached"},
	})
	assert.Contains(t, out, "stake")
	assert.Contains(t, out, "rejected (6)")
}
