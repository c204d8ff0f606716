package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sonia-Koppisetti/SolStake/internal/blockchain"
	"github.com/Sonia-Koppisetti/SolStake/internal/events"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

type fakeSource struct {
	pools map[solana.PublicKey]staking.Pool
	fail  map[solana.PublicKey]error
}

func (s *fakeSource) Addresses(ctx context.Context) ([]solana.PublicKey, error) {
	var out []solana.PublicKey
	for k := range s.pools {
		out = append(out, k)
	}
	for k := range s.fail {
		out = append(out, k)
	}
	return out, nil
}

func (s *fakeSource) Snapshot(ctx context.Context, address solana.PublicKey) (staking.Pool, error) {
	if err, ok := s.fail[address]; ok {
		return staking.Pool{}, err
	}
	return s.pools[address], nil
}

type fakeBalances struct {
	blockchain.Client
	balances map[solana.PublicKey]uint64
}

func (f *fakeBalances) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	b, ok := f.balances[account]
	if !ok {
		return 0, rpc.ErrNotFound
	}
	return b, nil
}

func makePool(t *testing.T, id string, stake, liquidity, rewards uint64) staking.Pool {
	t.Helper()
	ledger := staking.NewLedger()
	if stake > 0 {
		require.NoError(t, ledger.Restore(staking.StakeRecord{
			Participant:        solana.NewWallet().PublicKey(),
			Amount:             stake,
			StartedAt:          1_700_000_000,
			RewardsClaimedUpTo: -1,
		}))
	}
	return staking.Pool{
		ID:                id,
		Asset:             solana.NewWallet().PublicKey(),
		RewardTimelines:   []uint32{30, 90, 180},
		RewardPercentages: []uint8{5, 10, 20},
		Stakes:            ledger,
		TotalLiquidity:    liquidity,
		AvailableRewards:  rewards,
		Owner:             solana.NewWallet().PublicKey(),
	}
}

func TestAuditor_Run(t *testing.T) {
	healthy := solana.NewWallet().PublicKey()
	short := solana.NewWallet().PublicKey()
	swept := solana.NewWallet().PublicKey()
	broken := solana.NewWallet().PublicKey()
	empty := solana.NewWallet().PublicKey()
	reserve := solana.NewWallet().PublicKey()

	source := &fakeSource{
		pools: map[solana.PublicKey]staking.Pool{
			healthy: makePool(t, "healthy", 1_000, 2_000, 350),
			short:   makePool(t, "short", 1_000, 1_000, 300),
			swept:   makePool(t, "swept", 1_000, 0, 0),
			empty:   {},
		},
		fail: map[solana.PublicKey]error{broken: errors.New("malformed input")},
	}

	bus := events.NewBus(zaptest.NewLogger(t), 16)
	var mu sync.Mutex
	var shortfallEvents []events.ReserveShortfallEvent
	var completed int
	bus.SubscribeFunc(events.ReserveShortfall, func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		shortfallEvents = append(shortfallEvents, e.(events.ReserveShortfallEvent))
		return nil
	})
	bus.SubscribeFunc(events.AuditCompleted, func(ctx context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		completed++
		return nil
	})

	auditor := NewAuditor(AuditorConfig{
		Source:      source,
		Balances:    &fakeBalances{balances: map[solana.PublicKey]uint64{reserve: 100}},
		Reserves:    map[solana.PublicKey]solana.PublicKey{healthy: reserve},
		Bus:         bus,
		Concurrency: 2,
		Logger:      zaptest.NewLogger(t),
	})

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Findings, 5)
	assert.Equal(t, 2, report.Shortfalls, "short and swept")
	assert.Equal(t, 1, report.Failures)

	byAddress := make(map[solana.PublicKey]Finding)
	for _, f := range report.Findings {
		byAddress[f.Address] = f
	}

	h := byAddress[healthy]
	assert.Equal(t, uint64(350), h.Liability)
	require.NotNil(t, h.ReserveBalance)
	assert.Equal(t, uint64(100), *h.ReserveBalance)
	require.Len(t, h.Alerts, 1)
	assert.Equal(t, AlertReserveBalance, h.Alerts[0].Type)

	assert.Equal(t, AlertReserveShortfall, byAddress[short].Alerts[0].Type)

	s := byAddress[swept]
	assert.Len(t, s.Alerts, 2)
	assert.Equal(t, AlertUnbackedStake, s.Alerts[1].Type)

	assert.True(t, byAddress[empty].Healthy())
	assert.Equal(t, AlertUnreadable, byAddress[broken].Alerts[0].Type)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
	assert.Len(t, shortfallEvents, 2)
	assert.Equal(t, 1, completed)
}

func TestAuditor_CancelledContext(t *testing.T) {
	source := &fakeSource{pools: map[solana.PublicKey]staking.Pool{
		solana.NewWallet().PublicKey(): makePool(t, "a", 10, 10, 10),
	}}
	auditor := NewAuditor(AuditorConfig{Source: source, Logger: zaptest.NewLogger(t)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := auditor.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduler(t *testing.T) {
	source := &fakeSource{pools: map[solana.PublicKey]staking.Pool{
		solana.NewWallet().PublicKey(): makePool(t, "a", 100, 100, 1),
	}}
	auditor := NewAuditor(AuditorConfig{Source: source, Logger: zaptest.NewLogger(t)})

	_, err := NewScheduler(context.Background(), "every tuesday", auditor, zaptest.NewLogger(t))
	assert.Error(t, err)

	s, err := NewScheduler(context.Background(), "@every 1h", auditor, zaptest.NewLogger(t))
	require.NoError(t, err)
	s.Start()
	s.RunNow(context.Background())

	report, runs := s.Last()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, report.Shortfalls)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
