// internal/program/processor_test.go
package program

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

type recordingGateway struct {
	transfers []staking.Transfer
}

func (g *recordingGateway) Transfer(_ context.Context, t staking.Transfer) error {
	g.transfers = append(g.transfers, t)
	return nil
}

type processorFixture struct {
	proc    *Processor
	gateway *recordingGateway
	now     time.Time

	owner, ownerToken, participant, participantToken solana.PublicKey
	poolToken, reserveToken, custodian               solana.PublicKey
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	f := &processorFixture{
		gateway:          &recordingGateway{},
		now:              time.Unix(1_700_000_000, 0),
		owner:            solana.NewWallet().PublicKey(),
		ownerToken:       solana.NewWallet().PublicKey(),
		participant:      solana.NewWallet().PublicKey(),
		participantToken: solana.NewWallet().PublicKey(),
		poolToken:        solana.NewWallet().PublicKey(),
		reserveToken:     solana.NewWallet().PublicKey(),
		custodian:        solana.NewWallet().PublicKey(),
	}
	engine, err := staking.NewEngine(f.gateway, zaptest.NewLogger(t),
		staking.WithClock(func() time.Time { return f.now }),
		staking.WithTimeUnit(time.Second))
	require.NoError(t, err)
	f.proc = NewProcessor(engine, zaptest.NewLogger(t))
	return f
}

func (f *processorFixture) run(t *testing.T, pool staking.Pool, cmd Command, accounts ...solana.PublicKey) (staking.Pool, error) {
	t.Helper()
	data, err := EncodeCommand(cmd)
	require.NoError(t, err)
	next, decoded, err := f.proc.Process(context.Background(), pool, accounts, data)
	if err == nil {
		assert.Equal(t, cmd, decoded)
	}
	return next, err
}

func TestProcessor_FullLifecycle(t *testing.T) {
	f := newProcessorFixture(t)

	pool, err := f.run(t, staking.Pool{}, CreatePoolCommand{
		ID:                "pool-1",
		Asset:             solana.NewWallet().PublicKey(),
		RewardTimelines:   []uint32{30, 90, 180},
		RewardPercentages: []uint8{5, 10, 20},
	}, f.owner, f.owner)
	require.NoError(t, err)
	assert.True(t, pool.Initialized())

	pool, err = f.run(t, pool, FundRewardsCommand{Amount: 1000}, f.owner, f.ownerToken, f.reserveToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), pool.AvailableRewards)

	pool, err = f.run(t, pool, StakeCommand{Amount: 1000}, f.participant, f.participantToken, f.poolToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), pool.TotalLiquidity)

	f.now = f.now.Add(100 * time.Second)
	pool, err = f.run(t, pool, ClaimCommand{}, f.participant, f.participantToken, f.custodian, f.reserveToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), pool.AvailableRewards)

	pool, err = f.run(t, pool, AddLiquidityCommand{Amount: 50}, f.owner, f.ownerToken, f.poolToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(1050), pool.TotalLiquidity)

	pool, err = f.run(t, pool, UnstakeCommand{}, f.participant, f.participantToken, f.custodian, f.poolToken)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), pool.TotalLiquidity)

	pool, err = f.run(t, pool, RemoveLiquidityCommand{}, f.owner, f.ownerToken, f.custodian, f.poolToken)
	require.NoError(t, err)
	assert.Zero(t, pool.TotalLiquidity)
	assert.Zero(t, pool.AvailableRewards)

	require.Len(t, f.gateway.transfers, 6)
	assert.Equal(t, staking.Transfer{
		From:      f.reserveToken,
		To:        f.participantToken,
		Authority: f.custodian,
		Amount:    100,
	}, f.gateway.transfers[2])
}

func TestProcessor_CreatePoolAttestedOwner(t *testing.T) {
	f := newProcessorFixture(t)
	other := solana.NewWallet().PublicKey()

	pool, err := f.run(t, staking.Pool{}, CreatePoolCommand{
		ID:                "pool-1",
		RewardTimelines:   []uint32{1},
		RewardPercentages: []uint8{1},
	}, other, f.owner)
	assert.ErrorIs(t, err, staking.ErrUnauthorized)
	assert.False(t, pool.Initialized())
}

func TestProcessor_MissingAccounts(t *testing.T) {
	f := newProcessorFixture(t)

	pool := staking.Pool{}
	got, err := f.run(t, pool, StakeCommand{Amount: 5}, f.participant, f.participantToken)
	assert.ErrorIs(t, err, staking.ErrMalformedInput)
	assert.Equal(t, pool, got)
	assert.Empty(t, f.gateway.transfers)
}

func TestProcessor_ExtraAccountsIgnored(t *testing.T) {
	f := newProcessorFixture(t)

	_, err := f.run(t, staking.Pool{}, CreatePoolCommand{
		ID:                "pool-1",
		RewardTimelines:   []uint32{1},
		RewardPercentages: []uint8{1},
	}, f.owner, f.owner, solana.NewWallet().PublicKey())
	assert.NoError(t, err)
}

func TestProcessor_InvalidData(t *testing.T) {
	f := newProcessorFixture(t)

	_, cmd, err := f.proc.Process(context.Background(), staking.Pool{}, nil, nil)
	assert.ErrorIs(t, err, staking.ErrInvalidCommand)
	assert.Nil(t, cmd)

	_, _, err = f.proc.Process(context.Background(), staking.Pool{}, nil, []byte{0xAB})
	assert.ErrorIs(t, err, staking.ErrInvalidCommand)
}

func TestInstruction(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	f := newProcessorFixture(t)

	ix, err := Instruction(programID, StakeCommand{Amount: 9}, []solana.PublicKey{f.participant, f.participantToken, f.poolToken})
	require.NoError(t, err)
	assert.True(t, ix.ProgramID().Equals(programID))

	metas := ix.Accounts()
	require.Len(t, metas, 3)
	assert.True(t, metas[0].IsSigner)
	assert.False(t, metas[1].IsSigner)
	assert.True(t, metas[1].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	cmd, err := DecodeCommand(data)
	require.NoError(t, err)
	assert.Equal(t, StakeCommand{Amount: 9}, cmd)

	_, err = Instruction(programID, StakeCommand{Amount: 9}, nil)
	assert.ErrorIs(t, err, staking.ErrMalformedInput)
}
