package gateway

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

func TestMemory_Transfer(t *testing.T) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()

	m := NewMemory()
	require.NoError(t, m.Mint(src, owner, 100))

	require.NoError(t, m.Transfer(ctx, staking.Transfer{From: src, To: dst, Authority: owner, Amount: 40}))
	assert.Equal(t, uint64(60), m.Balance(src))
	assert.Equal(t, uint64(40), m.Balance(dst))
	assert.Len(t, m.History(), 1)

	tests := []struct {
		name string
		tr   staking.Transfer
		want error
	}{
		{"insufficient", staking.Transfer{From: src, To: dst, Authority: owner, Amount: 61}, ErrInsufficientFunds},
		{"wrong authority", staking.Transfer{From: src, To: dst, Authority: dst, Amount: 1}, ErrOwnerMismatch},
		{"unknown source", staking.Transfer{From: solana.NewWallet().PublicKey(), To: dst, Authority: owner, Amount: 1}, ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, m.Transfer(ctx, tt.tr), tt.want)
			assert.Equal(t, uint64(60), m.Balance(src))
			assert.Equal(t, uint64(40), m.Balance(dst))
		})
	}
	assert.Len(t, m.History(), 1)
}

func TestMemory_Overflow(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()

	m := NewMemory()
	require.NoError(t, m.Mint(src, owner, 10))
	require.NoError(t, m.Mint(dst, owner, math.MaxUint64))
	assert.ErrorIs(t, m.Mint(dst, owner, 1), ErrBalanceOverflow)

	err := m.Transfer(context.Background(), staking.Transfer{From: src, To: dst, Authority: owner, Amount: 1})
	assert.ErrorIs(t, err, ErrBalanceOverflow)
	assert.Equal(t, uint64(10), m.Balance(src))
}

func TestMemory_FailNext(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()
	boom := errors.New("rpc unavailable")

	m := NewMemory()
	require.NoError(t, m.Mint(src, owner, 10))
	m.FailNext(boom)

	tr := staking.Transfer{From: src, To: dst, Authority: owner, Amount: 5}
	assert.ErrorIs(t, m.Transfer(context.Background(), tr), boom)
	assert.Equal(t, uint64(10), m.Balance(src))

	require.NoError(t, m.Transfer(context.Background(), tr))
	assert.Equal(t, uint64(5), m.Balance(dst))
}

func TestMemory_AutoFund(t *testing.T) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()

	m := NewMemory(WithAutoFund())
	require.NoError(t, m.Transfer(ctx, staking.Transfer{From: src, To: dst, Authority: owner, Amount: 70}))
	assert.Equal(t, uint64(0), m.Balance(src))
	assert.Equal(t, uint64(70), m.Balance(dst))

	// владелец всё ещё проверяется
	err := m.Transfer(ctx, staking.Transfer{From: src, To: dst, Authority: dst, Amount: 1})
	assert.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestMemory_AutoFundDestinationOwnedByFirstSpender(t *testing.T) {
	ctx := context.Background()
	alice := solana.NewWallet().PublicKey()
	aliceToken := solana.NewWallet().PublicKey()
	custodian := solana.NewWallet().PublicKey()
	poolToken := solana.NewWallet().PublicKey()

	m := NewMemory(WithAutoFund())
	// stake: poolToken появляется как получатель
	require.NoError(t, m.Transfer(ctx, staking.Transfer{From: aliceToken, To: poolToken, Authority: alice, Amount: 40}))

	// unstake: первый расходующий становится владельцем
	require.NoError(t, m.Transfer(ctx, staking.Transfer{From: poolToken, To: aliceToken, Authority: custodian, Amount: 40}))
	assert.Equal(t, uint64(0), m.Balance(poolToken))
	assert.Equal(t, uint64(40), m.Balance(aliceToken))

	err := m.Transfer(ctx, staking.Transfer{From: poolToken, To: aliceToken, Authority: alice, Amount: 1})
	assert.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestMemory_UnknownDestinationNotSpendableWithoutAutoFund(t *testing.T) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()

	m := NewMemory()
	require.NoError(t, m.Mint(src, owner, 10))
	require.NoError(t, m.Transfer(ctx, staking.Transfer{From: src, To: dst, Authority: owner, Amount: 10}))

	err := m.Transfer(ctx, staking.Transfer{From: dst, To: src, Authority: owner, Amount: 1})
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	m.Open(dst, owner)
	require.NoError(t, m.Transfer(ctx, staking.Transfer{From: dst, To: src, Authority: owner, Amount: 10}))
}

func TestMemory_WithEngine(t *testing.T) {
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()
	custodian := solana.NewWallet().PublicKey()
	ownerToken := solana.NewWallet().PublicKey()
	aliceToken := solana.NewWallet().PublicKey()
	poolToken := solana.NewWallet().PublicKey()

	m := NewMemory()
	require.NoError(t, m.Mint(ownerToken, owner, 1_000))
	require.NoError(t, m.Mint(aliceToken, alice, 500))
	m.Open(poolToken, custodian)

	engine, err := staking.NewEngine(m, nil)
	require.NoError(t, err)

	pool, err := engine.CreatePool(ctx, staking.Pool{}, owner, staking.PoolConfig{
		ID:                "mem",
		Asset:             solana.NewWallet().PublicKey(),
		Owner:             owner,
		RewardTimelines:   []uint32{1},
		RewardPercentages: []uint8{10},
	})
	require.NoError(t, err)

	pool, err = engine.AddLiquidity(ctx, pool, staking.LiquidityAccounts{Caller: owner, CallerToken: ownerToken, PoolToken: poolToken}, 300)
	require.NoError(t, err)
	pool, err = engine.StakeTokens(ctx, pool, staking.StakeAccounts{Participant: alice, ParticipantToken: aliceToken, PoolToken: poolToken}, 200)
	require.NoError(t, err)

	assert.Equal(t, uint64(500), m.Balance(poolToken))
	assert.Equal(t, uint64(300), m.Balance(aliceToken))

	_, err = engine.UnstakeTokens(ctx, pool, staking.UnstakeAccounts{
		Participant: alice, ParticipantToken: aliceToken, Custodian: custodian, PoolToken: poolToken,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(500), m.Balance(aliceToken))
	assert.Len(t, m.History(), 3)
}
