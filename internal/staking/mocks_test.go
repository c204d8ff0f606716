// internal/staking/mocks_test.go
package staking

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MockGateway записывает переводы и может вернуть заданную ошибку.
type MockGateway struct {
	mu        sync.Mutex
	transfers []Transfer
	err       error
}

func (g *MockGateway) Transfer(_ context.Context, t Transfer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.transfers = append(g.transfers, t)
	return nil
}

func (g *MockGateway) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *MockGateway) Transfers() []Transfer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Transfer(nil), g.transfers...)
}

type testKeys struct {
	owner, participant, other  solana.PublicKey
	ownerToken, participantTok solana.PublicKey
	poolToken, reserveToken    solana.PublicKey
	custodian, asset           solana.PublicKey
}

func newTestKeys() testKeys {
	return testKeys{
		owner:          solana.NewWallet().PublicKey(),
		participant:    solana.NewWallet().PublicKey(),
		other:          solana.NewWallet().PublicKey(),
		ownerToken:     solana.NewWallet().PublicKey(),
		participantTok: solana.NewWallet().PublicKey(),
		poolToken:      solana.NewWallet().PublicKey(),
		reserveToken:   solana.NewWallet().PublicKey(),
		custodian:      solana.NewWallet().PublicKey(),
		asset:          solana.NewWallet().PublicKey(),
	}
}

func (k testKeys) stake() StakeAccounts {
	return StakeAccounts{Participant: k.participant, ParticipantToken: k.participantTok, PoolToken: k.poolToken}
}

func (k testKeys) unstake() UnstakeAccounts {
	return UnstakeAccounts{Participant: k.participant, ParticipantToken: k.participantTok, Custodian: k.custodian, PoolToken: k.poolToken}
}

func (k testKeys) claim() ClaimAccounts {
	return ClaimAccounts{Participant: k.participant, ParticipantToken: k.participantTok, Custodian: k.custodian, ReserveToken: k.reserveToken}
}

func (k testKeys) liquidity(caller solana.PublicKey) LiquidityAccounts {
	return LiquidityAccounts{Caller: caller, CallerToken: k.ownerToken, PoolToken: k.poolToken}
}

func (k testKeys) withdraw(caller solana.PublicKey) WithdrawAccounts {
	return WithdrawAccounts{Caller: caller, CallerToken: k.ownerToken, Custodian: k.custodian, PoolToken: k.poolToken}
}

func (k testKeys) config() PoolConfig {
	return PoolConfig{
		ID:                "pool-1",
		Asset:             k.asset,
		Owner:             k.owner,
		RewardTimelines:   []uint32{30, 90, 180},
		RewardPercentages: []uint8{5, 10, 20},
	}
}
