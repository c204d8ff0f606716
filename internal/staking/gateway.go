// internal/staking/gateway.go
package staking

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Transfer is one irreversible token movement authorised by a single signer.
type Transfer struct {
	From      solana.PublicKey // source token account
	To        solana.PublicKey // destination token account
	Authority solana.PublicKey // owner/delegate of From
	Amount    uint64
}

// Gateway moves tokens on behalf of the engine. A transfer either happens in
// full or returns an error; there is no partial effect.
type Gateway interface {
	Transfer(ctx context.Context, t Transfer) error
}

// StakeAccounts are the roles of a StakeTokens call.
type StakeAccounts struct {
	Participant      solana.PublicKey
	ParticipantToken solana.PublicKey
	PoolToken        solana.PublicKey
}

// UnstakeAccounts are the roles of an UnstakeTokens call.
type UnstakeAccounts struct {
	Participant      solana.PublicKey
	ParticipantToken solana.PublicKey
	Custodian        solana.PublicKey // authority over PoolToken
	PoolToken        solana.PublicKey
}

// ClaimAccounts are the roles of a ClaimRewards call.
type ClaimAccounts struct {
	Participant      solana.PublicKey
	ParticipantToken solana.PublicKey
	Custodian        solana.PublicKey // authority over ReserveToken
	ReserveToken     solana.PublicKey
}

// LiquidityAccounts are the roles of owner deposits (AddLiquidity, FundRewards).
// Caller must be the pool owner.
type LiquidityAccounts struct {
	Caller      solana.PublicKey
	CallerToken solana.PublicKey
	PoolToken   solana.PublicKey
}

// WithdrawAccounts are the roles of RemoveLiquidity. Caller must be the pool owner.
type WithdrawAccounts struct {
	Caller      solana.PublicKey
	CallerToken solana.PublicKey
	Custodian   solana.PublicKey // authority over PoolToken
	PoolToken   solana.PublicKey
}
