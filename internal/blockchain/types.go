// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// Blockhash – blockhash транзакции. После LastValidBlockHeight транзакция
// с этим blockhash уже не может попасть в блок.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// Client определяет интерфейс блокчейна, нужный шлюзу переводов и аудиту.
type Client interface {
	// Получить последний blockhash и высоту, до которой он действителен.
	GetLatestBlockhash(ctx context.Context) (Blockhash, error)
	// Текущая высота блока (commitment confirmed).
	GetBlockHeight(ctx context.Context) (uint64, error)
	// Отправить транзакцию с опциями.
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	// Получить статусы подписей транзакций.
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	// Получить баланс токенного аккаунта в базовых единицах.
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}
