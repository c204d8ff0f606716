// =============================
// File: internal/gateway/spl.go
// =============================
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/blockchain"
	"github.com/Sonia-Koppisetti/SolStake/internal/blockchain/solbc"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
	"github.com/Sonia-Koppisetti/SolStake/internal/wallet"
)

var (
	ErrMissingSigner = errors.New("signer key not in keyring")
	ErrTxFailed      = errors.New("transfer transaction failed on chain")
	// ErrBlockhashExpired: подпись не найдена, а высота блока прошла
	// LastValidBlockHeight. Транзакция уже не может быть исполнена.
	ErrBlockhashExpired = errors.New("transfer blockhash expired before inclusion")
	errStatusPending    = errors.New("signature status pending")
)

// PendingError означает, что транзакция отправлена, но её исход неизвестен:
// истёк ConfirmTimeout или отменён контекст до того, как подпись
// подтвердилась или blockhash истёк.
type PendingError struct {
	Signature            solana.Signature
	LastValidBlockHeight uint64
	Cause                error
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("transfer %s outcome unknown (valid until block height %d): %v",
		e.Signature, e.LastValidBlockHeight, e.Cause)
}

// Is сопоставляет ошибку с staking.ErrTransferUnconfirmed.
func (e *PendingError) Is(target error) bool {
	return target == staking.ErrTransferUnconfirmed
}

func (e *PendingError) Unwrap() error { return e.Cause }

// SPLOptions настраивает отправку переводов.
type SPLOptions struct {
	FeePayer         solana.PublicKey
	ConfirmTimeout   time.Duration
	BlockhashRetries int
	PollInterval     time.Duration
}

// SPL переводит токены инструкцией Transfer программы SPL Token.
type SPL struct {
	client   blockchain.Client
	keys     *wallet.Keyring
	opts     SPLOptions
	analyzer *solbc.ErrorAnalyzer
	logger   *zap.Logger
}

// NewSPL создаёт шлюз. Ключ плательщика комиссии должен быть в связке.
func NewSPL(client blockchain.Client, keys *wallet.Keyring, opts SPLOptions, logger *zap.Logger) (*SPL, error) {
	if client == nil || keys == nil {
		return nil, errors.New("gateway: client and keyring are required")
	}
	if _, ok := keys.Get(opts.FeePayer); !ok {
		return nil, fmt.Errorf("fee payer %s: %w", opts.FeePayer, ErrMissingSigner)
	}
	if opts.ConfirmTimeout <= 0 {
		// blockhash живёт ~150 блоков (60-90 с); таймаут должен быть больше
		opts.ConfirmTimeout = 2 * time.Minute
	}
	if opts.BlockhashRetries <= 0 {
		opts.BlockhashRetries = 3
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	return &SPL{
		client:   client,
		keys:     keys,
		opts:     opts,
		analyzer: solbc.NewErrorAnalyzer(logger),
		logger:   logger.Named("spl-gateway"),
	}, nil
}

// Transfer подписывает и отправляет перевод, затем ждёт подтверждения.
// Отправка не повторяется: повтор возможен только для получения blockhash
// и опроса статуса.
func (g *SPL) Transfer(ctx context.Context, t staking.Transfer) error {
	if _, ok := g.keys.Get(t.Authority); !ok {
		return fmt.Errorf("authority %s: %w", t.Authority, ErrMissingSigner)
	}

	ix := token.NewTransferInstruction(t.Amount, t.From, t.To, t.Authority, nil).Build()

	blockhash, err := g.latestBlockhash(ctx)
	if err != nil {
		return err
	}

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, blockhash.Hash, solana.TransactionPayer(g.opts.FeePayer))
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := g.keys.SignTransaction(tx); err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := g.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		failure := g.analyzer.AnalyzeTransferError(err)
		g.logger.Error("Transfer rejected",
			zap.String("from", t.From.String()),
			zap.String("to", t.To.String()),
			zap.Uint64("amount", t.Amount),
			zap.Error(failure))
		return fmt.Errorf("send transfer: %w", failure)
	}

	g.logger.Debug("Transfer submitted",
		zap.String("signature", sig.String()),
		zap.Uint64("last_valid_block_height", blockhash.LastValidBlockHeight))

	if err := g.waitConfirmation(ctx, sig, blockhash.LastValidBlockHeight); err != nil {
		var pending *PendingError
		if errors.As(err, &pending) {
			g.logger.Error("Transfer outcome unknown",
				zap.String("signature", sig.String()),
				zap.String("from", t.From.String()),
				zap.String("to", t.To.String()),
				zap.Uint64("amount", t.Amount),
				zap.Error(err))
			return err
		}
		g.logger.Error("Transfer failed",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return err
	}

	g.logger.Info("Transfer confirmed",
		zap.String("signature", sig.String()),
		zap.Uint64("amount", t.Amount))
	return nil
}

func (g *SPL) latestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	notify := func(err error, d time.Duration) {
		g.logger.Warn("Retrying blockhash fetch", zap.Error(err), zap.Duration("backoff", d))
	}
	hash, err := backoff.Retry(ctx, func() (blockchain.Blockhash, error) {
		return g.client.GetLatestBlockhash(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(g.opts.BlockhashRetries)),
		backoff.WithNotify(notify))
	if err != nil {
		return blockchain.Blockhash{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	return hash, nil
}

// waitConfirmation опрашивает статус подписи. Исход определён, только если
// подпись confirmed/finalized, завершилась с ошибкой, или не найдена при
// высоте блока больше lastValid. Во всех остальных случаях (таймаут, отмена
// контекста, статус processed) возвращается *PendingError.
func (g *SPL) waitConfirmation(ctx context.Context, sig solana.Signature, lastValid uint64) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		// высота читается до статуса: если подписи нет после этой высоты,
		// она уже не появится
		height, err := g.client.GetBlockHeight(ctx)
		if err != nil {
			return struct{}{}, err
		}
		statuses, err := g.client.GetSignatureStatuses(ctx, sig)
		if err != nil {
			return struct{}{}, err
		}
		if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			if height > lastValid {
				return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s: block height %d > %d",
					ErrBlockhashExpired, sig, height, lastValid))
			}
			return struct{}{}, errStatusPending
		}
		status := statuses.Value[0]
		if status.Err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s: %v", ErrTxFailed, sig, status.Err))
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return struct{}{}, nil
		}
		return struct{}{}, errStatusPending
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(g.opts.PollInterval)),
		backoff.WithMaxElapsedTime(g.opts.ConfirmTimeout))
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTxFailed) || errors.Is(err, ErrBlockhashExpired) {
		return err
	}
	return &PendingError{Signature: sig, LastValidBlockHeight: lastValid, Cause: err}
}

var _ staking.Gateway = (*SPL)(nil)
