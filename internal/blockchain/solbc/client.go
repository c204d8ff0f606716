// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/blockchain"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
// Чтения переключаются на следующий RPC при ошибке; отправка транзакции
// всегда идёт на один узел и не повторяется.
type Client struct {
	endpoints []string
	rpcs      []*rpc.Client
	current   atomic.Uint32
	logger    *zap.Logger
}

// Определение ошибок
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNoEndpoints     = errors.New("no rpc endpoints configured")
)

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// NewClient создаёт клиент по списку RPC URL.
func NewClient(rpcURLs []string, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, ErrNoEndpoints
	}
	c := &Client{
		endpoints: append([]string(nil), rpcURLs...),
		logger:    logger.Named("solbc-client"),
	}
	for _, u := range rpcURLs {
		c.rpcs = append(c.rpcs, rpc.New(u))
	}
	return c, nil
}

func (c *Client) active() (int, *rpc.Client) {
	i := int(c.current.Load()) % len(c.rpcs)
	return i, c.rpcs[i]
}

// failover moves reads to the next endpoint after idx failed.
func (c *Client) failover(idx int, err error) {
	next := uint32((idx + 1) % len(c.rpcs))
	if c.current.CompareAndSwap(uint32(idx), next) && len(c.rpcs) > 1 {
		c.logger.Warn("Switching RPC endpoint",
			zap.String("from", c.endpoints[idx]),
			zap.String("to", c.endpoints[next]),
			zap.Error(err))
	}
}

// read runs fn against the active endpoint, trying each endpoint at most once.
func (c *Client) read(ctx context.Context, op string, fn func(*rpc.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < len(c.rpcs); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		idx, client := c.active()
		err := fn(client)
		if err == nil {
			return nil
		}
		if IsAccountNotFoundError(err) {
			return err
		}
		lastErr = err
		c.logger.Debug(op+" error", zap.String("endpoint", c.endpoints[idx]), zap.Error(err))
		c.failover(idx, err)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

// GetLatestBlockhash получает последний blockhash вместе с
// LastValidBlockHeight. Commitment confirmed совпадает с GetBlockHeight.
func (c *Client) GetLatestBlockhash(ctx context.Context) (blockchain.Blockhash, error) {
	var out blockchain.Blockhash
	err := c.read(ctx, "GetLatestBlockhash", func(r *rpc.Client) error {
		result, err := r.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			return errors.New("empty blockhash response")
		}
		out = blockchain.Blockhash{
			Hash:                 result.Value.Blockhash,
			LastValidBlockHeight: result.Value.LastValidBlockHeight,
		}
		return nil
	})
	return out, err
}

// GetBlockHeight возвращает текущую высоту блока.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.read(ctx, "GetBlockHeight", func(r *rpc.Client) error {
		h, err := r.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	idx, r := c.active()
	sig, err := r.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error",
			zap.String("endpoint", c.endpoints[idx]),
			zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var out *rpc.GetSignatureStatusesResult
	err := c.read(ctx, "GetSignatureStatuses", func(r *rpc.Client) error {
		result, err := r.GetSignatureStatuses(ctx, false, signatures...)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

// GetTokenBalance возвращает баланс токенного аккаунта в базовых единицах.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var amount uint64
	err := c.read(ctx, "GetTokenAccountBalance", func(r *rpc.Client) error {
		result, err := r.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			return fmt.Errorf("token account %s: %w", account, ErrAccountNotFound)
		}
		v, err := strconv.ParseUint(result.Value.Amount, 10, 64)
		if err != nil {
			return fmt.Errorf("parse balance %q: %w", result.Value.Amount, err)
		}
		amount = v
		return nil
	})
	return amount, err
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
