// =============================
// File: internal/program/processor.go
// =============================
package program

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

// Processor decodes instructions and routes them to the engine.
type Processor struct {
	engine *staking.Engine
	logger *zap.Logger
}

// NewProcessor создаёт диспетчер инструкций поверх движка пула.
func NewProcessor(engine *staking.Engine, logger *zap.Logger) *Processor {
	return &Processor{
		engine: engine,
		logger: logger.Named("processor"),
	}
}

// Process applies one instruction to pool. On success it returns the updated
// pool and the decoded command; on failure pool is returned unchanged.
func (p *Processor) Process(ctx context.Context, pool staking.Pool, accounts []solana.PublicKey, data []byte) (staking.Pool, Command, error) {
	cmd, err := DecodeCommand(data)
	if err != nil {
		p.logger.Warn("Rejected instruction", zap.Int("data_len", len(data)), zap.Error(err))
		return pool, nil, err
	}
	if err := checkAccounts(cmd.Opcode(), accounts); err != nil {
		p.logger.Warn("Rejected instruction", zap.Stringer("opcode", cmd.Opcode()), zap.Error(err))
		return pool, cmd, err
	}
	p.logger.Debug("Dispatching instruction",
		zap.Stringer("opcode", cmd.Opcode()),
		zap.Int("accounts", len(accounts)))

	next, err := p.dispatch(ctx, pool, accounts, cmd)
	if err != nil {
		return pool, cmd, err
	}
	return next, cmd, nil
}

func (p *Processor) dispatch(ctx context.Context, pool staking.Pool, a []solana.PublicKey, cmd Command) (staking.Pool, error) {
	switch c := cmd.(type) {
	case CreatePoolCommand:
		return p.engine.CreatePool(ctx, pool, a[0], staking.PoolConfig{
			ID:                c.ID,
			Asset:             c.Asset,
			Owner:             a[1],
			RewardTimelines:   c.RewardTimelines,
			RewardPercentages: c.RewardPercentages,
		})
	case StakeCommand:
		return p.engine.StakeTokens(ctx, pool, stakeAccounts(a), c.Amount)
	case UnstakeCommand:
		return p.engine.UnstakeTokens(ctx, pool, unstakeAccounts(a))
	case ClaimCommand:
		return p.engine.ClaimRewards(ctx, pool, claimAccounts(a), p.engine.Now())
	case AddLiquidityCommand:
		return p.engine.AddLiquidity(ctx, pool, liquidityAccounts(a), c.Amount)
	case RemoveLiquidityCommand:
		return p.engine.RemoveLiquidity(ctx, pool, withdrawAccounts(a))
	case FundRewardsCommand:
		return p.engine.FundRewards(ctx, pool, liquidityAccounts(a), c.Amount)
	default:
		return pool, fmt.Errorf("unsupported command %T: %w", cmd, staking.ErrInvalidCommand)
	}
}

// Instruction builds a solana-go instruction carrying cmd for programID.
// The first account is marked as signer; the rest are writable.
func Instruction(programID solana.PublicKey, cmd Command, accounts []solana.PublicKey) (solana.Instruction, error) {
	if err := checkAccounts(cmd.Opcode(), accounts); err != nil {
		return nil, err
	}
	data, err := EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}
	metas := make(solana.AccountMetaSlice, 0, len(accounts))
	for i, acc := range accounts {
		metas = append(metas, solana.NewAccountMeta(acc, i > 0, i == 0))
	}
	return solana.NewInstruction(programID, metas, data), nil
}
