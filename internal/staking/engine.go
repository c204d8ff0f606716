// =============================
// File: internal/staking/engine.go
// =============================
package staking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// DefaultTimeUnit is the length of one reward timeline unit.
const DefaultTimeUnit = 24 * time.Hour

// Options tune the engine.
type Options struct {
	Clock    func() time.Time
	TimeUnit time.Duration
}

// Option mutates Options.
type Option func(*Options)

// WithClock replaces the wall clock used for stake start times.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// WithTimeUnit sets the duration of one timeline unit.
func WithTimeUnit(unit time.Duration) Option {
	return func(o *Options) {
		if unit > 0 {
			o.TimeUnit = unit
		}
	}
}

// Engine applies the pool operations. It holds no pool state: every call
// receives a Pool and returns the updated copy, leaving the input untouched.
// Callers must serialize calls per pool.
type Engine struct {
	gateway Gateway
	logger  *zap.Logger
	opts    Options
}

// RewardQuote previews what ClaimRewards would pay right now.
type RewardQuote struct {
	Participant solana.PublicKey
	Elapsed     uint64 // whole time units since the stake started
	Tier        int
	Percentage  uint8
	Amount      uint64
	Claimable   bool  // false when the tier is already paid or the reserve is short
	Reason      error // why Claimable is false
}

// NewEngine creates an engine bound to a transfer gateway.
func NewEngine(gateway Gateway, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if gateway == nil {
		return nil, fmt.Errorf("gateway cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := Options{Clock: time.Now, TimeUnit: DefaultTimeUnit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		gateway: gateway,
		logger:  logger.Named("staking"),
		opts:    o,
	}, nil
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.opts.Clock()
}

// TimeUnit returns the configured timeline unit.
func (e *Engine) TimeUnit() time.Duration {
	return e.opts.TimeUnit
}

// CreatePool initializes an empty pool slot. The caller must be the owner
// attested for the slot.
func (e *Engine) CreatePool(ctx context.Context, pool Pool, caller solana.PublicKey, cfg PoolConfig) (Pool, error) {
	log := e.logger.With(zap.String("op", "create_pool"), zap.String("pool_id", cfg.ID))
	log.Debug("Creating pool", zap.Stringer("caller", caller), zap.Stringer("owner", cfg.Owner))

	if !caller.Equals(cfg.Owner) {
		return pool, e.reject(log, fmt.Errorf("caller %s is not owner %s: %w", caller, cfg.Owner, ErrUnauthorized))
	}
	if pool.Initialized() {
		return pool, e.reject(log, fmt.Errorf("pool %q: %w", pool.ID, ErrAlreadyInitialized))
	}
	if cfg.ID == "" {
		return pool, e.reject(log, fmt.Errorf("pool id is empty: %w", ErrMalformedInput))
	}
	if err := ValidateSchedule(cfg.RewardTimelines, cfg.RewardPercentages); err != nil {
		return pool, e.reject(log, err)
	}

	next := Pool{
		ID:                cfg.ID,
		Asset:             cfg.Asset,
		RewardTimelines:   append([]uint32(nil), cfg.RewardTimelines...),
		RewardPercentages: append([]uint8(nil), cfg.RewardPercentages...),
		Stakes:            NewLedger(),
		Owner:             cfg.Owner,
	}
	log.Info("Pool created",
		zap.Stringer("asset", cfg.Asset),
		zap.Uint32s("timelines", cfg.RewardTimelines),
		zap.Int("tiers", len(cfg.RewardTimelines)))
	return next, nil
}

// StakeTokens moves amount from the participant into pool custody and opens
// a position.
func (e *Engine) StakeTokens(ctx context.Context, pool Pool, acc StakeAccounts, amount uint64) (Pool, error) {
	log := e.logger.With(zap.String("op", "stake"), zap.String("pool_id", pool.ID),
		zap.Stringer("participant", acc.Participant), zap.Uint64("amount", amount))
	log.Debug("Staking tokens")

	if err := requireInitialized(pool); err != nil {
		return pool, e.reject(log, err)
	}
	next := pool.Clone()
	if err := next.Stakes.CanUpsert(acc.Participant, amount); err != nil {
		return pool, e.reject(log, err)
	}
	liquidity, err := addAmount(next.TotalLiquidity, amount)
	if err != nil {
		return pool, e.reject(log, err)
	}

	if err := e.transfer(ctx, Transfer{
		From:      acc.ParticipantToken,
		To:        acc.PoolToken,
		Authority: acc.Participant,
		Amount:    amount,
	}); err != nil {
		return pool, e.reject(log, err)
	}

	if err := next.Stakes.Upsert(acc.Participant, amount, e.opts.Clock()); err != nil {
		// CanUpsert passed on the same ledger, so this is unreachable.
		return pool, e.reject(log, err)
	}
	next.TotalLiquidity = liquidity
	log.Info("Stake opened", zap.Uint64("total_liquidity", liquidity))
	return next, nil
}

// UnstakeTokens returns the participant's principal and closes the position.
func (e *Engine) UnstakeTokens(ctx context.Context, pool Pool, acc UnstakeAccounts) (Pool, error) {
	log := e.logger.With(zap.String("op", "unstake"), zap.String("pool_id", pool.ID),
		zap.Stringer("participant", acc.Participant))
	log.Debug("Unstaking tokens")

	if err := requireInitialized(pool); err != nil {
		return pool, e.reject(log, err)
	}
	rec, ok := pool.Stake(acc.Participant)
	if !ok {
		return pool, e.reject(log, fmt.Errorf("participant %s: %w", acc.Participant, ErrNotFound))
	}
	if rec.Amount == 0 {
		log.Debug("Zero-amount position, nothing to return")
		return pool, nil
	}
	liquidity, err := subReserve(pool.TotalLiquidity, rec.Amount)
	if err != nil {
		return pool, e.reject(log, fmt.Errorf("pool liquidity cannot back stake: %w", err))
	}

	if err := e.transfer(ctx, Transfer{
		From:      acc.PoolToken,
		To:        acc.ParticipantToken,
		Authority: acc.Custodian,
		Amount:    rec.Amount,
	}); err != nil {
		return pool, e.reject(log, err)
	}

	next := pool.Clone()
	if _, err := next.Stakes.Remove(acc.Participant); err != nil {
		return pool, e.reject(log, err)
	}
	next.TotalLiquidity = liquidity
	log.Info("Stake closed", zap.Uint64("amount", rec.Amount), zap.Uint64("total_liquidity", liquidity))
	return next, nil
}

// ClaimRewards pays the reward of the highest tier reached at now, if that
// tier has not been paid yet.
func (e *Engine) ClaimRewards(ctx context.Context, pool Pool, acc ClaimAccounts, now time.Time) (Pool, error) {
	log := e.logger.With(zap.String("op", "claim"), zap.String("pool_id", pool.ID),
		zap.Stringer("participant", acc.Participant))
	log.Debug("Claiming rewards", zap.Time("now", now))

	if err := requireInitialized(pool); err != nil {
		return pool, e.reject(log, err)
	}
	q, err := e.Quote(pool, acc.Participant, now)
	if err != nil {
		return pool, e.reject(log, err)
	}
	if !q.Claimable {
		return pool, e.reject(log.With(zap.Int("tier", q.Tier)), q.Reason)
	}
	reserve, err := subReserve(pool.AvailableRewards, q.Amount)
	if err != nil {
		return pool, e.reject(log, err)
	}

	if err := e.transfer(ctx, Transfer{
		From:      acc.ReserveToken,
		To:        acc.ParticipantToken,
		Authority: acc.Custodian,
		Amount:    q.Amount,
	}); err != nil {
		return pool, e.reject(log, err)
	}

	next := pool.Clone()
	if err := next.Stakes.MarkClaimed(acc.Participant, int32(q.Tier)); err != nil {
		return pool, e.reject(log, err)
	}
	next.AvailableRewards = reserve
	log.Info("Reward paid",
		zap.Int("tier", q.Tier),
		zap.Uint64("amount", q.Amount),
		zap.Uint64("available_rewards", reserve))
	return next, nil
}

// AddLiquidity deposits owner funds. The deposit counts toward both
// liquidity and the reward reserve.
func (e *Engine) AddLiquidity(ctx context.Context, pool Pool, acc LiquidityAccounts, amount uint64) (Pool, error) {
	log := e.logger.With(zap.String("op", "add_liquidity"), zap.String("pool_id", pool.ID),
		zap.Stringer("caller", acc.Caller), zap.Uint64("amount", amount))
	log.Debug("Adding liquidity")

	if err := e.requireOwner(pool, acc.Caller); err != nil {
		return pool, e.reject(log, err)
	}
	if amount == 0 {
		return pool, e.reject(log, fmt.Errorf("liquidity amount must be positive: %w", ErrInvalidAmount))
	}
	liquidity, err := addAmount(pool.TotalLiquidity, amount)
	if err != nil {
		return pool, e.reject(log, err)
	}
	reserve, err := addAmount(pool.AvailableRewards, amount)
	if err != nil {
		return pool, e.reject(log, err)
	}

	if err := e.transfer(ctx, Transfer{
		From:      acc.CallerToken,
		To:        acc.PoolToken,
		Authority: acc.Caller,
		Amount:    amount,
	}); err != nil {
		return pool, e.reject(log, err)
	}

	next := pool.Clone()
	next.TotalLiquidity = liquidity
	next.AvailableRewards = reserve
	log.Info("Liquidity added",
		zap.Uint64("total_liquidity", liquidity),
		zap.Uint64("available_rewards", reserve))
	return next, nil
}

// RemoveLiquidity sweeps all pool liquidity to the owner and zeroes the
// reserve. Stake records are left in place and become unbacked.
func (e *Engine) RemoveLiquidity(ctx context.Context, pool Pool, acc WithdrawAccounts) (Pool, error) {
	log := e.logger.With(zap.String("op", "remove_liquidity"), zap.String("pool_id", pool.ID),
		zap.Stringer("caller", acc.Caller))
	log.Debug("Removing liquidity", zap.Uint64("total_liquidity", pool.TotalLiquidity))

	if err := e.requireOwner(pool, acc.Caller); err != nil {
		return pool, e.reject(log, err)
	}

	swept := pool.TotalLiquidity
	if swept > 0 {
		if err := e.transfer(ctx, Transfer{
			From:      acc.PoolToken,
			To:        acc.CallerToken,
			Authority: acc.Custodian,
			Amount:    swept,
		}); err != nil {
			return pool, e.reject(log, err)
		}
	}

	next := pool.Clone()
	next.TotalLiquidity = 0
	next.AvailableRewards = 0
	if n := next.Stakes.Len(); n > 0 {
		log.Warn("Liquidity swept with open positions", zap.Int("unbacked_positions", n))
	}
	log.Info("Liquidity removed", zap.Uint64("amount", swept))
	return next, nil
}

// FundRewards tops up the reward reserve without touching liquidity.
func (e *Engine) FundRewards(ctx context.Context, pool Pool, acc LiquidityAccounts, amount uint64) (Pool, error) {
	log := e.logger.With(zap.String("op", "fund_rewards"), zap.String("pool_id", pool.ID),
		zap.Stringer("caller", acc.Caller), zap.Uint64("amount", amount))
	log.Debug("Funding rewards")

	if err := e.requireOwner(pool, acc.Caller); err != nil {
		return pool, e.reject(log, err)
	}
	if amount == 0 {
		return pool, e.reject(log, fmt.Errorf("reward amount must be positive: %w", ErrInvalidAmount))
	}
	reserve, err := addAmount(pool.AvailableRewards, amount)
	if err != nil {
		return pool, e.reject(log, err)
	}

	if err := e.transfer(ctx, Transfer{
		From:      acc.CallerToken,
		To:        acc.PoolToken,
		Authority: acc.Caller,
		Amount:    amount,
	}); err != nil {
		return pool, e.reject(log, err)
	}

	next := pool.Clone()
	next.AvailableRewards = reserve
	log.Info("Rewards funded", zap.Uint64("available_rewards", reserve))
	return next, nil
}

// Quote resolves the tier and reward a claim at now would use. It fails only
// when no claim could be evaluated at all (no position, no tier reached);
// a paid tier or a short reserve is reported through Claimable.
func (e *Engine) Quote(pool Pool, participant solana.PublicKey, now time.Time) (RewardQuote, error) {
	rec, ok := pool.Stake(participant)
	if !ok {
		return RewardQuote{}, fmt.Errorf("participant %s: %w", participant, ErrNotFound)
	}
	elapsed := e.Elapsed(rec, now)
	tier, err := ResolveTier(elapsed, pool.RewardTimelines)
	if err != nil {
		return RewardQuote{}, err
	}
	if tier >= len(pool.RewardPercentages) {
		return RewardQuote{}, fmt.Errorf("tier %d has no percentage: %w", tier, ErrInvalidScheduleConfig)
	}
	pct := pool.RewardPercentages[tier]
	amount, err := RewardAmount(pct, rec.Amount)
	if err != nil {
		return RewardQuote{}, err
	}

	q := RewardQuote{
		Participant: participant,
		Elapsed:     elapsed,
		Tier:        tier,
		Percentage:  pct,
		Amount:      amount,
		Claimable:   true,
	}
	switch {
	case int32(tier) <= rec.RewardsClaimedUpTo:
		q.Claimable = false
		q.Reason = fmt.Errorf("tier %d already paid (claimed up to %d): %w", tier, rec.RewardsClaimedUpTo, ErrAlreadyClaimed)
	case amount > pool.AvailableRewards:
		q.Claimable = false
		q.Reason = fmt.Errorf("reward %d exceeds reserve %d: %w", amount, pool.AvailableRewards, ErrInsufficientReserve)
	}
	return q, nil
}

// Elapsed returns the whole time units between the stake start and now.
// A start in the future counts as zero.
func (e *Engine) Elapsed(rec StakeRecord, now time.Time) uint64 {
	d := now.Sub(rec.Started())
	if d <= 0 {
		return 0
	}
	return uint64(d / e.opts.TimeUnit)
}

func (e *Engine) transfer(ctx context.Context, t Transfer) error {
	if err := e.gateway.Transfer(ctx, t); err != nil {
		return &TransferError{Transfer: t, Cause: err}
	}
	return nil
}

func (e *Engine) requireOwner(pool Pool, caller solana.PublicKey) error {
	if err := requireInitialized(pool); err != nil {
		return err
	}
	if !caller.Equals(pool.Owner) {
		return fmt.Errorf("caller %s is not owner %s: %w", caller, pool.Owner, ErrUnauthorized)
	}
	return nil
}

func (e *Engine) reject(log *zap.Logger, err error) error {
	fields := []zap.Field{zap.Error(err)}
	if code, ok := CodeOf(err); ok {
		fields = append(fields, zap.Uint32("code", uint32(code)))
	}
	var te *TransferError
	if errors.As(err, &te) {
		if te.Unconfirmed() {
			log.Error("Transfer outcome unknown, pool not updated; reconcile against chain", fields...)
			return err
		}
		log.Error("Transfer failed, pool unchanged", fields...)
		return err
	}
	log.Warn("Operation rejected", fields...)
	return err
}

func requireInitialized(pool Pool) error {
	if !pool.Initialized() {
		return fmt.Errorf("pool is not initialized: %w", ErrNotFound)
	}
	return nil
}
