// =============================
// File: internal/runtime/executor.go
// =============================
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/events"
	"github.com/Sonia-Koppisetti/SolStake/internal/journal"
	"github.com/Sonia-Koppisetti/SolStake/internal/program"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
	"github.com/Sonia-Koppisetti/SolStake/internal/storage"
)

// Result describes a committed instruction.
type Result struct {
	Pool      staking.Pool
	Command   program.Command
	Amount    uint64
	JournalID int64
}

// Executor is the single writer for pool slots: one instruction per slot at
// a time, and the stored record changes only after the processor succeeds.
type Executor struct {
	store     storage.PoolStore
	processor *program.Processor
	journal   journal.Recorder
	bus       *events.Bus
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[solana.PublicKey]*slotLock
}

// slotLock is removed from the map when the last holder or waiter leaves.
type slotLock struct {
	mu   sync.Mutex
	refs int
}

// NewExecutor wires the executor. journal and bus may be nil.
func NewExecutor(store storage.PoolStore, processor *program.Processor, rec journal.Recorder, bus *events.Bus, logger *zap.Logger) *Executor {
	if rec == nil {
		rec = journal.NewNoopRecorder()
	}
	return &Executor{
		store:     store,
		processor: processor,
		journal:   rec,
		bus:       bus,
		logger:    logger.Named("executor"),
		locks:     make(map[solana.PublicKey]*slotLock),
	}
}

func (x *Executor) lock(address solana.PublicKey) func() {
	x.mu.Lock()
	l, ok := x.locks[address]
	if !ok {
		l = &slotLock{}
		x.locks[address] = l
	}
	l.refs++
	x.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		x.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(x.locks, address)
		}
		x.mu.Unlock()
	}
}

// Execute runs one instruction against the pool stored at address:
// load, process, persist, journal, publish.
func (x *Executor) Execute(ctx context.Context, address solana.PublicKey, accounts []solana.PublicKey, data []byte) (Result, error) {
	unlock := x.lock(address)
	defer unlock()

	log := x.logger.With(zap.String("pool_address", address.String()))

	pool, err := x.load(ctx, address)
	if err != nil {
		return Result{}, err
	}

	next, cmd, err := x.processor.Process(ctx, pool, accounts, data)
	if err != nil {
		x.reject(ctx, log, address, pool, accounts, cmd, data, err)
		return Result{}, err
	}

	encoded, err := program.EncodePool(next)
	if err != nil {
		return Result{}, fmt.Errorf("encode pool %s: %w", address, err)
	}
	if err := x.store.Save(ctx, address, encoded); err != nil {
		// Transfer already happened; the record is stale until reconciled.
		log.Error("Failed to persist committed operation",
			zap.Stringer("opcode", cmd.Opcode()),
			zap.Error(err))
		return Result{}, fmt.Errorf("persist pool %s: %w", address, err)
	}

	res := Result{Pool: next, Command: cmd, Amount: movedAmount(cmd, pool, next, signerOf(accounts))}

	entry := &journal.Entry{
		PoolAddress: address,
		PoolID:      next.ID,
		Operation:   cmd.Opcode().String(),
		Signer:      signerOf(accounts),
		Amount:      res.Amount,
		Outcome:     journal.OutcomeCommitted,
		Data:        data,
	}
	if res.JournalID, err = x.journal.Record(ctx, entry); err != nil {
		log.Error("Failed to journal operation", zap.Error(err))
	}

	x.publish(log, events.OperationCommittedEvent{
		BaseEvent:   events.NewBase(events.OperationCommitted),
		PoolAddress: address,
		PoolID:      next.ID,
		Operation:   entry.Operation,
		Signer:      entry.Signer,
		Amount:      res.Amount,
		JournalID:   res.JournalID,
	})

	log.Info("Operation committed",
		zap.Stringer("opcode", cmd.Opcode()),
		zap.Uint64("amount", res.Amount),
		zap.Int64("journal_id", res.JournalID))
	return res, nil
}

// Snapshot returns the current pool stored at address.
func (x *Executor) Snapshot(ctx context.Context, address solana.PublicKey) (staking.Pool, error) {
	unlock := x.lock(address)
	defer unlock()
	return x.load(ctx, address)
}

// Addresses lists the stored slots.
func (x *Executor) Addresses(ctx context.Context) ([]solana.PublicKey, error) {
	return x.store.List(ctx)
}

// History returns recent journal entries for address.
func (x *Executor) History(ctx context.Context, address solana.PublicKey, limit int) ([]journal.Entry, error) {
	return x.journal.Recent(ctx, address, limit)
}

func (x *Executor) load(ctx context.Context, address solana.PublicKey) (staking.Pool, error) {
	raw, err := x.store.Load(ctx, address)
	if err != nil {
		return staking.Pool{}, fmt.Errorf("load pool %s: %w", address, err)
	}
	pool, err := program.DecodePool(raw)
	if err != nil {
		return staking.Pool{}, fmt.Errorf("pool record %s: %w", address, err)
	}
	return pool, nil
}

func (x *Executor) reject(ctx context.Context, log *zap.Logger, address solana.PublicKey, pool staking.Pool,
	accounts []solana.PublicKey, cmd program.Command, data []byte, cause error) {
	op := "unknown"
	if cmd != nil {
		op = cmd.Opcode().String()
	}
	code := 0
	if c, ok := staking.CodeOf(cause); ok {
		code = int(c)
	}
	unconfirmed := errors.Is(cause, staking.ErrTransferUnconfirmed)
	outcome := journal.OutcomeRejected
	if unconfirmed {
		outcome = journal.OutcomeUnconfirmed
	}

	// контекст операции может быть уже отменён, а запись нужна для сверки
	journalCtx := ctx
	if unconfirmed {
		journalCtx = context.WithoutCancel(ctx)
	}
	id, err := x.journal.Record(journalCtx, &journal.Entry{
		PoolAddress: address,
		PoolID:      pool.ID,
		Operation:   op,
		Signer:      signerOf(accounts),
		Outcome:     outcome,
		Code:        code,
		Error:       cause.Error(),
		Data:        data,
	})
	if err != nil {
		log.Error("Failed to journal rejection", zap.Error(err))
	}

	if unconfirmed {
		log.Error("Transfer outcome unknown, pool record not updated; reconcile against chain",
			zap.String("operation", op),
			zap.String("signer", signerOf(accounts).String()),
			zap.Int64("journal_id", id),
			zap.Error(cause))
		x.publish(log, events.TransferUnconfirmedEvent{
			BaseEvent:   events.NewBase(events.TransferUnconfirmed),
			PoolAddress: address,
			PoolID:      pool.ID,
			Operation:   op,
			Signer:      signerOf(accounts),
			Error:       cause,
		})
		return
	}

	x.publish(log, events.OperationRejectedEvent{
		BaseEvent:   events.NewBase(events.OperationRejected),
		PoolAddress: address,
		Operation:   op,
		Code:        code,
		Error:       cause,
	})
}

func (x *Executor) publish(log *zap.Logger, e events.Event) {
	if x.bus == nil {
		return
	}
	if err := x.bus.Publish(e); err != nil && !errors.Is(err, events.ErrBusClosed) {
		log.Warn("Event not published", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}

func signerOf(accounts []solana.PublicKey) solana.PublicKey {
	if len(accounts) == 0 {
		return solana.PublicKey{}
	}
	return accounts[0]
}

// movedAmount reports how many tokens the committed command transferred.
func movedAmount(cmd program.Command, before, after staking.Pool, signer solana.PublicKey) uint64 {
	switch c := cmd.(type) {
	case program.StakeCommand:
		return c.Amount
	case program.AddLiquidityCommand:
		return c.Amount
	case program.FundRewardsCommand:
		return c.Amount
	case program.UnstakeCommand:
		if rec, ok := before.Stake(signer); ok {
			return rec.Amount
		}
	case program.ClaimCommand:
		return before.AvailableRewards - after.AvailableRewards
	case program.RemoveLiquidityCommand:
		return before.TotalLiquidity
	}
	return 0
}
