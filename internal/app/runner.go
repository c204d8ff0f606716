// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/blockchain/solbc"
	"github.com/Sonia-Koppisetti/SolStake/internal/config"
	"github.com/Sonia-Koppisetti/SolStake/internal/events"
	"github.com/Sonia-Koppisetti/SolStake/internal/gateway"
	"github.com/Sonia-Koppisetti/SolStake/internal/journal"
	"github.com/Sonia-Koppisetti/SolStake/internal/monitor"
	"github.com/Sonia-Koppisetti/SolStake/internal/program"
	"github.com/Sonia-Koppisetti/SolStake/internal/runtime"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
	"github.com/Sonia-Koppisetti/SolStake/internal/storage"
	"github.com/Sonia-Koppisetti/SolStake/internal/storage/filestore"
	"github.com/Sonia-Koppisetti/SolStake/internal/storage/postgres"
	"github.com/Sonia-Koppisetti/SolStake/internal/utils/metrics"
	"github.com/Sonia-Koppisetti/SolStake/internal/wallet"
)

const eventBufferSize = 256

// Runner собирает все компоненты сервиса по конфигурации.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage.PoolStore
	journal  journal.Recorder
	bus      *events.Bus
	metrics  *metrics.Collector
	chain    *solbc.Client // nil for the memory gateway
	keys     *wallet.Keyring
	gateway  staking.Gateway
	engine   *staking.Engine
	executor *runtime.Executor
	shutdown *ShutdownHandler
}

// NewRunner wires storage, journal, event bus, transfer gateway, engine and
// executor. On error everything opened so far is closed again.
func NewRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Runner, err error) {
	shutdown := NewShutdownHandler(logger.Named("shutdown"), 10*time.Second)
	defer func() {
		if err != nil {
			_ = shutdown.Shutdown(context.Background())
		}
	}()
	r := &Runner{cfg: cfg, logger: logger, shutdown: shutdown}

	if r.store, err = openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}
	r.shutdown.Add("store", r.store)

	if cfg.JournalPath == "" {
		r.journal = journal.NewNoopRecorder()
	} else if r.journal, err = journal.NewSQLiteRecorder(cfg.JournalPath, logger); err != nil {
		return nil, err
	}
	r.shutdown.Add("journal", r.journal)

	r.bus = events.NewBus(logger, eventBufferSize)
	r.shutdown.AddFunc("event-bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})
	r.subscribeLogging()
	r.metrics = metrics.NewCollector()
	r.metrics.Subscribe(r.bus)

	if r.keys, err = loadKeyring(cfg); err != nil {
		return nil, err
	}
	gw, err := r.openGateway()
	if err != nil {
		return nil, err
	}
	r.gateway = r.metrics.InstrumentGateway(gw)

	if r.engine, err = staking.NewEngine(r.gateway, logger, staking.WithTimeUnit(cfg.TimeUnit)); err != nil {
		return nil, err
	}
	r.executor = runtime.NewExecutor(r.store, program.NewProcessor(r.engine, logger), r.journal, r.bus, logger)

	logger.Info("Runner initialized",
		zap.String("storage", cfg.Storage),
		zap.String("gateway", cfg.Gateway),
		zap.Duration("time_unit", cfg.TimeUnit),
		zap.Int("keys", len(r.keys.Names())))
	return r, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.PoolStore, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresURL, logger)
	default:
		return filestore.New(cfg.DataDir, logger)
	}
}

// loadKeyring читает связку ключей. Для шлюза memory файл необязателен.
func loadKeyring(cfg *config.Config) (*wallet.Keyring, error) {
	keys, err := wallet.LoadKeyring(cfg.KeyringPath)
	if err == nil {
		return keys, nil
	}
	if cfg.Gateway == config.GatewayMemory && errors.Is(err, os.ErrNotExist) {
		return wallet.NewKeyring(), nil
	}
	return nil, fmt.Errorf("load keyring: %w", err)
}

func (r *Runner) openGateway() (staking.Gateway, error) {
	if r.cfg.Gateway == config.GatewayMemory {
		r.logger.Warn("Memory gateway: transfers are simulated in memory; unknown accounts are auto-funded and owned by their first spender")
		return gateway.NewMemory(gateway.WithAutoFund()), nil
	}

	client, err := solbc.NewClient(r.cfg.RPCList, r.logger)
	if err != nil {
		return nil, err
	}
	r.chain = client

	if r.cfg.FeePayer == "" {
		return nil, errors.New("fee_payer is required for the spl gateway")
	}
	feePayer, err := r.keys.Resolve(r.cfg.FeePayer)
	if err != nil {
		return nil, err
	}
	return gateway.NewSPL(client, r.keys, gateway.SPLOptions{
		FeePayer:         feePayer,
		ConfirmTimeout:   r.cfg.ConfirmTimeout,
		BlockhashRetries: r.cfg.BlockhashRetries,
	}, r.logger)
}

func (r *Runner) subscribeLogging() {
	log := r.logger.Named("events")
	r.bus.SubscribeFunc(events.OperationRejected, func(_ context.Context, e events.Event) error {
		ev := e.(events.OperationRejectedEvent)
		log.Warn("Operation rejected",
			zap.String("pool_address", ev.PoolAddress.String()),
			zap.String("operation", ev.Operation),
			zap.Int("code", ev.Code),
			zap.Error(ev.Error))
		return nil
	})
	r.bus.SubscribeFunc(events.TransferUnconfirmed, func(_ context.Context, e events.Event) error {
		ev := e.(events.TransferUnconfirmedEvent)
		log.Error("Transfer outcome unknown, reconcile pool",
			zap.String("pool_address", ev.PoolAddress.String()),
			zap.String("pool_id", ev.PoolID),
			zap.String("operation", ev.Operation),
			zap.String("signer", ev.Signer.String()),
			zap.Error(ev.Error))
		return nil
	})
	r.bus.SubscribeFunc(events.ReserveShortfall, func(_ context.Context, e events.Event) error {
		ev := e.(events.ReserveShortfallEvent)
		log.Warn("Reward reserve shortfall",
			zap.String("pool_address", ev.PoolAddress.String()),
			zap.String("pool_id", ev.PoolID),
			zap.Uint64("liability", ev.Liability),
			zap.Uint64("available", ev.Available))
		return nil
	})
}

// Execute runs raw instruction data against the pool at address.
func (r *Runner) Execute(ctx context.Context, address solana.PublicKey, accounts []solana.PublicKey, data []byte) (runtime.Result, error) {
	return r.executor.Execute(ctx, address, accounts, data)
}

// Run encodes cmd and executes it.
func (r *Runner) Run(ctx context.Context, address solana.PublicKey, cmd program.Command, accounts []solana.PublicKey) (runtime.Result, error) {
	data, err := program.EncodeCommand(cmd)
	if err != nil {
		return runtime.Result{}, err
	}
	return r.Execute(ctx, address, accounts, data)
}

// Snapshot returns the stored pool at address.
func (r *Runner) Snapshot(ctx context.Context, address solana.PublicKey) (staking.Pool, error) {
	return r.executor.Snapshot(ctx, address)
}

// Quote previews the reward participant could claim now.
func (r *Runner) Quote(ctx context.Context, address, participant solana.PublicKey) (staking.RewardQuote, error) {
	pool, err := r.Snapshot(ctx, address)
	if err != nil {
		return staking.RewardQuote{}, err
	}
	if !pool.Initialized() {
		return staking.RewardQuote{}, fmt.Errorf("pool %s: %w", address, staking.ErrNotFound)
	}
	return r.engine.Quote(pool, participant, r.engine.Now())
}

// History returns recent journal entries for address.
func (r *Runner) History(ctx context.Context, address solana.PublicKey, limit int) ([]journal.Entry, error) {
	return r.executor.History(ctx, address, limit)
}

// Auditor creates a reserve auditor over every stored pool. reserves maps
// pool slots to their reserve token accounts for on-chain balance checks.
func (r *Runner) Auditor(reserves map[solana.PublicKey]solana.PublicKey) *monitor.Auditor {
	cfg := monitor.AuditorConfig{
		Source:   r.executor,
		Reserves: reserves,
		Bus:      r.bus,
		Logger:   r.logger,
	}
	if r.chain != nil {
		cfg.Balances = r.chain
	}
	return monitor.NewAuditor(cfg)
}

// Metrics returns the runner's metrics collector.
func (r *Runner) Metrics() *metrics.Collector {
	return r.metrics
}

// Keys returns the loaded keyring.
func (r *Runner) Keys() *wallet.Keyring {
	return r.keys
}

// Close releases every component in reverse order.
func (r *Runner) Close(ctx context.Context) error {
	return r.shutdown.Shutdown(ctx)
}
