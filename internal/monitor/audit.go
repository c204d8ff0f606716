// internal/monitor/audit.go
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Sonia-Koppisetti/SolStake/internal/blockchain"
	"github.com/Sonia-Koppisetti/SolStake/internal/events"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

// AlertType represents different types of audit alerts
type AlertType string

const (
	AlertReserveShortfall AlertType = "reserve_shortfall"
	AlertUnbackedStake    AlertType = "unbacked_stake"
	AlertReserveBalance   AlertType = "reserve_balance_mismatch"
	AlertUnreadable       AlertType = "unreadable_pool"
)

// Alert is one problem found in a pool.
type Alert struct {
	Type     AlertType
	Severity string // "warning", "critical"
	Message  string
}

// Finding is the audit result for a single pool slot.
type Finding struct {
	Address          solana.PublicKey
	PoolID           string
	Stakers          int
	StakedLiquidity  uint64
	TotalLiquidity   uint64
	AvailableRewards uint64
	Liability        uint64
	ReserveBalance   *uint64 // on-chain balance when a reserve account is known
	Alerts           []Alert
}

// Healthy reports whether the finding carries no alerts.
func (f Finding) Healthy() bool {
	return len(f.Alerts) == 0
}

// Report summarises one audit run.
type Report struct {
	Findings   []Finding
	Shortfalls int
	Failures   int
	Duration   time.Duration
}

// PoolSource enumerates and loads stored pools.
type PoolSource interface {
	Addresses(ctx context.Context) ([]solana.PublicKey, error)
	Snapshot(ctx context.Context, address solana.PublicKey) (staking.Pool, error)
}

// AuditorConfig configures an Auditor.
type AuditorConfig struct {
	Source      PoolSource
	Balances    blockchain.Client                     // optional
	Reserves    map[solana.PublicKey]solana.PublicKey // pool slot -> reserve token account
	Bus         *events.Bus                           // optional
	Concurrency int
	Logger      *zap.Logger
}

// Auditor checks reserve coverage across pools.
type Auditor struct {
	cfg    AuditorConfig
	logger *zap.Logger
}

// NewAuditor creates an auditor.
func NewAuditor(cfg AuditorConfig) *Auditor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Auditor{cfg: cfg, logger: cfg.Logger.Named("audit")}
}

// Run audits every stored pool. Per-pool failures are reported as alerts;
// only listing errors and context cancellation fail the run.
func (a *Auditor) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	addresses, err := a.cfg.Source.Addresses(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list pools: %w", err)
	}

	var mu sync.Mutex
	findings := make([]Finding, 0, len(addresses))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for _, address := range addresses {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			f := a.auditPool(gCtx, address)
			mu.Lock()
			findings = append(findings, f)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Address.String() < findings[j].Address.String()
	})
	report := Report{Findings: findings, Duration: time.Since(start)}
	for _, f := range findings {
		for _, alert := range f.Alerts {
			switch alert.Type {
			case AlertUnreadable:
				report.Failures++
			case AlertReserveShortfall:
				report.Shortfalls++
				a.publish(events.ReserveShortfallEvent{
					BaseEvent:   events.NewBase(events.ReserveShortfall),
					PoolAddress: f.Address,
					PoolID:      f.PoolID,
					Liability:   f.Liability,
					Available:   f.AvailableRewards,
				})
			}
		}
	}

	a.publish(events.AuditCompletedEvent{
		BaseEvent:  events.NewBase(events.AuditCompleted),
		Pools:      len(findings),
		Shortfalls: report.Shortfalls,
		Failures:   report.Failures,
		Duration:   report.Duration,
	})
	a.logger.Info("Audit completed",
		zap.Int("pools", len(findings)),
		zap.Int("shortfalls", report.Shortfalls),
		zap.Int("failures", report.Failures),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (a *Auditor) auditPool(ctx context.Context, address solana.PublicKey) Finding {
	f := Finding{Address: address}
	unreadable := func(err error) Finding {
		a.logger.Warn("Pool not audited", zap.String("pool_address", address.String()), zap.Error(err))
		f.Alerts = append(f.Alerts, Alert{Type: AlertUnreadable, Severity: "critical", Message: err.Error()})
		return f
	}

	pool, err := a.cfg.Source.Snapshot(ctx, address)
	if err != nil {
		return unreadable(err)
	}
	if !pool.Initialized() {
		return f
	}
	f.PoolID = pool.ID
	f.Stakers = pool.Stakes.Len()
	f.TotalLiquidity = pool.TotalLiquidity
	f.AvailableRewards = pool.AvailableRewards

	if f.StakedLiquidity, err = pool.StakedLiquidity(); err != nil {
		return unreadable(err)
	}
	if f.Liability, err = staking.Liability(pool); err != nil {
		return unreadable(err)
	}

	if f.Liability > f.AvailableRewards {
		f.Alerts = append(f.Alerts, Alert{
			Type:     AlertReserveShortfall,
			Severity: "warning",
			Message:  fmt.Sprintf("outstanding rewards %d exceed reserve %d", f.Liability, f.AvailableRewards),
		})
	}
	if f.StakedLiquidity > f.TotalLiquidity {
		f.Alerts = append(f.Alerts, Alert{
			Type:     AlertUnbackedStake,
			Severity: "critical",
			Message:  fmt.Sprintf("staked %d but liquidity is %d", f.StakedLiquidity, f.TotalLiquidity),
		})
	}

	if reserve, ok := a.cfg.Reserves[address]; ok && a.cfg.Balances != nil {
		balance, err := a.cfg.Balances.GetTokenBalance(ctx, reserve)
		if err != nil {
			return unreadable(fmt.Errorf("reserve balance %s: %w", reserve, err))
		}
		f.ReserveBalance = &balance
		if balance < f.AvailableRewards {
			f.Alerts = append(f.Alerts, Alert{
				Type:     AlertReserveBalance,
				Severity: "critical",
				Message:  fmt.Sprintf("reserve account holds %d, record says %d", balance, f.AvailableRewards),
			})
		}
	}
	return f
}

func (a *Auditor) publish(e events.Event) {
	if a.cfg.Bus == nil {
		return
	}
	if err := a.cfg.Bus.Publish(e); err != nil {
		a.logger.Debug("Audit event not published", zap.Error(err))
	}
}
