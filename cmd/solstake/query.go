package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Sonia-Koppisetti/SolStake/internal/export"
	"github.com/Sonia-Koppisetti/SolStake/internal/monitor"
	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/screen"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/style"
)

// poolDocument is the yaml form of a stored pool.
type poolDocument struct {
	Address           string          `yaml:"address"`
	ID                string          `yaml:"id"`
	Owner             string          `yaml:"owner"`
	Asset             string          `yaml:"asset"`
	RewardTimelines   []uint32        `yaml:"reward_timelines"`
	RewardPercentages []uint8         `yaml:"reward_percentages"`
	TotalLiquidity    uint64          `yaml:"total_liquidity"`
	AvailableRewards  uint64          `yaml:"available_rewards"`
	Liability         uint64          `yaml:"outstanding_rewards"`
	Stakes            []stakeDocument `yaml:"stakes"`
}

type stakeDocument struct {
	Participant        string    `yaml:"participant"`
	Amount             uint64    `yaml:"amount"`
	StartedAt          time.Time `yaml:"started_at"`
	RewardsClaimedUpTo int32     `yaml:"rewards_claimed_up_to"`
}

func newPoolDocument(address solana.PublicKey, pool staking.Pool) (poolDocument, error) {
	liability, err := staking.Liability(pool)
	if err != nil {
		return poolDocument{}, err
	}
	doc := poolDocument{
		Address:           address.String(),
		ID:                pool.ID,
		Owner:             pool.Owner.String(),
		Asset:             pool.Asset.String(),
		RewardTimelines:   pool.RewardTimelines,
		RewardPercentages: pool.RewardPercentages,
		TotalLiquidity:    pool.TotalLiquidity,
		AvailableRewards:  pool.AvailableRewards,
		Liability:         liability,
		Stakes:            []stakeDocument{},
	}
	for _, rec := range pool.Stakes.Records() {
		doc.Stakes = append(doc.Stakes, stakeDocument{
			Participant:        rec.Participant.String(),
			Amount:             rec.Amount,
			StartedAt:          rec.Started(),
			RewardsClaimedUpTo: rec.RewardsClaimedUpTo,
		})
	}
	return doc, nil
}

func renderPool(address solana.PublicKey, pool staking.Pool, format string) (string, error) {
	switch format {
	case "table", "":
		return screen.Pool(address, pool), nil
	case "yaml":
		if !pool.Initialized() {
			return "", fmt.Errorf("pool %s: %w", address, staking.ErrNotFound)
		}
		doc, err := newPoolDocument(address, pool)
		if err != nil {
			return "", err
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("unknown format %q (table, yaml)", format)
	}
}

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show a stored pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format := mustString(cmd, "format")
			return withSession(cmd, func(ctx context.Context, s *session) error {
				address, err := s.runner.Keys().Resolve(mustString(cmd, "pool"))
				if err != nil {
					return fmt.Errorf("--pool: %w", err)
				}
				pool, err := s.runner.Snapshot(ctx, address)
				if err != nil {
					return err
				}
				out, err := renderPool(address, pool, format)
				if err != nil {
					return err
				}
				printOut(cmd, out)
				return nil
			})
		},
	}
	cmd.Flags().String("pool", "", "pool slot address")
	cmd.Flags().String("format", "table", "output format (table, yaml)")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func newQuoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Preview the reward a claim would pay now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				keys := s.runner.Keys()
				address, err := keys.Resolve(mustString(cmd, "pool"))
				if err != nil {
					return fmt.Errorf("--pool: %w", err)
				}
				participant, err := keys.Resolve(mustString(cmd, "participant"))
				if err != nil {
					return fmt.Errorf("--participant: %w", err)
				}
				q, err := s.runner.Quote(ctx, address, participant)
				if err != nil {
					return err
				}
				printOut(cmd, screen.Quote(q))
				return nil
			})
		},
	}
	cmd.Flags().String("pool", "", "pool slot address")
	cmd.Flags().String("participant", "", "participant (keyring name or base58 key)")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("participant")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent operations journaled for a pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			committedOnly, _ := cmd.Flags().GetBool("committed-only")
			opts := export.Options{
				Format:          export.Format(mustString(cmd, "export")),
				OperationFilter: mustString(cmd, "operation"),
				OnlyCommitted:   committedOnly,
				OutputDir:       mustString(cmd, "export-dir"),
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				address, err := s.runner.Keys().Resolve(mustString(cmd, "pool"))
				if err != nil {
					return fmt.Errorf("--pool: %w", err)
				}
				entries, err := s.runner.History(ctx, address, limit)
				if err != nil {
					return err
				}
				if opts.Format == "" {
					printOut(cmd, screen.History(entries))
					return nil
				}
				path, err := export.NewJournalExporter(s.log.Logger).Export(entries, opts)
				if err != nil {
					return err
				}
				printOut(cmd, style.SuccessStyle.Render("exported to "+path))
				return nil
			})
		},
	}
	cmd.Flags().String("pool", "", "pool slot address")
	cmd.Flags().Int("limit", 20, "number of entries")
	cmd.Flags().String("export", "", "write entries to a file instead (csv, json)")
	cmd.Flags().String("export-dir", ".", "directory for --export files")
	cmd.Flags().String("operation", "", "only export this operation (e.g. stake)")
	cmd.Flags().Bool("committed-only", false, "skip rejected entries when exporting")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

func newAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check reward reserves against outstanding rewards for every stored pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			watch, _ := cmd.Flags().GetBool("watch")
			pairs, _ := cmd.Flags().GetStringSlice("reserve")
			return withSession(cmd, func(ctx context.Context, s *session) error {
				reserves, err := parseReserves(pairs, s.runner.Keys())
				if err != nil {
					return err
				}
				auditor := s.runner.Auditor(reserves)
				if !watch {
					report, err := auditor.Run(ctx)
					if err != nil {
						return err
					}
					printOut(cmd, screen.Audit(report))
					return nil
				}
				return watchAudit(ctx, cmd, s, auditor)
			})
		},
	}
	cmd.Flags().Bool("watch", false, "keep running the audit on audit_schedule until interrupted")
	cmd.Flags().String("audit-schedule", "", "cron spec or descriptor for --watch (e.g. \"@every 1h\")")
	cmd.Flags().StringSlice("reserve", nil, "pool=reserve_token pairs checked against on-chain balances")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while watching (e.g. :9090)")
	return cmd
}

func watchAudit(ctx context.Context, cmd *cobra.Command, s *session, auditor *monitor.Auditor) error {
	scheduler, err := monitor.NewScheduler(ctx, s.cfg.AuditSchedule, auditor, s.log.Logger)
	if err != nil {
		return err
	}
	s.log.Info("Watching reserves", zap.String("schedule", s.cfg.AuditSchedule))

	if addr := mustString(cmd, "metrics-addr"); addr != "" {
		stopMetrics := serveMetrics(addr, s)
		defer stopMetrics()
	}

	scheduler.RunNow(ctx)
	if report, runs := scheduler.Last(); runs > 0 {
		printOut(cmd, screen.Audit(report))
	}
	scheduler.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return scheduler.Stop(stopCtx)
}

// serveMetrics exposes /metrics until the returned function is called.
func serveMetrics(addr string, s *session) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.runner.Metrics().Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	s.log.Info("Serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
