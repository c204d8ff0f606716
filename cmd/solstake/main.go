// ====================================
// File: cmd/solstake/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sonia-Koppisetti/SolStake/internal/app"
	"github.com/Sonia-Koppisetti/SolStake/internal/config"
	"github.com/Sonia-Koppisetti/SolStake/internal/utils/logger"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "solstake",
		Short:        "Staking pool accounting engine",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.StringSlice("rpc-list", nil, "RPC endpoints in failover order")
	pf.String("storage", "", "pool storage backend (file, postgres)")
	pf.String("data-dir", "", "directory for file storage")
	pf.String("postgres-url", "", "Postgres DSN")
	pf.String("journal-path", "", "SQLite operation journal path")
	pf.String("keyring-path", "", "CSV keyring (name,private_key)")
	pf.String("fee-payer", "", "fee payer public key")
	pf.String("gateway", "", "transfer gateway (spl, memory)")
	pf.Duration("time-unit", 0, "length of one reward time unit")
	pf.Duration("confirm-timeout", 0, "transfer confirmation timeout")
	pf.Int("blockhash-retries", 0, "blockhash fetch attempts")
	pf.String("log-file", "", "rotated JSON log file")
	pf.Bool("debug-logging", false, "enable debug logs")
	pf.Bool("dry-run", false, "simulate transfers in memory (same as --gateway memory)")

	root.AddCommand(
		newCreatePoolCommand(),
		newStakeCommand(),
		newUnstakeCommand(),
		newClaimCommand(),
		newAddLiquidityCommand(),
		newRemoveLiquidityCommand(),
		newFundRewardsCommand(),
		newExecCommand(),
		newInspectCommand(),
		newQuoteCommand(),
		newHistoryCommand(),
		newAuditCommand(),
	)
	return root
}

// session holds what every subcommand needs.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	runner *app.Runner
}

// withSession loads config, builds the logger and runner, runs fn and tears
// everything down. SIGINT/SIGTERM cancel the context passed to fn.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	flags := cmd.Flags()
	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		if err := flags.Set("gateway", config.GatewayMemory); err != nil {
			return err
		}
	}
	cfgFile, _ := flags.GetString("config")
	cfg, err := config.LoadConfig(cfgFile, flags)
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	end := log.TrackPerformance(cmd.Name())
	defer end()

	runner, err := app.NewRunner(ctx, cfg, log.WithComponent(cmd.Name()))
	if err != nil {
		log.LogError("Failed to initialize", err)
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := runner.Close(closeCtx); err != nil {
			log.LogError("Shutdown failed", err)
		}
	}()

	return fn(ctx, &session{cfg: cfg, log: log, runner: runner})
}

func printOut(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}
