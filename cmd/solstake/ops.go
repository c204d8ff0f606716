package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sonia-Koppisetti/SolStake/internal/program"
	"github.com/Sonia-Koppisetti/SolStake/internal/runtime"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/screen"
	"github.com/Sonia-Koppisetti/SolStake/internal/ui/style"
)

// instructionCommand builds a subcommand that executes one opcode against
// the pool given by --pool. build turns the parsed flags into the command.
func instructionCommand(use, short string, op program.Opcode, build func(cmd *cobra.Command) (program.Command, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().String("pool", "", "pool slot address (keyring name or base58 key)")
	_ = cmd.MarkFlagRequired("pool")
	addAccountFlags(cmd, op)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		instr, err := build(cmd)
		if err != nil {
			return err
		}
		return withSession(cmd, func(ctx context.Context, s *session) error {
			keys := s.runner.Keys()
			address, err := keys.Resolve(mustString(cmd, "pool"))
			if err != nil {
				return fmt.Errorf("--pool: %w", err)
			}
			accounts, err := accountsFromFlags(cmd, op, keys)
			if err != nil {
				return err
			}
			res, err := s.runner.Run(ctx, address, instr, accounts)
			if err != nil {
				s.log.Error("Instruction rejected", zap.Stringer("opcode", op), zap.Error(err))
				return err
			}
			printResult(cmd, address, res)
			return nil
		})
	}
	return cmd
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func printResult(cmd *cobra.Command, address solana.PublicKey, res runtime.Result) {
	printOut(cmd, style.SuccessStyle.Render(fmt.Sprintf("%s committed: amount %d, journal #%d",
		res.Command.Opcode(), res.Amount, res.JournalID)))
	printOut(cmd, screen.Pool(address, res.Pool))
}

func newCreatePoolCommand() *cobra.Command {
	cmd := instructionCommand("create-pool", "Initialize a pool slot with its reward schedule", program.OpCreatePool,
		func(cmd *cobra.Command) (program.Command, error) {
			id := mustString(cmd, "id")
			asset, err := solana.PublicKeyFromBase58(mustString(cmd, "asset"))
			if err != nil {
				return nil, fmt.Errorf("--asset: %w", err)
			}
			timelines, _ := cmd.Flags().GetUintSlice("timelines")
			percentages, _ := cmd.Flags().GetUintSlice("percentages")
			t, p, err := parseSchedule(timelines, percentages)
			if err != nil {
				return nil, err
			}
			return program.CreatePoolCommand{ID: id, Asset: asset, RewardTimelines: t, RewardPercentages: p}, nil
		})
	cmd.Flags().String("id", "", "pool identifier")
	cmd.Flags().String("asset", "", "mint of the staked token")
	cmd.Flags().UintSlice("timelines", nil, "tier thresholds in time units, ascending (e.g. 30,90,180)")
	cmd.Flags().UintSlice("percentages", nil, "reward percentage per tier (e.g. 5,10,20)")
	for _, name := range []string{"id", "asset", "timelines", "percentages"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// amountCommand is an instructionCommand whose only argument is --amount.
func amountCommand(use, short string, op program.Opcode, newCmd func(uint64) program.Command) *cobra.Command {
	cmd := instructionCommand(use, short, op, func(cmd *cobra.Command) (program.Command, error) {
		amount, _ := cmd.Flags().GetUint64("amount")
		return newCmd(amount), nil
	})
	cmd.Flags().Uint64("amount", 0, "token amount in base units")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newStakeCommand() *cobra.Command {
	return amountCommand("stake", "Open a staking position", program.OpStake,
		func(a uint64) program.Command { return program.StakeCommand{Amount: a} })
}

func newAddLiquidityCommand() *cobra.Command {
	return amountCommand("add-liquidity", "Deposit owner funds into liquidity and the reward reserve", program.OpAddLiquidity,
		func(a uint64) program.Command { return program.AddLiquidityCommand{Amount: a} })
}

func newFundRewardsCommand() *cobra.Command {
	return amountCommand("fund-rewards", "Deposit owner funds into the reward reserve only", program.OpFundRewards,
		func(a uint64) program.Command { return program.FundRewardsCommand{Amount: a} })
}

func newUnstakeCommand() *cobra.Command {
	return instructionCommand("unstake", "Close the participant's position and return the principal", program.OpUnstake,
		func(*cobra.Command) (program.Command, error) { return program.UnstakeCommand{}, nil })
}

func newClaimCommand() *cobra.Command {
	return instructionCommand("claim", "Pay the participant's current reward tier", program.OpClaim,
		func(*cobra.Command) (program.Command, error) { return program.ClaimCommand{}, nil })
}

var errSweepNotConfirmed = errors.New("remove-liquidity withdraws all liquidity including staked principal; pass --confirm-sweep")

func newRemoveLiquidityCommand() *cobra.Command {
	cmd := instructionCommand("remove-liquidity", "Sweep all pool liquidity to the owner", program.OpRemoveLiquidity,
		func(cmd *cobra.Command) (program.Command, error) {
			if ok, _ := cmd.Flags().GetBool("confirm-sweep"); !ok {
				return nil, errSweepNotConfirmed
			}
			return program.RemoveLiquidityCommand{}, nil
		})
	cmd.Flags().Bool("confirm-sweep", false, "acknowledge that staked principal is withdrawn too")
	return cmd
}

func newExecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Execute raw instruction data (hex) with an explicit account list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := parseHexData(mustString(cmd, "data"))
			if err != nil {
				return err
			}
			rawAccounts, _ := cmd.Flags().GetStringSlice("accounts")
			return withSession(cmd, func(ctx context.Context, s *session) error {
				keys := s.runner.Keys()
				address, err := keys.Resolve(mustString(cmd, "pool"))
				if err != nil {
					return fmt.Errorf("--pool: %w", err)
				}
				accounts, err := resolveList(rawAccounts, keys)
				if err != nil {
					return err
				}
				res, err := s.runner.Execute(ctx, address, accounts, data)
				if err != nil {
					s.log.Error("Instruction rejected", zap.Error(err))
					return err
				}
				printResult(cmd, address, res)
				return nil
			})
		},
	}
	cmd.Flags().String("pool", "", "pool slot address")
	cmd.Flags().String("data", "", "instruction data as hex (opcode byte first)")
	cmd.Flags().StringSlice("accounts", nil, "accounts in instruction order")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
