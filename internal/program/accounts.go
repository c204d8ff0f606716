// internal/program/accounts.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

// accountRoles lists, per opcode, the account handles an instruction must
// carry, in order.
var accountRoles = map[Opcode][]string{
	OpCreatePool:      {"caller", "pool owner"},
	OpStake:           {"participant", "participant token", "pool token"},
	OpUnstake:         {"participant", "participant token", "custodian", "pool token"},
	OpClaim:           {"participant", "participant token", "custodian", "reserve token"},
	OpAddLiquidity:    {"owner", "owner token", "pool token"},
	OpRemoveLiquidity: {"owner", "owner token", "custodian", "pool token"},
	OpFundRewards:     {"owner", "owner token", "reserve token"},
}

// Roles returns the ordered account roles of op.
func Roles(op Opcode) []string {
	return append([]string(nil), accountRoles[op]...)
}

// checkAccounts verifies that at least the required roles are present.
// Extra trailing accounts are ignored.
func checkAccounts(op Opcode, accounts []solana.PublicKey) error {
	roles, ok := accountRoles[op]
	if !ok {
		return fmt.Errorf("unknown opcode %d: %w", uint8(op), staking.ErrInvalidCommand)
	}
	if len(accounts) < len(roles) {
		return fmt.Errorf("%s needs %d accounts (%v), got %d: %w",
			op, len(roles), roles, len(accounts), staking.ErrMalformedInput)
	}
	return nil
}

func stakeAccounts(a []solana.PublicKey) staking.StakeAccounts {
	return staking.StakeAccounts{Participant: a[0], ParticipantToken: a[1], PoolToken: a[2]}
}

func unstakeAccounts(a []solana.PublicKey) staking.UnstakeAccounts {
	return staking.UnstakeAccounts{Participant: a[0], ParticipantToken: a[1], Custodian: a[2], PoolToken: a[3]}
}

func claimAccounts(a []solana.PublicKey) staking.ClaimAccounts {
	return staking.ClaimAccounts{Participant: a[0], ParticipantToken: a[1], Custodian: a[2], ReserveToken: a[3]}
}

func liquidityAccounts(a []solana.PublicKey) staking.LiquidityAccounts {
	return staking.LiquidityAccounts{Caller: a[0], CallerToken: a[1], PoolToken: a[2]}
}

func withdrawAccounts(a []solana.PublicKey) staking.WithdrawAccounts {
	return staking.WithdrawAccounts{Caller: a[0], CallerToken: a[1], Custodian: a[2], PoolToken: a[3]}
}
