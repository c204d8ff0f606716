package main

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/Sonia-Koppisetti/SolStake/internal/program"
	"github.com/Sonia-Koppisetti/SolStake/internal/wallet"
)

// roleFlag turns an account role such as "participant token" into a flag name.
func roleFlag(role string) string {
	return strings.ReplaceAll(role, " ", "-")
}

// addAccountFlags registers one required flag per account role of op.
func addAccountFlags(cmd *cobra.Command, op program.Opcode) {
	for _, role := range program.Roles(op) {
		name := roleFlag(role)
		cmd.Flags().String(name, "", fmt.Sprintf("%s account (keyring name or base58 key)", role))
		_ = cmd.MarkFlagRequired(name)
	}
}

// accountsFromFlags resolves the role flags of op in instruction order.
func accountsFromFlags(cmd *cobra.Command, op program.Opcode, keys *wallet.Keyring) ([]solana.PublicKey, error) {
	roles := program.Roles(op)
	accounts := make([]solana.PublicKey, 0, len(roles))
	for _, role := range roles {
		value, err := cmd.Flags().GetString(roleFlag(role))
		if err != nil {
			return nil, err
		}
		pub, err := keys.Resolve(value)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", roleFlag(role), err)
		}
		accounts = append(accounts, pub)
	}
	return accounts, nil
}

// resolveList resolves comma-separated keyring names or keys.
func resolveList(values []string, keys *wallet.Keyring) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		pub, err := keys.Resolve(v)
		if err != nil {
			return nil, err
		}
		out = append(out, pub)
	}
	return out, nil
}

// parseSchedule converts flag values into the reward schedule vectors.
func parseSchedule(timelines, percentages []uint) ([]uint32, []uint8, error) {
	t := make([]uint32, len(timelines))
	for i, v := range timelines {
		if v > math.MaxUint32 {
			return nil, nil, fmt.Errorf("timeline %d out of range", v)
		}
		t[i] = uint32(v)
	}
	p := make([]uint8, len(percentages))
	for i, v := range percentages {
		if v > math.MaxUint8 {
			return nil, nil, fmt.Errorf("percentage %d out of range", v)
		}
		p[i] = uint8(v)
	}
	return t, p, nil
}

// parseHexData decodes instruction data, allowing a 0x prefix and spaces.
func parseHexData(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.ReplaceAll(s, " ", "")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid instruction data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("instruction data is empty")
	}
	return data, nil
}

// parseReserves parses pool=reserve pairs for the audit.
func parseReserves(pairs []string, keys *wallet.Keyring) (map[solana.PublicKey]solana.PublicKey, error) {
	out := make(map[solana.PublicKey]solana.PublicKey, len(pairs))
	for _, pair := range pairs {
		poolRaw, reserveRaw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("reserve %q: expected pool=account", pair)
		}
		pool, err := keys.Resolve(strings.TrimSpace(poolRaw))
		if err != nil {
			return nil, err
		}
		reserve, err := keys.Resolve(strings.TrimSpace(reserveRaw))
		if err != nil {
			return nil, err
		}
		out[pool] = reserve
	}
	return out, nil
}
