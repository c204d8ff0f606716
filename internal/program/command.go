// =============================
// File: internal/program/command.go
// =============================
package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

// Opcode selects the pool operation; it is the first byte of instruction data.
type Opcode uint8

const (
	OpCreatePool      Opcode = 1
	OpStake           Opcode = 2
	OpUnstake         Opcode = 3
	OpClaim           Opcode = 4
	OpAddLiquidity    Opcode = 5
	OpRemoveLiquidity Opcode = 6
	OpFundRewards     Opcode = 7
)

var opcodeNames = map[Opcode]string{
	OpCreatePool:      "create_pool",
	OpStake:           "stake",
	OpUnstake:         "unstake",
	OpClaim:           "claim",
	OpAddLiquidity:    "add_liquidity",
	OpRemoveLiquidity: "remove_liquidity",
	OpFundRewards:     "fund_rewards",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// Command is a decoded instruction.
type Command interface {
	Opcode() Opcode
	MarshalWithEncoder(enc *bin.Encoder) error
}

type decodable interface {
	Command
	UnmarshalWithDecoder(dec *bin.Decoder) error
}

// CreatePoolCommand initializes a pool slot.
type CreatePoolCommand struct {
	ID                string
	Asset             solana.PublicKey
	RewardTimelines   []uint32
	RewardPercentages []uint8
}

// StakeCommand opens a position of Amount tokens.
type StakeCommand struct {
	Amount uint64
}

// UnstakeCommand closes the signer's position.
type UnstakeCommand struct{}

// ClaimCommand pays the signer's next reward tier.
type ClaimCommand struct{}

// AddLiquidityCommand deposits owner funds into liquidity and the reserve.
type AddLiquidityCommand struct {
	Amount uint64
}

// RemoveLiquidityCommand sweeps all liquidity to the owner.
type RemoveLiquidityCommand struct{}

// FundRewardsCommand deposits owner funds into the reserve only.
type FundRewardsCommand struct {
	Amount uint64
}

func (CreatePoolCommand) Opcode() Opcode      { return OpCreatePool }
func (StakeCommand) Opcode() Opcode           { return OpStake }
func (UnstakeCommand) Opcode() Opcode         { return OpUnstake }
func (ClaimCommand) Opcode() Opcode           { return OpClaim }
func (AddLiquidityCommand) Opcode() Opcode    { return OpAddLiquidity }
func (RemoveLiquidityCommand) Opcode() Opcode { return OpRemoveLiquidity }
func (FundRewardsCommand) Opcode() Opcode     { return OpFundRewards }

func (c CreatePoolCommand) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := writeString(enc, c.ID); err != nil {
		return err
	}
	if err := enc.WriteBytes(c.Asset[:], false); err != nil {
		return err
	}
	if err := writeU32Vec(enc, c.RewardTimelines); err != nil {
		return err
	}
	return writeU8Vec(enc, c.RewardPercentages)
}

func (c *CreatePoolCommand) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if c.ID, err = readString(dec); err != nil {
		return err
	}
	if c.Asset, err = readPublicKey(dec); err != nil {
		return err
	}
	if c.RewardTimelines, err = readU32Vec(dec); err != nil {
		return err
	}
	c.RewardPercentages, err = readU8Vec(dec)
	return err
}

func (c StakeCommand) MarshalWithEncoder(enc *bin.Encoder) error {
	return enc.WriteUint64(c.Amount, bin.LE)
}

func (c *StakeCommand) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	c.Amount, err = dec.ReadUint64(bin.LE)
	return err
}

func (c AddLiquidityCommand) MarshalWithEncoder(enc *bin.Encoder) error {
	return enc.WriteUint64(c.Amount, bin.LE)
}

func (c *AddLiquidityCommand) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	c.Amount, err = dec.ReadUint64(bin.LE)
	return err
}

func (c FundRewardsCommand) MarshalWithEncoder(enc *bin.Encoder) error {
	return enc.WriteUint64(c.Amount, bin.LE)
}

func (c *FundRewardsCommand) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	c.Amount, err = dec.ReadUint64(bin.LE)
	return err
}

func (UnstakeCommand) MarshalWithEncoder(*bin.Encoder) error {
	return nil
}

func (*UnstakeCommand) UnmarshalWithDecoder(*bin.Decoder) error {
	return nil
}

func (ClaimCommand) MarshalWithEncoder(*bin.Encoder) error {
	return nil
}

func (*ClaimCommand) UnmarshalWithDecoder(*bin.Decoder) error {
	return nil
}

func (RemoveLiquidityCommand) MarshalWithEncoder(*bin.Encoder) error {
	return nil
}

func (*RemoveLiquidityCommand) UnmarshalWithDecoder(*bin.Decoder) error {
	return nil
}

// EncodeCommand serializes cmd as opcode byte followed by its payload.
func EncodeCommand(cmd Command) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(cmd.Opcode())); err != nil {
		return nil, err
	}
	if err := cmd.MarshalWithEncoder(enc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Opcode(), err)
	}
	return buf.Bytes(), nil
}

// DecodeCommand parses instruction data. Empty data or an unknown opcode is
// an invalid command; a payload that is short or has trailing bytes is
// malformed input.
func DecodeCommand(data []byte) (Command, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty instruction data: %w", staking.ErrInvalidCommand)
	}
	cmd, err := newCommand(Opcode(data[0]))
	if err != nil {
		return nil, err
	}
	dec := bin.NewBorshDecoder(data[1:])
	if err := cmd.UnmarshalWithDecoder(dec); err != nil {
		return nil, fmt.Errorf("decode %s payload: %v: %w", cmd.Opcode(), err, staking.ErrMalformedInput)
	}
	if dec.Remaining() > 0 {
		return nil, fmt.Errorf("%s payload has %d trailing bytes: %w",
			cmd.Opcode(), dec.Remaining(), staking.ErrMalformedInput)
	}
	return deref(cmd), nil
}

func newCommand(op Opcode) (decodable, error) {
	switch op {
	case OpCreatePool:
		return &CreatePoolCommand{}, nil
	case OpStake:
		return &StakeCommand{}, nil
	case OpUnstake:
		return &UnstakeCommand{}, nil
	case OpClaim:
		return &ClaimCommand{}, nil
	case OpAddLiquidity:
		return &AddLiquidityCommand{}, nil
	case OpRemoveLiquidity:
		return &RemoveLiquidityCommand{}, nil
	case OpFundRewards:
		return &FundRewardsCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown opcode %d: %w", uint8(op), staking.ErrInvalidCommand)
	}
}

// deref returns commands by value so callers can type-switch on plain structs.
func deref(cmd decodable) Command {
	switch c := cmd.(type) {
	case *CreatePoolCommand:
		return *c
	case *StakeCommand:
		return *c
	case *UnstakeCommand:
		return *c
	case *ClaimCommand:
		return *c
	case *AddLiquidityCommand:
		return *c
	case *RemoveLiquidityCommand:
		return *c
	case *FundRewardsCommand:
		return *c
	}
	return cmd
}
