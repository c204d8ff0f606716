// internal/program/codec.go
package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/Sonia-Koppisetti/SolStake/internal/staking"
)

// EncodePool serializes a pool record. An uninitialized pool encodes to an
// empty record, so a zero-filled slot of any length decodes as uninitialized
// and re-encodes to zero bytes; slot length is not preserved.
//
// Layout: id string, asset [32], timelines vec<u32>, percentages vec<u8>,
// stakes vec<{participant [32], amount u64, startedAt i64, claimedUpTo i32}>,
// totalLiquidity u64, availableRewards u64, owner [32]. Lengths are u32 LE.
func EncodePool(pool staking.Pool) ([]byte, error) {
	if !pool.Initialized() {
		return nil, nil
	}
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := writeString(enc, pool.ID); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(pool.Asset[:], false); err != nil {
		return nil, err
	}
	if err := writeU32Vec(enc, pool.RewardTimelines); err != nil {
		return nil, err
	}
	if err := writeU8Vec(enc, pool.RewardPercentages); err != nil {
		return nil, err
	}

	records := pool.Stakes.Records()
	if err := writeLength(enc, len(records)); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := enc.WriteBytes(rec.Participant[:], false); err != nil {
			return nil, err
		}
		if err := enc.WriteUint64(rec.Amount, bin.LE); err != nil {
			return nil, err
		}
		if err := enc.WriteInt64(rec.StartedAt, bin.LE); err != nil {
			return nil, err
		}
		if err := enc.WriteInt32(rec.RewardsClaimedUpTo, bin.LE); err != nil {
			return nil, err
		}
	}

	if err := enc.WriteUint64(pool.TotalLiquidity, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(pool.AvailableRewards, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(pool.Owner[:], false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePool parses a pool record. Empty or all-zero data is an uninitialized
// slot. Decoding is strict: trailing bytes, duplicate participants, zero
// stake amounts or a broken schedule are malformed input.
func DecodePool(data []byte) (staking.Pool, error) {
	if isZeroed(data) {
		return staking.Pool{Stakes: staking.NewLedger()}, nil
	}
	pool, err := decodePool(bin.NewBorshDecoder(data))
	if err != nil {
		return staking.Pool{}, fmt.Errorf("decode pool record: %w", err)
	}
	return pool, nil
}

func decodePool(dec *bin.Decoder) (pool staking.Pool, err error) {
	if pool.ID, err = readString(dec); err != nil {
		return pool, malformed("id", err)
	}
	if pool.ID == "" {
		return pool, fmt.Errorf("initialized record with empty id: %w", staking.ErrMalformedInput)
	}
	if pool.Asset, err = readPublicKey(dec); err != nil {
		return pool, malformed("asset", err)
	}
	if pool.RewardTimelines, err = readU32Vec(dec); err != nil {
		return pool, malformed("reward timelines", err)
	}
	if pool.RewardPercentages, err = readU8Vec(dec); err != nil {
		return pool, malformed("reward percentages", err)
	}

	n, err := readLength(dec, 32+8+8+4)
	if err != nil {
		return pool, malformed("stakes", err)
	}
	pool.Stakes = staking.NewLedger()
	for i := 0; i < n; i++ {
		var rec staking.StakeRecord
		if rec.Participant, err = readPublicKey(dec); err != nil {
			return pool, malformed("stake participant", err)
		}
		if rec.Amount, err = dec.ReadUint64(bin.LE); err != nil {
			return pool, malformed("stake amount", err)
		}
		if rec.StartedAt, err = dec.ReadInt64(bin.LE); err != nil {
			return pool, malformed("stake start", err)
		}
		if rec.RewardsClaimedUpTo, err = dec.ReadInt32(bin.LE); err != nil {
			return pool, malformed("stake claimed tier", err)
		}
		if err := pool.Stakes.Restore(rec); err != nil {
			return pool, err
		}
	}

	if pool.TotalLiquidity, err = dec.ReadUint64(bin.LE); err != nil {
		return pool, malformed("total liquidity", err)
	}
	if pool.AvailableRewards, err = dec.ReadUint64(bin.LE); err != nil {
		return pool, malformed("available rewards", err)
	}
	if pool.Owner, err = readPublicKey(dec); err != nil {
		return pool, malformed("owner", err)
	}
	if dec.Remaining() > 0 {
		return pool, fmt.Errorf("%d trailing bytes: %w", dec.Remaining(), staking.ErrMalformedInput)
	}
	if err := pool.Validate(); err != nil {
		return pool, fmt.Errorf("%v: %w", err, staking.ErrMalformedInput)
	}
	return pool, nil
}

func malformed(field string, err error) error {
	return fmt.Errorf("%s: %v: %w", field, err, staking.ErrMalformedInput)
}

func isZeroed(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

// readLength reads a u32 length prefix and checks that elemSize*length bytes
// can still follow, so a corrupt prefix cannot force a huge allocation.
func readLength(dec *bin.Decoder, elemSize int) (int, error) {
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(elemSize) > uint64(dec.Remaining()) {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, dec.Remaining())
	}
	return int(n), nil
}

func writeLength(enc *bin.Encoder, n int) error {
	return enc.WriteUint32(uint32(n), bin.LE)
}

func readString(dec *bin.Decoder) (string, error) {
	n, err := readLength(dec, 1)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b, err := dec.ReadNBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := writeLength(enc, len(s)); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func readU32Vec(dec *bin.Decoder) ([]uint32, error) {
	n, err := readLength(dec, 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		if out[i], err = dec.ReadUint32(bin.LE); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeU32Vec(enc *bin.Encoder, v []uint32) error {
	if err := writeLength(enc, len(v)); err != nil {
		return err
	}
	for _, x := range v {
		if err := enc.WriteUint32(x, bin.LE); err != nil {
			return err
		}
	}
	return nil
}

func readU8Vec(dec *bin.Decoder) ([]uint8, error) {
	n, err := readLength(dec, 1)
	if err != nil {
		return nil, err
	}
	out := make([]uint8, n)
	for i := range out {
		if out[i], err = dec.ReadUint8(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func writeU8Vec(enc *bin.Encoder, v []uint8) error {
	if err := writeLength(enc, len(v)); err != nil {
		return err
	}
	return enc.WriteBytes(v, false)
}
