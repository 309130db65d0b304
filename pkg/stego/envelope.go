package stego

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/andresmejia3/stegocodec/pkg/codec"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/reedsolomon"
)

// Envelope flags, stored in the first byte of every hidden payload.
const (
	FlagCompressed byte = 1 << iota
	FlagECC

	knownFlags = FlagCompressed | FlagECC
)

// Reed-Solomon configuration
const (
	rsDataShards   = 4
	rsParityShards = 2
	rsLengthSize   = 4
)

var (
	zstdEncoderPool = sync.Pool{
		New: func() any {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
			return enc
		},
	}
	zstdDecoderPool = sync.Pool{
		New: func() any {
			dec, _ := zstd.NewReader(nil)
			return dec
		},
	}
)

func compressZstd(data []byte) ([]byte, error) {
	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	if _, err := enc.Write(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if _, err := out.ReadFrom(dec); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// addReedSolomon prepends the length and returns the data and parity shards
// joined back to back. All shards have the same size.
func addReedSolomon(data []byte) ([]byte, error) {
	enc, err := reedsolomon.New(rsDataShards, rsParityShards)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, rsLengthSize+len(data))
	binary.BigEndian.PutUint32(payload, uint32(len(data)))
	copy(payload[rsLengthSize:], data)

	shards, err := enc.Split(payload)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(shards); err != nil {
		return nil, err
	}

	output := make([]byte, 0, len(shards)*len(shards[0]))
	for _, shard := range shards {
		output = append(output, shard...)
	}
	return output, nil
}

// removeReedSolomon verifies the shards and, when they disagree, erases one
// shard at a time until the reconstruction verifies. Any damage confined to
// a single shard is repaired.
func removeReedSolomon(data []byte) ([]byte, error) {
	total := rsDataShards + rsParityShards
	if len(data) == 0 || len(data)%total != 0 {
		return nil, fmt.Errorf("%w: %d bytes do not split into %d shards", codec.ErrDecryptionFailure, len(data), total)
	}
	enc, err := reedsolomon.New(rsDataShards, rsParityShards)
	if err != nil {
		return nil, err
	}

	size := len(data) / total
	shards := make([][]byte, total)
	for i := range shards {
		shards[i] = data[i*size : (i+1)*size]
	}

	if ok, _ := enc.Verify(shards); !ok {
		repaired := false
		for bad := 0; bad < total && !repaired; bad++ {
			trial := make([][]byte, total)
			for i := range shards {
				if i != bad {
					trial[i] = shards[i]
				}
			}
			if err := enc.Reconstruct(trial); err != nil {
				continue
			}
			if ok, _ := enc.Verify(trial); ok {
				shards, repaired = trial, true
			}
		}
		if !repaired {
			return nil, fmt.Errorf("%w: reed-solomon shards are beyond repair", codec.ErrDecryptionFailure)
		}
	}

	joined := make([]byte, 0, rsDataShards*size)
	for i := 0; i < rsDataShards; i++ {
		joined = append(joined, shards[i]...)
	}
	length := binary.BigEndian.Uint32(joined)
	if uint64(length) > uint64(len(joined)-rsLengthSize) {
		return nil, fmt.Errorf("%w: recovered length %d exceeds %d", codec.ErrDecryptionFailure, length, len(joined)-rsLengthSize)
	}
	return joined[rsLengthSize : rsLengthSize+int(length)], nil
}

// Seal wraps message in the payload envelope: a flag byte followed by the
// message, optionally compressed and then protected with Reed-Solomon.
func Seal(message []byte, compress, ecc bool) ([]byte, error) {
	var flags byte
	body := message
	if compress {
		c, err := compressZstd(body)
		if err != nil {
			return nil, fmt.Errorf("failed to compress payload: %w", err)
		}
		body = c
		flags |= FlagCompressed
	}
	if ecc {
		protected, err := addReedSolomon(body)
		if err != nil {
			return nil, fmt.Errorf("failed to apply Reed-Solomon encoding: %w", err)
		}
		body = protected
		flags |= FlagECC
	}
	return append([]byte{flags}, body...), nil
}

// Open reverses Seal and reports the flags it found.
func Open(envelope []byte) ([]byte, byte, error) {
	if len(envelope) == 0 {
		return nil, 0, fmt.Errorf("%w: empty envelope", codec.ErrDecryptionFailure)
	}
	flags, body := envelope[0], envelope[1:]
	if flags&^knownFlags != 0 {
		return nil, flags, fmt.Errorf("%w: unknown envelope flags %#02x", codec.ErrDecryptionFailure, flags)
	}
	if flags&FlagECC != 0 {
		recovered, err := removeReedSolomon(body)
		if err != nil {
			return nil, flags, err
		}
		body = recovered
	}
	if flags&FlagCompressed != 0 {
		plain, err := decompressZstd(body)
		if err != nil {
			return nil, flags, fmt.Errorf("%w: zstd: %v", codec.ErrDecryptionFailure, err)
		}
		body = plain
	}
	return body, flags, nil
}

// SealedSize is the envelope size of an n-byte body.
func SealedSize(n int, ecc bool) int {
	if !ecc {
		return 1 + n
	}
	shard := (rsLengthSize + n + rsDataShards - 1) / rsDataShards
	return 1 + shard*(rsDataShards+rsParityShards)
}

// MaxMessage is the largest body whose envelope fits in space bytes.
// Compression is not accounted for.
func MaxMessage(space int, ecc bool) int {
	if !ecc {
		return max(space-1, 0)
	}
	shard := (space - 1) / (rsDataShards + rsParityShards)
	return max(shard*rsDataShards-rsLengthSize, 0)
}
