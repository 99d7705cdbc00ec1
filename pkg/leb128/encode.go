package leb128

import (
	"io"
)

// EncodeUnsigned encodes x to the unsigned Little Endian Base 128 format
// into out. The encoding is always the shortest one.
func EncodeUnsigned(out io.ByteWriter, x uint64) error {
	for {
		b := byte(x & lowBits)
		x = x >> 7
		if x != 0 {
			b = b | continuationBit
		}
		if err := out.WriteByte(b); err != nil {
			return err
		}
		if x == 0 {
			break
		}
	}
	return nil
}

// EncodeSigned encodes x to the signed Little Endian Base 128 format
// into out. The encoding is always the shortest one.
func EncodeSigned(out io.ByteWriter, x int64) error {
	for {
		b := byte(x & lowBits)
		x >>= 7

		signb := b & signBit

		last := false
		if (x == 0 && signb == 0) || (x == -1 && signb != 0) {
			last = true
		} else {
			b = b | continuationBit
		}
		if err := out.WriteByte(b); err != nil {
			return err
		}

		if last {
			break
		}
	}
	return nil
}
