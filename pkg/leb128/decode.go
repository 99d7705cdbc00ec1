package leb128

import (
	"errors"
	"io"
)

var (
	// ErrTruncated is returned when the input ends before a byte with the
	// continuation bit clear.
	ErrTruncated = errors.New("truncated LEB128 sequence")
	// ErrOverflow is returned when the encoded value does not fit in 64 bits.
	ErrOverflow = errors.New("LEB128 value overflows 64 bits")
)

const (
	continuationBit = 0x80
	signBit         = 0x40
	lowBits         = 0x7f

	// lastShift is the shift of the tenth group, the only group that can
	// straddle bit 63.
	lastShift = 63
)

// Reader is a io.ByteReader with a Len method. This interface is
// satisfied by both bytes.Buffer and bytes.Reader.
type Reader interface {
	io.ByteReader
	io.Reader
	Len() int
}

// DecodeUnsigned decodes an unsigned Little Endian Base 128
// represented number. It returns the value and the number of bytes
// consumed.
func DecodeUnsigned(buf Reader) (uint64, uint32, error) {
	var (
		result uint64
		shift  uint64
		length uint32
	)

	for {
		b, err := buf.ReadByte()
		if err != nil {
			return 0, length, ErrTruncated
		}
		length++

		// The tenth group only has room for bit 63.
		if shift == lastShift && b != 0x00 && b != 0x01 {
			n, err := skipRest(buf, b, length)
			return 0, n, err
		}

		result |= uint64(b&lowBits) << shift

		// If high order bit is 1.
		if b&continuationBit == 0 {
			break
		}

		shift += 7
	}

	return result, length, nil
}

// DecodeSigned decodes a signed Little Endian Base 128
// represented number. It returns the value and the number of bytes
// consumed.
func DecodeSigned(buf Reader) (int64, uint32, error) {
	var (
		b      byte
		err    error
		result int64
		shift  uint64
		length uint32
	)

	for {
		b, err = buf.ReadByte()
		if err != nil {
			return 0, length, ErrTruncated
		}
		length++

		// The tenth group must be a pure sign extension of bit 63.
		if shift == lastShift && b != 0x00 && b != lowBits {
			n, err := skipRest(buf, b, length)
			return 0, n, err
		}

		result |= int64(b&lowBits) << shift
		shift += 7
		if b&continuationBit == 0 {
			break
		}
	}

	if shift < 64 && b&signBit != 0 {
		result |= -1 << shift
	}

	return result, length, nil
}

// skipRest consumes the remainder of an overflowing sequence so that the
// reader is left after its terminating byte. If the sequence is cut short
// the truncation is reported instead of the overflow.
func skipRest(buf Reader, b byte, length uint32) (uint32, error) {
	for b&continuationBit != 0 {
		var err error
		b, err = buf.ReadByte()
		if err != nil {
			return length, ErrTruncated
		}
		length++
	}
	return length, ErrOverflow
}
