// Package convert implements the conversions between LEB128 byte
// sequences, 64-bit integers and hexadecimal text.
//
// Every conversion is a pure function of its input. Decode failures are
// additionally reported to the Converter's logger together with the
// offending input; logging never changes the result.
package convert

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lebanon-go/lebanon/pkg/leb128"
	"github.com/lebanon-go/lebanon/pkg/logflags"
)

var (
	// ErrTruncated is returned when a byte sequence ends before its
	// terminating byte.
	ErrTruncated = leb128.ErrTruncated
	// ErrOverflow is returned when a decoded value does not fit in 64 bits.
	ErrOverflow = leb128.ErrOverflow
	// ErrTrailingBytes is returned when bytes follow the terminating byte.
	ErrTrailingBytes = errors.New("trailing bytes after LEB128 value")
	// ErrInvalidHexLength is returned for hex text of odd length.
	ErrInvalidHexLength = errors.New("odd length hex string")
	// ErrInvalidHexDigit is returned for hex text containing a character
	// outside [0-9a-fA-F].
	ErrInvalidHexDigit = errors.New("invalid hex digit")
	// ErrEncodingFailure is returned when the encoder fails to write.
	ErrEncodingFailure = errors.New("could not encode value")
)

// Converter converts between LEB128 byte sequences, integers and hex text.
// The zero value is not usable, use New.
type Converter struct {
	log logflags.Logger
}

// New returns a Converter that reports decode failures to log. If log is
// nil the convert component logger is used.
func New(log logflags.Logger) *Converter {
	if log == nil {
		log = logflags.ConvertLogger()
	}
	return &Converter{log: log}
}

// ToUnsigned decodes b, which must contain exactly one unsigned LEB128
// value.
func (c *Converter) ToUnsigned(b []byte) (uint64, error) {
	r := bytes.NewReader(b)
	v, _, err := leb128.DecodeUnsigned(r)
	if err == nil && r.Len() != 0 {
		err = ErrTrailingBytes
	}
	if err != nil {
		c.log.WithError(err).Errorf("could not decode unsigned LEB128 [% X]", b)
		return 0, err
	}
	c.log.Debugf("decoded unsigned %d from % x", v, b)
	return v, nil
}

// FromUnsigned returns the canonical unsigned LEB128 encoding of v.
func (c *Converter) FromUnsigned(v uint64) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 3))
	if err := leb128.EncodeUnsigned(buf, v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return buf.Bytes(), nil
}

// ToSigned decodes b, which must contain exactly one signed LEB128 value.
func (c *Converter) ToSigned(b []byte) (int64, error) {
	r := bytes.NewReader(b)
	v, _, err := leb128.DecodeSigned(r)
	if err == nil && r.Len() != 0 {
		err = ErrTrailingBytes
	}
	if err != nil {
		c.log.WithError(err).Errorf("could not decode signed LEB128 [% X]", b)
		return 0, err
	}
	c.log.Debugf("decoded signed %d from % x", v, b)
	return v, nil
}

// FromSigned returns the canonical signed LEB128 encoding of v.
func (c *Converter) FromSigned(v int64) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 3))
	if err := leb128.EncodeSigned(buf, v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return buf.Bytes(), nil
}

// ToHex renders b as upper-case hex, two characters per byte.
func (c *Converter) ToHex(b []byte) (string, error) {
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

// FromHex parses hex text, in either case, into bytes.
func (c *Converter) FromHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		c.log.WithError(ErrInvalidHexLength).Errorf("could not decode hex %q", s)
		return nil, ErrInvalidHexLength
	}
	for i, r := range s {
		if !isHexDigit(r) {
			err := fmt.Errorf("%w %q at position %d", ErrInvalidHexDigit, r, i)
			c.log.WithError(err).Errorf("could not decode hex %q", s)
			return nil, err
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidHexDigit, err)
		c.log.WithError(err).Errorf("could not decode hex %q", s)
		return nil, err
	}
	return b, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// ParseNumber parses decimal text and returns its canonical encoding,
// signed or unsigned according to signed.
func (c *Converter) ParseNumber(s string, signed bool) ([]byte, error) {
	if signed {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return c.FromSigned(v)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return c.FromUnsigned(v)
}

// FormatNumber decodes b and renders it as decimal text.
func (c *Converter) FormatNumber(b []byte, signed bool) (string, error) {
	if signed {
		v, err := c.ToSigned(b)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	}
	v, err := c.ToUnsigned(b)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(v, 10), nil
}

// Describe adds a hint to the decode errors a user is most likely to run
// into. Other errors are returned unchanged.
func Describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTruncated):
		return fmt.Errorf("%w (the last byte must be below 80)", err)
	case errors.Is(err, ErrOverflow):
		return fmt.Errorf("%w (at most 64 bits can be decoded)", err)
	case errors.Is(err, ErrTrailingBytes):
		return fmt.Errorf("%w (only one value can be decoded)", err)
	}
	return err
}
