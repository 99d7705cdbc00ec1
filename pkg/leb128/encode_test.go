package leb128

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestEncodeUnsigned(t *testing.T) {
	tc := []uint64{0x00, 0x7f, 0x80, 0x8f, 0xffff, 0xfffffff7, 1 << 63, math.MaxUint64}
	for i := range tc {
		var buf bytes.Buffer
		if err := EncodeUnsigned(&buf, tc[i]); err != nil {
			t.Fatal(err)
		}
		enc := append([]byte{}, buf.Bytes()...)
		buf.Write([]byte{0x1, 0x2, 0x3})
		out, c, err := DecodeUnsigned(&buf)
		t.Logf("input %x output %x encoded %x", tc[i], out, enc)
		if err != nil {
			t.Errorf("decode error: %v", err)
		}
		if c != uint32(len(enc)) {
			t.Errorf("wrong encode")
		}
		if out != tc[i] {
			t.Errorf("wrong encode")
		}
	}
}

func TestEncodeSigned(t *testing.T) {
	tc := []int64{2, -2, 127, -127, 128, -128, 129, -129, 63, 64, -64, -65, math.MaxInt64, math.MinInt64}
	for i := range tc {
		var buf bytes.Buffer
		if err := EncodeSigned(&buf, tc[i]); err != nil {
			t.Fatal(err)
		}
		enc := append([]byte{}, buf.Bytes()...)
		buf.Write([]byte{0x1, 0x2, 0x3})
		out, c, err := DecodeSigned(&buf)
		t.Logf("input %x output %x encoded %x", tc[i], out, enc)
		if err != nil {
			t.Errorf("decode error: %v", err)
		}
		if c != uint32(len(enc)) {
			t.Errorf("wrong encode")
		}
		if out != tc[i] {
			t.Errorf("wrong encode")
		}
	}
}

func TestEncodeMinimal(t *testing.T) {
	unsigned := []struct {
		in  uint64
		out []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
		{math.MaxUint64, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
	}
	for _, tc := range unsigned {
		var buf bytes.Buffer
		EncodeUnsigned(&buf, tc.in)
		if !bytes.Equal(buf.Bytes(), tc.out) {
			t.Errorf("EncodeUnsigned(%d) = %x, expected %x", tc.in, buf.Bytes(), tc.out)
		}
	}

	signed := []struct {
		in  int64
		out []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{63, []byte{0x3f}},
		{64, []byte{0xc0, 0x00}},
		{-64, []byte{0x40}},
		{-65, []byte{0xbf, 0x7f}},
		{-300, []byte{0xd4, 0x7d}},
		{-624485, []byte{0x9b, 0xf1, 0x59}},
		{math.MinInt64, []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f}},
	}
	for _, tc := range signed {
		var buf bytes.Buffer
		EncodeSigned(&buf, tc.in)
		if !bytes.Equal(buf.Bytes(), tc.out) {
			t.Errorf("EncodeSigned(%d) = %x, expected %x", tc.in, buf.Bytes(), tc.out)
		}
	}
}

type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) WriteByte(byte) error { return errWrite }

func TestEncodeWriteError(t *testing.T) {
	if err := EncodeUnsigned(failingWriter{}, 300); !errors.Is(err, errWrite) {
		t.Errorf("expected write error, got %v", err)
	}
	if err := EncodeSigned(failingWriter{}, -300); !errors.Is(err, errWrite) {
		t.Errorf("expected write error, got %v", err)
	}
}
