package session

import (
	"bytes"
	"testing"

	"github.com/lebanon-go/lebanon/pkg/config"
	"github.com/lebanon-go/lebanon/pkg/convert"
	"github.com/lebanon-go/lebanon/pkg/logflags"
)

func newTestSession(conf *config.Config) *Session {
	return New(convert.New(logflags.DiscardLogger()), conf)
}

func assertViews(t *testing.T, s *Session, hex, number string, b []byte) {
	t.Helper()
	if s.Hex != hex {
		t.Errorf("hex view: expected %q, got %q", hex, s.Hex)
	}
	if s.Number != number {
		t.Errorf("number view: expected %q, got %q", number, s.Number)
	}
	if !bytes.Equal(s.Bytes, b) {
		t.Errorf("bytes: expected %x, got %x", b, s.Bytes)
	}
}

func TestInitialState(t *testing.T) {
	s := newTestSession(nil)
	assertViews(t, s, "00", "0", []byte{0x00})
	if s.Signed {
		t.Errorf("expected unsigned mode")
	}
	if s2 := newTestSession(&config.Config{Signed: true}); !s2.Signed {
		t.Errorf("expected signed mode from config")
	}
}

func TestSetNumber(t *testing.T) {
	s := newTestSession(nil)
	if err := s.SetNumber("300"); err != nil {
		t.Fatal(err)
	}
	assertViews(t, s, "AC02", "300", []byte{0xac, 0x02})

	if err := s.SetNumber("-300"); err == nil {
		t.Fatalf("expected error for negative number in unsigned mode")
	}
	assertViews(t, s, "AC02", "-300", []byte{0xac, 0x02})

	s.SetSigned(true)
	if err := s.SetNumber("-300"); err != nil {
		t.Fatal(err)
	}
	assertViews(t, s, "D47D", "-300", []byte{0xd4, 0x7d})
}

func TestSetHexKeepsEquivalentText(t *testing.T) {
	s := newTestSession(nil)
	if err := s.SetHex("ac02"); err != nil {
		t.Fatal(err)
	}
	// The user's spelling of the same bytes is left alone.
	assertViews(t, s, "ac02", "300", []byte{0xac, 0x02})

	if err := s.SetNumber("00300"); err != nil {
		t.Fatal(err)
	}
	assertViews(t, s, "ac02", "00300", []byte{0xac, 0x02})

	if err := s.SetNumber("301"); err != nil {
		t.Fatal(err)
	}
	assertViews(t, s, "AD02", "301", []byte{0xad, 0x02})
}

func TestSetHexInvalid(t *testing.T) {
	s := newTestSession(nil)
	if err := s.SetHex("A"); err == nil {
		t.Fatalf("expected error for odd length hex")
	}
	assertViews(t, s, "A", "0", []byte{0x00})

	if err := s.SetHex("80"); err != nil {
		t.Fatal(err)
	}
	// Valid hex, truncated LEB128.
	assertViews(t, s, "80", NaN, []byte{0x80})

	if err := s.SetHex("0102"); err != nil {
		t.Fatal(err)
	}
	// A complete value followed by another byte is not read as 1.
	assertViews(t, s, "0102", NaN, []byte{0x01, 0x02})
}

func TestSetSigned(t *testing.T) {
	s := newTestSession(nil)
	if err := s.SetHex("7F"); err != nil {
		t.Fatal(err)
	}
	assertViews(t, s, "7F", "127", []byte{0x7f})

	s.SetSigned(true)
	assertViews(t, s, "7F", "-1", []byte{0x7f})

	s.SetSigned(false)
	assertViews(t, s, "7F", "127", []byte{0x7f})
}

func TestSignedOverflowShowsNaN(t *testing.T) {
	s := newTestSession(&config.Config{Signed: true})
	if err := s.SetHex("FFFFFFFFFFFFFFFFFF01"); err != nil {
		t.Fatal(err)
	}
	assertViews(t, s, "FFFFFFFFFFFFFFFFFF01", NaN, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01})

	s.SetSigned(false)
	if s.Number != "18446744073709551615" {
		t.Errorf("expected max uint64, got %q", s.Number)
	}
}

func TestHistory(t *testing.T) {
	n := 2
	s := newTestSession(&config.Config{HistorySize: &n})
	for _, h := range []string{"01", "02", "80", "7F"} {
		if err := s.SetHex(h); err != nil {
			t.Fatal(err)
		}
	}
	h := s.History()
	if len(h) != 2 {
		t.Fatalf("expected 2 entries, got %v", h)
	}
	if h[0].Hex != "02" || h[1].Hex != "7F" {
		t.Errorf("unexpected history order %v", h)
	}
	if h[1].Unsigned != "127" || h[1].Signed != "-1" {
		t.Errorf("unexpected entry %v", h[1])
	}
}

func TestPossiblyUpdate(t *testing.T) {
	key := func(s string) ([]byte, bool) {
		if s == "" {
			return nil, false
		}
		return []byte{s[0]}, true
	}
	log := logflags.DiscardLogger()

	cur := "abc"
	if possiblyUpdate(log, &cur, "axe", key) || cur != "abc" {
		t.Errorf("update with the same key should not assign, got %q", cur)
	}
	if !possiblyUpdate(log, &cur, "bee", key) || cur != "bee" {
		t.Errorf("update with a different key should assign, got %q", cur)
	}
	if !possiblyUpdate(log, &cur, "", key) || cur != "" {
		t.Errorf("update to a value without key should assign, got %q", cur)
	}
	if possiblyUpdate(log, &cur, "", key) {
		t.Errorf("two values without key should compare equal")
	}
}
