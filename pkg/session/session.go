// Package session keeps the hex and decimal views of a single LEB128
// value consistent while either of them is being edited.
package session

import (
	"bytes"
	"strconv"

	lru "github.com/hashicorp/golang-lru"

	"github.com/lebanon-go/lebanon/pkg/config"
	"github.com/lebanon-go/lebanon/pkg/convert"
	"github.com/lebanon-go/lebanon/pkg/logflags"
)

// NaN is shown in the number view when the current bytes can't be decoded
// in the current mode.
const NaN = "NaN"

// Entry is a conversion remembered by the history.
type Entry struct {
	Hex      string
	Unsigned string
	Signed   string
}

// Session is the state of an interactive conversion: the canonical bytes
// plus the hex and number text views derived from them.
// A Session is not safe for concurrent use.
type Session struct {
	// Bytes is the current LEB128 byte sequence.
	Bytes []byte
	// Hex is the text of the hex view.
	Hex string
	// Number is the text of the decimal view.
	Number string
	// Signed selects SLEB128 for the number view.
	Signed bool

	conv    *convert.Converter
	probe   *convert.Converter
	log     logflags.Logger
	history *lru.Cache
}

// New returns a Session holding the value zero. conf may be nil.
func New(conv *convert.Converter, conf *config.Config) *Session {
	if conv == nil {
		conv = convert.New(nil)
	}
	history, err := lru.New(conf.GetHistorySize())
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	s := &Session{
		Bytes:   []byte{0x00},
		Hex:     "00",
		Number:  "0",
		conv:    conv,
		probe:   convert.New(logflags.DiscardLogger()),
		log:     logflags.SessionLogger(),
		history: history,
	}
	if conf != nil {
		s.Signed = conf.Signed
	}
	return s
}

// SetHex replaces the text of the hex view. If text is valid hex the
// other view is refreshed, otherwise the error is returned and the bytes
// are left untouched.
func (s *Session) SetHex(text string) error {
	s.Hex = text
	b, err := s.conv.FromHex(text)
	if err != nil {
		return err
	}
	s.update(b)
	return nil
}

// SetNumber replaces the text of the number view. If text is a valid
// number in the current mode the other view is refreshed, otherwise the
// error is returned and the bytes are left untouched.
func (s *Session) SetNumber(text string) error {
	s.Number = text
	b, err := s.conv.ParseNumber(text, s.Signed)
	if err != nil {
		return err
	}
	s.update(b)
	return nil
}

// SetSigned changes the mode and re-derives the number view from the
// current bytes.
func (s *Session) SetSigned(signed bool) {
	s.log.Infof("updating signed mode to %v", signed)
	if s.Signed == signed {
		return
	}
	s.Signed = signed
	s.update(s.Bytes)
}

// History returns the remembered conversions, oldest first.
func (s *Session) History() []Entry {
	keys := s.history.Keys()
	r := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.history.Peek(k); ok {
			r = append(r, v.(Entry))
		}
	}
	return r
}

func (s *Session) update(b []byte) {
	s.log.Infof("updating internal bytes to [% X]", b)

	hexKey := func(text string) ([]byte, bool) {
		b, err := s.probe.FromHex(text)
		return b, err == nil
	}
	if h, err := s.conv.ToHex(b); err == nil {
		possiblyUpdate(s.log, &s.Hex, h, hexKey)
	} else {
		s.log.Warnf("overwriting hex view: %v", err)
		possiblyUpdate(s.log, &s.Hex, "", hexKey)
	}

	signed := s.Signed
	numKey := func(text string) ([]byte, bool) {
		b, err := s.probe.ParseNumber(text, signed)
		return b, err == nil
	}
	if n, err := s.conv.FormatNumber(b, signed); err == nil {
		possiblyUpdate(s.log, &s.Number, n, numKey)
	} else {
		s.log.Warnf("overwriting number view: %v", err)
		possiblyUpdate(s.log, &s.Number, NaN, numKey)
	}

	s.Bytes = b
	s.remember(b)
}

// remember adds b to the history, if it is a canonical encoding in at least
// one of the two modes.
func (s *Session) remember(b []byte) {
	e := Entry{Unsigned: NaN, Signed: NaN}
	e.Hex, _ = s.probe.ToHex(b)
	valid := false
	if v, err := s.probe.ToUnsigned(b); err == nil {
		e.Unsigned = strconv.FormatUint(v, 10)
		valid = true
	}
	if v, err := s.probe.ToSigned(b); err == nil {
		e.Signed = strconv.FormatInt(v, 10)
		valid = true
	}
	if valid {
		s.history.Add(e.Hex, e)
	}
}

// possiblyUpdate assigns next to *cur only if the two differ once projected
// through key. Two values without a projection compare equal. It returns
// true if the assignment happened.
func possiblyUpdate(log logflags.Logger, cur *string, next string, key func(string) ([]byte, bool)) bool {
	a, aok := key(*cur)
	b, bok := key(next)
	if aok == bok && bytes.Equal(a, b) {
		return false
	}
	log.Infof("chose to update view %q with %q", *cur, next)
	*cur = next
	return true
}
