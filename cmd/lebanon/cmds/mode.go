package cmds

import (
	"fmt"

	"github.com/spf13/pflag"
)

// modeFlag selects between unsigned LEB128 and signed LEB128.
type modeFlag struct {
	signed bool
}

var _ pflag.Value = (*modeFlag)(nil)

func (m *modeFlag) String() string {
	if m.signed {
		return "signed"
	}
	return "unsigned"
}

func (m *modeFlag) Set(s string) error {
	switch s {
	case "signed", "sleb128":
		m.signed = true
	case "unsigned", "uleb128":
		m.signed = false
	default:
		return fmt.Errorf("unknown mode %q, must be signed or unsigned", s)
	}
	return nil
}

func (m *modeFlag) Type() string {
	return "mode"
}
