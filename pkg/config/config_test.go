package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigParses(t *testing.T) {
	var buf bytes.Buffer
	if err := writeDefaultConfig(&buf); err != nil {
		t.Fatal(err)
	}
	c, err := readConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if c.Signed || c.HistorySize != nil || len(c.Aliases) != 0 {
		t.Fatalf("default config is not empty: %#v", c)
	}
	if c.GetHistorySize() != DefaultHistorySize {
		t.Errorf("expected default history size, got %d", c.GetHistorySize())
	}
	if c.GetColor() != DefaultColor {
		t.Errorf("expected default color, got %d", c.GetColor())
	}
}

func TestReadConfig(t *testing.T) {
	in := `
signed: true
history-size: 5
color: 92
aliases:
  hex: ["h16"]
`
	c, err := readConfig(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if !c.Signed {
		t.Errorf("expected signed mode")
	}
	if c.GetHistorySize() != 5 {
		t.Errorf("expected history size 5, got %d", c.GetHistorySize())
	}
	if c.GetColor() != 92 {
		t.Errorf("expected color 92, got %d", c.GetColor())
	}
	if a := c.Aliases["hex"]; len(a) != 1 || a[0] != "h16" {
		t.Errorf("unexpected aliases %v", c.Aliases)
	}

	if _, err := readConfig(strings.NewReader("signed: [")); err == nil {
		t.Errorf("expected error for malformed config")
	}
}

func TestGetColorValidation(t *testing.T) {
	for _, tc := range []struct{ in, out int }{{0, DefaultColor}, {31, 31}, {38, DefaultColor}, {89, DefaultColor}, {97, 97}, {98, DefaultColor}} {
		c := &Config{Color: tc.in}
		if got := c.GetColor(); got != tc.out {
			t.Errorf("GetColor with %d: expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestLoadAndSaveConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEBANON_CONFIG_DIR", dir)

	c := LoadConfig()
	if c.Signed {
		t.Fatalf("fresh config should not be signed")
	}
	if _, err := os.Stat(filepath.Join(dir, configFile)); err != nil {
		t.Fatalf("default config file was not created: %v", err)
	}

	n := 8
	c.Signed = true
	c.HistorySize = &n
	if err := SaveConfig(c); err != nil {
		t.Fatal(err)
	}

	c2 := LoadConfig()
	if !c2.Signed || c2.GetHistorySize() != 8 {
		t.Fatalf("saved config was not reloaded: %#v", c2)
	}
}
