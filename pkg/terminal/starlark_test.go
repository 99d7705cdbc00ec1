package terminal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStarlarkCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.star")
	script := `
def command_double(args):
	"Doubles the current number."
	n = uleb_decode(uleb_encode(int(args))) * 2
	lebanon_command("number %d" % n)

def main():
	lebanon_command("number 300")
	print("current", uleb_decode("ac02"), signed_mode())
`
	if err := os.WriteFile(path, []byte(script), 0600); err != nil {
		t.Fatal(err)
	}

	term := newFakeTerminal(t, nil)
	out := term.MustExec("source " + path)
	if !strings.Contains(out, "current 300 False") {
		t.Errorf("wrong output %q", out)
	}
	if term.sess.Hex != "AC02" {
		t.Errorf("main not called: %q", term.sess.Hex)
	}

	term.MustExec("double 64")
	if term.sess.Number != "128" {
		t.Errorf("starlark command not registered: %q", term.sess.Number)
	}
	if out := term.MustExec("help double"); !strings.Contains(out, "Doubles the current number.") {
		t.Errorf("wrong help %q", out)
	}
}

func TestStarlarkHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.star")
	script := `
def main():
	for e in history():
		print(e["Hex"], e["Unsigned"], e["Signed"])
`
	if err := os.WriteFile(path, []byte(script), 0600); err != nil {
		t.Fatal(err)
	}

	term := newFakeTerminal(t, nil)
	term.MustExec("hex 7f")
	if err := term.ExecuteStarlark(path, nil); err != nil {
		t.Fatal(err)
	}
	if got := term.out.String(); !strings.Contains(got, "7F 127 -1") {
		t.Errorf("wrong output %q", got)
	}
}
