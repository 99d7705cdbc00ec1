package terminal

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// termWriter is the output of the terminal, shared with starlark scripts.
type termWriter struct {
	w io.Writer
}

func (w *termWriter) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

// Echo is called by the starlark REPL with the text it is about to
// evaluate, it is not shown.
func (w *termWriter) Echo(string) {}

// Flush is a no-op, termWriter is not buffered.
func (w *termWriter) Flush() {}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

// getColorableWriter returns a writer for stdout that translates ANSI
// escape sequences on windows consoles.
func getColorableWriter(dumb bool) io.Writer {
	if dumb {
		return os.Stdout
	}
	return colorable.NewColorableStdout()
}
