package terminal

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-delve/liner"

	"github.com/lebanon-go/lebanon/pkg/config"
	"github.com/lebanon-go/lebanon/pkg/convert"
	"github.com/lebanon-go/lebanon/pkg/logflags"
	"github.com/lebanon-go/lebanon/pkg/session"
	"github.com/lebanon-go/lebanon/pkg/terminal/starbind"
)

const (
	historyFile                 string = ".leb_history"
	terminalHighlightEscapeCode string = "\033[%2dm"
	terminalResetEscapeCode     string = "\033[0m"

	defaultPrompt = "(leb) "
)

// Term represents the terminal running lebanon.
type Term struct {
	sess     *session.Session
	conv     *convert.Converter
	conf     *config.Config
	prompt   string
	line     *liner.State
	cmds     *Commands
	dumb     bool
	stdout   *termWriter
	InitFile string

	log         logflags.Logger
	starlarkEnv *starbind.Env
}

// New returns a new Term. Both conv and conf may be nil.
func New(conv *convert.Converter, conf *config.Config) *Term {
	if conv == nil {
		conv = convert.New(nil)
	}
	if conf == nil {
		conf = &config.Config{}
	}

	cmds := DefaultCommands()
	if conf.Aliases != nil {
		cmds.Merge(conf.Aliases)
	}

	dumb := strings.ToLower(os.Getenv("TERM")) == "dumb" || !isTerminal(os.Stdout)

	t := &Term{
		sess:   session.New(conv, conf),
		conv:   conv,
		conf:   conf,
		prompt: defaultPrompt,
		cmds:   cmds,
		dumb:   dumb,
		stdout: &termWriter{w: getColorableWriter(dumb)},
		log:    logflags.TerminalLogger(),
	}
	if conf.Prompt != "" {
		t.prompt = conf.Prompt
	}
	t.starlarkEnv = starbind.New(starlarkContext{t}, t.stdout)
	return t
}

// SetOutput redirects the output of commands and scripts to w. Colors are
// disabled.
func (t *Term) SetOutput(w io.Writer) {
	t.stdout.w = w
	t.dumb = true
}

// Session returns the conversion session driven by the terminal.
func (t *Term) Session() *session.Session {
	return t.sess
}

// Close returns the terminal to its previous mode.
func (t *Term) Close() {
	if t.line != nil {
		t.line.Close()
		t.line = nil
	}
}

func (t *Term) sigintGuard(ch <-chan os.Signal) {
	for range ch {
		t.log.Debug("received SIGINT, cancelling running script")
		t.starlarkEnv.Cancel()
	}
}

// guardSIGINT cancels running scripts on SIGINT until the returned function
// is called. The guard goroutine has exited when it returns.
func (t *Term) guardSIGINT() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.sigintGuard(ch)
	}()
	return func() {
		signal.Stop(ch)
		close(ch)
		<-done
	}
}

// Run begins running lebanon in the terminal.
func (t *Term) Run() (int, error) {
	t.line = liner.NewLiner()
	defer t.Close()
	t.line.SetCtrlCAborts(true)

	defer t.guardSIGINT()()

	t.line.SetCompleter(t.cmds.complete)

	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Printf("Unable to load history file: %v.", err)
	}

	f, err := os.Open(fullHistoryFile)
	if err != nil {
		f, err = os.Create(fullHistoryFile)
		if err != nil {
			fmt.Printf("Unable to open history file: %v. History will not be saved for this session.", err)
		}
	}

	if f != nil {
		t.line.ReadHistory(f)
		f.Close()
	}
	fmt.Fprintln(t.stdout, "Type 'help' for list of commands.")

	if t.InitFile != "" {
		err := t.cmds.executeFile(t, t.InitFile)
		if err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Error executing init file: %s\n", err)
		}
	}

	for {
		cmdstr, err := t.promptForInput()
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(t.stdout, "exit")
				return t.handleExit()
			}
			if err == liner.ErrPromptAborted {
				continue
			}
			return 1, fmt.Errorf("prompt for input failed: %v", err)
		}

		if err := t.cmds.Call(cmdstr, t); err != nil {
			if _, ok := err.(ExitRequestError); ok {
				return t.handleExit()
			}
			fmt.Fprintf(os.Stderr, "Command failed: %s\n", err)
		}
	}
}

// Call executes a single terminal command.
func (t *Term) Call(cmdstr string) error {
	return t.cmds.Call(cmdstr, t)
}

// RunScript executes every line read from r as a terminal command. Failed
// commands are reported and execution continues; an exit command stops it.
func (t *Term) RunScript(name string, r io.Reader) error {
	err := t.cmds.execute(t, name, r)
	if _, ok := err.(ExitRequestError); ok {
		return nil
	}
	return err
}

// ExecuteStarlark runs the starlark script at path, then calls its main
// function with args if it defines one.
func (t *Term) ExecuteStarlark(path string, args []interface{}) error {
	_, err := t.starlarkEnv.Execute(path, nil, "main", args)
	return err
}

// Println prints a line to the terminal.
func (t *Term) Println(prefix, str string) {
	if !t.dumb {
		terminalColorEscapeCode := fmt.Sprintf(terminalHighlightEscapeCode, t.conf.GetColor())
		prefix = fmt.Sprintf("%s%s%s", terminalColorEscapeCode, prefix, terminalResetEscapeCode)
	}
	fmt.Fprintf(t.stdout, "%s%s\n", prefix, str)
}

func (t *Term) printState() {
	mode := "unsigned"
	if t.sess.Signed {
		mode = "signed"
	}
	t.Println("hex:    ", t.sess.Hex)
	t.Println("number: ", fmt.Sprintf("%s (%s)", t.sess.Number, mode))
	t.Println("bytes:  ", fmt.Sprintf("[% X]", t.sess.Bytes))
}

// applyConfig propagates a changed configuration parameter to the
// running terminal.
func (t *Term) applyConfig(name string) {
	switch name {
	case "signed":
		t.sess.SetSigned(t.conf.Signed)
	case "prompt":
		t.prompt = t.conf.Prompt
		if t.prompt == "" {
			t.prompt = defaultPrompt
		}
	}
}

func (t *Term) promptForInput() (string, error) {
	l, err := t.line.Prompt(t.prompt)
	if err != nil {
		return "", err
	}

	l = strings.TrimSuffix(l, "\n")
	if l != "" {
		t.line.AppendHistory(l)
	}

	return l, nil
}

func (t *Term) handleExit() (int, error) {
	fullHistoryFile, err := config.GetConfigFilePath(historyFile)
	if err != nil {
		fmt.Println("Error saving history file:", err)
	} else {
		if f, err := os.OpenFile(fullHistoryFile, os.O_RDWR|os.O_TRUNC, 0666); err == nil {
			_, err = t.line.WriteHistory(f)
			if err != nil {
				fmt.Println("readline history error:", err)
			}
			f.Close()
		}
	}
	return 0, nil
}
