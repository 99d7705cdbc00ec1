// Package terminal implements functions for responding to user
// input and dispatching to the conversion session.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"
)

type cmdfunc func(t *Term, args string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for the lebanon terminal.
type Commands struct {
	cmds []command
	// names maps every alias to the index of its command in cmds.
	names *trie.Trie
}

// DefaultCommands returns a Commands struct with default commands defined.
func DefaultCommands() *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"hex", "x"}, group: convertCmds, cmdFn: hexCommand, helpMsg: `Sets the encoded bytes from hex text.

	hex <text>

The text is two hex digits per byte, in either case, without prefix or separators. The number is updated from the decoded bytes; if they are not a valid LEB128 value the number shows NaN. Without arguments prints the current state.`},
		{aliases: []string{"number", "n"}, group: convertCmds, cmdFn: numberCommand, helpMsg: `Sets the decoded number.

	number <decimal>

The number is encoded as unsigned LEB128, or as signed LEB128 in signed mode, and the hex text is updated. Without arguments prints the current state.`},
		{aliases: []string{"signed", "s"}, group: convertCmds, cmdFn: signedCommand, helpMsg: `Changes signed mode.

	signed [on|off]

In signed mode numbers are read and written as SLEB128. Without arguments toggles the mode.`},
		{aliases: []string{"show", "p"}, group: convertCmds, cmdFn: showCommand, helpMsg: `Prints the hex text, the number and the bytes.`},
		{aliases: []string{"history"}, group: convertCmds, cmdFn: historyCommand, helpMsg: `Prints the recent conversions, oldest first.`},
		{aliases: []string{"config"}, cmdFn: configureCmd, helpMsg: `Changes configuration parameters.

	config -list

Show all configuration parameters.

	config -save

Saves the configuration file to disk, overwriting the current configuration file.

	config <parameter> <value>

Changes the value of a configuration parameter.

	config alias <command> <alias>
	config alias <alias>

Defines <alias> as an alias to <command> or removes an alias.`},
		{aliases: []string{"source"}, cmdFn: c.sourceCommand, helpMsg: `Executes a file containing a list of lebanon commands.

	source <path>

If path ends with the .star extension it will be interpreted as a starlark script.

If path is a single '-' character an interactive starlark interpreter will start instead. Type 'exit' to exit.`},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: `Exit the terminal.`},
	}

	sort.Sort(byFirstAlias(c.cmds))
	c.index()
	return c
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

// index rebuilds the alias trie, it must be called every time the list of
// commands or their aliases change.
func (c *Commands) index() {
	c.names = trie.New()
	for i := range c.cmds {
		for _, alias := range c.cmds[i].aliases {
			c.names.Add(alias, i)
		}
	}
}

// Register custom commands. Expects cf to be a func of type cmdfunc,
// returning only an error.
func (c *Commands) Register(cmdstr string, cf cmdfunc, helpMsg string) {
	for i := range c.cmds {
		if c.cmds[i].match(cmdstr) {
			c.cmds[i].cmdFn = cf
			c.cmds[i].helpMsg = helpMsg
			return
		}
	}

	c.cmds = append(c.cmds, command{aliases: []string{cmdstr}, cmdFn: cf, helpMsg: helpMsg})
	c.index()
}

var errNoCmd = errors.New("command not available")

// lookup returns the command with the given alias or, failing that, the
// only command that has an alias starting with cmdstr.
func (c *Commands) lookup(cmdstr string) (*command, error) {
	if node, ok := c.names.Find(cmdstr); ok {
		return &c.cmds[node.Meta().(int)], nil
	}
	found := -1
	for _, alias := range c.names.PrefixSearch(cmdstr) {
		node, _ := c.names.Find(alias)
		i := node.Meta().(int)
		if found >= 0 && found != i {
			return nil, fmt.Errorf("ambiguous command %q", cmdstr)
		}
		found = i
	}
	if found < 0 {
		return nil, errNoCmd
	}
	return &c.cmds[found], nil
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
// If the command is an empty string it will do nothing.
func (c *Commands) Find(cmdstr string) cmdfunc {
	if cmdstr == "" {
		return nullCommand
	}
	cmd, err := c.lookup(cmdstr)
	if err != nil {
		return func(t *Term, args string) error { return err }
	}
	return cmd.cmdFn
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	vals := strings.SplitN(strings.TrimSpace(cmdstr), " ", 2)
	cmdname := vals[0]
	var args string
	if len(vals) > 1 {
		args = strings.TrimSpace(vals[1])
	}
	t.log.Debugf("command %q args %q", cmdname, args)
	return c.Find(cmdname)(t, args)
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
	c.index()
}

// complete returns the aliases starting with line, for the line editor.
func (c *Commands) complete(line string) []string {
	if strings.Contains(line, " ") {
		return nil
	}
	r := c.names.PrefixSearch(strings.ToLower(line))
	sort.Strings(r)
	return r
}

func nullCommand(t *Term, args string) error {
	return nil
}

func (c *Commands) help(t *Term, args string) error {
	if args != "" {
		cmd, err := c.lookup(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.stdout, cmd.helpMsg)
		return nil
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for _, cgd := range commandGroupDescriptions {
		fmt.Fprintf(t.stdout, "\n%s:\n", cgd.description)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != cgd.group {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

// splitArgs splits a command's arguments the way a shell would.
func splitArgs(args string) ([]string, error) {
	if strings.TrimSpace(args) == "" {
		return nil, nil
	}
	v, err := argv.Argv(args,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", args)
	}
	return v[0], nil
}

// singleArg returns the only argument in args, or "" if there isn't one.
func singleArg(name, args string) (string, error) {
	v, err := splitArgs(args)
	if err != nil {
		return "", err
	}
	switch len(v) {
	case 0:
		return "", nil
	case 1:
		return v[0], nil
	default:
		return "", fmt.Errorf("wrong number of arguments: %s <value>", name)
	}
}

func hexCommand(t *Term, args string) error {
	arg, err := singleArg("hex", args)
	if err != nil {
		return err
	}
	if arg != "" {
		err = t.sess.SetHex(arg)
	}
	t.printState()
	return err
}

func numberCommand(t *Term, args string) error {
	arg, err := singleArg("number", args)
	if err != nil {
		return err
	}
	if arg != "" {
		err = t.sess.SetNumber(arg)
	}
	t.printState()
	return err
}

func signedCommand(t *Term, args string) error {
	arg, err := singleArg("signed", args)
	if err != nil {
		return err
	}
	switch strings.ToLower(arg) {
	case "":
		t.sess.SetSigned(!t.sess.Signed)
	case "on", "true", "yes":
		t.sess.SetSigned(true)
	case "off", "false", "no":
		t.sess.SetSigned(false)
	default:
		return fmt.Errorf("wrong argument %q: signed [on|off]", arg)
	}
	t.printState()
	return nil
}

func showCommand(t *Term, args string) error {
	if args != "" {
		return errors.New("show takes no arguments")
	}
	t.printState()
	return nil
}

func historyCommand(t *Term, args string) error {
	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "hex\tunsigned\tsigned")
	for _, e := range t.sess.History() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Hex, e.Unsigned, e.Signed)
	}
	return w.Flush()
}

func (c *Commands) sourceCommand(t *Term, args string) error {
	if len(args) == 0 {
		return fmt.Errorf("wrong number of arguments: source <filename>")
	}

	if filepath.Ext(args) == ".star" {
		_, err := t.starlarkEnv.Execute(args, nil, "main", nil)
		return err
	}

	if args == "-" {
		return t.starlarkEnv.REPL()
	}

	return c.executeFile(t, args)
}

// ExitRequestError is returned when the user
// exits the terminal.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

func exitCommand(t *Term, args string) error {
	return ExitRequestError{}
}

func (c *Commands) executeFile(t *Term, name string) error {
	fh, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fh.Close()
	return c.execute(t, name, fh)
}

func (c *Commands) execute(t *Term, name string, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineno++

		if line == "" || line[0] == '#' {
			continue
		}

		if err := c.Call(line, t); err != nil {
			if _, isExitRequest := err.(ExitRequestError); isExitRequest {
				return err
			}
			fmt.Fprintf(t.stdout, "%s:%d: %v\n", name, lineno, err)
		}
	}

	return scanner.Err()
}
