package cmds

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lebanon-go/lebanon/pkg/config"
	"github.com/lebanon-go/lebanon/pkg/convert"
	"github.com/lebanon-go/lebanon/pkg/logflags"
	"github.com/lebanon-go/lebanon/pkg/terminal"
	"github.com/lebanon-go/lebanon/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// initFile is the path to initialization file.
	initFile string
	// mode is the value of the --mode flag.
	mode modeFlag

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config

	// osExit is replaced by tests.
	osExit = os.Exit
)

const lebanonCommandLongDesc = `Lebanon converts integers to and from their LEB128 encoding.

Numbers are written in decimal, encodings as hex text with two digits per
byte. By default numbers are unsigned, use --mode=signed for SLEB128.

Without a subcommand lebanon starts an interactive terminal where the hex
and decimal views of a value can be edited side by side.`

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()
	mode = modeFlag{signed: conf.Signed}

	// Main lebanon root command.
	rootCommand = &cobra.Command{
		Use:   "lebanon",
		Short: "Lebanon is a LEB128 encoder and decoder.",
		Long:  lebanonCommandLongDesc,
		Args:  cobra.NoArgs,
		Run:   replCmd,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'lebanon help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'lebanon help log').")
	rootCommand.PersistentFlags().StringVar(&initFile, "init", "", "Init file, executed by the terminal.")
	rootCommand.PersistentFlags().Var(&mode, "mode", "Encoding of numbers, signed or unsigned.")

	// 'encode' subcommand.
	encodeCommand := &cobra.Command{
		Use:   "encode <number>",
		Short: "Prints the LEB128 encoding of a decimal number.",
		Long: `Prints the canonical LEB128 encoding of a decimal number as upper case hex text.

With --mode=signed the number may be negative and is encoded as SLEB128.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			osExit(execute(cmd, func(conv *convert.Converter) (string, error) {
				b, err := conv.ParseNumber(args[0], mode.signed)
				if err != nil {
					return "", err
				}
				return conv.ToHex(b)
			}))
		},
	}
	rootCommand.AddCommand(encodeCommand)

	// 'decode' subcommand.
	decodeCommand := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Prints the number encoded by LEB128 hex text.",
		Long: `Decodes LEB128 hex text, in either case, and prints the number in decimal.

The text must contain exactly one encoded value. With --mode=signed it is
decoded as SLEB128.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			osExit(execute(cmd, func(conv *convert.Converter) (string, error) {
				b, err := conv.FromHex(args[0])
				if err != nil {
					return "", err
				}
				return conv.FormatNumber(b, mode.signed)
			}))
		},
	}
	rootCommand.AddCommand(decodeCommand)

	// 'repl' subcommand.
	replCommand := &cobra.Command{
		Use:   "repl",
		Short: "Starts the interactive terminal.",
		Long: `Starts the interactive terminal, this is also what lebanon does when no
subcommand is given.

If standard input is not a terminal the commands are read from it instead,
one per line.`,
		Args: cobra.NoArgs,
		Run:  replCmd,
	}
	rootCommand.AddCommand(replCommand)

	// 'run' subcommand.
	runCommand := &cobra.Command{
		Use:   "run <script.star> [args...]",
		Short: "Runs a starlark script.",
		Long: `Runs a starlark script with the lebanon builtins.

If the script defines a main function it is called with the remaining
arguments, as strings.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			osExit(runCmd(cmd, args))
		},
	}
	rootCommand.AddCommand(runCommand)

	// 'version' subcommand.
	var versionVerbose = false
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Lebanon LEB128 converter\n%s\n", version.LebanonVersion)
			if versionVerbose {
				fmt.Fprintf(cmd.OutOrStdout(), "Build Details: %s\n", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	convert		Log failed conversions (default)
	session		Log updates of the terminal views
	terminal	Log terminal commands
	script		Log starlark script execution

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.
`,
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

// setup applies the logging flags and the --mode flag. The returned
// function must be called when the command is done.
func setup(cmd *cobra.Command) (func(), error) {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("mode") {
		conf.Signed = mode.signed
	}
	return logflags.Close, nil
}

// execute runs a single conversion and prints its result.
func execute(cmd *cobra.Command, fn func(*convert.Converter) (string, error)) int {
	done, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return 1
	}
	defer done()

	out, err := fn(convert.New(nil))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", convert.Describe(err))
		return 1
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return 0
}

func replCmd(cmd *cobra.Command, args []string) {
	osExit(repl(cmd, os.Stdin))
}

func repl(cmd *cobra.Command, in *os.File) int {
	done, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return 1
	}
	defer done()

	term := terminal.New(nil, conf)
	term.InitFile = initFile
	if !isatty.IsTerminal(in.Fd()) {
		return runScript(cmd, term, in)
	}
	status, err := term.Run()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	return status
}

func runScript(cmd *cobra.Command, term *terminal.Term, in io.Reader) int {
	term.SetOutput(cmd.OutOrStdout())
	if initFile != "" {
		f, err := os.Open(initFile)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error executing init file: %s\n", err)
			return 1
		}
		err = term.RunScript(initFile, f)
		f.Close()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error executing init file: %s\n", err)
			return 1
		}
	}
	if err := term.RunScript("stdin", in); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func runCmd(cmd *cobra.Command, args []string) int {
	done, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
		return 1
	}
	defer done()

	term := terminal.New(nil, conf)
	term.SetOutput(cmd.OutOrStdout())
	mainArgs := make([]interface{}, len(args)-1)
	for i := range mainArgs {
		mainArgs[i] = args[i+1]
	}
	if err := term.ExecuteStarlark(args[0], mainArgs); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}
