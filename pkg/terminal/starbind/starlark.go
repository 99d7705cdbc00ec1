package starbind

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/lebanon-go/lebanon/pkg/convert"
	"github.com/lebanon-go/lebanon/pkg/logflags"
	"github.com/lebanon-go/lebanon/pkg/session"
)

const (
	commandBuiltinName    = "lebanon_command"
	readFileBuiltinName   = "read_file"
	writeFileBuiltinName  = "write_file"
	ulebEncodeBuiltinName = "uleb_encode"
	ulebDecodeBuiltinName = "uleb_decode"
	slebEncodeBuiltinName = "sleb_encode"
	slebDecodeBuiltinName = "sleb_decode"
	hexEncodeBuiltinName  = "hex_encode"
	hexDecodeBuiltinName  = "hex_decode"
	historyBuiltinName    = "history"
	signedBuiltinName     = "signed_mode"
	commandPrefix         = "command_"
	lebanonContextName    = "lebanon_context"
	helpBuiltinName       = "help"
)

func init() {
	resolve.AllowNestedDef = true
	resolve.AllowLambda = true
	resolve.AllowFloat = true
	resolve.AllowSet = true
	resolve.AllowBitwise = true
	resolve.AllowRecursion = true
	resolve.AllowGlobalReassign = true
}

// Context is the context in which starlark scripts are evaluated.
// It contains methods to convert values, call terminal commands, etc.
type Context interface {
	Converter() *convert.Converter
	RegisterCommand(name, helpMsg string, cmdfn func(args string) error)
	CallCommand(cmdstr string) error
	Signed() bool
	History() []session.Entry
}

// Env is the environment used to evaluate starlark scripts.
type Env struct {
	env       starlark.StringDict
	doc       map[string]string
	contextMu sync.Mutex
	thread    *starlark.Thread
	cancelfn  context.CancelFunc

	ctx Context
	out EchoWriter
	log logflags.Logger
}

// New creates a new starlark binding environment.
func New(ctx Context, out EchoWriter) *Env {
	env := &Env{
		env: starlark.StringDict{},
		doc: map[string]string{},
		ctx: ctx,
		out: out,
		log: logflags.ScriptLogger(),
	}

	builtindoc := func(name, args, descr string) {
		env.doc[name] = name + args + "\n\n" + name + " " + descr
	}

	env.env[commandBuiltinName] = starlark.NewBuiltin(commandBuiltinName, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := isCancelled(thread); err != nil {
			return starlark.None, err
		}
		argstrs := make([]string, len(args))
		for i := range args {
			a, ok := args[i].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("argument of lebanon_command is not a string")
			}
			argstrs[i] = string(a)
		}
		err := env.ctx.CallCommand(strings.Join(argstrs, " "))
		return starlark.None, decorateError(thread, err)
	})
	builtindoc(commandBuiltinName, "(Command)", "executes a terminal command, for example lebanon_command(\"hex\", \"AC02\").")

	env.env[ulebEncodeBuiltinName] = starlark.NewBuiltin(ulebEncodeBuiltinName, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var n starlark.Int
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
			return nil, err
		}
		v, err := toUint64(n)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		enc, err := env.ctx.Converter().FromUnsigned(v)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return env.hex(thread, enc)
	})
	builtindoc(ulebEncodeBuiltinName, "(Int)", "returns the unsigned LEB128 encoding of Int as a hex string.")

	env.env[ulebDecodeBuiltinName] = starlark.NewBuiltin(ulebDecodeBuiltinName, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		enc, err := env.unpackEncoded(thread, b, args, kwargs)
		if err != nil {
			return nil, err
		}
		v, err := env.ctx.Converter().ToUnsigned(enc)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return starlark.MakeUint64(v), nil
	})
	builtindoc(ulebDecodeBuiltinName, "(Encoded)", "decodes an unsigned LEB128 value given as a hex string or bytes.")

	env.env[slebEncodeBuiltinName] = starlark.NewBuiltin(slebEncodeBuiltinName, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var n starlark.Int
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &n); err != nil {
			return nil, err
		}
		v, err := toInt64(n)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		enc, err := env.ctx.Converter().FromSigned(v)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return env.hex(thread, enc)
	})
	builtindoc(slebEncodeBuiltinName, "(Int)", "returns the signed LEB128 encoding of Int as a hex string.")

	env.env[slebDecodeBuiltinName] = starlark.NewBuiltin(slebDecodeBuiltinName, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		enc, err := env.unpackEncoded(thread, b, args, kwargs)
		if err != nil {
			return nil, err
		}
		v, err := env.ctx.Converter().ToSigned(enc)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return starlark.MakeInt64(v), nil
	})
	builtindoc(slebDecodeBuiltinName, "(Encoded)", "decodes a signed LEB128 value given as a hex string or bytes.")

	env.env[hexEncodeBuiltinName] = starlark.NewBuiltin(hexEncodeBuiltinName, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var in starlark.Bytes
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &in); err != nil {
			return nil, err
		}
		return env.hex(thread, []byte(in))
	})
	builtindoc(hexEncodeBuiltinName, "(Bytes)", "returns Bytes as an upper-case hex string.")

	env.env[hexDecodeBuiltinName] = starlark.NewBuiltin(hexDecodeBuiltinName, func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var in string
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &in); err != nil {
			return nil, err
		}
		out, err := env.ctx.Converter().FromHex(in)
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return starlark.Bytes(out), nil
	})
	builtindoc(hexDecodeBuiltinName, "(Text)", "parses hex text, in either case, into bytes.")

	env.env[signedBuiltinName] = starlark.NewBuiltin(signedBuiltinName, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return starlark.Bool(env.ctx.Signed()), nil
	})
	builtindoc(signedBuiltinName, "()", "returns True if the terminal is in signed mode.")

	env.env[historyBuiltinName] = starlark.NewBuiltin(historyBuiltinName, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		return interfaceToStarlarkValue(env.ctx.History()), nil
	})
	builtindoc(historyBuiltinName, "()", "returns the recent conversions, oldest first.")

	env.env[readFileBuiltinName] = starlark.NewBuiltin(readFileBuiltinName, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) != 1 {
			return nil, decorateError(thread, fmt.Errorf("wrong number of arguments"))
		}
		path, ok := args[0].(starlark.String)
		if !ok {
			return nil, decorateError(thread, fmt.Errorf("argument of read_file was not a string"))
		}
		buf, err := os.ReadFile(string(path))
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return starlark.String(string(buf)), nil
	})
	builtindoc(readFileBuiltinName, "(Path)", "reads a file.")

	env.env[writeFileBuiltinName] = starlark.NewBuiltin(writeFileBuiltinName, func(thread *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(args) != 2 {
			return nil, decorateError(thread, fmt.Errorf("wrong number of arguments"))
		}
		path, ok := args[0].(starlark.String)
		if !ok {
			return nil, decorateError(thread, fmt.Errorf("first argument of write_file was not a string"))
		}
		text := args[1].String()
		if s, ok := args[1].(starlark.String); ok {
			text = string(s)
		}
		err := os.WriteFile(string(path), []byte(text), 0640)
		return starlark.None, decorateError(thread, err)
	})
	builtindoc(writeFileBuiltinName, "(Path, Text)", "writes text to the specified file.")

	env.env[helpBuiltinName] = starlark.NewBuiltin(helpBuiltinName, func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		switch len(args) {
		case 0:
			fmt.Fprintln(env.out, "Available builtins:")
			bins := make([]string, 0, len(env.env))
			for name, value := range env.env {
				switch value.(type) {
				case *starlark.Builtin:
					bins = append(bins, name)
				}
			}
			sort.Strings(bins)
			for _, bin := range bins {
				fmt.Fprintf(env.out, "\t%s\n", bin)
			}
		case 1:
			switch x := args[0].(type) {
			case *starlark.Builtin:
				if env.doc[x.Name()] != "" {
					fmt.Fprintf(env.out, "%s\n", env.doc[x.Name()])
				} else {
					fmt.Fprintf(env.out, "no help for builtin %s\n", x.Name())
				}
			case *starlark.Function:
				fmt.Fprintf(env.out, "user defined function %s\n", x.Name())
				if doc := x.Doc(); doc != "" {
					fmt.Fprintln(env.out, doc)
				}
			default:
				fmt.Fprintf(env.out, "no help for object of type %T\n", args[0])
			}
		default:
			fmt.Fprintln(env.out, "wrong number of arguments ", len(args))
		}
		return starlark.None, nil
	})
	builtindoc(helpBuiltinName, "(Object)", "prints help for Object.")

	return env
}

// unpackEncoded unpacks the single argument of a decoding builtin, which
// can either be hex text or bytes.
func (env *Env) unpackEncoded(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) ([]byte, error) {
	var in starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &in); err != nil {
		return nil, err
	}
	switch in := in.(type) {
	case starlark.Bytes:
		return []byte(in), nil
	case starlark.String:
		enc, err := env.ctx.Converter().FromHex(string(in))
		if err != nil {
			return nil, decorateError(thread, err)
		}
		return enc, nil
	default:
		return nil, fmt.Errorf("%s: got %s, want string or bytes", b.Name(), in.Type())
	}
}

func (env *Env) hex(thread *starlark.Thread, b []byte) (starlark.Value, error) {
	s, err := env.ctx.Converter().ToHex(b)
	if err != nil {
		return nil, decorateError(thread, err)
	}
	return starlark.String(s), nil
}

// Redirect redirects starlark output to out.
func (env *Env) Redirect(out EchoWriter) {
	env.out = out
	if env.thread != nil {
		env.thread.Print = env.printFunc()
	}
}

func (env *Env) printFunc() func(_ *starlark.Thread, msg string) {
	return func(_ *starlark.Thread, msg string) { fmt.Fprintln(env.out, msg) }
}

// Execute executes a script. Path is the name of the file to execute and
// source is the source code to execute.
// Source can be either a []byte, a string or a io.Reader. If source is nil
// Execute will execute the file specified by 'path'.
// After the file is executed if a function named mainFnName exists it will be called, passing args to it.
func (env *Env) Execute(path string, source interface{}, mainFnName string, args []interface{}) (_ starlark.Value, _err error) {
	defer func() {
		err := recover()
		if err == nil {
			return
		}
		_err = fmt.Errorf("panic executing starlark script: %v", err)
		fmt.Fprintf(env.out, "panic executing starlark script: %v\n", err)
		for i := 0; ; i++ {
			pc, file, line, ok := runtime.Caller(i)
			if !ok {
				break
			}
			fname := "<unknown>"
			fn := runtime.FuncForPC(pc)
			if fn != nil {
				fname = fn.Name()
			}
			fmt.Fprintf(env.out, "%s\n\tin %s:%d\n", fname, file, line)
		}
	}()

	env.log.Debugf("executing %s", path)
	thread := env.newThread()
	globals, err := starlark.ExecFile(thread, path, source, env.env)
	if err != nil {
		env.log.WithError(err).Debugf("could not execute %s", path)
		return starlark.None, err
	}

	err = env.exportGlobals(globals)
	if err != nil {
		return starlark.None, err
	}

	return env.callMain(thread, globals, mainFnName, args)
}

// exportGlobals saves globals with a name starting with a capital letter
// into the environment and creates commands from globals with a name
// starting with "command_"
func (env *Env) exportGlobals(globals starlark.StringDict) error {
	for name, val := range globals {
		switch {
		case strings.HasPrefix(name, commandPrefix):
			err := env.createCommand(name, val)
			if err != nil {
				return err
			}
		case name[0] >= 'A' && name[0] <= 'Z':
			env.env[name] = val
		}
	}
	return nil
}

// Cancel cancels the execution of a currently running script or function.
func (env *Env) Cancel() {
	if env == nil {
		return
	}
	env.contextMu.Lock()
	if env.cancelfn != nil {
		env.cancelfn()
		env.cancelfn = nil
	}
	if env.thread != nil {
		env.thread.Cancel("user interrupt")
	}
	env.contextMu.Unlock()
}

func (env *Env) newThread() *starlark.Thread {
	thread := &starlark.Thread{
		Print: env.printFunc(),
		Load:  MakeLoad(env.env),
	}
	env.contextMu.Lock()
	var ctx context.Context
	ctx, env.cancelfn = context.WithCancel(context.Background())
	env.thread = thread
	env.contextMu.Unlock()
	thread.SetLocal(lebanonContextName, ctx)
	return thread
}

func (env *Env) createCommand(name string, val starlark.Value) error {
	fnval, ok := val.(*starlark.Function)
	if !ok {
		return nil
	}

	name = name[len(commandPrefix):]
	env.log.Debugf("registering command %q", name)

	helpMsg := fnval.Doc()
	if helpMsg == "" {
		helpMsg = "user defined"
	}

	if fnval.NumParams() == 1 {
		if p0, _ := fnval.Param(0); p0 == "args" {
			env.ctx.RegisterCommand(name, helpMsg, func(args string) error {
				_, err := starlark.Call(env.newThread(), fnval, starlark.Tuple{starlark.String(args)}, nil)
				return err
			})
			return nil
		}
	}

	env.ctx.RegisterCommand(name, helpMsg, func(args string) error {
		thread := env.newThread()
		argval, err := starlark.Eval(thread, "<input>", "("+args+")", env.env)
		if err != nil {
			return err
		}
		argtuple, ok := argval.(starlark.Tuple)
		if !ok {
			argtuple = starlark.Tuple{argval}
		}
		_, err = starlark.Call(thread, fnval, argtuple, nil)
		return err
	})
	return nil
}

// callMain calls the main function in globals, if one was defined.
func (env *Env) callMain(thread *starlark.Thread, globals starlark.StringDict, mainFnName string, args []interface{}) (starlark.Value, error) {
	if mainFnName == "" {
		return starlark.None, nil
	}
	mainval := globals[mainFnName]
	if mainval == nil {
		return starlark.None, nil
	}
	mainfn, ok := mainval.(*starlark.Function)
	if !ok {
		return starlark.None, fmt.Errorf("%s is not a function", mainFnName)
	}
	if mainfn.NumParams() != len(args) {
		return starlark.None, fmt.Errorf("wrong number of arguments for %s", mainFnName)
	}
	argtuple := make(starlark.Tuple, len(args))
	for i := range args {
		argtuple[i] = interfaceToStarlarkValue(args[i])
	}
	return starlark.Call(thread, mainfn, argtuple, nil)
}

func isCancelled(thread *starlark.Thread) error {
	if ctx, ok := thread.Local(lebanonContextName).(context.Context); ok {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// decorateError prefixes err with the position of the calling script line.
// Conversion errors get the same hint the command line prints.
func decorateError(thread *starlark.Thread, err error) error {
	if err == nil {
		return nil
	}
	err = convert.Describe(err)
	pos := thread.CallFrame(1).Pos
	if pos.Col > 0 {
		return fmt.Errorf("%s:%d:%d: %w", pos.Filename(), pos.Line, pos.Col, err)
	}
	return fmt.Errorf("%s:%d: %w", pos.Filename(), pos.Line, err)
}

type EchoWriter interface {
	io.Writer
	Echo(string)
	Flush()
}
