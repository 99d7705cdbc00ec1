package starbind

// Code in this file is derived from go.starlark.net/repl/repl.go
// Which is licensed under the following copyright:
//
// Copyright (c) 2017 The Bazel Authors.  All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are
// met:
//
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the
//    distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
//    contributors may be used to endorse or promote products derived
//    from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/go-delve/liner"

	"github.com/lebanon-go/lebanon/pkg/convert"
)

const (
	continuationPrompt = "... "
	exitCommand        = "exit"
)

// lineReader is the part of *liner.State used by the REPL.
type lineReader interface {
	Prompt(string) (string, error)
	AppendHistory(string)
}

// REPL executes a read, eval, print loop. Integer results are printed
// together with their encoding in the current mode.
func (env *Env) REPL() error {
	rl := liner.NewLiner()
	defer rl.Close()
	rl.SetCtrlCAborts(true)
	return env.repl(rl)
}

func (env *Env) repl(rl lineReader) error {
	thread := env.newThread()
	globals := starlark.StringDict{}
	for k, v := range env.env {
		globals[k] = v
	}

	fmt.Fprintf(env.out, "Starlark with the lebanon builtins, %s mode. Type 'help()' for a list of builtins, '%s' to leave.\n", env.modeName(), exitCommand)
	for {
		if err := isCancelled(thread); err != nil {
			return err
		}
		if err := env.rep(rl, thread, globals); err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	fmt.Fprintln(env.out)
	return env.exportGlobals(globals)
}

func (env *Env) modeName() string {
	if env.ctx.Signed() {
		return "signed"
	}
	return "unsigned"
}

// encodingName names the encoding integer results are shown in, it
// follows signed mode changes made from inside the REPL.
func (env *Env) encodingName() string {
	if env.ctx.Signed() {
		return "sleb"
	}
	return "uleb"
}

// rep reads, evaluates and prints one statement. It only returns an
// error when reading failed, a prompt aborted with ctrl-C discards the
// statement being read.
func (env *Env) rep(rl lineReader, thread *starlark.Thread, globals starlark.StringDict) error {
	out := env.out
	defer out.Flush()
	var readErr error

	prompt := env.encodingName() + "> "
	readline := func() ([]byte, error) {
		line, err := rl.Prompt(prompt)
		if err != nil {
			readErr = err
			return nil, err
		}
		out.Echo(prompt + line)
		if prompt != continuationPrompt && strings.TrimSpace(line) == exitCommand {
			readErr = io.EOF
			return nil, io.EOF
		}
		if line != "" {
			rl.AppendHistory(line)
		}
		prompt = continuationPrompt
		return []byte(line + "\n"), nil
	}

	f, err := syntax.ParseCompoundStmt("<stdin>", readline)
	if err != nil {
		switch {
		case readErr == nil:
			printError(out, err)
		case errors.Is(readErr, liner.ErrPromptAborted):
			fmt.Fprintln(out)
		default:
			return readErr
		}
		return nil
	}

	if expr := soleExpr(f); expr != nil {
		v, err := starlark.EvalExpr(thread, expr, globals)
		if err != nil {
			printError(out, err)
			return nil
		}
		env.printValue(v)
		return nil
	}

	prog, err := starlark.FileProgram(f, globals.Has)
	if err != nil {
		printError(out, err)
		return nil
	}
	// Globals are not frozen, the next statement may reassign them.
	res, err := prog.Init(thread, globals)
	if err != nil {
		printError(out, err)
	}
	for k, v := range res {
		globals[k] = v
	}
	return nil
}

// printValue prints v, integers that fit the current mode are followed by
// their encoding.
func (env *Env) printValue(v starlark.Value) {
	if v == starlark.None {
		return
	}
	n, ok := v.(starlark.Int)
	if !ok {
		fmt.Fprintln(env.out, v)
		return
	}
	enc, err := env.encodeInt(n)
	if err != nil {
		fmt.Fprintln(env.out, v)
		return
	}
	fmt.Fprintf(env.out, "%v\t# %s %s\n", v, env.encodingName(), enc)
}

func (env *Env) encodeInt(n starlark.Int) (string, error) {
	conv := env.ctx.Converter()
	var (
		b   []byte
		err error
	)
	if env.ctx.Signed() {
		var v int64
		if v, err = toInt64(n); err == nil {
			b, err = conv.FromSigned(v)
		}
	} else {
		var v uint64
		if v, err = toUint64(n); err == nil {
			b, err = conv.FromUnsigned(v)
		}
	}
	if err != nil {
		return "", err
	}
	return conv.ToHex(b)
}

func soleExpr(f *syntax.File) syntax.Expr {
	if len(f.Stmts) == 1 {
		if stmt, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
			return stmt.X
		}
	}
	return nil
}

// printError prints err to w, with a backtrace for evaluation errors.
// Conversion errors already carry their hint, see decorateError.
func printError(w io.Writer, err error) {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		fmt.Fprintln(w, evalErr.Backtrace())
		return
	}
	fmt.Fprintln(w, convert.Describe(err))
}

// MakeLoad returns a simple sequential implementation of module loading
// suitable for use in the REPL. Loaded modules see the predeclared names.
// Each function returned by MakeLoad accesses a distinct private cache.
func MakeLoad(predeclared starlark.StringDict) func(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	type entry struct {
		globals starlark.StringDict
		err     error
	}

	var cache = make(map[string]*entry)

	return func(thread *starlark.Thread, module string) (starlark.StringDict, error) {
		e, ok := cache[module]
		if e == nil {
			if ok {
				// request for package whose loading is in progress
				return nil, fmt.Errorf("cycle in load graph")
			}

			// Add a placeholder to indicate "load in progress".
			cache[module] = nil

			// Load it.
			thread := &starlark.Thread{Name: "exec " + module, Load: thread.Load}
			globals, err := starlark.ExecFile(thread, module, nil, predeclared)
			e = &entry{globals, err}

			// Update the cache.
			cache[module] = e
		}
		return e.globals, e.err
	}
}
