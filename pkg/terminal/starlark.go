package terminal

import (
	"github.com/lebanon-go/lebanon/pkg/convert"
	"github.com/lebanon-go/lebanon/pkg/session"
	"github.com/lebanon-go/lebanon/pkg/terminal/starbind"
)

type starlarkContext struct {
	term *Term
}

var _ starbind.Context = starlarkContext{}

func (ctx starlarkContext) Converter() *convert.Converter {
	return ctx.term.conv
}

func (ctx starlarkContext) RegisterCommand(name, helpMsg string, fn func(args string) error) {
	cmdfn := func(t *Term, args string) error {
		return fn(args)
	}
	ctx.term.cmds.Register(name, cmdfn, helpMsg)
}

func (ctx starlarkContext) CallCommand(cmdstr string) error {
	return ctx.term.cmds.Call(cmdstr, ctx.term)
}

func (ctx starlarkContext) Signed() bool {
	return ctx.term.sess.Signed
}

func (ctx starlarkContext) History() []session.Entry {
	return ctx.term.sess.History()
}
