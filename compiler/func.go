package compiler

import (
	"github.com/mna/luapass/code"
	"github.com/mna/luapass/token"
)

// parlist parses a function's formal parameter list, registering and
// activating each name as it is read, and reports whether the list ends in
// "..." (spec §4.8 "parlist").
func (c *Compiler) parlist(fs *FuncState) (isVararg bool) {
	if c.cur == Token(')') {
		return false
	}
	for {
		if c.cur == token.DOTS {
			c.advance()
			isVararg = true
			break
		}
		name := c.checkName()
		fs.newLocal(name)
		c.checklimit(fs, len(fs.activeLocals), maxParams, "parameters")
		if !c.optional(Token(',')) {
			break
		}
	}
	return isVararg
}

// funcBody parses a function body -- "(" parlist ")" block "end" -- opening
// a fresh FuncState for it (spec §4.8 "body(needself, line)"). parent is
// the enclosing FS, whose stack and code buffer the finished closure is
// pushed onto. needself prepends an implicit "self" parameter, used for
// the ":" method-definition syntax.
func (c *Compiler) funcBody(parent *FuncState, needself bool, line int) Expr {
	fs := openFunc(c, parent, c.source, line)

	openParen := c.line()
	c.check(Token('('))
	if needself {
		fs.newLocal("self")
	}
	isVararg := c.parlist(fs)
	fs.proto.NumParams = len(fs.activeLocals)
	fs.proto.IsVararg = isVararg
	if isVararg {
		// a hidden local so source that still indexes the truncated
		// varargs by name (the pre-"..." convention) keeps resolving.
		fs.newLocal("arg")
	}
	fs.stackLevel = len(fs.activeLocals)
	if fs.stackLevel > fs.maxStack {
		fs.maxStack = fs.stackLevel
	}
	c.checkMatch(Token(')'), Token('('), openParen)

	c.chunk(fs)
	endLine := c.line()
	c.checkMatch(token.END, token.FUNCTION, line)

	proto := c.closeFunc(fs)

	protoIdx := parent.proto.AddProto(proto)
	c.checklimit(parent, protoIdx+1, maxConstIdx, "function prototypes")

	// Push each captured upvalue's source value in the enclosing FS, in
	// capture order, immediately before the CLOSURE that binds them (spec
	// §4.8 step 6).
	for _, uv := range fs.upvalues {
		switch uv.Kind {
		case code.UpvalLocal:
			parent.code2(code.PUSHLOCAL, uv.Index, endLine)
		case code.UpvalGlobal:
			parent.code2(code.PUSHGLOBAL, parent.kstr(uv.Name), endLine)
		}
	}
	parent.emitVar(code.CLOSURE, protoIdx, 1-len(fs.upvalues), endLine)
	return Expr{Kind: EExp, True: NoJump, False: NoJump}
}
