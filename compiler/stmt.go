package compiler

import (
	"github.com/mna/luapass/code"
	"github.com/mna/luapass/token"
)

// chunk parses a sequence of statements, stopping at a block terminator or
// right after a return/break, which must be the block's last statement
// (spec §4.7 "chunk"/"block"). It asserts the stack-balance invariant
// (stacklevel == nactloc) at every statement boundary (spec §8).
func (c *Compiler) chunk(fs *FuncState) {
	islast := false
	for !islast && !blockFollow(c.cur) {
		if c.cur == token.RETURN {
			c.returnStat(fs)
			islast = true
		} else {
			islast = c.statement(fs)
		}
		if fs.stackLevel != len(fs.activeLocals) {
			c.errorf(c.line(), "internal error: stack imbalance at statement boundary")
		}
	}
}

// block parses one nested chunk inside its own lexical scope.
func (c *Compiler) block(fs *FuncState, isLoop bool) {
	fs.enterBlock(isLoop)
	c.chunk(fs)
	fs.leaveBlock(c.line())
}

// blockFollow reports whether tok can only follow a block, i.e. it never
// begins a statement (spec §4.7).
func blockFollow(tok Token) bool {
	switch tok {
	case token.EOS, token.END, token.ELSE, token.ELSEIF, token.UNTIL:
		return true
	default:
		return false
	}
}

// statement parses one statement and reports whether it must be the last
// one in its block (true only for "break"; "return" is handled by chunk
// itself since it is recognized before reaching here).
func (c *Compiler) statement(fs *FuncState) (islast bool) {
	c.enterRecursion(c.line())
	defer c.leaveRecursion()

	line := c.line()
	switch c.cur {
	case Token(';'):
		c.advance()
	case token.IF:
		c.ifStat(fs, line)
	case token.WHILE:
		c.whileStat(fs, line)
	case token.DO:
		c.advance()
		c.block(fs, false)
		c.checkMatch(token.END, token.DO, line)
	case token.FOR:
		c.forStat(fs, line)
	case token.REPEAT:
		c.repeatStat(fs, line)
	case token.FUNCTION:
		c.funcStat(fs, line)
	case token.LOCAL:
		c.advance()
		if c.cur == token.FUNCTION {
			c.localFuncStat(fs, line)
		} else {
			c.localStat(fs, line)
		}
	case token.BREAK:
		c.advance()
		c.doBreak(fs, line)
		c.optional(Token(';'))
		islast = true
	default:
		c.exprStat(fs, line)
	}
	return islast
}

// ifStat parses "if" cond "then" block {"elseif" cond "then" block} ["else"
// block] "end" (spec §4.7 "if").
func (c *Compiler) ifStat(fs *FuncState, line int) {
	escape := NoJump
	escape = c.testThenBlock(fs, escape)
	for c.cur == token.ELSEIF {
		escape = c.testThenBlock(fs, escape)
	}
	if c.optional(token.ELSE) {
		c.block(fs, false)
	}
	c.checkMatch(token.END, token.IF, line)
	fs.patchToHere(escape)
}

// testThenBlock parses one "if"/"elseif" condition and its "then" block,
// returning the updated escape list (the set of jumps that must land after
// the whole if-chain once this branch, having run, falls through past the
// remaining elseif/else branches).
func (c *Compiler) testThenBlock(fs *FuncState, escape int) int {
	c.advance() // IF or ELSEIF
	cond := c.expr(fs)
	falseJump := c.condjump(fs, cond, c.line())
	c.check(token.THEN)
	c.block(fs, false)
	if c.cur == token.ELSE || c.cur == token.ELSEIF {
		escape = fs.concat(escape, fs.codeJump(code.JMP, c.line()))
	}
	fs.patchToHere(falseJump)
	return escape
}

// whileStat parses "while" cond "do" block "end" (spec §4.7 "while"). The
// body runs in its own lexical scope nested inside the break-label frame, so
// its locals are popped before the back jump: re-entering the loop must find
// the stack exactly as the condition left it.
func (c *Compiler) whileStat(fs *FuncState, line int) {
	c.advance()
	init := fs.getlabel()
	cond := c.expr(fs)
	falseJump := c.condjump(fs, cond, c.line())
	c.check(token.DO)
	fs.enterBlock(true)
	c.block(fs, false)
	fs.patchlist(fs.codeJump(code.JMP, c.line()), init)
	c.checkMatch(token.END, token.WHILE, line)
	fs.leaveBlock(c.line())
	fs.patchToHere(falseJump)
}

// repeatStat parses "repeat" block "until" cond (spec §4.7 "repeat"). The
// body's scope closes before "until", so the condition cannot reference the
// body's locals: the jump back to init re-runs the body from the stack level
// the loop was entered at.
func (c *Compiler) repeatStat(fs *FuncState, line int) {
	c.advance()
	init := fs.getlabel()
	fs.enterBlock(true)
	c.block(fs, false)
	c.checkMatch(token.UNTIL, token.REPEAT, line)
	cond := c.expr(fs)
	falseJump := c.condjump(fs, cond, c.line())
	fs.patchlist(falseJump, init)
	fs.leaveBlock(c.line())
}

// forStat parses both numeric and generic "for" statements, sharing the
// outer scope that holds their hidden control-variable locals (spec §4.7
// "numeric for", "generic for").
func (c *Compiler) forStat(fs *FuncState, line int) {
	c.advance()
	fs.enterBlock(true)
	name := c.checkName()
	switch {
	case c.cur == Token('='):
		c.forNum(fs, name, line)
	case c.cur == Token(',') || c.isIdent("in"):
		c.forList(fs, name, line)
	default:
		c.errorf(c.line(), "'=' or 'in' expected")
	}
	c.checkMatch(token.END, token.FOR, line)
	fs.leaveBlock(c.line())
}

// forNum parses "NAME '=' e1 ',' e2 [',' e3] 'do' block" (spec §4.7
// "numeric for"): push the (already-consumed) NAME's initial value, limit
// and optional step (defaulting to 1), register the three as hidden
// locals, and bracket the body in a FORPREP/FORLOOP pair.
func (c *Compiler) forNum(fs *FuncState, name string, line int) {
	c.advance() // '='
	e1 := c.expr(fs)
	fs.discharge(&e1, c.line())
	c.check(Token(','))
	e2 := c.expr(fs)
	fs.discharge(&e2, c.line())
	if c.optional(Token(',')) {
		e3 := c.expr(fs)
		fs.discharge(&e3, c.line())
	} else {
		fs.code2(code.PUSHINT, 1, c.line())
	}
	fs.newLocal(name)
	fs.newLocal("(limit)")
	fs.newLocal("(step)")

	c.check(token.DO)
	prep := fs.codeJump(code.FORPREP, c.line())
	c.block(fs, false)
	loopPC := fs.codeJump(code.FORLOOP, c.line())
	fs.fixfor(prep, loopPC)
}

// forList parses "NAME ',' NAME 'in' e1 'do' block" (spec §4.7 "generic
// for"): push the table expression, register the four hidden control
// locals, and bracket the body in an LFORPREP/LFORLOOP pair.
func (c *Compiler) forList(fs *FuncState, keyName string, line int) {
	c.check(Token(','))
	valName := c.checkName()
	c.checkIdent("in")
	e := c.expr(fs)
	fs.discharge(&e, c.line())

	fs.newLocal("(table)")
	fs.newLocal("(index)")
	fs.newLocal(keyName)
	fs.newLocal(valName)

	c.check(token.DO)
	prep := fs.codeJump(code.LFORPREP, c.line())
	c.block(fs, false)
	loopPC := fs.codeJump(code.LFORLOOP, c.line())
	fs.fixfor(prep, loopPC)
}

// localStat parses "local" NAME {',' NAME} ['=' explist] (spec §4.7
// "local"): every name is registered (but left inactive, so its own
// initializer cannot see it) before the initializer list is parsed, and
// only activated once the values are in place.
func (c *Compiler) localStat(fs *FuncState, line int) {
	var idxs []int
	idxs = append(idxs, fs.registerLocal(c.checkName()))
	for c.optional(Token(',')) {
		idxs = append(idxs, fs.registerLocal(c.checkName()))
	}
	if c.optional(Token('=')) {
		c.explistAdjust(fs, len(idxs), c.line())
	} else {
		fs.adjustAssign(len(idxs), 0, nil, line)
	}
	for _, idx := range idxs {
		fs.activateLocal(idx)
	}
}

// localFuncStat parses "local" "function" NAME funcbody: the local is
// registered and activated before the body is parsed, so the function can
// call itself recursively by name.
func (c *Compiler) localFuncStat(fs *FuncState, line int) {
	c.advance() // FUNCTION
	name := c.checkName()
	idx := fs.registerLocal(name)
	fs.activateLocal(idx)
	e := c.funcBody(fs, false, line)
	fs.discharge(&e, c.line())
}

// funcStat parses "function" funcname funcbody, where funcname is a NAME
// optionally followed by one or more ".NAME" and, as its last link, an
// optional ":NAME" marking a method definition (spec §4.7 "function
// statement", §2 of SPEC_FULL).
func (c *Compiler) funcStat(fs *FuncState, line int) {
	c.advance()
	target, needself := c.funcName(fs)
	e := c.funcBody(fs, needself, line)
	fs.discharge(&e, c.line())
	c.storevar(fs, target, 0, c.line())
	if target.Kind == EIndexed {
		fs.emitVar(code.POPN, 2, -2, c.line())
	}
}

// funcName parses funcname, leaving the assignment target (ELocal/EGlobal
// for a bare name, EIndexed once any "." or ":" link has been consumed) in
// target.
func (c *Compiler) funcName(fs *FuncState) (target Expr, needself bool) {
	name := c.checkName()
	target = c.singlevar(fs, name)
	for c.cur == Token('.') {
		c.advance()
		field := c.checkName()
		fs.discharge(&target, c.line())
		fs.code2(code.PUSHCONST, fs.kstr(field), c.line())
		target = Expr{Kind: EIndexed, True: NoJump, False: NoJump}
	}
	if c.cur == Token(':') {
		c.advance()
		field := c.checkName()
		fs.discharge(&target, c.line())
		fs.code2(code.PUSHCONST, fs.kstr(field), c.line())
		target = Expr{Kind: EIndexed, True: NoJump, False: NoJump}
		needself = true
	}
	return target, needself
}

// returnStat parses "return" [explist] [';'] (spec §4.7 "return"): a
// trailing open call/vararg is fixed to keep every result it produces,
// since a return may yield any number of values.
func (c *Compiler) returnStat(fs *FuncState) {
	line := c.line()
	c.advance()
	if !blockFollow(c.cur) && c.cur != Token(';') {
		_, open := c.exprListOpen(fs)
		if open != nil {
			fs.setcallreturns(open.Num, MultRet)
		}
	}
	c.optional(Token(';'))
	fs.emitReturn(line)
}
