package compiler

import (
	"github.com/mna/luapass/code"
	"github.com/mna/luapass/token"
)

// binopPriority is the operator table of spec §4.5.
func binopPriority(tok Token) (left, right int, ok bool) {
	switch tok {
	case Token('+'), Token('-'):
		return 5, 5, true
	case Token('*'), Token('/'):
		return 6, 6, true
	case Token('%'):
		return 6, 6, true
	case Token('^'):
		return 9, 8, true // right-associative
	case token.CONCAT:
		return 4, 3, true // right-associative
	case token.EQ, token.NE:
		return 2, 2, true
	case Token('<'), token.LE, Token('>'), token.GE:
		return 2, 2, true
	case token.AND, token.OR:
		return 1, 1, true
	default:
		return 0, 0, false
	}
}

const unaryPriority = 7

func isUnop(tok Token) bool {
	return tok == token.NOT || tok == Token('-') || tok == Token('#')
}

// expr parses a full expression (spec §4.5 "subexpr(limit)" called with the
// lowest limit).
func (c *Compiler) expr(fs *FuncState) Expr {
	e, _ := c.subexpr(fs, 0)
	return e
}

// subexpr implements spec §4.5's precedence-climbing loop.
func (c *Compiler) subexpr(fs *FuncState, limit int) (Expr, Token) {
	c.enterRecursion(c.line())
	defer c.leaveRecursion()

	var e Expr
	if isUnop(c.cur) {
		op := c.cur
		line := c.line()
		c.advance()
		operand, _ := c.subexpr(fs, unaryPriority)
		e = c.applyUnop(fs, op, operand, line)
	} else {
		e = c.simpleexp(fs)
	}

	for {
		left, right, isBin := binopPriority(c.cur)
		if !isBin || left <= limit {
			break
		}
		op := c.cur
		line := c.line()
		c.advance()

		switch op {
		case token.AND:
			fs.goiftrue(&e, line)
		case token.OR:
			fs.goiffalse(&e, line)
		default:
			fs.discharge(&e, line)
		}

		rhs, _ := c.subexpr(fs, right)
		e = c.applyBinop(fs, op, e, rhs, line)
	}
	return e, c.cur
}

func (c *Compiler) applyUnop(fs *FuncState, op Token, e Expr, line int) Expr {
	switch op {
	case Token('-'):
		if e.Kind == ENumber {
			e.Flt = -e.Flt
			return e
		}
		fs.discharge(&e, line)
		fs.code1(code.UNM, line)
	case token.NOT:
		fs.discharge(&e, line)
		fs.code1(code.NOT, line)
	case Token('#'):
		fs.discharge(&e, line)
		fs.code1(code.LEN, line)
	}
	return Expr{Kind: EExp, True: NoJump, False: NoJump}
}

func binOpcode(op Token) code.Opcode {
	switch op {
	case Token('+'):
		return code.ADD
	case Token('-'):
		return code.SUB
	case Token('*'):
		return code.MUL
	case Token('/'):
		return code.DIV
	case Token('%'):
		return code.MOD
	case Token('^'):
		return code.POW
	case token.EQ:
		return code.EQ
	case token.NE:
		return code.NE
	case Token('<'):
		return code.LT
	case token.LE:
		return code.LE
	case Token('>'):
		return code.GT
	case token.GE:
		return code.GE
	default:
		panic("compiler: no opcode for binary operator")
	}
}

func (c *Compiler) applyBinop(fs *FuncState, op Token, lhs, rhs Expr, line int) Expr {
	switch op {
	case token.AND:
		fs.discharge(&rhs, line)
		return Expr{Kind: EExp, True: rhs.True, False: lhs.False}
	case token.OR:
		fs.discharge(&rhs, line)
		return Expr{Kind: EExp, True: lhs.True, False: rhs.False}
	case token.CONCAT:
		fs.discharge(&rhs, line)
		fs.emitConcat(line)
		return Expr{Kind: EExp, True: NoJump, False: NoJump}
	default:
		fs.discharge(&rhs, line)
		fs.code1(binOpcode(op), line)
		return Expr{Kind: EExp, True: NoJump, False: NoJump}
	}
}

// emitConcat fuses a chain of ".." operators into a single variadic CONCAT
// instruction (spec §4.5 "posfix hook... fuses arithmetic, concat chains").
// Fusion is barred when the current pc is a jump target: a short-circuit
// path landing here expects the previous CONCAT to have already run.
func (fs *FuncState) emitConcat(line int) {
	if pc := fs.proto.PC() - 1; pc >= 0 && fs.lastTarget != fs.proto.PC() &&
		fs.proto.Code[pc].Op == code.CONCAT {
		fs.proto.Code[pc].Arg++
		fs.deltastack(-1)
		return
	}
	fs.emitVar(code.CONCAT, 2, -1, line)
}

// simpleexp parses a primary expression and its postfix chain, plus the
// handful of atoms that never take postfixes (spec §4.5 "simpleexp").
func (c *Compiler) simpleexp(fs *FuncState) Expr {
	line := c.line()
	switch c.cur {
	case token.NUMBER:
		f := c.curVal.Num
		c.advance()
		return numExpr(f)
	case token.STRING:
		s := c.curVal.Str
		c.advance()
		return Expr{Kind: EString, Str: s, True: NoJump, False: NoJump}
	case token.NIL:
		c.advance()
		return nilExpr()
	case token.TRUE:
		c.advance()
		return trueExpr()
	case token.FALSE:
		c.advance()
		return falseExpr()
	case token.DOTS:
		c.advance()
		if !fs.proto.IsVararg {
			c.errorf(line, "cannot use '...' outside a vararg function")
		}
		pc := fs.emitVar(code.PUSHVARARG, 1, 1, line)
		return Expr{Kind: EVararg, Num: pc, True: NoJump, False: NoJump}
	case Token('{'):
		return c.tableConstructor(fs)
	case token.FUNCTION:
		c.advance()
		return c.funcBody(fs, false, line)
	default:
		return c.suffixedExpr(fs)
	}
}

// primaryExpr parses the atoms that can be followed by a postfix chain:
// names, explicit upvalue references, and parenthesized expressions (spec
// §4.5 "primaryexp").
func (c *Compiler) primaryExpr(fs *FuncState) Expr {
	line := c.line()
	switch c.cur {
	case token.NAME:
		name := c.curVal.Str
		c.advance()
		return c.singlevar(fs, name)
	case token.UPVALNAME:
		name := c.curVal.Str
		c.advance()
		return c.pushupvalue(fs, name, line)
	case Token('('):
		c.advance()
		e := c.expr(fs)
		fs.discharge(&e, c.line())
		c.checkMatch(Token(')'), Token('('), line)
		return e
	default:
		c.errorf(line, "unexpected symbol near %s", c.cur.Quoted())
		return voidExpr()
	}
}

// suffixedExpr parses a primary expression followed by zero or more of
// ".NAME", "[expr]", ":NAME args" or direct-call postfixes.
func (c *Compiler) suffixedExpr(fs *FuncState) Expr {
	e := c.primaryExpr(fs)
	for {
		line := c.line()
		switch c.cur {
		case Token('.'):
			c.advance()
			name := c.checkName()
			fs.discharge(&e, line)
			fs.code2(code.PUSHCONST, fs.kstr(name), line)
			e = Expr{Kind: EIndexed, True: NoJump, False: NoJump}
		case Token('['):
			c.advance()
			fs.discharge(&e, line)
			key := c.expr(fs)
			fs.discharge(&key, c.line())
			c.check(Token(']'))
			e = Expr{Kind: EIndexed, True: NoJump, False: NoJump}
		case Token(':'):
			c.advance()
			name := c.checkName()
			fs.discharge(&e, line)
			fs.code2(code.PUSHSELF, fs.kstr(name), line)
			e = c.callArgs(fs, true, c.line())
		case Token('('), token.STRING, Token('{'):
			fs.discharge(&e, line)
			e = c.callArgs(fs, false, line)
		default:
			return e
		}
	}
}

// callArgs parses a call's argument list and emits the CALL instruction.
// The function (and, for a method call, the implicit self argument) must
// already be on the stack. Every argument is discharged to exactly one
// value: multi-value propagation from a trailing open call is honored for
// explists used by local/assignment/return/table-constructor (spec §4.6,
// §4.7), not for nested call-argument lists, which this grammar always
// adjusts to a single value per argument.
func (c *Compiler) callArgs(fs *FuncState, isMethod bool, line int) Expr {
	nargs := 0
	switch c.cur {
	case Token('('):
		openLine := line
		c.advance()
		if c.cur != Token(')') {
			nargs = c.exprListFixed(fs)
		}
		c.checkMatch(Token(')'), Token('('), openLine)
	case token.STRING:
		s := c.curVal.Str
		c.advance()
		fs.code2(code.PUSHCONST, fs.kstr(s), line)
		nargs = 1
	case Token('{'):
		e := c.tableConstructor(fs)
		fs.discharge(&e, line)
		nargs = 1
	default:
		c.errorf(line, "function arguments expected")
	}

	extra := 0
	if isMethod {
		extra = 1
	}
	c.checklimit(fs, nargs+extra, maxCallArgs, "call arguments")
	totalPushed := nargs + extra + 1 // args, self if any, and the function itself
	pc := fs.emitVar(code.CALL, 1, -totalPushed+1, line)
	return Expr{Kind: ECall, Num: pc, True: NoJump, False: NoJump}
}

// exprListFixed parses a comma-separated expression list, discharging every
// element (including the last) to exactly one value, and returns its
// length.
func (c *Compiler) exprListFixed(fs *FuncState) int {
	n := 1
	e := c.expr(fs)
	fs.discharge(&e, c.line())
	for c.optional(Token(',')) {
		e = c.expr(fs)
		fs.discharge(&e, c.line())
		n++
	}
	return n
}

// exprListOpen is like exprListFixed but leaves the last element open (not
// discharged to a fixed count) if it is a call or vararg expression, so the
// caller can decide how many results it contributes. It returns the number
// of elements parsed (counting the open one as one slot) and, if the last
// element was left open, its expdesc.
func (c *Compiler) exprListOpen(fs *FuncState) (n int, open *Expr) {
	n = 1
	e := c.expr(fs)
	for c.optional(Token(',')) {
		fs.discharge(&e, c.line())
		e = c.expr(fs)
		n++
	}
	if e.Kind == ECall || e.Kind == EVararg {
		open = &e
		return n, open
	}
	fs.discharge(&e, c.line())
	return n, nil
}
