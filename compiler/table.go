package compiler

import (
	"github.com/mna/luapass/code"
	"github.com/mna/luapass/token"
)

// Batch sizes for the two SETLIST/SETMAP flush families (spec §4.6 "every
// N elements" -- N chosen to match the classic Lua compiler's own constant
// for the equivalent flush).
const (
	listFieldsPerFlush   = 50
	recordFieldsPerFlush = 50
)

// tableConstructor parses a table literal (spec §4.6): an optional list
// part and an optional record part, separated by at most one ";", each
// internally homogeneous. The two parts, when both present, are never
// interleaved -- whichever comes first is fully consumed before the other
// is attempted.
func (c *Compiler) tableConstructor(fs *FuncState) Expr {
	line := c.line()
	c.check(Token('{'))
	pc := fs.code2(code.NEWTABLE, 0, line)

	nelems := 0
	if c.cur != Token('}') {
		if c.isRecordFieldStart() {
			nelems = c.recordFields(fs)
			if c.optional(Token(';')) && c.cur != Token('}') {
				nelems += c.listFields(fs)
			}
		} else {
			nelems = c.listFields(fs)
			if c.optional(Token(';')) && c.cur != Token('}') {
				nelems += c.recordFields(fs)
			}
		}
	}
	c.checklimit(fs, nelems, maxCtorElems, "constructor elements")
	c.checkMatch(Token('}'), Token('{'), line)
	fs.proto.SetArg(pc, nelems)
	return Expr{Kind: EExp, True: NoJump, False: NoJump}
}

// isRecordFieldStart reports whether the constructor's first part is a
// record part: either "[expr] = expr" or, resolved with the one-token
// lookahead, a bare "NAME =" (spec §4.6 "resolved by the single-token
// lookahead").
func (c *Compiler) isRecordFieldStart() bool {
	if c.cur == Token('[') {
		return true
	}
	if c.cur == token.NAME {
		return c.peek() == Token('=')
	}
	return false
}

// listFields parses a comma-separated run of list-element expressions,
// flushing every listFieldsPerFlush items with a SETLIST (spec §4.6). A
// trailing open call/vararg expression is left unfixed so it can supply
// more than one value to the final flush.
func (c *Compiler) listFields(fs *FuncState) int {
	n := 0
	pending := 0
	for c.cur != Token(';') && c.cur != Token('}') {
		e := c.expr(fs)
		n++
		more := c.optional(Token(','))
		isLast := !more || c.cur == Token(';') || c.cur == Token('}')
		if isLast && (e.Kind == ECall || e.Kind == EVararg) {
			// the final flush consumes the pending fixed elements plus every
			// value the open call/vararg produces; symbolically that is the
			// pending items and the call's one assumed result.
			fs.setcallreturns(e.Num, MultRet)
			fs.emitVar(code.SETLIST, MultRet, -(pending + 1), c.line())
			pending = 0
		} else {
			fs.discharge(&e, c.line())
			pending++
			if pending == listFieldsPerFlush {
				fs.emitVar(code.SETLIST, pending, -pending, c.line())
				pending = 0
			}
		}
		if !more {
			break
		}
	}
	if pending > 0 {
		fs.emitVar(code.SETLIST, pending, -pending, c.line())
	}
	return n
}

// recordFields parses a comma-separated run of "NAME = expr" or "[expr] =
// expr" pairs, flushing every recordFieldsPerFlush pairs with a SETMAP
// (spec §4.6).
func (c *Compiler) recordFields(fs *FuncState) int {
	n := 0
	pending := 0
	for c.cur != Token(';') && c.cur != Token('}') {
		c.recordField(fs)
		n++
		pending++
		if pending == recordFieldsPerFlush {
			fs.emitVar(code.SETMAP, pending, -2*pending, c.line())
			pending = 0
		}
		if !c.optional(Token(',')) {
			break
		}
	}
	if pending > 0 {
		fs.emitVar(code.SETMAP, pending, -2*pending, c.line())
	}
	return n
}

// recordField parses a single "NAME = expr" or "[expr] = expr" pair,
// leaving key then value on the stack for the enclosing SETMAP flush.
func (c *Compiler) recordField(fs *FuncState) {
	line := c.line()
	if c.cur == Token('[') {
		c.advance()
		key := c.expr(fs)
		fs.discharge(&key, c.line())
		c.check(Token(']'))
	} else {
		name := c.checkName()
		fs.code2(code.PUSHCONST, fs.kstr(name), line)
	}
	c.check(Token('='))
	val := c.expr(fs)
	fs.discharge(&val, c.line())
}
