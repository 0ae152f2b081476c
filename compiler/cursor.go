package compiler

import "github.com/mna/luapass/token"

// Token is the token kind alias used throughout this package.
type Token = token.Token

// advance adopts a buffered lookahead if one is pending, otherwise pulls
// the next token straight from the lexer (spec §4.1 "advance()").
func (c *Compiler) advance() {
	if c.hasLook {
		c.cur, c.curVal = c.lookTok, c.lookVal
		c.hasLook = false
		return
	}
	c.cur, c.curVal = c.lx.Scan()
}

// peek populates the one-token lookahead slot. Calling peek when the slot
// is already full is a precondition violation of this cursor (spec §9
// "One-token lookahead": "enforce the precondition that peek is only
// called when the buffer is empty"), so it panics rather than silently
// discarding the buffered token.
func (c *Compiler) peek() Token {
	if c.hasLook {
		panic("compiler: peek called with a lookahead already buffered")
	}
	c.lookTok, c.lookVal = c.lx.Scan()
	c.hasLook = true
	return c.lookTok
}

// line reports the source line of the current token.
func (c *Compiler) line() int { return c.curVal.Line }

// check fails with "'X' expected" if the current token isn't k, otherwise
// advances past it.
func (c *Compiler) check(k Token) {
	if c.cur != k {
		c.errorf(c.line(), "%s expected, got %s", k.Quoted(), c.cur.Quoted())
	}
	c.advance()
}

// checkName checks the current token is a NAME and returns its text,
// advancing past it.
func (c *Compiler) checkName() string {
	if c.cur != token.NAME {
		c.errorf(c.line(), "<name> expected, got %s", c.cur.Quoted())
	}
	name := c.curVal.Str
	c.advance()
	return name
}

// optional advances and returns true if the current token is k, otherwise
// leaves the cursor untouched and returns false.
func (c *Compiler) optional(k Token) bool {
	if c.cur == k {
		c.advance()
		return true
	}
	return false
}

// isIdent reports whether the current token is a plain NAME spelled exactly
// s, without consuming it. Used for "in" (spec §4.7 "generic for": "'in' is
// recognized by string-equality against the interned identifier (not a
// reserved word)"), the one grammar keyword this lexer does not reserve.
func (c *Compiler) isIdent(s string) bool {
	return c.cur == token.NAME && c.curVal.Str == s
}

// checkIdent is checkName's counterpart for a non-reserved keyword matched
// by spelling: it fails with "'s' expected" unless the current token is a
// NAME spelled exactly s, then advances past it.
func (c *Compiler) checkIdent(s string) {
	if !c.isIdent(s) {
		c.errorf(c.line(), "'%s' expected, got %s", s, c.cur.Quoted())
	}
	c.advance()
}

// checkMatch expects close, reporting a mismatch in terms of the opener
// token and the line it appeared on when that helps the reader (spec
// §4.1 "check_match").
func (c *Compiler) checkMatch(close, open Token, openLine int) {
	if c.cur != close {
		if openLine == c.line() {
			c.errorf(c.line(), "%s expected, got %s", close.Quoted(), c.cur.Quoted())
		} else {
			c.errorf(c.line(), "%s expected (to close %s at line %d), got %s",
				close.Quoted(), open.Quoted(), openLine, c.cur.Quoted())
		}
	}
	c.advance()
}
