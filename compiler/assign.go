package compiler

import "github.com/mna/luapass/code"

// lhsTarget is one link of the right-recursive chain built while parsing a
// multi-target assignment's variable list, mirroring the classic
// recursive-descent algorithm's own traversal of the comma-separated LHS
// (spec §4.7 "Multiple assignment").
type lhsTarget struct {
	prev   *lhsTarget
	target Expr
}

// explistAdjust parses a full expression list and reconciles its value
// count against nvars targets (spec §4.7).
func (c *Compiler) explistAdjust(fs *FuncState, nvars int, line int) {
	n, open := c.exprListOpen(fs)
	fs.adjustAssign(nvars, n, open, line)
}

// exprStat parses a statement beginning with an expression: either a call
// used for its side effect, or the first target of an assignment (spec
// §4.7 "exprstat").
func (c *Compiler) exprStat(fs *FuncState, line int) {
	e := c.suffixedExpr(fs)
	if c.cur == Token('=') || c.cur == Token(',') {
		c.assignment(fs, &lhsTarget{target: e}, 1, line)
		return
	}
	if e.Kind != ECall || !fs.lastisopen(e.Num) {
		c.errorf(line, "syntax error")
	}
	fs.setcallreturns(e.Num, 0)
}

// assignment parses the remainder of a (possibly multi-target) assignment
// after its first LHS has already been parsed, recursing once per comma.
// The recursion bottoms out at the rightmost target, parses "=" and the
// RHS there, then stores unwind right-to-left as storeChain walks back up
// the chain -- the order that lets each INDEXED target's table/key, pushed
// while it was parsed, still sit directly under the value meant for it
// once everything to its right has already stored.
func (c *Compiler) assignment(fs *FuncState, lhs *lhsTarget, nvars int, line int) {
	switch lhs.target.Kind {
	case ELocal, EGlobal, EIndexed:
	default:
		c.errorf(line, "cannot assign to this expression")
	}
	c.checklimit(fs, nvars, maxAssignLHS, "variables in a multiple assignment")
	if c.optional(Token(',')) {
		next := c.suffixedExpr(fs)
		c.assignment(fs, &lhsTarget{prev: lhs, target: next}, nvars+1, line)
		return
	}
	c.check(Token('='))
	c.explistAdjust(fs, nvars, c.line())
	stale := c.storeChain(fs, lhs, nvars, c.line())
	if stale > 0 {
		fs.emitVar(code.POPN, stale, -stale, c.line())
	}
}

// storeChain stores the topmost RHS value into lhs's target, then walks
// back to the previous (leftward) target in the chain, whose value is now
// topmost. An INDEXED target's table/key pair was pushed before the whole
// RHS list, so its SETTABLE must reach under the values still waiting for
// the targets to its left, plus the pairs already gone stale to its right
// (spec §4.7 "emit a SETTABLE that reaches under the intervening values").
// It returns the total number of stale table/key slots for the caller to
// pop in one go.
func (c *Compiler) storeChain(fs *FuncState, lhs *lhsTarget, nvars int, line int) int {
	stale := 0
	valsBelow := nvars - 1
	for l := lhs; l != nil; l = l.prev {
		c.storevar(fs, l.target, valsBelow+stale, line)
		if l.target.Kind == EIndexed {
			stale += 2
		}
		valsBelow--
	}
	return stale
}
