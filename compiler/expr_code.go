package compiler

import (
	"math"

	"github.com/mna/luapass/code"
)

// isSmallInt reports whether f is an integer that fits the sign-extended
// 32-bit operand PUSHINT carries directly, sparing it a trip through the
// numeric constant pool.
func isSmallInt(f float64) (int32, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int32(f), true
}

// discharge materializes e onto the runtime stack as a concrete value and
// collapses it to kind EExp (spec §6 "tostack(expdesc, nresults)
// materializes any expdesc into stack values and finalizes short-circuit
// patch lists").
//
// Relational operators in this instruction set are value-producing (pop
// two, push a boolean), unlike the jump-based comparison/TESTSET dance a
// register VM needs — so the only expdesc that ever carries a live
// True/False list here is an "and"/"or" chain (see goiftrue/goiffalse).
// Closing that list to the current pc is not just a safety net: both the
// short-circuited path (which kept a value via TESTFALSE/TESTTRUE) and the
// fallthrough path (which just pushed the other operand's value) converge
// on the same stack slot at exactly this point, so "here" is where the
// final value actually lives.
func (fs *FuncState) discharge(e *Expr, line int) {
	switch e.Kind {
	case EVoid:
		// nothing to push; callers must not discharge a void expression
	case ENil:
		fs.code1(code.PUSHNIL, line)
	case ETrue:
		fs.code1(code.PUSHTRUE, line)
	case EFalse:
		fs.code1(code.PUSHFALSE, line)
	case ENumber:
		if i, ok := isSmallInt(e.Flt); ok {
			fs.code2(code.PUSHINT, int(i), line)
		} else {
			fs.code2(code.PUSHNUM, fs.knum(e.Flt), line)
		}
	case EString:
		fs.code2(code.PUSHCONST, fs.kstr(e.Str), line)
	case ELocal:
		fs.code2(code.PUSHLOCAL, e.Num, line)
	case EUpval:
		fs.code2(code.PUSHUPVALUE, e.Num, line)
	case EGlobal:
		fs.code2(code.PUSHGLOBAL, fs.kstr(e.Str), line)
	case EIndexed:
		fs.code1(code.GETTABLE, line)
	case ECall, EVararg, EExp:
		// already materialized: an open call/vararg currently sits on the
		// stack as its (still adjustable) single assumed result, and EExp is
		// by definition already pushed.
	}
	if e.hasJumps() {
		fs.patchToHere(fs.concat(e.True, e.False))
		// the next instruction slot is now a jump target: a peephole barrier
		// for fusions that would otherwise swallow it (see emitConcat).
		fs.lastTarget = fs.proto.PC()
		e.True, e.False = NoJump, NoJump
	}
	e.Kind = EExp
}

// goiftrue prepares to continue evaluating only if e is true, recording the
// short-circuit exit into e.False (spec §6 "goiftrue"). Used for the left
// operand of "and". A constant operand still goes through the ordinary
// discharge-then-test sequence: the short-circuit path carries its value to
// the converge point, so the value must be on the stack either way.
func (fs *FuncState) goiftrue(e *Expr, line int) {
	fs.discharge(e, line)
	pc := fs.codeJump(code.TESTFALSE, line)
	e.False = fs.concat(e.False, pc)
}

// goiffalse is goiftrue's mirror image, used for the left operand of "or".
func (fs *FuncState) goiffalse(e *Expr, line int) {
	fs.discharge(e, line)
	pc := fs.codeJump(code.TESTTRUE, line)
	e.True = fs.concat(e.True, pc)
}

// condjump discharges e (closing any and/or chain it carries) and emits the
// statement-level branch-if-false used by if/while/repeat conditions,
// returning its pc for the caller's patch list.
func (c *Compiler) condjump(fs *FuncState, e Expr, line int) int {
	fs.discharge(&e, line)
	return fs.codeJump(code.JMPIFFALSE, line)
}

// storevar emits the instruction that assigns the value currently on top of
// the stack into the variable described by target (spec §4.7 "assignment").
// skip is the number of stack slots between the value being stored and an
// INDEXED target's own table/key pair: the RHS values still pending for the
// targets to its left, plus two slots per stale pair left by
// already-stored INDEXED targets to its right in the same multiple
// assignment (see storeChain). SETTABLE reaches under them to find its own
// table and key, never popping them itself, so a multi-target assignment
// pops the stale pairs in one POPN once every target has stored (spec §4.7
// "For INDEXED LHS, emit a SETTABLE that reaches under the intervening
// values").
func (c *Compiler) storevar(fs *FuncState, target Expr, skip int, line int) {
	switch target.Kind {
	case ELocal:
		fs.code2(code.STORELOCAL, target.Num, line)
	case EGlobal:
		fs.code2(code.STOREGLOBAL, fs.kstr(target.Str), line)
	case EIndexed:
		fs.emitVar(code.SETTABLE, skip, -1, line)
	case EUpval:
		c.errorf(line, "cannot assign to an upvalue")
	default:
		c.errorf(line, "cannot assign to this expression")
	}
}
