package compiler

import "github.com/mna/luapass/code"

// NoJump re-exports the patch-list terminator so callers in this package
// never need to import code just for the sentinel.
const NoJump = code.NoJump

// MultRet re-exports the "keep every result" sentinel (spec §4.6/§4.7:
// return and the final list-constructor element propagate a trailing open
// call/vararg's full result count this way; an assignment fixes it to a
// concrete count instead).
const MultRet = code.MultRet

// ExprKind tags an expression descriptor (spec §3 "Expression descriptor").
type ExprKind int

const (
	// EVoid marks an expdesc that has not been assigned a meaning yet.
	EVoid ExprKind = iota
	ENil
	ETrue
	EFalse
	// ENumber is an as-yet-uncoded numeric literal; Flt holds its value.
	ENumber
	// EString is an as-yet-uncoded string literal; Str holds its value.
	EString
	// ELocal is a reference to a local at slot Slot in the current FS.
	ELocal
	// EUpval is a reference to upvalue Slot in the current FS.
	EUpval
	// EGlobal is a reference to a global named by string constant Str.
	EGlobal
	// EIndexed is a table/key pair already sitting on the virtual stack
	// (table under key), not yet discharged into a GETTABLE/SETTABLE.
	EIndexed
	// ECall is an open call: the instruction at pc Num is a CALL whose result
	// count has not yet been fixed by the caller's context.
	ECall
	// EVararg is a still-open "..." reference: the instruction at pc Num pushes
	// every vararg value, not yet trimmed to a fixed count.
	EVararg
	// EExp is a fully computed expression (or relational/logical test)
	// already materialized onto the stack, possibly still carrying open
	// short-circuit patch lists in True/False.
	EExp
)

// Expr is expdesc: a tagged variant carrying the result of expression
// parsing (spec §3, §9 "Tagged variants vs. inheritance" — implemented as a
// tagged union, not a class hierarchy).
type Expr struct {
	Kind ExprKind

	Num int // Slot for ELocal/EUpval, pc for ECall/EVararg
	Str string // constant string for EGlobal; decoded value for a pending string literal
	Flt float64 // literal value for ENumber

	// True and False are patch-list heads: jumps still waiting to learn
	// whether this expression evaluated truthy or falsy should land here.
	True, False int
}

func voidExpr() Expr    { return Expr{Kind: EVoid, True: NoJump, False: NoJump} }
func nilExpr() Expr     { return Expr{Kind: ENil, True: NoJump, False: NoJump} }
func trueExpr() Expr    { return Expr{Kind: ETrue, True: NoJump, False: NoJump} }
func falseExpr() Expr   { return Expr{Kind: EFalse, True: NoJump, False: NoJump} }
func numExpr(f float64) Expr { return Expr{Kind: ENumber, Flt: f, True: NoJump, False: NoJump} }

// hasJumps reports whether e still carries an unresolved short-circuit
// patch list, i.e. discharging it needs more than a single instruction.
func (e Expr) hasJumps() bool { return e.True != NoJump || e.False != NoJump }
