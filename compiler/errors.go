package compiler

import "fmt"

// Error is a fatal compilation error (spec §7): lexical, syntactic,
// semantic or resource-limit. Compilation stops at the first one; there is
// no partial-recovery or multi-error reporting for syntactic/semantic
// errors (only the lexer, which runs in parallel as an independent token
// source, accumulates a list of its own).
type Error struct {
	Source string
	Line   int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

// abort is the payload panicked by errorf and recovered once at the top of
// Parse, Go's idiomatic stand-in for the longjmp-based error propagation
// this algorithm traditionally uses.
type abort struct{ err *Error }

func (c *Compiler) errorf(line int, format string, args ...any) {
	panic(abort{&Error{Source: c.source, Line: line, Msg: fmt.Sprintf(format, args...)}})
}

// checklimit aborts with a resource error if n exceeds limit. what names
// the resource in the message ("local variables", "upvalues", ...), as
// required by every one of the limit checks spec §3/§7 names: locals,
// parameters, upvalues, constants, multiple-assignment LHS count,
// constructor element count.
func (c *Compiler) checklimit(fs *FuncState, n, limit int, what string) {
	if n > limit {
		c.errorf(fs.line, "too many %s (limit is %d)", what, limit)
	}
}

// enterRecursion guards against stack exhaustion from pathologically
// nested expressions or blocks (spec §5 "the implementation may impose a
// configurable maximum to prevent stack exhaustion"); leaveRecursion must
// be deferred by every caller.
func (c *Compiler) enterRecursion(line int) {
	c.depth++
	if c.depth > maxRecursion {
		c.errorf(line, "chunk has too many syntax levels")
	}
}

func (c *Compiler) leaveRecursion() { c.depth-- }

const (
	maxLocals    = 200
	maxParams    = 200
	maxUpvalues  = 60
	maxConstIdx  = 1 << 24
	maxCallArgs  = 200
	maxAssignLHS = 200
	maxCtorElems = 1 << 24
	maxRecursion = 200
)
