package compiler

import (
	"github.com/dolthub/swiss"
	"github.com/mna/luapass/code"
	"github.com/mna/luapass/lexer"
	"github.com/mna/luapass/token"
)

// localVar is one entry of FuncState.activeLocals: the name currently bound
// to a stack slot, and the index of its debug record in proto.LocVars
// (spec §3 "actloc[] -- stack of indices into proto.locvars").
type localVar struct {
	name      string
	locVarIdx int
}

// blockCtx is one entry of FuncState.blocks: a lexical scope, additionally
// carrying break-label state when it wraps a loop body (spec §3
// "Break-label frame", §4.4).
type blockCtx struct {
	firstLocal int // len(activeLocals) at block entry
	isLoop     bool
	breakList  int // patch list of pending breaks, meaningful only if isLoop
	stackLevel int // stacklevel at loop entry, restored by every break
}

// FuncState is FS: per-function compilation context (spec §3 "FuncState").
type FuncState struct {
	c      *Compiler
	proto  *code.Proto
	parent *FuncState

	lastTarget int // pc of last jump target emitted, a peephole barrier

	stackLevel int
	maxStack   int

	activeLocals []localVar
	blocks       []*blockCtx
	upvalues     []code.Upvalue

	// strConsts/numConsts memoize string_constant/number (spec §4.2): the
	// pack's generic open-addressing map stands in for the "integer hint
	// on the interned string" trick the original algorithm used, which has
	// no Go equivalent (Go strings don't carry extra fields).
	strConsts *swiss.Map[string, int]
	numConsts *swiss.Map[float64, int]

	line int // line of the token that opened this function, for diagnostics
}

// Compiler drives one parse: the token cursor plus the FS chain (spec §9
// "Global parser state. There is none beyond the FS chain and token
// cursor, both owned by the top-level call").
type Compiler struct {
	source string
	lx     *lexer.Lexer

	cur     Token
	curVal  token.Value
	hasLook bool
	lookTok Token
	lookVal token.Value

	depth int

	lexErrors []*Error
}

func openFunc(c *Compiler, parent *FuncState, source string, lineDefined int) *FuncState {
	return &FuncState{
		c:         c,
		parent:    parent,
		strConsts: swiss.NewMap[string, int](8),
		numConsts: swiss.NewMap[float64, int](8),
		line:      lineDefined,
		proto: &code.Proto{
			Source:      source,
			LineDefined: lineDefined,
		},
	}
}

// closeFunc finalizes fs's prototype: emits the implicit final return,
// verifies no block is left open, closes the locals still active at the
// function's top level (stamping their endpc), and seals the code/line buffers
// (spec §4.8 step 5, §3 "On function close").
func (c *Compiler) closeFunc(fs *FuncState) *code.Proto {
	fs.emitReturn(c.line())
	if len(fs.blocks) != 0 {
		c.errorf(c.line(), "internal error: function closed with blocks still open")
	}
	// the function body's own chunk is never wrapped in its own blockCtx, so
	// its locals (parameters plus any top-level "local" declarations) are
	// still active here; close them the same way leaveBlock would.
	pc := fs.proto.PC()
	for _, lv := range fs.activeLocals {
		fs.proto.LocVars[lv.locVarIdx].EndPC = pc
		fs.proto.LocVars[lv.locVarIdx].EndPCSet = true
	}
	fs.activeLocals = nil

	fs.proto.Finish(pc)
	fs.proto.MaxStack = fs.maxStack
	fs.proto.Upvalues = fs.upvalues
	return fs.proto
}
