package compiler

import "github.com/mna/luapass/code"

// deltastack adjusts the symbolic stack depth by n and tracks the
// watermark used for the prototype's maxstacksize (spec §3 "stacklevel",
// "maxstack").
func (fs *FuncState) deltastack(n int) {
	fs.stackLevel += n
	if fs.stackLevel > fs.maxStack {
		fs.maxStack = fs.stackLevel
	}
	if fs.stackLevel < len(fs.activeLocals) {
		fs.c.errorf(fs.c.line(), "internal error: stack underflow below active locals")
	}
}

// adjuststack reconciles the stack to end up diff values taller (diff < 0
// pops, diff > 0 pushes nils), the non-call branch of "adjust list lengths"
// (spec §4.7 "Multiple assignment").
func (fs *FuncState) adjuststack(diff int, line int) {
	switch {
	case diff > 0:
		for i := 0; i < diff; i++ {
			fs.code1(code.PUSHNIL, line)
		}
	case diff < 0:
		fs.emitVar(code.POPN, -diff, -diff, line)
	}
}

// adjustAssign reconciles an explist's actual value count against nvars
// targets (spec §4.7 "Multiple assignment" / "adjust_mult_assign"). nexps
// counts a trailing open call/vararg (open != nil) as a single slot; its
// requested result count is fixed first, then any remaining shortfall or
// surplus is padded with nils or popped.
func (fs *FuncState) adjustAssign(nvars, nexps int, open *Expr, line int) {
	if open != nil {
		want := nvars - nexps + 1
		if want < 0 {
			want = 0
		}
		fs.setcallreturns(open.Num, want)
		nexps = nexps - 1 + want
	}
	fs.adjuststack(nvars-nexps, line)
}

// code1 emits a no-operand instruction and applies its fixed stack effect.
func (fs *FuncState) code1(op code.Opcode, line int) int {
	pc := fs.proto.Emit1(op, line)
	fs.deltastack(code.StackEffect(op))
	fs.lastTarget = -1
	return pc
}

// code2 emits an instruction carrying an operand and applies its fixed
// stack effect. Must not be called for SETLIST/SETMAP/CONCAT/CALL/RETURN/
// POPN, whose effect depends on the operand: use emitVar for those.
func (fs *FuncState) code2(op code.Opcode, arg int, line int) int {
	pc := fs.proto.Emit2(op, uint32(arg), line)
	fs.deltastack(code.StackEffect(op))
	fs.lastTarget = -1
	return pc
}

// emitVar emits a variable-stack-effect instruction, with the caller
// supplying both the operand and the already-computed stack delta.
func (fs *FuncState) emitVar(op code.Opcode, arg int, delta int, line int) int {
	pc := fs.proto.Emit2(op, uint32(arg), line)
	fs.deltastack(delta)
	return pc
}

// jump emits an unconditional jump, returning its pc for later threading
// into a patch list (spec §6 "jump").
func (fs *FuncState) jump(line int) int {
	return fs.codeJump(code.JMP, line)
}

// codeJump emits any jump-family instruction with its operand initialized
// to NoJump, so the pc it returns is always safe to thread into or use as
// the head of a patch list, and applies the opcode's fixed stack effect.
func (fs *FuncState) codeJump(op code.Opcode, line int) int {
	pc := fs.proto.EmitJump(op, line)
	fs.deltastack(code.StackEffect(op))
	fs.lastTarget = -1
	return pc
}

// getlabel returns the address of the next instruction to be emitted, for
// use as a jump target, and records it as the last jump target for
// peephole purposes (spec §6 "getlabel").
func (fs *FuncState) getlabel() int {
	fs.lastTarget = fs.proto.PC()
	return fs.lastTarget
}

// patchlist resolves every jump in list to target (spec §6 "patchlist").
func (fs *FuncState) patchlist(list, target int) { fs.proto.PatchList(list, target) }

// patchToHere resolves every jump in list to the current pc.
func (fs *FuncState) patchToHere(list int) { fs.proto.PatchToHere(list) }

// concat threads l2 onto l1 (spec §6 "concat").
func (fs *FuncState) concat(l1, l2 int) int { return fs.proto.Concat(l1, l2) }

// kstr interns a string literal in the current prototype (spec §4.2
// "string_constant"), returning its pool index.
func (fs *FuncState) kstr(s string) int {
	if idx, ok := fs.strConsts.Get(s); ok {
		return idx
	}
	idx := fs.proto.AddString(s)
	fs.c.checklimit(fs, idx+1, maxConstIdx, "constants")
	fs.strConsts.Put(s, idx)
	return idx
}

// knum interns a numeric literal (spec §4.2, generalized to numbers).
func (fs *FuncState) knum(n float64) int {
	if idx, ok := fs.numConsts.Get(n); ok {
		return idx
	}
	idx := fs.proto.AddNumber(n)
	fs.c.checklimit(fs, idx+1, maxConstIdx, "constants")
	fs.numConsts.Put(n, idx)
	return idx
}

// emitReturn emits the RETURN instruction with the operand the VM needs to
// tell active locals from returned values (spec §4.7 "return"): everything
// above the active locals is consumed as results, so the symbolic stack
// drops back to nactloc here.
func (fs *FuncState) emitReturn(line int) int {
	nact := len(fs.activeLocals)
	return fs.emitVar(code.RETURN, nact, nact-fs.stackLevel, line)
}

// setcallreturns fixes an open call's (or vararg expression's) requested
// result count once its context is known (spec §6 "setcallreturns"),
// adjusting the stack watermark for the difference from the 1 result every
// open call/vararg is optimistically assumed to produce until fixed.
// nresults is either a concrete count (0 meaning every result is discarded)
// or code.MultRet, meaning "keep every result produced" -- a genuinely
// unbounded count the compiler cannot size beyond the watermark the one
// assumed result already reached.
func (fs *FuncState) setcallreturns(pc, nresults int) {
	fs.proto.SetArg(pc, nresults)
	if nresults == code.MultRet {
		return
	}
	fs.deltastack(nresults - 1)
}

// lastisopen reports whether the instruction at pc is a CALL, whose result
// count can still be fixed up (spec §4.7 "exprstat"). A vararg push is not
// reported as open here.
func (fs *FuncState) lastisopen(pc int) bool {
	if pc < 0 || pc >= len(fs.proto.Code) {
		return false
	}
	op := fs.proto.Code[pc].Op
	return op == code.CALL
}

// fixfor back-patches a numeric-for FORPREP/FORLOOP pair so that FORPREP
// jumps straight past an empty range (spec §4.7 "numeric for").
func (fs *FuncState) fixfor(prepPC, loopPC int) {
	fs.proto.SetArg(prepPC, loopPC)  // jump straight to the loop test
	fs.proto.SetArg(loopPC, prepPC+1) // jump back into the body
}
