package compiler

import "github.com/mna/luapass/code"

// registerLocal adds a new, as-yet-inactive local variable record to the
// prototype and returns its index. Registering before activating is what
// lets a local's own initializer fail to see it (spec §3 "Locals are
// registered... before their initializing expression is evaluated, but
// made active... only after").
func (fs *FuncState) registerLocal(name string) int {
	idx := len(fs.proto.LocVars)
	fs.proto.LocVars = append(fs.proto.LocVars, code.LocVar{Name: name})
	return idx
}

// activateLocal makes a previously registered local visible to name
// resolution, stamping its startpc.
func (fs *FuncState) activateLocal(locVarIdx int) {
	fs.c.checklimit(fs, len(fs.activeLocals)+1, maxLocals, "local variables")
	fs.proto.LocVars[locVarIdx].StartPC = fs.proto.PC()
	fs.activeLocals = append(fs.activeLocals, localVar{
		name:      fs.proto.LocVars[locVarIdx].Name,
		locVarIdx: locVarIdx,
	})
}

// newLocal registers and immediately activates name, for the common case
// (parameters, the hidden control variables of a for loop) where there is
// no initializer expression to hide the name from.
func (fs *FuncState) newLocal(name string) int {
	idx := fs.registerLocal(name)
	fs.activateLocal(idx)
	return idx
}

// enterBlock opens a new lexical scope; isLoop additionally makes it a
// break-label frame (spec §3 "Break-label frame", §4.4).
func (fs *FuncState) enterBlock(isLoop bool) *blockCtx {
	b := &blockCtx{
		firstLocal: len(fs.activeLocals),
		isLoop:     isLoop,
		breakList:  NoJump,
		stackLevel: fs.stackLevel,
	}
	fs.blocks = append(fs.blocks, b)
	return b
}

// leaveBlock closes the innermost scope: every local introduced inside it
// has its endpc stamped and is popped off the virtual (and, via POPN, the
// runtime) stack (spec §4.4 "block exit"). For a loop block, it also
// patches the break list to the label right after that POPN -- the same
// point a break already rewound its own stack to before jumping (spec §4.4
// "leavebreak: pop frame; patch breaklist to current label; assert
// stacklevel == frame.stacklevel") -- and returns that label's pc.
func (fs *FuncState) leaveBlock(line int) int {
	b := fs.blocks[len(fs.blocks)-1]
	fs.blocks = fs.blocks[:len(fs.blocks)-1]

	pc := fs.proto.PC()
	removed := len(fs.activeLocals) - b.firstLocal
	for _, lv := range fs.activeLocals[b.firstLocal:] {
		fs.proto.LocVars[lv.locVarIdx].EndPC = pc
		fs.proto.LocVars[lv.locVarIdx].EndPCSet = true
	}
	fs.activeLocals = fs.activeLocals[:b.firstLocal]
	if removed > 0 {
		fs.emitVar(code.POPN, removed, -removed, line)
	}

	label := fs.proto.PC()
	if b.isLoop {
		fs.patchToHere(b.breakList)
		if fs.stackLevel != b.stackLevel {
			fs.c.errorf(line, "internal error: stack imbalance leaving loop")
		}
	}
	return label
}

// doBreak appends a break's jump to the nearest enclosing loop's break
// list, restoring the stack to that loop's entry level first (spec §4.4
// "break").
func (c *Compiler) doBreak(fs *FuncState, line int) {
	loop := fs.innermostLoop()
	if loop == nil {
		c.errorf(line, "no loop to break")
	}
	diff := fs.stackLevel - loop.stackLevel
	if diff > 0 {
		fs.emitVar(code.POPN, diff, -diff, line)
	}
	pc := fs.jump(line)
	loop.breakList = fs.concat(loop.breakList, pc)
	// the compiler continues past the break as though it had not occurred,
	// so code after it (though unreachable) is still tracked at the depth
	// it would have had without the break.
	fs.deltastack(diff)
}

func (fs *FuncState) innermostLoop() *blockCtx {
	for i := len(fs.blocks) - 1; i >= 0; i-- {
		if fs.blocks[i].isLoop {
			return fs.blocks[i]
		}
	}
	return nil
}
