package compiler

import "github.com/mna/luapass/code"

// searchLocal scans fs's active locals innermost-first, so a shadowing
// inner declaration always wins (spec §8 "Innermost-wins shadowing").
func (fs *FuncState) searchLocal(name string) (slot int, ok bool) {
	for i := len(fs.activeLocals) - 1; i >= 0; i-- {
		if fs.activeLocals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// singlevar resolves a plain NAME reference to a local or a global (spec
// §4.3 "singlevar"). A plain name can never resolve to an outer function's
// local: that would be silent, implicit upvalue capture, which this
// language requires spelling out with the explicit "%name" form instead
// (spec §4.3 "Upvalues"). Finding the name as a local in some enclosing
// function is therefore always an error here, not just at level ≥ 2; see
// DESIGN.md for why this reading of spec §4.3's level boundary was chosen.
func (c *Compiler) singlevar(fs *FuncState, name string) Expr {
	if slot, ok := fs.searchLocal(name); ok {
		return Expr{Kind: ELocal, Num: slot, True: NoJump, False: NoJump}
	}
	for p := fs.parent; p != nil; p = p.parent {
		if _, ok := p.searchLocal(name); ok {
			c.errorf(c.line(), "cannot access a variable in outer function")
		}
	}
	return Expr{Kind: EGlobal, Str: name, True: NoJump, False: NoJump}
}

// pushupvalue resolves an explicit "%name" reference (spec §4.3
// "Upvalues"): name must be a local or, failing that, a global of the
// immediately enclosing function. A name that is a local of some more
// distant enclosing function is neither, and capturing it would smuggle a
// value across an intermediate frame.
func (c *Compiler) pushupvalue(fs *FuncState, name string, line int) Expr {
	if fs.parent == nil {
		c.errorf(line, "cannot access an upvalue at top level")
	}
	var idx int
	if slot, ok := fs.parent.searchLocal(name); ok {
		idx = fs.indexupvalue(name, code.UpvalLocal, slot)
	} else {
		for p := fs.parent.parent; p != nil; p = p.parent {
			if _, ok := p.searchLocal(name); ok {
				c.errorf(line, "upvalue must be global or local to immediately outer function")
			}
		}
		idx = fs.indexupvalue(name, code.UpvalGlobal, -1)
	}
	return Expr{Kind: EUpval, Num: idx, True: NoJump, False: NoJump}
}

// indexupvalue deduplicates captures: a request for the same (kind, name)
// reuses the existing descriptor (spec §3 "On indexupvalue, an existing
// entry with identical (kind,index) is reused").
func (fs *FuncState) indexupvalue(name string, kind code.UpvalKind, index int) int {
	for i, uv := range fs.upvalues {
		if uv.Kind == kind && uv.Name == name {
			return i
		}
	}
	fs.c.checklimit(fs, len(fs.upvalues)+1, maxUpvalues, "upvalues")
	fs.upvalues = append(fs.upvalues, code.Upvalue{Kind: kind, Name: name, Index: index})
	return len(fs.upvalues) - 1
}
