package code

// NoJump is the patch-list terminator (spec §3/§9 "Patch lists"): a jump
// instruction whose operand still holds NoJump has not yet been resolved to
// a real target.
const NoJump = -1

// MultRet is the CALL/SETLIST operand sentinel meaning "keep every value
// produced" rather than a fixed count, used when a trailing open call or
// vararg expression feeds a return or a constructor list part.
const MultRet = -1

// Emit1 appends a no-operand instruction and returns its pc.
func (p *Proto) Emit1(op Opcode, line int) int {
	return p.addInstr(op, 0, line)
}

// Emit2 appends an instruction carrying an operand and returns its pc.
func (p *Proto) Emit2(op Opcode, arg uint32, line int) int {
	return p.addInstr(op, arg, line)
}

// EmitJump appends a jump-family instruction with its operand initialized to
// NoJump (so it can be threaded into a patch list) and returns its pc.
func (p *Proto) EmitJump(op Opcode, line int) int {
	noJump := int32(NoJump)
	return p.addInstr(op, uint32(noJump), line)
}

// PC returns the address the next instruction will be emitted at.
func (p *Proto) PC() int { return len(p.Code) }

// Arg returns the current operand of the instruction at pc. Used both to
// read a resolved jump target and to follow a pending patch-list link.
func (p *Proto) Arg(pc int) int { return int(int32(p.Code[pc].Arg)) }

// SetArg overwrites the operand of the instruction at pc, used when patching
// a jump to its final target.
func (p *Proto) SetArg(pc, arg int) { p.Code[pc].Arg = uint32(int32(arg)) }

// Concat threads patch list l2 onto the end of patch list l1 and returns the
// resulting list's head. Each list is an intrusive singly-linked chain
// threaded through the operand field of its jump instructions (spec §9
// "Patch lists"): walking it costs one instruction touch per link, exactly
// as in the algorithm this is modeled on.
func (p *Proto) Concat(l1, l2 int) int {
	if l2 == NoJump {
		return l1
	}
	if l1 == NoJump {
		return l2
	}
	pc := l1
	for {
		next := p.Arg(pc)
		if next == NoJump {
			break
		}
		pc = next
	}
	p.SetArg(pc, l2)
	return l1
}

// PatchList resolves every jump threaded through list to target, destroying
// the list (its links are overwritten with the real target).
func (p *Proto) PatchList(list, target int) {
	for list != NoJump {
		next := p.Arg(list)
		p.SetArg(list, target)
		list = next
	}
}

// PatchToHere is PatchList to the current end of the instruction stream,
// the common case (spec §4.4 "leavebreak: patch its breaklist to the
// current label").
func (p *Proto) PatchToHere(list int) {
	p.PatchList(list, p.PC())
}

// AddString interns s in the prototype's string pool and returns its index.
// Callers are expected to memoize the (string -> index) mapping themselves
// (spec §4.2): this method always appends, even for a repeated string.
func (p *Proto) AddString(s string) int {
	p.Strings = append(p.Strings, s)
	return len(p.Strings) - 1
}

// AddNumber interns n in the prototype's numeric constant pool.
func (p *Proto) AddNumber(n float64) int {
	p.Numbers = append(p.Numbers, n)
	return len(p.Numbers) - 1
}

// AddProto registers a nested prototype and returns its index.
func (p *Proto) AddProto(child *Proto) int {
	p.Protos = append(p.Protos, child)
	return len(p.Protos) - 1
}

// Finish truncates the code buffer to pc and appends the sentinel line
// entry, readying the prototype for use by its caller (spec §3 "On function
// close: ... code buffer truncated to pc; line-info terminated with
// sentinel").
func (p *Proto) Finish(pc int) { p.finish(pc) }
