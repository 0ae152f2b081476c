package code

import (
	"fmt"
	"strings"
)

// Dasm renders p as human-readable text: one line per instruction, its
// source line, mnemonic and operand (jump operands rendered as the target
// pc, constant-pool operands annotated with the constant's value), followed
// by one recursive block per nested prototype. This is a pure read-only
// projection kept for review and testing (spec leaves no persisted bytecode
// format, so nothing parses this back in).
func Dasm(p *Proto) string {
	var sb strings.Builder
	dasm(&sb, p, 0)
	return sb.String()
}

func dasm(sb *strings.Builder, p *Proto, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%sfunction <%s:%d> (%d params, %d slots, vararg=%v)\n",
		indent, p.Source, p.LineDefined, p.NumParams, p.MaxStack, p.IsVararg)

	for pc, instr := range p.Code {
		line := int32(0)
		if pc < len(p.Lines) {
			line = p.Lines[pc]
		}
		fmt.Fprintf(sb, "%s  %4d [%4d]  %-12s", indent, pc, line, instr.Op)
		if instr.Op.HasArg() {
			fmt.Fprintf(sb, " %s", dasmOperand(p, instr))
		}
		sb.WriteByte('\n')
	}

	for _, child := range p.Protos {
		dasm(sb, child, depth+1)
	}
}

func dasmOperand(p *Proto, instr Instr) string {
	arg := int(int32(instr.Arg))
	switch instr.Op {
	case PUSHINT:
		return fmt.Sprintf("%d", arg)
	case PUSHNUM:
		if arg >= 0 && arg < len(p.Numbers) {
			return fmt.Sprintf("%d  ; %v", arg, p.Numbers[arg])
		}
		return fmt.Sprintf("%d", arg)
	case PUSHCONST:
		if arg >= 0 && arg < len(p.Strings) {
			return fmt.Sprintf("%d  ; %q", arg, p.Strings[arg])
		}
		return fmt.Sprintf("%d", arg)
	case PUSHGLOBAL, STOREGLOBAL, PUSHSELF:
		if arg >= 0 && arg < len(p.Strings) {
			return fmt.Sprintf("%d  ; %q", arg, p.Strings[arg])
		}
		return fmt.Sprintf("%d", arg)
	case PUSHUPVALUE:
		if arg >= 0 && arg < len(p.Upvalues) {
			return fmt.Sprintf("%d  ; %s", arg, p.Upvalues[arg].Name)
		}
		return fmt.Sprintf("%d", arg)
	case CLOSURE:
		return fmt.Sprintf("%d  ; nested prototype", arg)
	default:
		if isJump(instr.Op) {
			return fmt.Sprintf("-> %d", arg)
		}
		return fmt.Sprintf("%d", arg)
	}
}
