package compiler_test

import (
	"testing"

	"github.com/mna/luapass/code"
	"github.com/mna/luapass/compiler"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *code.Proto {
	t.Helper()
	proto, err := compiler.Parse("t", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, proto)
	return proto
}

func countOp(instrs []code.Instr, op code.Opcode) int {
	n := 0
	for _, in := range instrs {
		if in.Op == op {
			n++
		}
	}
	return n
}

func findOp(instrs []code.Instr, op code.Opcode) (int, bool) {
	for pc, in := range instrs {
		if in.Op == op {
			return pc, true
		}
	}
	return 0, false
}

// scenario 1: local x = 1; local y = x + 2; return y
func TestLocalArithmeticAndReturn(t *testing.T) {
	proto := mustParse(t, "local x = 1; local y = x + 2; return y")

	require.Len(t, proto.LocVars, 2)
	require.Equal(t, "x", proto.LocVars[0].Name)
	require.Equal(t, "y", proto.LocVars[1].Name)

	pc, ok := findOp(proto.Code, code.RETURN)
	require.True(t, ok, "expected a RETURN instruction")
	require.Equal(t, 2, int(int32(proto.Code[pc].Arg)))
}

// scenario 2: for i = 1, 3 do print(i) end
func TestNumericForRegistersHiddenLocalsAndBracketsBody(t *testing.T) {
	proto := mustParse(t, "for i = 1, 3 do print(i) end")

	require.Len(t, proto.LocVars, 3)
	require.Equal(t, "i", proto.LocVars[0].Name)
	require.Equal(t, "(limit)", proto.LocVars[1].Name)
	require.Equal(t, "(step)", proto.LocVars[2].Name)

	foundStepOne := false
	for _, in := range proto.Code {
		if in.Op == code.PUSHINT && int(int32(in.Arg)) == 1 {
			foundStepOne = true
			break
		}
	}
	require.True(t, foundStepOne, "expected an implicit PUSHINT 1 step")

	prepPC, ok := findOp(proto.Code, code.FORPREP)
	require.True(t, ok)
	loopPC, ok := findOp(proto.Code, code.FORLOOP)
	require.True(t, ok)
	require.Less(t, prepPC, loopPC)

	// FORPREP jumps to FORLOOP's pc, FORLOOP jumps back just past FORPREP.
	require.Equal(t, loopPC, proto.Arg(prepPC))
	require.Equal(t, prepPC+1, proto.Arg(loopPC))

	// i's lifetime starts before the body and ends only once the loop closes.
	require.True(t, proto.LocVars[0].StartPC <= prepPC)
	require.True(t, proto.LocVars[0].EndPCSet)
	require.True(t, proto.LocVars[0].EndPC >= loopPC)
}

// scenario 3: local t = {10, 20; a=1, b=2}
func TestTableConstructorBatchesListAndRecordParts(t *testing.T) {
	proto := mustParse(t, "local t = {10, 20; a=1, b=2}")

	require.Equal(t, 1, countOp(proto.Code, code.NEWTABLE))
	require.Equal(t, 1, countOp(proto.Code, code.SETLIST))
	require.Equal(t, 1, countOp(proto.Code, code.SETMAP))

	pc, ok := findOp(proto.Code, code.NEWTABLE)
	require.True(t, ok)
	require.Equal(t, 4, proto.Arg(pc))
}

// scenario 4: function f(a, b, ...) return a end
func TestFunctionStatementParamsVarargAndLineDefined(t *testing.T) {
	proto := mustParse(t, "function f(a, b, ...)\n  return a\nend")

	require.Len(t, proto.Protos, 1)
	fn := proto.Protos[0]

	require.Equal(t, 2, fn.NumParams)
	require.True(t, fn.IsVararg)

	foundArg := false
	for _, lv := range fn.LocVars {
		if lv.Name == "arg" {
			foundArg = true
		}
	}
	require.True(t, foundArg, "expected a hidden 'arg' local for a vararg function")
	require.Equal(t, 1, fn.LineDefined)
}

// scenario 5: a, b = b, a -- swaps two globals with no extra stack slots.
func TestMultipleAssignmentSwap(t *testing.T) {
	proto := mustParse(t, "a, b = b, a")

	require.Equal(t, 2, countOp(proto.Code, code.PUSHGLOBAL))
	require.Equal(t, 2, countOp(proto.Code, code.STOREGLOBAL))
	require.Equal(t, 0, countOp(proto.Code, code.POPN))

	// two pushes, then two stores: stores happen in reverse LHS order, so
	// the first STOREGLOBAL corresponds to "b" (second target), and its
	// string constant must differ from the second STOREGLOBAL's ("a").
	var storedNames []string
	for _, in := range proto.Code {
		if in.Op == code.STOREGLOBAL {
			storedNames = append(storedNames, proto.Strings[int(int32(in.Arg))])
		}
	}
	require.Equal(t, []string{"b", "a"}, storedNames)
}

// scenario 6: while true do if x then break end end
func TestBreakPatchesToPostLoopLabel(t *testing.T) {
	proto := mustParse(t, "while true do if x then break end end")

	// the break's JMP appears inside the body (jumping forward); the loop's
	// back-jump comes after it (jumping backward).
	backPC, breakPC := -1, -1
	for pc, in := range proto.Code {
		if in.Op != code.JMP {
			continue
		}
		if proto.Arg(pc) <= pc {
			backPC = pc
		} else {
			breakPC = pc
		}
	}
	require.NotEqual(t, -1, backPC, "expected the while loop's back-jump")
	require.NotEqual(t, -1, breakPC, "expected the break's jump")
	require.Less(t, breakPC, backPC)

	// the break lands at the first instruction following the back-jump.
	require.Equal(t, backPC+1, proto.Arg(breakPC))
}

func TestBreakOutsideLoopFails(t *testing.T) {
	_, err := compiler.Parse("t", []byte("break"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no loop to break")
}

// scenario 7: local x; local x = x -- second x's initializer resolves to
// the first x's slot, not its own.
func TestShadowedLocalInitializerResolvesToOuterSlot(t *testing.T) {
	proto := mustParse(t, "local x; local x = x")

	require.Len(t, proto.LocVars, 2)
	require.Equal(t, "x", proto.LocVars[0].Name)
	require.Equal(t, "x", proto.LocVars[1].Name)

	pc, ok := findOp(proto.Code, code.PUSHLOCAL)
	require.True(t, ok, "expected a PUSHLOCAL for the second local's initializer")
	require.Equal(t, 0, proto.Arg(pc), "the initializer must resolve to the first x's slot")
}

func TestMainChunkHasNoParamsUpvaluesAndIsNotVararg(t *testing.T) {
	proto := mustParse(t, "local x = 1")
	require.Equal(t, 0, proto.NumParams)
	require.False(t, proto.IsVararg)
	require.Len(t, proto.Upvalues, 0)
}

func TestDeterminismOfParsingSameInputTwice(t *testing.T) {
	src := "local x = 1; local y = x + 2; if y > 2 then return y else return x end"
	p1 := mustParse(t, src)
	p2 := mustParse(t, src)

	require.Equal(t, p1.Code, p2.Code)
	require.Equal(t, p1.Strings, p2.Strings)
	require.Equal(t, p1.Numbers, p2.Numbers)
	require.Equal(t, p1.LocVars, p2.LocVars)
	require.Equal(t, p1.MaxStack, p2.MaxStack)
}

func TestInnermostLocalShadowsOuter(t *testing.T) {
	proto := mustParse(t, "local x = 1\ndo\n  local x = 2\n  return x\nend")
	require.True(t, len(proto.LocVars) >= 2)

	// the RETURN inside the inner block must reference slot 1 (the inner x),
	// resolved through a PUSHLOCAL right before it.
	retPC, ok := findOp(proto.Code, code.RETURN)
	require.True(t, ok)
	require.Greater(t, retPC, 0)

	var pushPC int
	found := false
	for pc := retPC - 1; pc >= 0; pc-- {
		if proto.Code[pc].Op == code.PUSHLOCAL {
			pushPC = pc
			found = true
			break
		}
	}
	require.True(t, found)
	require.Equal(t, 1, proto.Arg(pushPC))
}

func TestCallExpressionStatementMustEndInCallOpcode(t *testing.T) {
	proto := mustParse(t, "print(1)")
	require.Equal(t, 1, countOp(proto.Code, code.CALL))
}

func TestNonCallExpressionStatementFails(t *testing.T) {
	_, err := compiler.Parse("t", []byte("1 + 1"))
	require.Error(t, err)
}

func TestExplicitUpvalueCaptureFromImmediateParent(t *testing.T) {
	proto := mustParse(t, "local x = 1\nlocal f = function() return %x end")
	require.Len(t, proto.Protos, 1)
	fn := proto.Protos[0]
	require.Len(t, fn.Upvalues, 1)
	require.Equal(t, code.UpvalLocal, fn.Upvalues[0].Kind)

	_, hasClosure := findOp(proto.Code, code.CLOSURE)
	require.True(t, hasClosure)
}

func TestLocalFunctionCanCallItselfRecursively(t *testing.T) {
	proto := mustParse(t, "local function f(n) if n == 0 then return 0 end return %f(n) end")
	require.Len(t, proto.LocVars, 1)
	require.Equal(t, "f", proto.LocVars[0].Name)
	require.Len(t, proto.Protos, 1)
	require.Len(t, proto.Protos[0].Upvalues, 1)
}

func TestGenericForRegistersFourHiddenControlLocals(t *testing.T) {
	proto := mustParse(t, "for k, v in pairs(t) do print(k, v) end")
	require.True(t, len(proto.LocVars) >= 4)
	names := make([]string, 0, 4)
	for _, lv := range proto.LocVars[:4] {
		names = append(names, lv.Name)
	}
	require.Equal(t, []string{"(table)", "(index)", "k", "v"}, names)

	_, ok := findOp(proto.Code, code.LFORPREP)
	require.True(t, ok)
	_, ok = findOp(proto.Code, code.LFORLOOP)
	require.True(t, ok)
}

func TestRepeatClosesBodyScopeBeforeCondition(t *testing.T) {
	proto := mustParse(t, "repeat local x = 1 until x == 1")

	// the body's local is popped when its scope closes, before the "until"
	// condition runs, so the condition's x resolves as a global.
	popPC, ok := findOp(proto.Code, code.POPN)
	require.True(t, ok, "expected the body scope's POPN")
	condPC, ok := findOp(proto.Code, code.JMPIFFALSE)
	require.True(t, ok)
	require.Less(t, popPC, condPC)
	require.Equal(t, 1, countOp(proto.Code, code.PUSHGLOBAL))

	// a false condition loops back to the first instruction of the body.
	require.Equal(t, 0, proto.Arg(condPC))
}

func TestWhileBodyLocalsPoppedBeforeBackJump(t *testing.T) {
	proto := mustParse(t, "while f() do local x = 1 end")

	popPC, ok := findOp(proto.Code, code.POPN)
	require.True(t, ok, "expected the body scope's POPN")
	jmpPC, ok := findOp(proto.Code, code.JMP)
	require.True(t, ok, "expected the back jump")
	require.Less(t, popPC, jmpPC, "the body's local must be popped before looping back")
}

func TestIndexedTargetReachesUnderPendingValues(t *testing.T) {
	proto := mustParse(t, "x, t[1] = 1, 2")

	// t[1] stores first (rightmost target), while x's value 1 still sits
	// between its table/key pair and the value 2 on top: SETTABLE must
	// reach under that one pending slot.
	pc, ok := findOp(proto.Code, code.SETTABLE)
	require.True(t, ok)
	require.Equal(t, 1, proto.Arg(pc))

	// the stale table/key pair is popped once every target has stored.
	popPC, ok := findOp(proto.Code, code.POPN)
	require.True(t, ok)
	require.Equal(t, 2, proto.Arg(popPC))
	require.Greater(t, popPC, pc)
}

func TestUpvalueOfNonImmediateOuterLocalFails(t *testing.T) {
	src := "local x = 1\nlocal f = function() return function() return %x end end"
	_, err := compiler.Parse("t", []byte(src))
	require.Error(t, err)
	require.Contains(t, err.Error(), "upvalue must be global or local to immediately outer function")
}

func TestUpvalueAtTopLevelFails(t *testing.T) {
	_, err := compiler.Parse("t", []byte("return %x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot access an upvalue at top level")
}

func TestPlainNameReferencingOuterLocalFails(t *testing.T) {
	src := "local x = 1\nlocal f = function() return x end"
	_, err := compiler.Parse("t", []byte(src))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot access a variable in outer function")
}

func TestShortCircuitConstantsKeepAValueOnBothPaths(t *testing.T) {
	proto := mustParse(t, "return false and g()")

	// the constant left operand is pushed and tested like any other, so the
	// short-circuit jump carries the false value to the converge point.
	require.Equal(t, 1, countOp(proto.Code, code.PUSHFALSE))
	pc, ok := findOp(proto.Code, code.TESTFALSE)
	require.True(t, ok)

	// the test's jump resolves past the right operand's code.
	require.Greater(t, proto.Arg(pc), pc)
}

func TestConcatChainFusesIntoOneInstruction(t *testing.T) {
	proto := mustParse(t, `return "a" .. "b" .. "c"`)

	require.Equal(t, 1, countOp(proto.Code, code.CONCAT))
	pc, _ := findOp(proto.Code, code.CONCAT)
	require.Equal(t, 3, proto.Arg(pc))
}

func TestConcatDoesNotFuseAcrossAJumpTarget(t *testing.T) {
	proto := mustParse(t, `return "a" .. (x and "b" .. "c")`)

	// the inner chain fuses to one CONCAT 2; the outer ".." lands after the
	// "and" converge point and must stay a separate CONCAT 2.
	require.Equal(t, 2, countOp(proto.Code, code.CONCAT))
	for _, in := range proto.Code {
		if in.Op == code.CONCAT {
			require.Equal(t, 2, int(int32(in.Arg)))
		}
	}
}

func TestReturnWithOpenCallKeepsEveryResult(t *testing.T) {
	proto := mustParse(t, "return f()")

	pc, ok := findOp(proto.Code, code.CALL)
	require.True(t, ok)
	require.Equal(t, code.MultRet, proto.Arg(pc))
}

func TestTableConstructorWithTrailingOpenCall(t *testing.T) {
	proto := mustParse(t, "local t = {1, 2, f()}")

	pc, ok := findOp(proto.Code, code.SETLIST)
	require.True(t, ok)
	require.Equal(t, code.MultRet, proto.Arg(pc))

	callPC, ok := findOp(proto.Code, code.CALL)
	require.True(t, ok)
	require.Equal(t, code.MultRet, proto.Arg(callPC))
}

func TestLexicalErrorsAreStructuredAndLineOrdered(t *testing.T) {
	// two bad escape sequences: the lexer reports both and still yields
	// usable string tokens, so the chunk parses and LexErrors comes back
	// alongside the proto.
	src := "local a = \"x\\q\"\nlocal b = \"y\\p\""
	proto, err := compiler.Parse("t", []byte(src))
	require.NotNil(t, proto)

	var lerr *compiler.LexErrors
	require.ErrorAs(t, err, &lerr)
	require.Len(t, lerr.Errors, 2)
	require.Equal(t, 1, lerr.Errors[0].Line)
	require.Equal(t, 2, lerr.Errors[1].Line)
	require.Equal(t, "t", lerr.Errors[0].Source)
	require.Contains(t, lerr.Errors[0].Msg, "invalid escape")
}

func TestLengthOperatorEmitsLen(t *testing.T) {
	proto := mustParse(t, "local t = {1, 2, 3}\nreturn #t")
	require.Equal(t, 1, countOp(proto.Code, code.LEN))
}
