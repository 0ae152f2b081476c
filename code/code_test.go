package code_test

import (
	"strings"
	"testing"

	"github.com/mna/luapass/code"
	"github.com/stretchr/testify/require"
)

func TestStackEffect(t *testing.T) {
	require.Equal(t, -1, code.StackEffect(code.POP))
	require.Equal(t, 1, code.StackEffect(code.PUSHNIL))
	require.Equal(t, -1, code.StackEffect(code.ADD))
	require.Equal(t, 0, code.StackEffect(code.UNM))
}

func TestStackEffectPanicsOnVariable(t *testing.T) {
	require.Panics(t, func() { code.StackEffect(code.CALL) })
}

func TestPatchListConcatAndResolve(t *testing.T) {
	p := &code.Proto{Source: "t"}

	j1 := p.EmitJump(code.JMP, 1)
	j2 := p.EmitJump(code.JMP, 2)
	list := p.Concat(code.NoJump, j1)
	list = p.Concat(list, j2)

	require.NotEqual(t, code.NoJump, list)

	target := p.PC()
	p.PatchList(list, target)

	require.Equal(t, target, p.Arg(j1))
	require.Equal(t, target, p.Arg(j2))
}

func TestPatchToHere(t *testing.T) {
	p := &code.Proto{Source: "t"}
	j := p.EmitJump(code.JMPIFFALSE, 1)
	p.Emit1(code.PUSHNIL, 1)
	here := p.PC()
	p.PatchToHere(j)
	require.Equal(t, here, p.Arg(j))
}

func TestConcatWithEmptyLists(t *testing.T) {
	p := &code.Proto{Source: "t"}
	j := p.EmitJump(code.JMP, 1)
	require.Equal(t, j, p.Concat(code.NoJump, j))
	require.Equal(t, j, p.Concat(j, code.NoJump))
	require.Equal(t, code.NoJump, p.Concat(code.NoJump, code.NoJump))
}

func TestAddConstantsAppendEachCall(t *testing.T) {
	p := &code.Proto{Source: "t"}
	i1 := p.AddString("x")
	i2 := p.AddString("x")
	require.Equal(t, 0, i1)
	require.Equal(t, 1, i2)

	n1 := p.AddNumber(3.14)
	require.Equal(t, 0, n1)
}

func TestFinishTruncatesAndSealsLines(t *testing.T) {
	p := &code.Proto{Source: "t"}
	p.Emit1(code.PUSHNIL, 1)
	dead := p.PC()
	p.Emit1(code.PUSHNIL, 2)
	p.Finish(dead)

	require.Len(t, p.Code, 1)
	require.Equal(t, code.SentinelLine, int(p.Lines[len(p.Lines)-1]))
}

func TestDasmRendersInstructionsAndNesting(t *testing.T) {
	p := &code.Proto{Source: "chunk", MaxStack: 2}
	p.Emit2(code.PUSHINT, 7, 1)
	idx := p.AddString("x")
	p.Emit2(code.PUSHGLOBAL, uint32(idx), 1)
	p.Finish(p.PC())

	child := &code.Proto{Source: "chunk", LineDefined: 5}
	child.Finish(0)
	p.AddProto(child)

	out := code.Dasm(p)
	require.True(t, strings.Contains(out, "pushint"))
	require.True(t, strings.Contains(out, `"x"`))
	require.True(t, strings.Contains(out, "chunk:5"))
}
