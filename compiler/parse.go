// Package compiler implements the single-pass recursive-descent
// parser/bytecode-codegen driver: the token cursor, FuncState, name
// resolver, break/scope stack and the grammar itself, all described in
// spec.md §4. Parse is the package's sole entry point.
package compiler

import (
	"sort"
	"strings"

	"github.com/mna/luapass/code"
	"github.com/mna/luapass/lexer"
	"github.com/mna/luapass/token"
)

// LexErrors collects every malformed token the lexer found while scanning
// the chunk (spec §2 of SPEC_FULL: the lexer accumulates a list rather
// than aborting at the first error, unlike the compiler itself). The
// errors keep their structure (source, line, message) and are ordered by
// source line. LexErrors is only ever returned alongside a valid proto,
// since a syntactic or semantic error always takes priority and is
// returned alone.
type LexErrors struct {
	Errors []*Error
}

func (e *LexErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, le := range e.Errors {
		msgs[i] = le.Error()
	}
	return strings.Join(msgs, "\n")
}

// Parse runs the recursive-descent driver over src and returns the main
// chunk's prototype: 0 parameters, not vararg, 0 upvalues (spec §6 "parse
// (source_stream) -> Prototype"). source names the chunk for diagnostics
// and is stamped into the returned prototype and every prototype nested
// inside it.
func Parse(source string, src []byte) (proto *code.Proto, err error) {
	c := &Compiler{source: source}
	c.lx = lexer.New(source, src, func(line int, msg string) {
		c.lexErrors = append(c.lexErrors, &Error{Source: source, Line: line, Msg: msg})
	})

	defer func() {
		if r := recover(); r != nil {
			ab, ok := r.(abort)
			if !ok {
				panic(r)
			}
			proto = nil
			err = ab.err
		}
	}()

	c.advance() // prime the cursor with the first token

	main := openFunc(c, nil, source, 0)
	main.proto.IsVararg = false

	c.chunk(main)
	if c.cur != token.EOS {
		c.errorf(c.line(), "%s expected, got %s", token.EOS.Quoted(), c.cur.Quoted())
	}

	proto = c.closeFunc(main)
	if len(c.lexErrors) > 0 {
		sort.SliceStable(c.lexErrors, func(i, j int) bool {
			return c.lexErrors[i].Line < c.lexErrors[j].Line
		})
		return proto, &LexErrors{Errors: c.lexErrors}
	}
	return proto, nil
}
