package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/luapass/code"
	"github.com/mna/luapass/compiler"
	"github.com/mna/mainer"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(ctx, stdio, args...)
}

// ParseFiles runs the parser/codegen phase over each file and prints the
// resulting main chunk prototype's disassembly (spec §6 "no persisted
// format", SPEC_FULL §5 "Disassembly").
func ParseFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, file := range files {
		if err := parseFile(stdio, file); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func parseFile(stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return printError(stdio, err)
	}

	proto, err := compiler.Parse(file, src)
	if lerr, ok := err.(*compiler.LexErrors); ok {
		for _, le := range lerr.Errors {
			fmt.Fprintln(stdio.Stderr, le)
		}
		err = lerr
	} else if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
	}
	if proto != nil {
		fmt.Fprint(stdio.Stdout, code.Dasm(proto))
	}
	return err
}
