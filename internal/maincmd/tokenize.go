package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/luapass/lexer"
	"github.com/mna/luapass/token"
	"github.com/mna/mainer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(ctx, stdio, args...)
}

// TokenizeFiles runs the lexer phase over each file and prints every token
// it produces, one per line, as "source:line: token [value]".
func TokenizeFiles(ctx context.Context, stdio mainer.Stdio, files ...string) error {
	var firstErr error
	for _, file := range files {
		if err := tokenizeFile(stdio, file); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func tokenizeFile(stdio mainer.Stdio, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return printError(stdio, err)
	}

	var lexErrs []string
	lx := lexer.New(file, src, func(line int, msg string) {
		lexErrs = append(lexErrs, fmt.Sprintf("%s:%d: %s", file, line, msg))
	})

	for {
		tok, val := lx.Scan()
		fmt.Fprintf(stdio.Stdout, "%s:%d: %s", file, val.Line, tok)
		switch tok {
		case token.NAME, token.STRING, token.UPVALNAME:
			fmt.Fprintf(stdio.Stdout, " %q", val.Str)
		case token.NUMBER:
			fmt.Fprintf(stdio.Stdout, " %v", val.Num)
		}
		fmt.Fprintln(stdio.Stdout)
		if tok == token.EOS {
			break
		}
	}

	for _, msg := range lexErrs {
		fmt.Fprintln(stdio.Stderr, msg)
	}
	if len(lexErrs) > 0 {
		return fmt.Errorf("%s: %d lexical error(s)", file, len(lexErrs))
	}
	return nil
}
