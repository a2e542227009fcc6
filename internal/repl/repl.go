// Package repl is the terminal prompt for the dsync client: it prints
// remote updates as they arrive and reads replacement document text from
// stdin, one line per local edit.
package repl

import (
	"bufio"
	"fmt"
	"io"

	"github.com/beesaferoot/diff-sync/internal/syncclient"
)

// REPL drives a simple line-oriented editing session against an Engine.
// Each line the user enters replaces the whole local document — this is
// a terminal demo harness, not a real editor widget.
type REPL struct {
	engine *syncclient.Engine
	in     io.Reader
	out    io.Writer
}

// New returns a REPL reading from in and writing prompts/updates to out.
func New(engine *syncclient.Engine, in io.Reader, out io.Writer) *REPL {
	r := &REPL{engine: engine, in: in, out: out}
	engine.OnUpdate(func(document string) {
		fmt.Fprintf(out, "\n--- remote update ---\n%s\n> ", document)
	})
	return r
}

// Run prints the current document and then reads lines until EOF,
// applying each as a full-document local edit.
func (r *REPL) Run() error {
	fmt.Fprintf(r.out, "--- current document ---\n%s\n", r.engine.Document())
	fmt.Fprint(r.out, "> ")

	scanner := bufio.NewScanner(r.in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "/quit" {
			return nil
		}
		r.engine.LocalEdit(line)
		fmt.Fprint(r.out, "> ")
	}
	return scanner.Err()
}
