package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/beesaferoot/diff-sync/internal/dmp"
	"github.com/beesaferoot/diff-sync/internal/protocol"
	"github.com/beesaferoot/diff-sync/internal/syncclient"
)

func TestRunAppliesEachLineAsALocalEdit(t *testing.T) {
	engine := syncclient.New("alice", "", 0, dmp.Options{MatchDistance: 1000, MatchThreshold: 0.5})
	in := strings.NewReader("hello\nhello world\n/quit\n")
	var out bytes.Buffer

	r := New(engine, in, &out)
	if err := r.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := engine.Document(); got != "hello world" {
		t.Fatalf("document = %q, want %q", got, "hello world")
	}
}

func TestRunStopsAtQuitWithoutConsumingLaterLines(t *testing.T) {
	engine := syncclient.New("bob", "", 0, dmp.Options{MatchDistance: 1000, MatchThreshold: 0.5})
	in := strings.NewReader("/quit\nshould not be applied\n")
	var out bytes.Buffer

	r := New(engine, in, &out)
	if err := r.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := engine.Document(); got != "" {
		t.Fatalf("document = %q, want empty", got)
	}
}

func TestRunPrintsCurrentDocumentAndPrompt(t *testing.T) {
	engine := syncclient.New("carol", "seed text", 0, dmp.Options{MatchDistance: 1000, MatchThreshold: 0.5})
	in := strings.NewReader("/quit\n")
	var out bytes.Buffer

	if err := New(engine, in, &out).Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !strings.Contains(out.String(), "seed text") {
		t.Fatalf("output %q does not contain seeded document", out.String())
	}
}

func TestOnUpdateCallbackWritesToOut(t *testing.T) {
	engine := syncclient.New("dave", "", 0, dmp.Options{MatchDistance: 1000, MatchThreshold: 0.5})
	var out bytes.Buffer

	New(engine, strings.NewReader(""), &out)

	hunks := dmp.Diff("", "remote content")
	frame := protocol.ServerSync(0, 1, dmp.Checksum(""), hunks)
	if err := engine.Receive(frame); err != nil {
		t.Fatalf("Receive returned error: %v", err)
	}

	if !strings.Contains(out.String(), "remote content") {
		t.Fatalf("output %q does not contain remote update", out.String())
	}
}
