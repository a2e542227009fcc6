package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/beesaferoot/diff-sync/internal/dmp"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frames := []Frame{
		Connect("alice"),
		ConnectOk("hello world", 3),
		ClientSync("alice", 1, 2, "deadbeef", []dmp.Hunk{{DeleteText: "a", InsertText: "b", ApproxOffset: 0}}),
		ServerSync(2, 3, "cafebabe", nil),
		Heartbeat("alice"),
		ErrorFrame("protocol_violation", "missing field"),
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for i, want := range frames {
		got, err := dec.Decode()
		if err != nil {
			t.Fatalf("decode frame %d: %v", i, err)
		}
		if got.Type != want.Type {
			t.Fatalf("frame %d: type = %q, want %q", i, got.Type, want.Type)
		}
	}

	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	r := bytes.NewBufferString(`{"type":"bogus"}` + "\n")
	dec := NewDecoder(r)
	_, err := dec.Decode()
	if !errors.Is(err, ErrUnknownFrameType) {
		t.Fatalf("expected ErrUnknownFrameType, got %v", err)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	r := bytes.NewBufferString(`not json` + "\n")
	dec := NewDecoder(r)
	_, err := dec.Decode()
	if !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected ErrProtocolViolation, got %v", err)
	}
}
