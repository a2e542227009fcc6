package protocol

import (
	"bufio"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// maxFrameBytes bounds a single newline-delimited frame; large enough for
// a full document plus its hunks, small enough to reject a runaway sender.
const maxFrameBytes = 16 * 1024 * 1024

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encoder writes frames to an underlying writer, one JSON object per line.
type Encoder struct {
	w io.Writer
}

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals f and writes it followed by a newline.
func (e *Encoder) Encode(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("protocol: encode frame: %w", err)
	}
	b = append(b, '\n')
	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("protocol: write frame: %w", err)
	}
	return nil
}

// Decoder reads newline-delimited frames from an underlying reader.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	return &Decoder{scanner: scanner}
}

// Decode reads the next line and unmarshals it into a Frame. It returns
// io.EOF when the underlying reader is exhausted.
func (d *Decoder) Decode() (Frame, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return Frame{}, fmt.Errorf("protocol: read frame: %w", err)
		}
		return Frame{}, io.EOF
	}
	var f Frame
	if err := json.Unmarshal(d.scanner.Bytes(), &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
	}
	if !validType(f.Type) {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, f.Type)
	}
	return f, nil
}

func validType(t string) bool {
	switch t {
	case TypeConnect, TypeConnectOk, TypeClientSync, TypeServerSync, TypeHeartbeat, TypeError:
		return true
	default:
		return false
	}
}
