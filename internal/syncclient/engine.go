// Package syncclient implements the client-side half of the
// differential-synchronization protocol: a local document, a shadow
// tracking what the server last confirmed, and the tick/receive cycle
// that keeps them converging.
package syncclient

import (
	"fmt"
	"sync"

	"github.com/beesaferoot/diff-sync/internal/dmp"
	"github.com/beesaferoot/diff-sync/internal/protocol"
)

// Engine owns one client's document and shadow state. All operations are
// safe for concurrent use; a single Engine is normally driven by one
// goroutine's tick/receive loop but LocalEdit may be called from another
// (e.g. a REPL reading stdin).
type Engine struct {
	mu sync.Mutex

	clientID string
	opts     dmp.Options

	document      string
	shadow        string
	clientVersion uint64
	serverVersion uint64

	onUpdate func(document string)
}

// New creates an Engine seeded from a ConnectOk's content and version.
func New(clientID, content string, serverVersion uint64, opts dmp.Options) *Engine {
	return &Engine{
		clientID:      clientID,
		opts:          opts,
		document:      content,
		shadow:        content,
		serverVersion: serverVersion,
	}
}

// OnUpdate registers a callback invoked whenever Receive changes Document
// — the "live update" signal a terminal UI subscribes to.
func (e *Engine) OnUpdate(fn func(document string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = fn
}

// Document returns the current local document.
func (e *Engine) Document() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.document
}

// LocalEdit assigns a new local document. It is a pure local mutation and
// does not transmit anything; the next Tick picks it up.
func (e *Engine) LocalEdit(newText string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.document = newText
}

// Tick computes the diff between shadow and document, advances shadow to
// match document, and returns a ClientSync frame for transport. It always
// returns a frame, possibly with zero hunks, so the server always has
// something to reply to.
func (e *Engine) Tick() protocol.Frame {
	e.mu.Lock()
	defer e.mu.Unlock()

	hunks := dmp.Diff(e.shadow, e.document)
	checksum := dmp.Checksum(e.shadow)
	sourceVersion := e.clientVersion

	e.shadow = e.document
	if len(hunks) > 0 {
		e.clientVersion++
	}

	return protocol.ClientSync(e.clientID, sourceVersion, e.clientVersion, checksum, hunks)
}

// Receive applies an inbound ServerSync frame. It validates the checksum
// against the current shadow; on mismatch it returns
// protocol.ErrChecksumMismatch and leaves all state untouched, leaving the
// caller to request a resync. On match it advances shadow and document and
// bumps serverVersion, firing onUpdate if document actually changed.
func (e *Engine) Receive(f protocol.Frame) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if f.Checksum != dmp.Checksum(e.shadow) {
		return fmt.Errorf("syncclient: %w", protocol.ErrChecksumMismatch)
	}

	newShadow, _ := dmp.Apply(e.shadow, f.Hunks, e.opts)
	e.shadow = newShadow

	before := e.document
	newDoc, _ := dmp.Apply(e.document, f.Hunks, e.opts)
	e.document = newDoc
	e.serverVersion = f.TargetVersion

	if newDoc != before && e.onUpdate != nil {
		e.onUpdate(newDoc)
	}
	return nil
}

// Resync reinitializes shadow and version counters from a fresh ConnectOk,
// issued after a persistent checksum mismatch or a reconnect following
// RECEIVE_TIMEOUT. It deliberately leaves document untouched: any unsent
// local edits survive and are re-derived on the next Tick via
// diff(shadow, document).
func (e *Engine) Resync(content string, serverVersion uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shadow = content
	e.clientVersion = 0
	e.serverVersion = serverVersion
}

// State returns a snapshot of the engine's version counters, for
// diagnostics and tests.
func (e *Engine) State() (shadow string, clientVersion, serverVersion uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shadow, e.clientVersion, e.serverVersion
}
