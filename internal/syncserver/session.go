package syncserver

import (
	"sync"
	"time"

	"github.com/beesaferoot/diff-sync/internal/protocol"
)

// Session is the server-side record for one connected client: its shadow,
// a backup shadow for checksum-mismatch recovery, version counters, and a
// single-slot outbound mailbox fan-out writes into.
type Session struct {
	ClientID string

	mu                sync.Mutex
	shadow            string
	backupShadow      string
	lastClientVersion uint64
	lastServerVersion uint64
	pending           *protocol.Frame
	connectedAt       time.Time
	lastSyncAt        time.Time
}

func newSession(clientID, shadow string) *Session {
	now := time.Now()
	return &Session{
		ClientID:     clientID,
		shadow:       shadow,
		backupShadow: shadow,
		connectedAt:  now,
		lastSyncAt:   now,
	}
}

// ConnectedAt returns when the session was created.
func (s *Session) ConnectedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedAt
}

// LastSyncAt returns the timestamp of the last processed client_sync batch.
func (s *Session) LastSyncAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSyncAt
}

func (s *Session) touchSync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSyncAt = time.Now()
}

// Shadow returns the session's current server-held shadow.
func (s *Session) Shadow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shadow
}

func (s *Session) setShadow(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadow = text
}

// BackupShadow returns the checkpointed shadow used for checksum recovery.
func (s *Session) BackupShadow() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backupShadow
}

func (s *Session) checkpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backupShadow = s.shadow
}

func (s *Session) restoreFromBackup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadow = s.backupShadow
}

// Versions returns the last client and server version numbers observed
// for this session.
func (s *Session) Versions() (lastClient, lastServer uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastClientVersion, s.lastServerVersion
}

func (s *Session) setVersions(lastClient, lastServer uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastClientVersion = lastClient
	s.lastServerVersion = lastServer
}

// enqueue replaces any previously queued outbound frame — the mailbox is
// bounded to size 1; a newer fan-out batch always supersedes an older one.
func (s *Session) enqueue(f protocol.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &f
}

// dequeue pops and clears the queued outbound frame, if any.
func (s *Session) dequeue() (protocol.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return protocol.Frame{}, false
	}
	f := *s.pending
	s.pending = nil
	return f, true
}
