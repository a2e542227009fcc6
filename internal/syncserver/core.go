// Package syncserver implements the server-side half of differential
// synchronization: per-session shadows, the master document, and the
// fan-out that keeps every connected session converging toward it.
package syncserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beesaferoot/diff-sync/internal/dmp"
	"github.com/beesaferoot/diff-sync/internal/ops"
	"github.com/beesaferoot/diff-sync/internal/protocol"
	"github.com/beesaferoot/diff-sync/internal/storage"
)

// Broadcaster publishes a newly persisted master version to other
// processes sharing the same document (see internal/syncserver/redisbus).
// A Core with no Broadcaster set simply skips publishing.
type Broadcaster interface {
	Publish(ctx context.Context, content string, version uint64, documentName string) error
}

// Core owns the master document and the session registry. Every
// on_client_sync call executes under masterMu: the spec requires the
// server to "update one client's shadow while generating diffs to all
// others atomically" (§1c), and only a lock spanning the whole fan-out
// achieves that — finer per-session locks would let two concurrent syncs
// interleave their master mutations with their own fan-out scans. The
// registry's xsync map still gives lock-free reads (session lookups,
// diagnostics) that never need to wait on this path.
type Core struct {
	registry     *Registry
	store        storage.Store
	documentName string
	opts         dmp.Options
	log          *ops.Logger

	masterMu      sync.Mutex
	masterContent string
	masterVersion uint64

	startTime   time.Time
	broadcaster Broadcaster
}

// NewCore loads (or seeds) the named document and returns a ready Core.
func NewCore(ctx context.Context, store storage.Store, documentName string, opts dmp.Options, log *ops.Logger) (*Core, error) {
	doc, err := store.Load(ctx, documentName)
	if err != nil {
		return nil, fmt.Errorf("syncserver: load master %s: %w", documentName, err)
	}
	if log == nil {
		log = ops.Default()
	}
	return &Core{
		registry:      NewRegistry(),
		store:         store,
		documentName:  documentName,
		opts:          opts,
		log:           log.WithComponent("syncserver"),
		masterContent: doc.Content,
		masterVersion: doc.Version,
		startTime:     time.Now(),
	}, nil
}

// OnConnect creates a session for clientID seeded with the current master
// content, and returns the ConnectOk frame to send back.
func (c *Core) OnConnect(clientID string) protocol.Frame {
	c.masterMu.Lock()
	content, version := c.masterContent, c.masterVersion
	c.masterMu.Unlock()

	s := newSession(clientID, content)
	c.registry.Put(s)

	c.log.LogSessionEvent(clientID, "connected", c.registry.Len())
	return protocol.ConnectOk(content, version)
}

// OnDisconnect drops clientID's session. The master and every other
// session are unaffected.
func (c *Core) OnDisconnect(clientID string) {
	c.registry.Delete(clientID)
	c.log.LogSessionEvent(clientID, "disconnected", c.registry.Len())
}

// SessionCount returns the number of connected sessions.
func (c *Core) SessionCount() int { return c.registry.Len() }

// Sessions returns a snapshot of every connected session, for diagnostics.
func (c *Core) Sessions() []*Session { return c.registry.Snapshot() }

// StartTime returns when this Core was created.
func (c *Core) StartTime() time.Time { return c.startTime }

// DocumentName returns the name of the master document this Core serves.
func (c *Core) DocumentName() string { return c.documentName }

// SetBroadcaster wires an optional cross-process fan-out transport. Every
// local persist of a changed master calls Publish on it.
func (c *Core) SetBroadcaster(b Broadcaster) {
	c.masterMu.Lock()
	defer c.masterMu.Unlock()
	c.broadcaster = b
}

// AdoptRemoteMaster applies a master update observed from another process
// (via a Broadcaster subscription). It is a no-op if version does not
// advance past the current in-memory master, which makes it safe to call
// with updates this same process just published. On adoption, every local
// session is fanned out to exactly as a local edit would.
func (c *Core) AdoptRemoteMaster(content string, version uint64) {
	c.masterMu.Lock()
	defer c.masterMu.Unlock()

	if version <= c.masterVersion {
		return
	}
	c.masterContent = content
	c.masterVersion = version

	c.registry.RangeOthers("", func(s *Session) bool {
		c.fanOutTo(s)
		return true
	})
}

// MasterState returns the current in-memory master content and version.
func (c *Core) MasterState() (content string, version uint64) {
	c.masterMu.Lock()
	defer c.masterMu.Unlock()
	return c.masterContent, c.masterVersion
}

// OnClientSync is the heart of the server: it verifies and applies an
// inbound batch, advances the master, fans the result out to every other
// session, and returns the reply batch for the caller.
func (c *Core) OnClientSync(ctx context.Context, clientID string, batch protocol.Frame) (protocol.Frame, error) {
	sess, ok := c.registry.Get(clientID)
	if !ok {
		return protocol.Frame{}, fmt.Errorf("syncserver: %w: unknown client %q", protocol.ErrProtocolViolation, clientID)
	}

	c.masterMu.Lock()
	defer c.masterMu.Unlock()

	lastClientVersion, _ := sess.Versions()
	if batch.SourceVersion < lastClientVersion {
		c.log.Warn("version regression, dropping batch", "client_id", clientID, "source_version", batch.SourceVersion, "last_client_version", lastClientVersion)
		return protocol.Frame{}, fmt.Errorf("syncserver: %w", protocol.ErrVersionRegression)
	}

	// Step 1: verify checksum, with backup-shadow recovery.
	shadow := sess.Shadow()
	if batch.Checksum != dmp.Checksum(shadow) {
		backup := sess.BackupShadow()
		if batch.Checksum == dmp.Checksum(backup) {
			sess.restoreFromBackup()
			shadow = backup
			c.log.LogChecksumMismatch(clientID, true)
		} else {
			c.log.LogChecksumMismatch(clientID, false)
			sess.setShadow(c.masterContent)
			sess.checkpoint()
			sess.setVersions(0, c.masterVersion)
			return protocol.ConnectOk(c.masterContent, c.masterVersion), nil
		}
	}

	// Step 2: apply the batch to the session shadow. A hunk that fails to
	// locate even against already-verified context indicates a malformed
	// batch; fall back to the checkpointed backup rather than advancing to
	// a partially-patched shadow.
	newShadow, results := dmp.Apply(shadow, batch.Hunks, c.opts)
	failedCount := countFalse(results)
	c.log.LogFuzzyApply(clientID, len(batch.Hunks), failedCount)
	if failedCount == 0 {
		sess.setShadow(newShadow)
	} else {
		sess.setShadow(sess.BackupShadow())
	}

	// Step 3: checkpoint.
	sess.checkpoint()
	sess.touchSync()

	// Step 4: apply the batch fuzzily to the master; persist on change.
	masterBefore := c.masterContent
	masterAfter, _ := dmp.Apply(masterBefore, batch.Hunks, c.opts)
	if masterAfter != masterBefore {
		version, err := c.store.Save(ctx, c.documentName, masterAfter)
		if err != nil {
			c.log.LogPersist(c.documentName, 0, err)
			return protocol.Frame{}, fmt.Errorf("syncserver: persist master: %w", err)
		}
		c.masterContent = masterAfter
		c.masterVersion = version
		c.log.LogPersist(c.documentName, version, nil)

		if c.broadcaster != nil {
			if err := c.broadcaster.Publish(ctx, masterAfter, version, c.documentName); err != nil {
				c.log.Warn("broadcast master update failed", "document", c.documentName, "error", err)
			}
		}
	}

	// Step 5: fan out to every other session.
	c.registry.RangeOthers(clientID, func(s *Session) bool {
		c.fanOutTo(s)
		return true
	})

	sess.setVersions(batch.TargetVersion, c.masterVersion)

	// Step 6: reply — prefer a batch already queued for this session from
	// a fan-out that landed before this request was processed; otherwise
	// compute a fresh diff against the (now current) master.
	if queued, ok := sess.dequeue(); ok {
		return queued, nil
	}
	replyHunks := dmp.Diff(sess.Shadow(), c.masterContent)
	reply := protocol.ServerSync(lastClientVersion, c.masterVersion, dmp.Checksum(sess.Shadow()), replyHunks)
	return reply, nil
}

// fanOutTo computes the diff from s's shadow to the current master,
// advances s's shadow, and enqueues the result for delivery. Must be
// called with masterMu held.
func (c *Core) fanOutTo(s *Session) {
	shadow := s.Shadow()
	if shadow == c.masterContent {
		return
	}
	hunks := dmp.Diff(shadow, c.masterContent)
	checksum := dmp.Checksum(shadow)
	_, lastServer := s.Versions()

	s.setShadow(c.masterContent)
	s.enqueue(protocol.ServerSync(lastServer, c.masterVersion, checksum, hunks))
	c.log.LogFanout(s.ClientID, len(hunks), c.masterVersion)
}

func countFalse(bs []bool) int {
	n := 0
	for _, b := range bs {
		if !b {
			n++
		}
	}
	return n
}
