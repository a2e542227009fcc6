package transport

import (
	"context"
	"testing"
	"time"

	"github.com/beesaferoot/diff-sync/internal/dmp"
	"github.com/beesaferoot/diff-sync/internal/storage"
	"github.com/beesaferoot/diff-sync/internal/syncclient"
	"github.com/beesaferoot/diff-sync/internal/syncserver"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewMemoryStore()
	core, err := syncserver.NewCore(context.Background(), store, "main", dmp.Options{}, nil)
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	server := NewServer(core, nil, time.Second, time.Second)
	if err := server.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { server.Stop() })
	return server
}

func dialTestClient(t *testing.T, server *Server, clientID, seedDocument string) *Client {
	t.Helper()
	engine := syncclient.New(clientID, seedDocument, 0, dmp.Options{})
	client := NewClient(engine, nil, server.Addr().String(), 20*time.Millisecond, time.Hour, time.Second, time.Second)
	if err := client.Connect(clientID); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClientConnectReceivesCurrentMaster(t *testing.T) {
	server := newTestServer(t)
	client := dialTestClient(t, server, "alice", storage.DefaultContent)

	if client.engine.Document() != storage.DefaultContent {
		t.Fatalf("got document %q", client.engine.Document())
	}
}

func TestClientTickPersistsLocalEditAndAdvancesMasterVersion(t *testing.T) {
	server := newTestServer(t)
	client := dialTestClient(t, server, "alice", storage.DefaultContent)

	client.engine.LocalEdit(storage.DefaultContent + " edited")
	if err := client.tick("alice"); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if client.engine.Document() != storage.DefaultContent+" edited" {
		t.Fatalf("got document %q", client.engine.Document())
	}

	_, version := server.core.MasterState()
	if version <= 1 {
		t.Fatalf("expected master version to advance past the seeded version 1 after a nonempty edit, got %d", version)
	}
}

func TestSecondClientSeesFirstClientsEditViaFanout(t *testing.T) {
	server := newTestServer(t)
	alice := dialTestClient(t, server, "alice", storage.DefaultContent)
	bob := dialTestClient(t, server, "bob", storage.DefaultContent)

	alice.engine.LocalEdit(storage.DefaultContent + " from alice")
	if err := alice.tick("alice"); err != nil {
		t.Fatalf("alice tick: %v", err)
	}

	// Bob's tick carries no local edits, but the server's reply should
	// deliver alice's fanned-out batch queued for him.
	if err := bob.tick("bob"); err != nil {
		t.Fatalf("bob tick: %v", err)
	}

	if bob.engine.Document() != storage.DefaultContent+" from alice" {
		t.Fatalf("bob's document = %q, want alice's edit to have propagated", bob.engine.Document())
	}
}

func TestHeartbeatKeepsConnectionAlive(t *testing.T) {
	server := newTestServer(t)
	client := dialTestClient(t, server, "alice", storage.DefaultContent)

	if err := client.sendHeartbeat("alice"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
}
