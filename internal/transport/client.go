package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/beesaferoot/diff-sync/internal/ops"
	"github.com/beesaferoot/diff-sync/internal/protocol"
	"github.com/beesaferoot/diff-sync/internal/syncclient"
)

// Client dials a dsyncd server and drives a syncclient.Engine's tick and
// heartbeat cycle over the connection. A read with no server activity for
// ReceiveTimeout triggers a soft reconnect, per spec: client state (the
// in-progress document) survives, only the shadow and version counters reset.
type Client struct {
	engine *syncclient.Engine
	log    *ops.Logger

	address           string
	syncInterval      time.Duration
	heartbeatInterval time.Duration
	receiveTimeout    time.Duration
	sendTimeout       time.Duration

	conn net.Conn
}

// NewClient returns a Client bound to engine, not yet connected.
func NewClient(engine *syncclient.Engine, log *ops.Logger, address string, syncInterval, heartbeatInterval, receiveTimeout, sendTimeout time.Duration) *Client {
	if log == nil {
		log = ops.Default()
	}
	return &Client{
		engine:            engine,
		log:               log.WithComponent("transport-client"),
		address:           address,
		syncInterval:      syncInterval,
		heartbeatInterval: heartbeatInterval,
		receiveTimeout:    receiveTimeout,
		sendTimeout:       sendTimeout,
	}
}

// Connect dials the server, performs the handshake, and resyncs the
// engine's shadow against the server's current master state.
func (c *Client) Connect(clientID string) error {
	conn, err := net.Dial("tcp", c.address)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", c.address, err)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
		conn.Close()
		return err
	}
	if err := protocol.NewEncoder(conn).Encode(protocol.Connect(clientID)); err != nil {
		conn.Close()
		return fmt.Errorf("transport: send connect: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.receiveTimeout)); err != nil {
		conn.Close()
		return err
	}
	frame, err := protocol.NewDecoder(conn).Decode()
	if err != nil || frame.Type != protocol.TypeConnectOk {
		conn.Close()
		return fmt.Errorf("transport: handshake failed: %w", err)
	}

	c.engine.Resync(frame.Content, frame.Version)
	c.conn = conn
	c.log.Info("connected", "client_id", clientID, "address", c.address, "server_version", frame.Version)
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Run drives the sync-tick and heartbeat timers until ctx is cancelled. When
// a tick fails (a read timeout, a broken connection, or a rejected reply)
// it reconnects once and continues; if that reconnect fails, Run returns
// its error. A failed heartbeat is only logged.
func (c *Client) Run(ctx context.Context, clientID string) error {
	syncTicker := time.NewTicker(c.syncInterval)
	defer syncTicker.Stop()
	heartbeatTicker := time.NewTicker(c.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-syncTicker.C:
			if err := c.tick(clientID); err != nil {
				c.log.Warn("tick failed, attempting soft reconnect", "client_id", clientID, "error", err)
				if rerr := c.Connect(clientID); rerr != nil {
					return fmt.Errorf("transport: reconnect failed: %w", rerr)
				}
			}
		case <-heartbeatTicker.C:
			if err := c.sendHeartbeat(clientID); err != nil {
				c.log.Debug("heartbeat failed", "client_id", clientID, "error", err)
			}
		}
	}
}

func (c *Client) tick(clientID string) error {
	batch := c.engine.Tick()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
		return err
	}
	if err := protocol.NewEncoder(c.conn).Encode(batch); err != nil {
		return fmt.Errorf("send client_sync: %w", err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.receiveTimeout)); err != nil {
		return err
	}
	reply, err := protocol.NewDecoder(c.conn).Decode()
	if err != nil {
		return fmt.Errorf("read server_sync: %w", err)
	}

	switch reply.Type {
	case protocol.TypeConnectOk:
		// Server forced a full resync (checksum mismatch it could not
		// recover from via backup shadow).
		c.engine.Resync(reply.Content, reply.Version)
		return nil
	case protocol.TypeServerSync:
		return c.engine.Receive(reply)
	case protocol.TypeError:
		return fmt.Errorf("server rejected batch: %s", reply.Message)
	default:
		return fmt.Errorf("unexpected reply frame type %q", reply.Type)
	}
}

func (c *Client) sendHeartbeat(clientID string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.sendTimeout)); err != nil {
		return err
	}
	if err := protocol.NewEncoder(c.conn).Encode(protocol.Heartbeat(clientID)); err != nil {
		return err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.receiveTimeout)); err != nil {
		return err
	}
	_, err := protocol.NewDecoder(c.conn).Decode()
	return err
}
