// Package transport is the TCP listener and per-connection I/O loop
// binding the wire protocol to the sync engines: a Server dispatches
// inbound frames to a syncserver.Core, and a Client drives a
// syncclient.Engine's tick/receive cycle over a dialed connection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/beesaferoot/diff-sync/internal/ops"
	"github.com/beesaferoot/diff-sync/internal/protocol"
	"github.com/beesaferoot/diff-sync/internal/syncserver"
)

// Server accepts TCP connections and binds each to a syncserver.Core
// session for its lifetime.
type Server struct {
	core           *syncserver.Core
	log            *ops.Logger
	receiveTimeout time.Duration
	sendTimeout    time.Duration

	listener net.Listener
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer returns a Server dispatching to core. receiveTimeout bounds
// how long a connection may go without sending any frame before it is
// dropped; sendTimeout bounds how long a reply write may block.
func NewServer(core *syncserver.Core, log *ops.Logger, receiveTimeout, sendTimeout time.Duration) *Server {
	if log == nil {
		log = ops.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		core:           core,
		log:            log.WithComponent("transport-server"),
		receiveTimeout: receiveTimeout,
		sendTimeout:    sendTimeout,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start listens on addr and accepts connections in the background.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.log.Info("server listening", "address", addr)

	s.wg.Add(1)
	go s.acceptConnections()
	return nil
}

// Addr returns the listener's bound address. Only valid after Start.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and waits for in-flight connections to exit.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.log.Warn("accept error", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	clientID, ok := s.handshake(conn)
	if !ok {
		return
	}
	defer s.core.OnDisconnect(clientID)

	dec := protocol.NewDecoder(conn)
	enc := protocol.NewEncoder(conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.receiveTimeout)); err != nil {
			return
		}
		frame, err := dec.Decode()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Debug("connection read ended", "client_id", clientID, "error", err)
			return
		}

		reply, ok := s.dispatch(conn, clientID, frame)
		if !ok {
			return
		}
		if reply == nil {
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(s.sendTimeout)); err != nil {
			return
		}
		if err := enc.Encode(*reply); err != nil {
			s.log.Warn("write failed, dropping session", "client_id", clientID, "error", err)
			return
		}
	}
}

// handshake reads the initial Connect frame and replies with ConnectOk,
// registering a new session with the core.
func (s *Server) handshake(conn net.Conn) (clientID string, ok bool) {
	if err := conn.SetReadDeadline(time.Now().Add(s.receiveTimeout)); err != nil {
		return "", false
	}
	dec := protocol.NewDecoder(conn)
	frame, err := dec.Decode()
	if err != nil || frame.Type != protocol.TypeConnect {
		s.log.Warn("handshake failed", "error", err)
		return "", false
	}

	connectOk := s.core.OnConnect(frame.ClientID)
	if err := conn.SetWriteDeadline(time.Now().Add(s.sendTimeout)); err != nil {
		return "", false
	}
	if err := protocol.NewEncoder(conn).Encode(connectOk); err != nil {
		s.log.Warn("handshake reply failed", "client_id", frame.ClientID, "error", err)
		s.core.OnDisconnect(frame.ClientID)
		return "", false
	}
	return frame.ClientID, true
}

// dispatch handles one decoded frame, returning the reply frame to send
// (nil for none) and whether the connection should stay open.
func (s *Server) dispatch(conn net.Conn, clientID string, frame protocol.Frame) (*protocol.Frame, bool) {
	switch frame.Type {
	case protocol.TypeClientSync:
		reply, err := s.core.OnClientSync(s.ctx, clientID, frame)
		if err != nil {
			s.log.Warn("client_sync rejected", "client_id", clientID, "error", err)
			errFrame := protocol.ErrorFrame("client_sync_rejected", err.Error())
			return &errFrame, true
		}
		return &reply, true
	case protocol.TypeHeartbeat:
		hb := protocol.Heartbeat(clientID)
		return &hb, true
	default:
		s.log.Warn("unexpected frame type on established connection", "client_id", clientID, "type", frame.Type)
		return nil, true
	}
}
