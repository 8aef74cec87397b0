// Package server owns the bridge's listening socket and connection
// lifecycle. It accepts one browser peer at a time, pumps inbound frames
// through the codec to the dispatcher, and transmits outbound commands to
// the attached peer.
package server

import (
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	// gorilla/websocket is the most popular WebSocket library for Go.
	// It provides a complete implementation of the WebSocket protocol
	// with support for reading/writing messages, ping/pong, and close handling.
	"github.com/gorilla/websocket"

	// Rate limiting for malformed-frame log lines so a misbehaving peer
	// cannot flood the host log.
	"golang.org/x/time/rate"

	"github.com/tabbridge/bridge/internal/dispatch"
	apperrors "github.com/tabbridge/bridge/internal/errors"
	"github.com/tabbridge/bridge/internal/protocol"
	"github.com/tabbridge/bridge/internal/session"
)

// Notification suffixes raised by the connection lifecycle.
const (
	// NotifyPeerConnected is raised when a browser peer attaches.
	// Payload: the new session ID.
	NotifyPeerConnected = "PeerConnected"

	// NotifyPeerDisconnected is raised when the attached peer goes away,
	// whether it closed cleanly, reset, or was evicted by a newer peer.
	// Payload: the departed session ID.
	NotifyPeerDisconnected = "PeerDisconnected"
)

// maxFrameSize caps inbound frame size. Tab-state events are small;
// anything beyond this is not our protocol.
const maxFrameSize = 512 * 1024

// Server manages the listening endpoint and the single peer connection.
// Its lifecycle is tied to bridge start/stop: construct, StartAsync, Stop.
// A stopped server holds no listener and no goroutines.
type Server struct {
	// addr is the address to listen on (e.g., "localhost:8000").
	addr string

	// upgrader converts HTTP connections to WebSocket connections.
	// The channel is local, so any origin is accepted.
	upgrader websocket.Upgrader

	// registry tracks the at-most-one attached peer.
	registry *session.Registry

	// dispatcher maps decoded inbound events to host notifications.
	dispatcher *dispatch.Dispatcher

	// notifier receives connect/disconnect lifecycle notifications.
	notifier dispatch.Notifier

	// mu protects stopped and the attach-vs-stop ordering.
	mu sync.Mutex

	// stopped indicates the server has been stopped. New connections are
	// rejected and disconnect notifications are suppressed after this.
	stopped bool

	// httpServer is the underlying HTTP server for shutdown.
	httpServer *http.Server

	// boundAddr is the actual listening address, useful when addr
	// requested an ephemeral port.
	boundAddr string

	// wg tracks the serve goroutine and all read pumps so Stop can wait
	// for them; no goroutine survives a Stop.
	wg sync.WaitGroup

	// malformedLog throttles malformed-frame warnings.
	malformedLog *rate.Limiter
}

// New creates a server for the given address. Call StartAsync to begin
// accepting connections.
func New(addr string, registry *session.Registry, dispatcher *dispatch.Dispatcher, notifier dispatch.Notifier) *Server {
	return &Server{
		addr:       addr,
		registry:   registry,
		dispatcher: dispatcher,
		notifier:   notifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		malformedLog: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// StartAsync binds the listener and starts serving on a background
// goroutine. The returned channel receives nil if startup succeeded, or a
// server.bind_failed error if the listener could not be created (e.g. port
// already in use). Bind failures must reach the host's start routine, so
// the listener is created synchronously before anything is spawned.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- apperrors.BindFailed(s.addr, err)
		close(errCh)
		return errCh
	}

	mux := http.NewServeMux()
	// The browser extension dials the bare port (ws://host:port/), so the
	// upgrade handler is registered at the root rather than a sub-path.
	mux.HandleFunc("/", s.handleWebSocket)

	s.mu.Lock()
	s.boundAddr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: mux}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("Bridge listening on %s", ln.Addr())
		errCh <- nil
		close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Bridge server error: %v", err)
		}
	}()

	return errCh
}

// Addr returns the actual listening address once started. Empty before
// StartAsync has bound the listener.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// Stop shuts the server down: it closes the attached peer (if any),
// releases the listener, and waits for the serve goroutine and read pump
// to exit before returning. Stopping a server that was never started, or
// stopping twice, is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	httpServer := s.httpServer
	s.mu.Unlock()

	// Closing the session's connection unblocks its read pump.
	// http.Server.Close does not reach hijacked WebSocket connections.
	if sess := s.registry.Clear(); sess != nil {
		sess.Close()
	}

	var err error
	if httpServer != nil {
		err = httpServer.Close()
	}

	s.wg.Wait()
	return err
}

// Send encodes a command and transmits it to the attached peer. With no
// peer attached the command is silently discarded: this is the documented
// drop policy, not a queue, and callers cannot observe delivery.
func (s *Server) Send(cmd protocol.Command) error {
	data, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}
	return s.SendRaw(data)
}

// SendRaw transmits a pre-formed text frame to the attached peer,
// bypassing the codec. Used by the raw SendMessage action.
func (s *Server) SendRaw(data []byte) error {
	err := s.registry.Send(data)
	if apperrors.IsCode(err, apperrors.CodeSessionNoPeer) {
		return nil
	}
	if err != nil {
		log.Printf("Send to peer failed: %v", err)
		return err
	}
	return nil
}

// handleWebSocket upgrades an incoming connection and attaches it as the
// current peer, evicting any previous one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		log.Printf("%v", apperrors.Wrap(apperrors.CodeServerUpgradeFailed, "websocket upgrade failed", err))
		return
	}

	// Attach under the server lock so a connection racing Stop is either
	// cleared by Stop or rejected here, never orphaned.
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		conn.Close()
		return
	}
	sess, evicted := s.registry.Attach(conn)
	s.wg.Add(1)
	s.mu.Unlock()

	if evicted != nil {
		log.Printf("Peer %s evicted by new connection from %s", evicted.ID, r.RemoteAddr)
	}
	log.Printf("Peer %s connected from %s", sess.ID, r.RemoteAddr)
	s.notifier.TriggerEvent(NotifyPeerConnected, sess.ID)

	go s.readPump(sess, conn)
}

// readPump reads frames from the peer until the connection dies, decoding
// each one and dispatching the resulting event synchronously. Events are
// therefore handled strictly in arrival order; there is no reordering or
// batching. A read error of any kind is treated as a disconnect; the
// server itself keeps accepting new connections.
func (s *Server) readPump(sess *session.Session, conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.registry.Detach(sess)

		// During Stop the host is tearing the bridge down; a trailing
		// disconnect notification would race plugin shutdown.
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			log.Printf("Peer %s disconnected", sess.ID)
			s.notifier.TriggerEvent(NotifyPeerDisconnected, sess.ID)
		}

		s.wg.Done()
	}()

	conn.SetReadLimit(maxFrameSize)

	for {
		// Blocks until a frame arrives or the peer disconnects. No read
		// deadline is imposed: a silent peer keeps the slot until it
		// goes away or the server stops.
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				log.Printf("Peer %s read error: %v", sess.ID, err)
			}
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			if s.malformedLog.Allow() {
				log.Printf("Dropping frame from peer %s: %v", sess.ID, err)
			}
			continue
		}

		if err := s.dispatcher.Dispatch(ev); err != nil {
			// Incomplete event for its tag: logged and dropped, never
			// fatal to the pump.
			log.Printf("Dropping event from peer %s: %v", sess.ID, err)
		}
	}
}
