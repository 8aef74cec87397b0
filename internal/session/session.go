// Package session tracks the bridge's single permitted peer connection.
//
// The registry holds at most one attached peer at a time. Attaching a new
// peer evicts and closes the previous one, so the most recent connection
// always owns the slot. All registry mutation and all writes to the peer
// go through one mutex each, which keeps attach/detach races and frame
// interleaving out of the transport.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apperrors "github.com/tabbridge/bridge/internal/errors"
)

// Conn is the send-capable peer handle the registry tracks.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is the bookkeeping record of one attached peer.
// It is owned exclusively by the server while connected.
type Session struct {
	// ID identifies this attachment in logs and connect/disconnect
	// notifications. A new ID is minted per attach, so reconnects of
	// the same browser are distinguishable.
	ID string

	conn Conn

	// writeMu serializes frames written to the peer. Action calls come
	// in on arbitrary host goroutines, and interleaved writes would
	// corrupt the WebSocket stream.
	writeMu sync.Mutex
}

// Write sends one text frame to the peer. Safe for concurrent use.
func (s *Session) Write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return apperrors.SendFailed(err)
	}
	return nil
}

// Close closes the underlying peer connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

// Registry tracks the single permitted peer connection.
// The zero value is ready to use.
type Registry struct {
	mu      sync.Mutex
	current *Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Attach records a newly connected peer and returns its session.
// If a peer was already attached, it is evicted: the registry forgets it
// and closes its connection so its read loop terminates. The evicted
// session is returned so the caller can log it; it may be nil.
func (r *Registry) Attach(conn Conn) (attached, evicted *Session) {
	r.mu.Lock()
	evicted = r.current
	attached = &Session{
		ID:   uuid.NewString(),
		conn: conn,
	}
	r.current = attached
	r.mu.Unlock()

	if evicted != nil {
		// Closing outside the lock: Close may block on the transport,
		// and the evicted peer's read loop will call Detach.
		evicted.Close()
	}
	return attached, evicted
}

// Detach clears the given session if it is still the current one and
// reports whether it was. An evicted session detaching late must not
// clear the newer peer that displaced it.
func (r *Registry) Detach(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != s {
		return false
	}
	r.current = nil
	return true
}

// Current returns the attached session, or nil when the slot is empty.
func (r *Registry) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Clear detaches whatever session is current and returns it (nil if the
// slot was already empty). Used on server stop; the caller closes it.
func (r *Registry) Clear() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current
	r.current = nil
	return s
}

// Send relays one text frame to the attached peer. With no peer attached
// it returns a session.no_peer error; callers treat that as the documented
// drop policy (the frame is discarded, not queued).
func (r *Registry) Send(data []byte) error {
	s := r.Current()
	if s == nil {
		return apperrors.NoPeer()
	}
	return s.Write(data)
}
