package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"giantgrab/server/internal/state"
)

// Session is one joined participant: identity, credentials, the attached
// WebSocket connection, and liveness bookkeeping. A session exists from the
// moment of a successful join; the connection attaches later, when the
// client opens its socket.
type Session struct {
	id    string
	token string
	kind  state.ParticipantKind

	writeMu sync.Mutex
	conn    *websocket.Conn

	lastCommandSeq atomic.Uint64

	mu              sync.Mutex
	lastHeartbeat   time.Time
	lastRTT         time.Duration
	topologyVersion uint64
	hasTopology     bool
}

// ID reports the participant identifier assigned at join.
func (s *Session) ID() string {
	return s.id
}

// Kind reports whether the participant drives a PC avatar or a VR actor.
func (s *Session) Kind() state.ParticipantKind {
	return s.kind
}

// WriteMessage serializes writes to the attached connection. It fails when
// no connection is attached.
func (s *Session) WriteMessage(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.conn == nil {
		return websocket.ErrCloseSent
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// LastCommandSeq reports the most recent acknowledged client sequence.
func (s *Session) LastCommandSeq() uint64 {
	return s.lastCommandSeq.Load()
}

// StoreLastCommandSeq records the client sequence after an ack or reject so
// retransmissions can be answered without re-staging.
func (s *Session) StoreLastCommandSeq(seq uint64) {
	s.lastCommandSeq.Store(seq)
}

func (s *Session) attach(conn *websocket.Conn, now time.Time) *websocket.Conn {
	s.writeMu.Lock()
	previous := s.conn
	s.conn = conn
	s.writeMu.Unlock()

	s.mu.Lock()
	s.lastHeartbeat = now
	s.hasTopology = false
	s.mu.Unlock()
	return previous
}

func (s *Session) detach() *websocket.Conn {
	s.writeMu.Lock()
	conn := s.conn
	s.conn = nil
	s.writeMu.Unlock()
	return conn
}

func (s *Session) markHeartbeat(receivedAt time.Time, clientSent int64) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastHeartbeat = receivedAt
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			s.lastRTT = rtt
		}
	}
	return s.lastRTT
}

func (s *Session) heartbeatAge(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastHeartbeat)
}

// NeedsTopology reports whether the session has yet to see the given
// topology version, and records it as seen.
func (s *Session) NeedsTopology(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasTopology && s.topologyVersion == version {
		return false
	}
	s.topologyVersion = version
	s.hasTopology = true
	return true
}

func (s *Session) diagnostics() SessionDiagnostics {
	connected := s.connected()
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionDiagnostics{
		ID:            s.id,
		Kind:          string(s.kind),
		LastHeartbeat: s.lastHeartbeat.UnixMilli(),
		RTTMillis:     s.lastRTT.Milliseconds(),
		Connected:     connected,
	}
}

func (s *Session) connected() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn != nil
}

// SessionDiagnostics is the per-participant slice of the diagnostics
// endpoint payload.
type SessionDiagnostics struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
	Connected     bool   `json:"connected"`
}
