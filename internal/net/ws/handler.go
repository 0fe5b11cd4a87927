// Package ws runs the per-connection read loop: decode client messages,
// stage them for the next tick, and answer with acks, rejects, and
// heartbeat echoes.
package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"giantgrab/server/internal/net/proto"
	"giantgrab/server/internal/sim"
	"giantgrab/server/internal/telemetry"
)

// Hub is the subset of the server hub the read loop needs. Subscribing
// happens in the HTTP layer before Serve is called.
type Hub interface {
	StageCommand(id string, msg proto.ClientMessage) (sim.Command, bool, string)
	UpdateHeartbeat(id string, receivedAt time.Time, clientSent int64) (time.Duration, bool)
	Disconnect(id, reason string)
	Tick() uint64
	TopologyState() (proto.StateMessageV1, proto.TopologyMessageV1)
}

// Subscription is one attached session as seen from the read loop.
type Subscription interface {
	WriteMessage(data []byte) error
	LastCommandSeq() uint64
	StoreLastCommandSeq(seq uint64)
	NeedsTopology(version uint64) bool
}

// Handler serves one WebSocket connection per joined participant.
type Handler struct {
	hub    Hub
	logger telemetry.Logger
}

// NewHandler wires the hub the sessions report into.
func NewHandler(hub Hub, logger telemetry.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// Serve pushes the initial world view over an already subscribed session
// and runs the read loop until the peer goes away.
func (h *Handler) Serve(participantID string, sub Subscription, conn *websocket.Conn) {
	disconnect := func(reason string) {
		h.hub.Disconnect(participantID, reason)
	}

	if !h.sendInitialState(participantID, sub) {
		disconnect("write_failure")
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			disconnect("read_failure")
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logf("discarding malformed message from %s: %v", participantID, err)
			continue
		}

		if msg.Type == proto.TypeHeartbeat {
			if !h.handleHeartbeat(participantID, sub, msg) {
				disconnect("write_failure")
				return
			}
			continue
		}

		// Duplicate delivery of an already answered command is replied to
		// without re-staging.
		if msg.Seq > 0 && msg.Seq <= sub.LastCommandSeq() {
			if !h.sendAck(participantID, sub, msg.Seq) {
				disconnect("write_failure")
				return
			}
			continue
		}

		_, staged, reason := h.hub.StageCommand(participantID, msg)
		if msg.Seq > 0 {
			sub.StoreLastCommandSeq(msg.Seq)
		}

		var sent bool
		if staged {
			sent = h.sendAck(participantID, sub, msg.Seq)
		} else {
			sent = h.sendReject(participantID, sub, msg.Seq, reason)
		}
		if !sent {
			disconnect("write_failure")
			return
		}
	}
}

func (h *Handler) sendInitialState(participantID string, sub Subscription) bool {
	stateMsg, topologyMsg := h.hub.TopologyState()

	if sub.NeedsTopology(stateMsg.TopologyVersion) {
		data, err := proto.EncodeTopologyMessageV1(topologyMsg)
		if err != nil {
			h.logf("failed to marshal initial topology for %s: %v", participantID, err)
			return false
		}
		if err := sub.WriteMessage(data); err != nil {
			return false
		}
	}

	data, err := proto.EncodeStateMessageV1(stateMsg)
	if err != nil {
		h.logf("failed to marshal initial state for %s: %v", participantID, err)
		return false
	}
	return sub.WriteMessage(data) == nil
}

func (h *Handler) handleHeartbeat(participantID string, sub Subscription, msg proto.ClientMessage) bool {
	now := time.Now()
	rtt, ok := h.hub.UpdateHeartbeat(participantID, now, msg.SentAt)
	if !ok {
		return true
	}

	data, err := proto.EncodeHeartbeat(proto.Heartbeat{
		ServerTime: now.UnixMilli(),
		ClientTime: msg.SentAt,
		RTTMillis:  rtt.Milliseconds(),
	})
	if err != nil {
		h.logf("failed to marshal heartbeat ack for %s: %v", participantID, err)
		return true
	}
	return sub.WriteMessage(data) == nil
}

func (h *Handler) sendAck(participantID string, sub Subscription, seq uint64) bool {
	if seq == 0 {
		return true
	}
	data, err := proto.EncodeCommandAck(proto.CommandAck{Seq: seq, Tick: h.hub.Tick()})
	if err != nil {
		h.logf("failed to marshal ack for %s: %v", participantID, err)
		return true
	}
	return sub.WriteMessage(data) == nil
}

func (h *Handler) sendReject(participantID string, sub Subscription, seq uint64, reason string) bool {
	if seq == 0 {
		return true
	}
	data, err := proto.EncodeCommandReject(proto.CommandReject{Seq: seq, Reason: reason, Tick: h.hub.Tick()})
	if err != nil {
		h.logf("failed to marshal reject for %s: %v", participantID, err)
		return true
	}
	return sub.WriteMessage(data) == nil
}

func (h *Handler) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}
