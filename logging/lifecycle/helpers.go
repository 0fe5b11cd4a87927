package lifecycle

import (
	"context"

	"giantgrab/server/logging"
)

const (
	// EventParticipantJoined is emitted when a PC or VR participant joins.
	EventParticipantJoined logging.EventType = "lifecycle.participant_joined"
	// EventParticipantDisconnected is emitted when a participant leaves.
	EventParticipantDisconnected logging.EventType = "lifecycle.participant_disconnected"
)

// JoinedPayload captures spawn metadata for a new participant.
type JoinedPayload struct {
	Kind   string  `json:"kind"`
	SpawnX float64 `json:"spawnX"`
	SpawnZ float64 `json:"spawnZ"`
}

// DisconnectedPayload captures the reason a participant left.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

func ParticipantJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload JoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventParticipantJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func ParticipantDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DisconnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventParticipantDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
