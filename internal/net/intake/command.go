package intake

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"giantgrab/server/internal/net/proto"
	"giantgrab/server/internal/sim"
)

// Reject reasons produced by the intake layer itself.
const (
	RejectInvalidMessage      = "invalid_message"
	RejectUnknownParticipant  = "unknown_participant"
	RejectImplausiblePosition = "implausible_position"
)

// CommandContext carries the hub collaborators used while staging.
type CommandContext struct {
	Loop           *sim.Loop
	HasParticipant func(string) bool
	Tick           func() uint64
	Now            func() time.Time
}

// StageClientCommand validates an inbound message, converts it to a
// simulation command, and enqueues it. It returns the staged command, or a
// reject reason.
func StageClientCommand(ctx CommandContext, participantID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, RejectInvalidMessage
	}

	if ctx.HasParticipant != nil && !ctx.HasParticipant(participantID) {
		return zero, false, RejectUnknownParticipant
	}

	// Input samples may carry the client's predicted position. Implausible
	// samples mark the command rejected instead of trusting the client.
	if command.Type == sim.CommandInput && msg.Reported != nil {
		engine := ctx.Loop.Engine()
		reported := mgl64.Vec3(*msg.Reported)
		if engine == nil || !engine.ValidateReportedPosition(participantID, reported, engine.TickInterval()) {
			return zero, false, RejectImplausiblePosition
		}
	}

	command.ActorID = participantID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Loop == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Loop.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
