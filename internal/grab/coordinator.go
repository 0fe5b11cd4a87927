package grab

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"giantgrab/server/internal/state"
)

const (
	// GrabRadius is the maximum distance between a hand and an avatar for a
	// grab to land.
	GrabRadius = 1.2
	// ThrowMultiplier scales the release velocity reported by the client.
	ThrowMultiplier = 1.6
	// MaxThrowSpeed caps the magnitude of a throw, preserving direction.
	MaxThrowSpeed = 14.0
	// CarrySmoothing is the per-tick exponential factor used to ease a
	// carried avatar toward the holder's hand. Upstream pose updates arrive
	// at arbitrary cadence, so a direct assignment would jitter.
	CarrySmoothing = 0.35
)

// Grab failure codes surfaced to request handlers.
const (
	GrabRejectUnknownActor   = "unknown_actor"
	GrabRejectAlreadyHolding = "already_holding"
	GrabRejectNoHandPose     = "no_hand_pose"
	GrabRejectNoTarget       = "no_target"
	ReleaseRejectNotHolding  = "not_holding"
)

// Relation binds one VR actor to the avatar it is carrying.
type Relation struct {
	ActorID  string     `json:"actorId"`
	AvatarID string     `json:"avatarId"`
	Hand     state.Hand `json:"hand"`
}

// Result reports the outcome of a grab or release attempt.
type Result struct {
	OK       bool   `json:"ok"`
	Code     string `json:"code,omitempty"`
	AvatarID string `json:"avatarId,omitempty"`
}

func reject(code string) Result {
	return Result{Code: code}
}

// Coordinator owns the grab-relation table. Like the registry it is not
// internally synchronized: all mutation happens on the tick loop through
// the documented entry points, which is what preserves the one-holder /
// one-held invariants.
type Coordinator struct {
	registry *state.Registry
	byActor  map[string]Relation
	byAvatar map[string]string
}

// NewCoordinator constructs a coordinator over the shared registry.
func NewCoordinator(registry *state.Registry) *Coordinator {
	return &Coordinator{
		registry: registry,
		byActor:  make(map[string]Relation),
		byAvatar: make(map[string]string),
	}
}

// Holding returns the relation held by the actor, if any.
func (c *Coordinator) Holding(actorID string) (Relation, bool) {
	rel, ok := c.byActor[actorID]
	return rel, ok
}

// HeldBy returns the id of the actor carrying the avatar, if any.
func (c *Coordinator) HeldBy(avatarID string) (string, bool) {
	actorID, ok := c.byAvatar[avatarID]
	return actorID, ok
}

// Relations returns all active relations sorted by actor id.
func (c *Coordinator) Relations() []Relation {
	relations := make([]Relation, 0, len(c.byActor))
	for _, rel := range c.byActor {
		relations = append(relations, rel)
	}
	sort.Slice(relations, func(i, j int) bool { return relations[i].ActorID < relations[j].ActorID })
	return relations
}

// AttemptGrab tries to bind the nearest unheld avatar within GrabRadius of
// the actor's hand. The hand position is the immediate one when supplied,
// otherwise the last stored pose for that hand. Ties on distance resolve
// to the lowest avatar id so replays stay deterministic.
func (c *Coordinator) AttemptGrab(actorID string, hand state.Hand, immediate *mgl64.Vec3) Result {
	actor, ok := c.registry.Actor(actorID)
	if !ok {
		return reject(GrabRejectUnknownActor)
	}
	if _, holding := c.byActor[actorID]; holding {
		return reject(GrabRejectAlreadyHolding)
	}

	var handPos mgl64.Vec3
	switch {
	case immediate != nil:
		handPos = *immediate
	default:
		pose, ok := actor.Pose(hand)
		if !ok {
			return reject(GrabRejectNoHandPose)
		}
		handPos = pose.Position
	}

	var target *state.AvatarState
	best := GrabRadius
	for _, avatar := range c.registry.Avatars() {
		if _, held := c.byAvatar[avatar.ID]; held {
			continue
		}
		distance := avatar.Pos.Sub(handPos).Len()
		if distance > best {
			continue
		}
		if target != nil && distance == best {
			continue
		}
		target = avatar
		best = distance
	}
	if target == nil {
		return reject(GrabRejectNoTarget)
	}

	rel := Relation{ActorID: actorID, AvatarID: target.ID, Hand: hand}
	c.byActor[actorID] = rel
	c.byAvatar[target.ID] = actorID
	return Result{OK: true, AvatarID: target.ID}
}

// ReleaseGrab clears the actor's relation. A nonzero velocity is scaled by
// the throw multiplier, clamped to MaxThrowSpeed preserving direction, and
// assigned to the avatar with the grounded flag cleared so gravity resumes.
func (c *Coordinator) ReleaseGrab(actorID string, velocity *mgl64.Vec3) Result {
	rel, ok := c.byActor[actorID]
	if !ok {
		return reject(ReleaseRejectNotHolding)
	}
	delete(c.byActor, actorID)
	delete(c.byAvatar, rel.AvatarID)

	avatar, ok := c.registry.Avatar(rel.AvatarID)
	if !ok {
		return Result{OK: true, AvatarID: rel.AvatarID}
	}

	if velocity != nil && velocity.Len() > 0 {
		thrown := velocity.Mul(ThrowMultiplier)
		if speed := thrown.Len(); speed > MaxThrowSpeed {
			thrown = thrown.Mul(MaxThrowSpeed / speed)
		}
		avatar.Vel = thrown
		avatar.Grounded = false
	}
	return Result{OK: true, AvatarID: rel.AvatarID}
}

// ReleaseHeld drops the relation targeting the avatar, if any, and returns
// the holder's id. Used when a held avatar disconnects.
func (c *Coordinator) ReleaseHeld(avatarID string) (string, bool) {
	actorID, ok := c.byAvatar[avatarID]
	if !ok {
		return "", false
	}
	delete(c.byAvatar, avatarID)
	delete(c.byActor, actorID)
	return actorID, true
}

// UpdateCarried repositions every held avatar toward its holder's hand.
// It runs once per tick after physics, so the carried position always wins
// over movement integration. A relation whose hand target cannot be
// resolved this tick is skipped: no teleport, no error.
func (c *Coordinator) UpdateCarried() {
	for _, rel := range c.Relations() {
		actor, ok := c.registry.Actor(rel.ActorID)
		if !ok {
			continue
		}
		avatar, ok := c.registry.Avatar(rel.AvatarID)
		if !ok {
			continue
		}
		pose, ok := actor.Pose(rel.Hand)
		if !ok {
			continue
		}

		target := pose.Position
		if pose.Pinch != nil {
			target = *pose.Pinch
		}

		avatar.Pos = avatar.Pos.Add(target.Sub(avatar.Pos).Mul(CarrySmoothing))
		avatar.Vel = mgl64.Vec3{}
		avatar.Grounded = false
	}
}
