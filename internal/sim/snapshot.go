package sim

import (
	"sort"

	"giantgrab/server/internal/state"
)

// AvatarView is the broadcast representation of one PC avatar.
type AvatarView struct {
	ID       string           `json:"id"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Z        float64          `json:"z"`
	VelX     float64          `json:"velX"`
	VelY     float64          `json:"velY"`
	VelZ     float64          `json:"velZ"`
	Yaw      float64          `json:"yaw"`
	Grounded bool             `json:"grounded"`
	Mode     state.PlayerMode `json:"mode"`
	HeldBy   string           `json:"heldBy,omitempty"`
}

// HandView is the broadcast representation of one tracked VR hand.
type HandView struct {
	Hand state.Hand `json:"hand"`
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	Z    float64    `json:"z"`
}

// ActorView is the broadcast representation of one VR actor.
type ActorView struct {
	ID      string     `json:"id"`
	Hands   []HandView `json:"hands,omitempty"`
	Holding string     `json:"holding,omitempty"`
}

// Snapshot is the per-tick world view handed to the broadcast layer.
// Slices are freshly allocated; callers may retain them across ticks.
type Snapshot struct {
	Tick            uint64       `json:"tick"`
	Avatars         []AvatarView `json:"avatars"`
	Actors          []ActorView  `json:"actors"`
	TopologyVersion uint64       `json:"topologyVersion"`
}

// Snapshot captures the world state after the last completed tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	avatars := e.registry.Avatars()
	avatarViews := make([]AvatarView, 0, len(avatars))
	for _, avatar := range avatars {
		view := AvatarView{
			ID:       avatar.ID,
			X:        avatar.Pos[0],
			Y:        avatar.Pos[1],
			Z:        avatar.Pos[2],
			VelX:     avatar.Vel[0],
			VelY:     avatar.Vel[1],
			VelZ:     avatar.Vel[2],
			Yaw:      avatar.Yaw,
			Grounded: avatar.Grounded,
			Mode:     avatar.Mode,
		}
		if holder, held := e.grabs.HeldBy(avatar.ID); held {
			view.HeldBy = holder
		}
		avatarViews = append(avatarViews, view)
	}

	actors := e.registry.Actors()
	actorViews := make([]ActorView, 0, len(actors))
	for _, actor := range actors {
		view := ActorView{ID: actor.ID}
		for hand, pose := range actor.Hands {
			view.Hands = append(view.Hands, HandView{
				Hand: hand,
				X:    pose.Position[0],
				Y:    pose.Position[1],
				Z:    pose.Position[2],
			})
		}
		sort.Slice(view.Hands, func(i, j int) bool {
			return view.Hands[i].Hand < view.Hands[j].Hand
		})
		if rel, ok := e.grabs.Holding(actor.ID); ok {
			view.Holding = rel.AvatarID
		}
		actorViews = append(actorViews, view)
	}

	return Snapshot{
		Tick:            e.tick,
		Avatars:         avatarViews,
		Actors:          actorViews,
		TopologyVersion: e.topology.Version(),
	}
}
