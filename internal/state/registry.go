package state

import "sort"

// Registry owns every connected participant's simulation state. It is not
// internally synchronized: the tick loop is the single writer, and all
// external mutation is queued as commands and applied between ticks.
type Registry struct {
	avatars map[string]*AvatarState
	actors  map[string]*ActorState
}

// NewRegistry constructs an empty participant registry.
func NewRegistry() *Registry {
	return &Registry{
		avatars: make(map[string]*AvatarState),
		actors:  make(map[string]*ActorState),
	}
}

// AddAvatar registers a PC avatar and returns its state.
func (r *Registry) AddAvatar(avatar *AvatarState) *AvatarState {
	r.avatars[avatar.ID] = avatar
	return avatar
}

// AddActor registers a VR actor and returns its state.
func (r *Registry) AddActor(actor *ActorState) *ActorState {
	if actor.Hands == nil {
		actor.Hands = make(map[Hand]HandPose, 2)
	}
	r.actors[actor.ID] = actor
	return actor
}

// Avatar looks up a PC avatar by id.
func (r *Registry) Avatar(id string) (*AvatarState, bool) {
	avatar, ok := r.avatars[id]
	return avatar, ok
}

// Actor looks up a VR actor by id.
func (r *Registry) Actor(id string) (*ActorState, bool) {
	actor, ok := r.actors[id]
	return actor, ok
}

// Remove drops the participant with the given id from either table.
func (r *Registry) Remove(id string) {
	delete(r.avatars, id)
	delete(r.actors, id)
}

// AvatarCount reports the number of registered PC avatars.
func (r *Registry) AvatarCount() int {
	return len(r.avatars)
}

// Avatars returns all PC avatars sorted by id. Map iteration order is not
// deterministic, and both the physics step and grab target selection need
// a reproducible order.
func (r *Registry) Avatars() []*AvatarState {
	avatars := make([]*AvatarState, 0, len(r.avatars))
	for _, avatar := range r.avatars {
		avatars = append(avatars, avatar)
	}
	sort.Slice(avatars, func(i, j int) bool { return avatars[i].ID < avatars[j].ID })
	return avatars
}

// Actors returns all VR actors sorted by id.
func (r *Registry) Actors() []*ActorState {
	actors := make([]*ActorState, 0, len(r.actors))
	for _, actor := range r.actors {
		actors = append(actors, actor)
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i].ID < actors[j].ID })
	return actors
}
