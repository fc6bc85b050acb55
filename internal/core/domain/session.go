package domain

import "time"

type RoomID string
type PeerID string

// Role is the negotiation role assigned by the matchmaking service in the
// pairing message. Exactly one participant per room is the offerer.
type Role string

const (
	RoleUndetermined Role = "undetermined"
	RoleOfferer      Role = "offerer"
	RoleAnswerer     Role = "answerer"
)

// SessionStatus is the lifecycle state of a participant's session.
type SessionStatus string

const (
	StatusIdle        SessionStatus = "idle"
	StatusSearching   SessionStatus = "searching"
	StatusNegotiating SessionStatus = "negotiating"
	StatusConnected   SessionStatus = "connected"
	StatusEnded       SessionStatus = "ended"
)

// Session is one active or pending pairing for a local participant.
type Session struct {
	ID        RoomID
	Role      Role
	Status    SessionStatus
	StartedAt time.Time
}

// DisconnectReason distinguishes a voluntary skip from an abrupt departure.
type DisconnectReason string

const (
	ReasonSkipped DisconnectReason = "skipped"
	ReasonLeft    DisconnectReason = "left"
)

// Room groups exactly two paired participants.
type Room struct {
	ID        RoomID
	Offerer   PeerID
	Answerer  PeerID
	CreatedAt time.Time
}

// PeerOf returns the other participant of the room, or "" if id is not a member.
func (r *Room) PeerOf(id PeerID) PeerID {
	switch id {
	case r.Offerer:
		return r.Answerer
	case r.Answerer:
		return r.Offerer
	}
	return ""
}

// Has reports whether id is a member of the room.
func (r *Room) Has(id PeerID) bool {
	return id == r.Offerer || id == r.Answerer
}
