package ports

import (
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

// EventType names one logical signaling event; one event per wire message.
type EventType string

// Inbound events (server to participant).
const (
	EventWaitingForStranger   EventType = "waiting-for-stranger"
	EventStrangerFound        EventType = "stranger-found"
	EventOffer                EventType = "webrtc-offer"
	EventAnswer               EventType = "webrtc-answer"
	EventICECandidate         EventType = "webrtc-ice-candidate"
	EventReceiveMessage       EventType = "receive-message"
	EventUserTyping           EventType = "user-typing"
	EventUserStoppedTyping    EventType = "user-stopped-typing"
	EventStrangerDisconnected EventType = "stranger-disconnected"
)

// Outbound events (participant to server). Offer, answer and candidate
// share the inbound names: the server relays them to the room peer.
const (
	EventFindStranger EventType = "find-stranger"
	EventSendMessage  EventType = "send-message"
	EventTyping       EventType = "typing"
	EventStopTyping   EventType = "stop-typing"
	EventSkipUser     EventType = "skip-user"
	EventLeaveRoom    EventType = "leave-room"
)

// Event is one signaling message. Unused fields are omitted on the wire.
type Event struct {
	Type      EventType                  `json:"type"`
	RoomID    domain.RoomID              `json:"room_id,omitempty"`
	Role      domain.Role                `json:"role,omitempty"`
	Offer     *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer    *webrtc.SessionDescription `json:"answer,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Message   string                     `json:"message,omitempty"`
	Timestamp time.Time                  `json:"timestamp,omitempty"`
	Reason    domain.DisconnectReason    `json:"reason,omitempty"`
}

// SignalingChannel is the participant's connection to the matchmaking
// service. Emit is safe for concurrent use; Events is closed when the
// channel disconnects.
type SignalingChannel interface {
	Emit(event Event) error
	Events() <-chan Event
	Connected() bool
	Close() error
}
