package ports

import (
	"context"

	"github.com/pion/webrtc/v3"
)

// PeerLink abstracts the platform peer connection so the negotiation engine
// can be tested without real ICE/DTLS machinery.
type PeerLink interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	RemoteDescription() *webrtc.SessionDescription
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	SignalingState() webrtc.SignalingState
	AddTrack(track webrtc.TrackLocal) error
	OnICECandidate(handler func(*webrtc.ICECandidate))
	OnTrack(handler func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	OnConnectionStateChange(handler func(webrtc.PeerConnectionState))
	Close() error
}

// NegotiationEngine owns one peer link for the lifetime of a session:
// descriptor generation, candidate buffering and teardown. Not safe for
// concurrent use; the session controller serializes all calls.
type NegotiationEngine interface {
	// EnsureLink returns the existing link or creates one. Idempotent:
	// at most one link exists per engine.
	EnsureLink() (PeerLink, error)

	// CreateOffer generates an offer and sets it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)

	// CreateAnswer applies the remote offer, flushes buffered candidates
	// and generates an answer. One call per negotiation round.
	CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error)

	// ApplyAnswer applies a remote answer. Returns an out-of-phase
	// NegotiationError (non-fatal) unless the link is awaiting one.
	ApplyAnswer(answer webrtc.SessionDescription) error

	// AddRemoteCandidate applies the candidate if the remote description
	// is set, otherwise buffers it. Malformed candidates are dropped.
	AddRemoteCandidate(candidate webrtc.ICECandidateInit)

	// PendingCandidates reports the number of buffered candidates.
	PendingCandidates() int

	// Teardown closes the link and drops buffered candidates. Idempotent.
	Teardown()
}

// MediaSource is the local capture boundary. Tracks are acquired once per
// "chat active" period and attached into each successive engine.
type MediaSource interface {
	Acquire(ctx context.Context) ([]webrtc.TrackLocal, error)
	Tracks() []webrtc.TrackLocal
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	AudioEnabled() bool
	VideoEnabled() bool
	Release()
}
