package webrtc

import (
	"fmt"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// Engine implements ports.NegotiationEngine. It owns at most one peer link
// for the lifetime of a session and buffers remote candidates that arrive
// before the remote description.
//
// Not safe for concurrent use: the session controller serializes all calls.
// The candidate/track callbacks fire on the link's own goroutines and never
// touch engine state.
type Engine struct {
	newLink     func() (ports.PeerLink, error)
	localTracks []webrtc.TrackLocal
	onCandidate func(webrtc.ICECandidateInit)
	onTrack     func(*webrtc.TrackRemote, *webrtc.RTPReceiver)

	link    ports.PeerLink
	pending []webrtc.ICECandidateInit

	logger *zap.SugaredLogger
}

// NewEngine creates an engine. localTracks are attached once, at link
// creation. onCandidate forwards locally gathered candidates to the
// signaling channel; onTrack reports inbound media.
func NewEngine(
	newLink func() (ports.PeerLink, error),
	localTracks []webrtc.TrackLocal,
	onCandidate func(webrtc.ICECandidateInit),
	onTrack func(*webrtc.TrackRemote, *webrtc.RTPReceiver),
	logger *zap.SugaredLogger,
) *Engine {
	return &Engine{
		newLink:     newLink,
		localTracks: localTracks,
		onCandidate: onCandidate,
		onTrack:     onTrack,
		logger:      logger,
	}
}

// EnsureLink returns the existing link or creates one, wiring the permanent
// callbacks and attaching local tracks exactly once.
func (e *Engine) EnsureLink() (ports.PeerLink, error) {
	if e.link != nil {
		return e.link, nil
	}

	link, err := e.newLink()
	if err != nil {
		return nil, domain.NewNegotiationError(domain.NegotiationLinkCreate, err)
	}

	link.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if c == nil || e.onCandidate == nil {
			return
		}
		e.onCandidate(c.ToJSON())
	})

	if e.onTrack != nil {
		link.OnTrack(e.onTrack)
	}

	link.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		e.logger.Debugw("peer connection state changed", "state", state.String())
	})

	for _, track := range e.localTracks {
		if err := link.AddTrack(track); err != nil {
			e.logger.Warnw("failed to attach local track", "error", err)
		}
	}

	e.link = link
	return link, nil
}

// CreateOffer generates an offer and sets it as the local description.
func (e *Engine) CreateOffer() (webrtc.SessionDescription, error) {
	link, err := e.EnsureLink()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	offer, err := link.CreateOffer()
	if err != nil {
		return webrtc.SessionDescription{}, domain.NewNegotiationError(domain.NegotiationCreateOffer, err)
	}
	if err := link.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, domain.NewNegotiationError(domain.NegotiationCreateOffer, err)
	}
	return offer, nil
}

// CreateAnswer applies the remote offer, flushes buffered candidates in
// arrival order and generates an answer.
func (e *Engine) CreateAnswer(offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	link, err := e.EnsureLink()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	if err := link.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, domain.NewNegotiationError(domain.NegotiationCreateAnswer, err)
	}
	e.flushPending(link)

	answer, err := link.CreateAnswer()
	if err != nil {
		return webrtc.SessionDescription{}, domain.NewNegotiationError(domain.NegotiationCreateAnswer, err)
	}
	if err := link.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, domain.NewNegotiationError(domain.NegotiationCreateAnswer, err)
	}
	return answer, nil
}

// ApplyAnswer applies a remote answer. A duplicate or stale answer (retried
// message, race with a skip) must never reach the link out of phase: doing
// so corrupts its negotiation state irrecoverably, so anything but
// have-local-offer is rejected as non-fatal.
func (e *Engine) ApplyAnswer(answer webrtc.SessionDescription) error {
	if e.link == nil {
		return domain.NewNegotiationError(domain.NegotiationNoLink, nil)
	}
	if state := e.link.SignalingState(); state != webrtc.SignalingStateHaveLocalOffer {
		return domain.NewNegotiationError(domain.NegotiationOutOfPhase,
			fmt.Errorf("signaling state is %s, want have-local-offer", state))
	}

	if err := e.link.SetRemoteDescription(answer); err != nil {
		return domain.NewNegotiationError(domain.NegotiationApplyAnswer, err)
	}
	e.flushPending(e.link)
	return nil
}

// AddRemoteCandidate applies the candidate if a remote description is set,
// otherwise buffers it. Never raises: malformed candidates are dropped.
func (e *Engine) AddRemoteCandidate(candidate webrtc.ICECandidateInit) {
	if e.link != nil && e.link.RemoteDescription() != nil {
		if err := e.link.AddICECandidate(candidate); err != nil {
			e.logger.Warnw("dropping malformed candidate", "error", err)
		}
		return
	}
	e.pending = append(e.pending, candidate)
}

// PendingCandidates reports the number of buffered candidates.
func (e *Engine) PendingCandidates() int {
	return len(e.pending)
}

// Teardown closes the link and drops buffered candidates. Idempotent.
func (e *Engine) Teardown() {
	if e.link != nil {
		if err := e.link.Close(); err != nil {
			e.logger.Warnw("error closing peer link", "error", err)
		}
		e.link = nil
	}
	e.pending = nil
}

// flushPending applies buffered candidates in arrival order. The queue is
// emptied regardless of individual failures.
func (e *Engine) flushPending(link ports.PeerLink) {
	for _, candidate := range e.pending {
		if err := link.AddICECandidate(candidate); err != nil {
			e.logger.Warnw("dropping buffered candidate", "error", err)
		}
	}
	e.pending = nil
}
