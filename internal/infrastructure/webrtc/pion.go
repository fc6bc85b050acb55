package webrtc

import (
	"fmt"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// LinkConfig configures pion peer connections.
type LinkConfig struct {
	ICEServers []webrtc.ICEServer
}

// DefaultLinkConfig uses Google STUN with no TURN relay: only direct peer
// negotiation is in scope.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
		},
	}
}

// pionLink adapts *webrtc.PeerConnection to ports.PeerLink and keeps inbound
// video alive with periodic PLI requests.
type pionLink struct {
	pc     *webrtc.PeerConnection
	done   chan struct{}
	logger *zap.SugaredLogger
}

// NewPionLinkFactory returns a PeerLink factory for the negotiation engine.
// Each link advertises intent to receive both audio and video.
func NewPionLinkFactory(cfg LinkConfig, logger *zap.SugaredLogger) func() (ports.PeerLink, error) {
	return func() (ports.PeerLink, error) {
		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers})
		if err != nil {
			return nil, fmt.Errorf("failed to create peer connection: %w", err)
		}

		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				pc.Close()
				return nil, fmt.Errorf("failed to add %s transceiver: %w", kind, err)
			}
		}

		return &pionLink{pc: pc, done: make(chan struct{}), logger: logger}, nil
	}
}

func (l *pionLink) CreateOffer() (webrtc.SessionDescription, error) {
	return l.pc.CreateOffer(nil)
}

func (l *pionLink) CreateAnswer() (webrtc.SessionDescription, error) {
	return l.pc.CreateAnswer(nil)
}

func (l *pionLink) SetLocalDescription(desc webrtc.SessionDescription) error {
	return l.pc.SetLocalDescription(desc)
}

func (l *pionLink) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return l.pc.SetRemoteDescription(desc)
}

func (l *pionLink) RemoteDescription() *webrtc.SessionDescription {
	return l.pc.RemoteDescription()
}

func (l *pionLink) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return l.pc.AddICECandidate(candidate)
}

func (l *pionLink) SignalingState() webrtc.SignalingState {
	return l.pc.SignalingState()
}

func (l *pionLink) AddTrack(track webrtc.TrackLocal) error {
	_, err := l.pc.AddTrack(track)
	return err
}

func (l *pionLink) OnICECandidate(handler func(*webrtc.ICECandidate)) {
	l.pc.OnICECandidate(handler)
}

func (l *pionLink) OnTrack(handler func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	l.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go l.sendPLI(track)
		}
		handler(track, receiver)
	})
}

func (l *pionLink) OnConnectionStateChange(handler func(webrtc.PeerConnectionState)) {
	l.pc.OnConnectionStateChange(handler)
}

func (l *pionLink) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	return l.pc.Close()
}

// sendPLI asks the remote to refresh the video stream every few seconds so
// late joiners get a keyframe.
func (l *pionLink) sendPLI(track *webrtc.TrackRemote) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			err := l.pc.WriteRTCP([]rtcp.Packet{
				&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
			})
			if err != nil {
				return
			}
		}
	}
}
