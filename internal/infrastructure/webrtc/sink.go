package webrtc

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// TrackSink drains inbound remote tracks and keeps packet/byte counts. It
// stands in for the rendering boundary: a headless participant has nowhere
// to draw video, but the RTP still has to be read or the transport stalls.
type TrackSink struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
	logger  *zap.SugaredLogger
}

func NewTrackSink(logger *zap.SugaredLogger) *TrackSink {
	return &TrackSink{logger: logger}
}

// HandleTrack is the engine's inbound-media callback. Blocks reading the
// track until it ends; run per track on the link's callback goroutine.
func (s *TrackSink) HandleTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	s.logger.Infow("remote track started",
		"kind", track.Kind().String(),
		"codec", track.Codec().MimeType,
		"ssrc", track.SSRC(),
	)

	var pkt *rtp.Packet
	for {
		var err error
		pkt, _, err = track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debugw("remote track read ended", "error", err)
			}
			return
		}
		s.packets.Add(1)
		s.bytes.Add(uint64(len(pkt.Payload)))
	}
}

// Stats returns total packets and payload bytes received.
func (s *TrackSink) Stats() (packets, bytes uint64) {
	return s.packets.Load(), s.bytes.Load()
}
