package webrtc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

// SourceConfig holds capture constraints for the synthetic media source.
type SourceConfig struct {
	Audio     bool
	Video     bool
	Width     int
	Height    int
	FrameRate int
}

// SampleSource implements ports.MediaSource with locally generated sample
// tracks: one Opus audio track and one VP8 video track. A headless client
// has no camera; the pump writes placeholder samples so the peer connection
// carries real RTP.
//
// The enable flags gate the pump, mirroring track.enabled toggling in a
// browser: a disabled kind keeps its track attached but goes silent.
type SampleSource struct {
	cfg SourceConfig

	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	audioOn atomic.Bool
	videoOn atomic.Bool

	mu       sync.Mutex
	acquired bool
	done     chan struct{}

	logger *zap.SugaredLogger
}

func NewSampleSource(cfg SourceConfig, logger *zap.SugaredLogger) *SampleSource {
	return &SampleSource{cfg: cfg, logger: logger}
}

// Acquire creates the tracks and starts the sample pump. May be called again
// only after Release; a second call while held fails as device-busy.
func (s *SampleSource) Acquire(ctx context.Context) ([]webrtc.TrackLocal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquired {
		return nil, domain.NewMediaError(domain.MediaDeviceBusy, fmt.Errorf("source already acquired"))
	}
	if !s.cfg.Audio && !s.cfg.Video {
		return nil, domain.NewMediaError(domain.MediaDeviceNotFound, fmt.Errorf("no capture kinds enabled"))
	}
	if s.cfg.Video && (s.cfg.Width <= 0 || s.cfg.Height <= 0 || s.cfg.FrameRate <= 0) {
		return nil, domain.NewMediaError(domain.MediaOverconstrained,
			fmt.Errorf("unsatisfiable video constraints %dx%d@%d", s.cfg.Width, s.cfg.Height, s.cfg.FrameRate))
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewMediaError(domain.MediaPermissionDenied, err)
	}

	var tracks []webrtc.TrackLocal

	if s.cfg.Audio {
		audio, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "droulette-audio",
		)
		if err != nil {
			return nil, domain.NewMediaError(domain.MediaUnknown, err)
		}
		s.audio = audio
		s.audioOn.Store(true)
		tracks = append(tracks, audio)
	}

	if s.cfg.Video {
		video, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			"video", "droulette-video",
		)
		if err != nil {
			return nil, domain.NewMediaError(domain.MediaUnknown, err)
		}
		s.video = video
		s.videoOn.Store(true)
		tracks = append(tracks, video)
	}

	s.done = make(chan struct{})
	s.acquired = true
	go s.pump(s.done, s.audio, s.video)

	s.logger.Infow("media source acquired", "audio", s.cfg.Audio, "video", s.cfg.Video)
	return tracks, nil
}

// Tracks returns the currently acquired tracks, or nil.
func (s *SampleSource) Tracks() []webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return nil
	}
	var tracks []webrtc.TrackLocal
	if s.audio != nil {
		tracks = append(tracks, s.audio)
	}
	if s.video != nil {
		tracks = append(tracks, s.video)
	}
	return tracks
}

func (s *SampleSource) SetAudioEnabled(enabled bool) { s.audioOn.Store(enabled) }
func (s *SampleSource) SetVideoEnabled(enabled bool) { s.videoOn.Store(enabled) }
func (s *SampleSource) AudioEnabled() bool           { return s.audioOn.Load() }
func (s *SampleSource) VideoEnabled() bool           { return s.videoOn.Load() }

// Release stops the pump and drops the tracks. Idempotent.
func (s *SampleSource) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return
	}
	close(s.done)
	s.audio = nil
	s.video = nil
	s.acquired = false
	s.logger.Info("media source released")
}

// pump writes placeholder samples: 20ms Opus frames and video frames at the
// configured rate. Writing to a track that is not attached to any live
// connection is a no-op in pion, so the pump runs across skips.
//
// The tracks are captured at Acquire time; the pump never reads the struct
// fields, which Release nils under the lock while the pump is still draining.
func (s *SampleSource) pump(done chan struct{}, audio, video *webrtc.TrackLocalStaticSample) {
	audioTick := time.NewTicker(20 * time.Millisecond)
	defer audioTick.Stop()

	frameInterval := time.Second
	if s.cfg.FrameRate > 0 {
		frameInterval = time.Second / time.Duration(s.cfg.FrameRate)
	}
	videoTick := time.NewTicker(frameInterval)
	defer videoTick.Stop()

	// Minimal opus silence frame
	silence := []byte{0xf8, 0xff, 0xfe}
	blank := make([]byte, 256)

	for {
		select {
		case <-done:
			return
		case <-audioTick.C:
			if audio == nil || !s.audioOn.Load() {
				continue
			}
			err := audio.WriteSample(media.Sample{Data: silence, Duration: 20 * time.Millisecond})
			if err != nil {
				s.logger.Debugw("audio sample write failed", "error", err)
			}
		case <-videoTick.C:
			if video == nil || !s.videoOn.Load() {
				continue
			}
			err := video.WriteSample(media.Sample{Data: blank, Duration: frameInterval})
			if err != nil {
				s.logger.Debugw("video sample write failed", "error", err)
			}
		}
	}
}
