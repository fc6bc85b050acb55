package webrtc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

func newTestSource() *SampleSource {
	return NewSampleSource(SourceConfig{
		Audio:     true,
		Video:     true,
		Width:     320,
		Height:    240,
		FrameRate: 30,
	}, zap.NewNop().Sugar())
}

func TestSampleSource_AcquireProducesTracks(t *testing.T) {
	src := newTestSource()
	defer src.Release()

	tracks, err := src.Acquire(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
	assert.Len(t, src.Tracks(), 2)
}

func TestSampleSource_SecondAcquireIsBusy(t *testing.T) {
	src := newTestSource()
	defer src.Release()

	_, err := src.Acquire(context.Background())
	require.NoError(t, err)

	_, err = src.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.MediaDeviceBusy, domain.MediaKindOf(err))
}

// Release drops the track fields while the pump goroutine may still be
// draining a tick; repeated stop/start cycles must stay race-free.
func TestSampleSource_AcquireReleaseCycles(t *testing.T) {
	src := newTestSource()

	for i := 0; i < 300; i++ {
		_, err := src.Acquire(context.Background())
		require.NoError(t, err)
		src.Release()
	}

	// released: double release is harmless and tracks are gone
	src.Release()
	assert.Nil(t, src.Tracks())
}

func TestSampleSource_NoKindsEnabled(t *testing.T) {
	src := NewSampleSource(SourceConfig{}, zap.NewNop().Sugar())

	_, err := src.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.MediaDeviceNotFound, domain.MediaKindOf(err))
}

func TestSampleSource_UnsatisfiableVideoConstraints(t *testing.T) {
	src := NewSampleSource(SourceConfig{Video: true, Width: 640}, zap.NewNop().Sugar())

	_, err := src.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.MediaOverconstrained, domain.MediaKindOf(err))
}
