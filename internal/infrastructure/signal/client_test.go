package signal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

func TestClientDialEmitAndReceive(t *testing.T) {
	h := newServerHarness(t)

	client, err := Dial(context.Background(), h.wsURL, ClientOptions{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.Connected())
	require.NoError(t, client.Emit(ports.Event{Type: ports.EventFindStranger}))

	select {
	case ev := <-client.Events():
		assert.Equal(t, ports.EventWaitingForStranger, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestClientDialFailsFast(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/ws", ClientOptions{DialAttempts: 1, DialTimeout: 100 * time.Millisecond}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestClientCloseEndsEventStream(t *testing.T) {
	h := newServerHarness(t)

	client, err := Dial(context.Background(), h.wsURL, ClientOptions{}, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.False(t, client.Connected())

	select {
	case _, open := <-client.Events():
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
}
