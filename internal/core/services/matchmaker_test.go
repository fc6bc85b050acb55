package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/repositories/memory"
)

func newTestMatchmaker() ports.Matchmaker {
	return NewMatchmaker(memory.NewWaitingPool(0), memory.NewRoomRepository(), zap.NewNop().Sugar())
}

func TestFirstSeekerWaits(t *testing.T) {
	ctx := context.Background()
	m := newTestMatchmaker()

	room, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, room)

	waiting, err := m.WaitingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, waiting)
}

func TestSecondSeekerPairsLongestWaitingAsOfferer(t *testing.T) {
	ctx := context.Background()
	m := newTestMatchmaker()

	_, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)

	room, err := m.AddSeeker(ctx, "b")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, domain.PeerID("a"), room.Offerer)
	assert.Equal(t, domain.PeerID("b"), room.Answerer)
	assert.NotEmpty(t, room.ID)

	waiting, err := m.WaitingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, waiting)

	rooms, err := m.RoomCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rooms)
}

func TestReEnteringSeekerNotPairedWithSelf(t *testing.T) {
	ctx := context.Background()
	m := newTestMatchmaker()

	_, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)

	room, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, room)

	waiting, err := m.WaitingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, waiting)
}

func TestEndRoomReturnsRoomForPeerNotification(t *testing.T) {
	ctx := context.Background()
	m := newTestMatchmaker()

	_, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	created, err := m.AddSeeker(ctx, "b")
	require.NoError(t, err)

	ended, err := m.EndRoom(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, created.ID, ended.ID)
	assert.Equal(t, domain.PeerID("b"), ended.PeerOf("a"))

	_, err = m.RoomFor(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestSeekerInRoomAbandonsItFirst(t *testing.T) {
	ctx := context.Background()
	m := newTestMatchmaker()

	_, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	_, err = m.AddSeeker(ctx, "b")
	require.NoError(t, err)

	// a skips: re-entering matchmaking dissolves the old room
	room, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, room)

	rooms, err := m.RoomCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, rooms)
}

func TestDisconnectCleansUpEverywhere(t *testing.T) {
	ctx := context.Background()
	m := newTestMatchmaker()

	// waiting peer
	_, err := m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	room, err := m.Disconnect(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, room)
	waiting, err := m.WaitingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, waiting)

	// paired peer
	_, err = m.AddSeeker(ctx, "a")
	require.NoError(t, err)
	_, err = m.AddSeeker(ctx, "b")
	require.NoError(t, err)
	room, err = m.Disconnect(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, domain.PeerID("b"), room.PeerOf("a"))

	// unknown peer
	room, err = m.Disconnect(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, room)
}
