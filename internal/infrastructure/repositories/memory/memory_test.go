package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

func TestWaitingPoolFIFO(t *testing.T) {
	ctx := context.Background()
	pool := NewWaitingPool(0)

	require.NoError(t, pool.Enqueue(ctx, "a"))
	require.NoError(t, pool.Enqueue(ctx, "b"))
	require.NoError(t, pool.Enqueue(ctx, "c"))

	first, err := pool.DequeueOldest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("a"), first)

	second, err := pool.DequeueOldest(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PeerID("b"), second)

	n, err := pool.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWaitingPoolExcludesSelf(t *testing.T) {
	ctx := context.Background()
	pool := NewWaitingPool(0)

	require.NoError(t, pool.Enqueue(ctx, "a"))

	_, err := pool.DequeueOldest(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNoneWaiting)

	// a stays queued for the next seeker
	waiting, err := pool.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, waiting)
}

func TestWaitingPoolDuplicateAndCap(t *testing.T) {
	ctx := context.Background()
	pool := NewWaitingPool(2)

	require.NoError(t, pool.Enqueue(ctx, "a"))
	assert.ErrorIs(t, pool.Enqueue(ctx, "a"), domain.ErrAlreadyWaiting)

	require.NoError(t, pool.Enqueue(ctx, "b"))
	assert.ErrorIs(t, pool.Enqueue(ctx, "c"), domain.ErrPoolFull)
}

func TestWaitingPoolRemove(t *testing.T) {
	ctx := context.Background()
	pool := NewWaitingPool(0)

	require.NoError(t, pool.Enqueue(ctx, "a"))
	require.NoError(t, pool.Remove(ctx, "a"))
	assert.ErrorIs(t, pool.Remove(ctx, "a"), domain.ErrPeerNotFound)

	_, err := pool.DequeueOldest(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNoneWaiting)
}

func TestRoomRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRoomRepository()

	room := &domain.Room{ID: "r1", Offerer: "a", Answerer: "b", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, room))
	assert.Error(t, repo.Create(ctx, room))

	byID, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room, byID)

	forOfferer, err := repo.GetByPeer(ctx, "a")
	require.NoError(t, err)
	forAnswerer, err := repo.GetByPeer(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, forOfferer.ID, forAnswerer.ID)

	require.NoError(t, repo.Delete(ctx, "r1"))
	assert.ErrorIs(t, repo.Delete(ctx, "r1"), domain.ErrRoomNotFound)

	_, err = repo.GetByPeer(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
