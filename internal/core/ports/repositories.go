package ports

import (
	"context"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

// WaitingPoolRepository holds participants waiting to be paired, ordered by
// arrival time.
type WaitingPoolRepository interface {
	Enqueue(ctx context.Context, id domain.PeerID) error
	// DequeueOldest removes and returns the longest-waiting peer other
	// than exclude. Returns domain.ErrNoneWaiting when empty.
	DequeueOldest(ctx context.Context, exclude domain.PeerID) (domain.PeerID, error)
	Remove(ctx context.Context, id domain.PeerID) error
	Contains(ctx context.Context, id domain.PeerID) (bool, error)
	Len(ctx context.Context) (int, error)
}

// RoomRepository indexes active rooms by id and by member.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	GetByPeer(ctx context.Context, id domain.PeerID) (*domain.Room, error)
	Delete(ctx context.Context, id domain.RoomID) error
	Count(ctx context.Context) (int, error)
}
