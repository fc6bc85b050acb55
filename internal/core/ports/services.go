package ports

import (
	"context"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
)

// Matchmaker pairs waiting participants into rooms and designates exactly
// one offerer per room.
type Matchmaker interface {
	// AddSeeker enters id into matchmaking. Returns the room if a partner
	// was waiting, or nil if id was queued.
	AddSeeker(ctx context.Context, id domain.PeerID) (*domain.Room, error)

	// RoomFor returns the active room id belongs to.
	RoomFor(ctx context.Context, id domain.PeerID) (*domain.Room, error)

	// EndRoom dissolves the room id belongs to and returns it, so the
	// caller can notify the other member. Returns domain.ErrRoomNotFound
	// if id has no active room.
	EndRoom(ctx context.Context, id domain.PeerID) (*domain.Room, error)

	// Disconnect removes id from the waiting pool and dissolves its room
	// if any; the dissolved room (possibly nil) is returned.
	Disconnect(ctx context.Context, id domain.PeerID) (*domain.Room, error)

	WaitingCount(ctx context.Context) (int, error)
	RoomCount(ctx context.Context) (int, error)
}
