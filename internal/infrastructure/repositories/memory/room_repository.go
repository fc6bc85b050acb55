package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// RoomRepository is an in-memory room store with a member index for
// O(1) peer-to-room lookups.
type RoomRepository struct {
	rooms  map[domain.RoomID]*domain.Room
	byPeer map[domain.PeerID]domain.RoomID
	mu     sync.RWMutex
}

func NewRoomRepository() ports.RoomRepository {
	return &RoomRepository{
		rooms:  make(map[domain.RoomID]*domain.Room),
		byPeer: make(map[domain.PeerID]domain.RoomID),
	}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return fmt.Errorf("room already exists: %s", room.ID)
	}

	r.rooms[room.ID] = room
	r.byPeer[room.Offerer] = room.ID
	r.byPeer[room.Answerer] = room.ID
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return room, nil
}

func (r *RoomRepository) GetByPeer(ctx context.Context, id domain.PeerID) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, exists := r.byPeer[id]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return r.rooms[roomID], nil
}

func (r *RoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[id]
	if !exists {
		return domain.ErrRoomNotFound
	}

	delete(r.byPeer, room.Offerer)
	delete(r.byPeer, room.Answerer)
	delete(r.rooms, id)
	return nil
}

func (r *RoomRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms), nil
}
