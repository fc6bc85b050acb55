package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// RoomRepository stores rooms as JSON values plus one member index key per
// participant for peer-to-room lookups.
type RoomRepository struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) ports.RoomRepository {
	return &RoomRepository{client: client}
}

func (r *RoomRepository) roomKey(id domain.RoomID) string {
	return roomKeyPrefix + string(id)
}

func (r *RoomRepository) memberKey(id domain.PeerID) string {
	return memberKeyPfx + string(id)
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.roomKey(room.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set room in Redis: %w", err)
	}
	if !created {
		return fmt.Errorf("room already exists: %s", room.ID)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.memberKey(room.Offerer), string(room.ID), 0)
	pipe.Set(ctx, r.memberKey(room.Answerer), string(room.ID), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to index room members: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	data, err := r.client.Get(ctx, r.roomKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room from Redis: %w", err)
	}

	var room domain.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (r *RoomRepository) GetByPeer(ctx context.Context, id domain.PeerID) (*domain.Room, error) {
	roomID, err := r.client.Get(ctx, r.memberKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member index from Redis: %w", err)
	}
	return r.GetByID(ctx, domain.RoomID(roomID))
}

func (r *RoomRepository) Delete(ctx context.Context, id domain.RoomID) error {
	room, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.memberKey(room.Offerer))
	pipe.Del(ctx, r.memberKey(room.Answerer))
	pipe.Del(ctx, r.roomKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete room from Redis: %w", err)
	}
	return nil
}

func (r *RoomRepository) Count(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, roomKeyGlob, 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to count rooms: %w", err)
	}
	return count, nil
}
