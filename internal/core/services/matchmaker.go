package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/pkg/tracing"
)

// matchmaker pairs the two longest-waiting participants into a room. The
// peer that waited longer becomes the offerer, so exactly one offerer
// exists per room by construction.
type matchmaker struct {
	pool   ports.WaitingPoolRepository
	rooms  ports.RoomRepository
	logger *zap.SugaredLogger
}

func NewMatchmaker(pool ports.WaitingPoolRepository, rooms ports.RoomRepository, logger *zap.SugaredLogger) ports.Matchmaker {
	return &matchmaker{
		pool:   pool,
		rooms:  rooms,
		logger: logger,
	}
}

func (m *matchmaker) AddSeeker(ctx context.Context, id domain.PeerID) (*domain.Room, error) {
	ctx, span := tracing.TraceMatchmaking(ctx, "add_seeker", string(id))
	defer span.End()
	defer tracing.MeasureDuration(ctx, time.Now(), "add_seeker")

	// a peer re-entering matchmaking abandons its current room first
	if room, err := m.rooms.GetByPeer(ctx, id); err == nil {
		m.logger.Warnw("seeker still had an active room, dissolving", "peer", id, "room", room.ID)
		if err := m.rooms.Delete(ctx, room.ID); err != nil {
			return nil, err
		}
	}

	partner, err := m.pool.DequeueOldest(ctx, id)
	if errors.Is(err, domain.ErrNoneWaiting) {
		if err := m.pool.Enqueue(ctx, id); err != nil && !errors.Is(err, domain.ErrAlreadyWaiting) {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	room := &domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		Offerer:   partner,
		Answerer:  id,
		CreatedAt: time.Now(),
	}
	if err := m.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	tracing.AddSpanAttributes(ctx, tracing.RoomIDKey.String(string(room.ID)))
	m.logger.Infow("room created", "room", room.ID, "offerer", room.Offerer, "answerer", room.Answerer)
	return room, nil
}

func (m *matchmaker) RoomFor(ctx context.Context, id domain.PeerID) (*domain.Room, error) {
	return m.rooms.GetByPeer(ctx, id)
}

func (m *matchmaker) EndRoom(ctx context.Context, id domain.PeerID) (*domain.Room, error) {
	ctx, span := tracing.TraceMatchmaking(ctx, "end_room", string(id))
	defer span.End()

	room, err := m.rooms.GetByPeer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.rooms.Delete(ctx, room.ID); err != nil {
		return nil, err
	}
	m.logger.Infow("room dissolved", "room", room.ID, "by", id)
	return room, nil
}

func (m *matchmaker) Disconnect(ctx context.Context, id domain.PeerID) (*domain.Room, error) {
	ctx, span := tracing.TraceMatchmaking(ctx, "disconnect", string(id))
	defer span.End()

	if err := m.pool.Remove(ctx, id); err != nil && !errors.Is(err, domain.ErrPeerNotFound) {
		return nil, err
	}

	room, err := m.EndRoom(ctx, id)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return nil, nil
	}
	return room, err
}

func (m *matchmaker) WaitingCount(ctx context.Context) (int, error) {
	return m.pool.Len(ctx)
}

func (m *matchmaker) RoomCount(ctx context.Context) (int, error) {
	return m.rooms.Count(ctx)
}
