package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// WaitingPool stores the pairing queue as a sorted set scored by arrival
// time, so the oldest waiter is always at rank zero.
type WaitingPool struct {
	client *redis.Client
	max    int
}

// NewWaitingPool builds a pool capped at max entries; max <= 0 means unbounded.
func NewWaitingPool(client *redis.Client, max int) ports.WaitingPoolRepository {
	return &WaitingPool{client: client, max: max}
}

func (p *WaitingPool) Enqueue(ctx context.Context, id domain.PeerID) error {
	_, err := p.client.ZScore(ctx, waitingKey, string(id)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to check waiting pool: %w", err)
	}
	if err == nil {
		return domain.ErrAlreadyWaiting
	}

	if p.max > 0 {
		n, err := p.client.ZCard(ctx, waitingKey).Result()
		if err != nil {
			return fmt.Errorf("failed to size waiting pool: %w", err)
		}
		if int(n) >= p.max {
			return domain.ErrPoolFull
		}
	}

	member := redis.Z{Score: float64(time.Now().UnixNano()), Member: string(id)}
	if err := p.client.ZAdd(ctx, waitingKey, member).Err(); err != nil {
		return fmt.Errorf("failed to enqueue peer: %w", err)
	}
	return nil
}

func (p *WaitingPool) DequeueOldest(ctx context.Context, exclude domain.PeerID) (domain.PeerID, error) {
	// walk ranks from the oldest; the excluded peer stays queued
	for rank := int64(0); ; rank++ {
		members, err := p.client.ZRange(ctx, waitingKey, rank, rank).Result()
		if err != nil {
			return "", fmt.Errorf("failed to read waiting pool: %w", err)
		}
		if len(members) == 0 {
			return "", domain.ErrNoneWaiting
		}
		if members[0] == string(exclude) {
			continue
		}

		removed, err := p.client.ZRem(ctx, waitingKey, members[0]).Result()
		if err != nil {
			return "", fmt.Errorf("failed to dequeue peer: %w", err)
		}
		if removed == 0 {
			// another instance claimed it first, try the same rank again
			rank--
			continue
		}
		return domain.PeerID(members[0]), nil
	}
}

func (p *WaitingPool) Remove(ctx context.Context, id domain.PeerID) error {
	removed, err := p.client.ZRem(ctx, waitingKey, string(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove peer from waiting pool: %w", err)
	}
	if removed == 0 {
		return domain.ErrPeerNotFound
	}
	return nil
}

func (p *WaitingPool) Contains(ctx context.Context, id domain.PeerID) (bool, error) {
	_, err := p.client.ZScore(ctx, waitingKey, string(id)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check waiting pool: %w", err)
	}
	return true, nil
}

func (p *WaitingPool) Len(ctx context.Context) (int, error) {
	n, err := p.client.ZCard(ctx, waitingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to size waiting pool: %w", err)
	}
	return int(n), nil
}
