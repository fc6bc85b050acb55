package memory

import (
	"context"
	"sync"

	"github.com/dhruvshibhare/droulette/internal/core/domain"
	"github.com/dhruvshibhare/droulette/internal/core/ports"
)

// WaitingPool is an in-memory FIFO of participants waiting to be paired.
type WaitingPool struct {
	order   []domain.PeerID
	members map[domain.PeerID]struct{}
	max     int
	mu      sync.RWMutex
}

// NewWaitingPool builds a pool capped at max entries; max <= 0 means unbounded.
func NewWaitingPool(max int) ports.WaitingPoolRepository {
	return &WaitingPool{
		members: make(map[domain.PeerID]struct{}),
		max:     max,
	}
}

func (p *WaitingPool) Enqueue(ctx context.Context, id domain.PeerID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.members[id]; exists {
		return domain.ErrAlreadyWaiting
	}
	if p.max > 0 && len(p.order) >= p.max {
		return domain.ErrPoolFull
	}

	p.order = append(p.order, id)
	p.members[id] = struct{}{}
	return nil
}

func (p *WaitingPool) DequeueOldest(ctx context.Context, exclude domain.PeerID) (domain.PeerID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, id := range p.order {
		if id == exclude {
			continue
		}
		p.order = append(p.order[:i], p.order[i+1:]...)
		delete(p.members, id)
		return id, nil
	}
	return "", domain.ErrNoneWaiting
}

func (p *WaitingPool) Remove(ctx context.Context, id domain.PeerID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.members[id]; !exists {
		return domain.ErrPeerNotFound
	}

	delete(p.members, id)
	for i, queued := range p.order {
		if queued == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

func (p *WaitingPool) Contains(ctx context.Context, id domain.PeerID) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, exists := p.members[id]
	return exists, nil
}

func (p *WaitingPool) Len(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.order), nil
}
