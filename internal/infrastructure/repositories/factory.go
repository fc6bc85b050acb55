package repositories

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dhruvshibhare/droulette/internal/core/ports"
	"github.com/dhruvshibhare/droulette/internal/infrastructure/repositories/memory"
	redisrepo "github.com/dhruvshibhare/droulette/internal/infrastructure/repositories/redis"
	"github.com/dhruvshibhare/droulette/pkg/config"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	maxWaiting  int
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis:   cfg.Redis.Enabled,
		maxWaiting: cfg.Matchmaking.MaxWaiting,
		logger:     logger,
	}

	// Try to connect to Redis if enabled
	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreateWaitingPoolRepository creates a waiting pool (Redis or memory with fallback)
func (f *RepositoryFactory) CreateWaitingPoolRepository() ports.WaitingPoolRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewWaitingPool(f.redisClient, f.maxWaiting)
	}
	return memory.NewWaitingPool(f.maxWaiting)
}

// CreateRoomRepository creates a room repository (Redis or memory with fallback)
func (f *RepositoryFactory) CreateRoomRepository() ports.RoomRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRoomRepository(f.redisClient)
	}
	return memory.NewRoomRepository()
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
