package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// key layout shared by the repositories in this package
const (
	waitingKey    = "droulette:waiting"
	roomKeyPrefix = "droulette:room:"
	memberKeyPfx  = "droulette:member:"
	roomKeyGlob   = "droulette:room:*"
	memberKeyGlob = "droulette:member:*"
)

// ResetEphemeralState deletes waiting-pool and room keys left behind by a
// previous process. Matchmaking state never outlives the signal server: the
// websocket connections it describes died with the old process.
func ResetEphemeralState(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	removed := int64(0)

	if n, err := client.Del(ctx, waitingKey).Result(); err != nil {
		return fmt.Errorf("failed to clear waiting pool: %w", err)
	} else {
		removed += n
	}

	for _, pattern := range []string{roomKeyGlob, memberKeyGlob} {
		iter := client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if n, err := client.Del(ctx, iter.Val()).Result(); err != nil {
				return fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
			} else {
				removed += n
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan %s: %w", pattern, err)
		}
	}

	if logger != nil && removed > 0 {
		logger.Infow("cleared stale matchmaking state", "keys_removed", removed)
	}
	return nil
}
