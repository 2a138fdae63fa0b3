package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/crawljobs/internal/config"
	platredis "github.com/jonesrussell/crawljobs/internal/platform/redis"
	"github.com/redis/go-redis/v9"
)

// CreateRedisClient connects to Redis using the Ephemeral Store's
// configuration, shared by the Queue Manager, the Ephemeral Store proper,
// and the Notification Router's pub/sub subscription.
func CreateRedisClient(cfg config.Interface) (*redis.Client, error) {
	client, err := platredis.NewClient(cfg.GetRedisConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
