package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopcore/internal/dashboard/models"
)

// Redis stores snapshots as JSON with the TTL handled server-side, so every
// replica of the service shares one cache.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, tenantID uuid.UUID, rng models.Range) (*models.Snapshot, error) {
	payload, err := r.client.Get(ctx, Key(tenantID, rng)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dashboard cache get: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("dashboard cache decode: %w", err)
	}
	return &snap, nil
}

func (r *Redis) Set(ctx context.Context, tenantID uuid.UUID, rng models.Range, snap *models.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("dashboard cache encode: %w", err)
	}
	if err := r.client.Set(ctx, Key(tenantID, rng), payload, ttl).Err(); err != nil {
		return fmt.Errorf("dashboard cache set: %w", err)
	}
	return nil
}
