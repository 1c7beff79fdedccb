// Package cache keeps the most recent dashboard snapshot per tenant in
// Redis. A cached snapshot serves the immediate frame for new subscribers
// without re-running aggregation; it is never the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"repairradar/internal/dashboard/models"
	platformredis "repairradar/internal/platform/redis"
	id "repairradar/pkg/domain"
)

// SnapshotCache stores serialized snapshots keyed by tenant with a TTL so a
// stale entry ages out rather than serving an old dashboard forever.
type SnapshotCache struct {
	client *platformredis.Client
	ttl    time.Duration
}

// New returns a snapshot cache, or nil when Redis is not configured. A nil
// *SnapshotCache is not a usable cache; callers must treat nil as disabled.
func New(client *platformredis.Client, ttl time.Duration) *SnapshotCache {
	if client == nil {
		return nil
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(tenantID id.TenantID) string {
	return "dashboard:snapshot:" + tenantID.String()
}

// Store writes the snapshot as a single JSON value.
func (c *SnapshotCache) Store(ctx context.Context, snap *models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(snap.TenantID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent cached snapshot for the tenant, or nil when
// none is cached.
func (c *SnapshotCache) Latest(ctx context.Context, tenantID id.TenantID) (*models.Snapshot, error) {
	payload, err := c.client.Get(ctx, snapshotKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode cached snapshot: %w", err)
	}
	return &snap, nil
}
