package health

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTTL bounds how long a published snapshot remains visible once its
// publishing process stops running, so stale fleet views expire on their own.
const defaultTTL = 2 * time.Minute

// defaultKey is the well-known key a fleet of orchestrator processes
// publishes its latest snapshot under, namespaced per RedisPublisher.
const defaultKeyPrefix = "callcore:health:snapshot"

// RedisPublisher publishes each observer iteration's Snapshot to Redis as
// JSON under a well-known key, so multiple orchestrator processes can expose
// one fleet-wide health view to a shared dashboard or control plane.
type RedisPublisher struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisPublisherOption configures a RedisPublisher.
type RedisPublisherOption func(*RedisPublisher)

// WithKey overrides the Redis key the snapshot is stored under. Default is
// "callcore:health:snapshot:<instanceID>".
func WithKey(key string) RedisPublisherOption {
	return func(p *RedisPublisher) { p.key = key }
}

// WithTTL overrides how long a published snapshot stays visible. Set to 0
// to disable expiry.
func WithTTL(ttl time.Duration) RedisPublisherOption {
	return func(p *RedisPublisher) { p.ttl = ttl }
}

// NewRedisPublisher constructs a SnapshotPublisher backed by client,
// publishing under a key scoped to instanceID (e.g. a hostname or pod name)
// so each process in a fleet writes its own record.
func NewRedisPublisher(client *redis.Client, instanceID string, opts ...RedisPublisherOption) *RedisPublisher {
	p := &RedisPublisher{
		client: client,
		key:    fmt.Sprintf("%s:%s", defaultKeyPrefix, instanceID),
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishSnapshot marshals snap to JSON and SETs it under the publisher's
// key with the configured TTL, satisfying health.SnapshotPublisher.
func (p *RedisPublisher) PublishSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("health: failed to marshal snapshot: %w", err)
	}
	if err := p.client.Set(ctx, p.key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("health: redis set failed: %w", err)
	}
	return nil
}

// FetchSnapshot reads back the most recently published snapshot for the
// given instanceID, for dashboards or control-plane processes that want a
// single fleet member's view without running their own Observer.
func FetchSnapshot(ctx context.Context, client *redis.Client, instanceID string) (Snapshot, error) {
	key := fmt.Sprintf("%s:%s", defaultKeyPrefix, instanceID)
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return Snapshot{}, fmt.Errorf("health: redis get failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("health: failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}
