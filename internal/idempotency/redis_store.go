package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/uni-registrar-api/pkg/clock"
)

// pendingMarker occupies a key between Reserve and Save. It is not valid
// JSON so it can never collide with a stored result payload.
const pendingMarker = "\x00pending"

// releasePendingScript deletes the key only while it still holds the
// pending marker, so a Release racing a Save never destroys a result.
var releasePendingScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store on Redis. Expiry is delegated to Redis key
// TTLs; SETNX provides the atomic insert-if-absent.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       clock.Clock
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, keyPrefix string, now clock.Clock) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "idem"
	}
	if now == nil {
		now = clock.System()
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, now: now}
}

func (s *RedisStore) key(key string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, key)
}

// Get returns the finished result stored under key, if any.
func (s *RedisStore) Get(ctx context.Context, key string) (*StoredResult, error) {
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency get %s: %w", key, err)
	}
	if string(raw) == pendingMarker {
		return nil, nil
	}
	var result StoredResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("idempotency decode %s: %w", key, err)
	}
	return &result, nil
}

// Reserve claims key with SETNX. Losing the claim returns either the
// finished result or ErrInFlight when the winner has not saved yet.
func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *StoredResult, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), pendingMarker, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency reserve %s: %w", key, err)
	}
	if ok {
		return true, nil, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}
	if existing == nil {
		return false, nil, ErrInFlight
	}
	return false, existing, nil
}

// Save overwrites the pending marker with the serialized result.
func (s *RedisStore) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	result := StoredResult{Payload: payload, CreatedAt: s.now()}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("idempotency encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency save %s: %w", key, err)
	}
	return nil
}

// Release removes a reservation that never produced a result.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releasePendingScript.Run(ctx, s.client, []string{s.key(key)}, pendingMarker).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("idempotency release %s: %w", key, err)
	}
	return nil
}
