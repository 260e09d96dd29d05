package auditcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries as JSON values with a native key TTL matching
// ExpiresAt, so Redis expires them even if nobody reads them again.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "auditcache"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

type redisEntry struct {
	Result     []byte    `json:"result"`
	Confidence float64   `json:"confidence"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *RedisStore) Get(ctx context.Context, serviceID string, inputHash string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.key(serviceID, inputHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var stored redisEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Entry{}, false, err
	}
	return Entry{
		ServiceID:  serviceID,
		InputHash:  inputHash,
		Result:     stored.Result,
		Confidence: stored.Confidence,
		ExpiresAt:  stored.ExpiresAt,
		CreatedAt:  stored.CreatedAt,
	}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	if entry.InputHash == "" {
		return ErrInvalidEntry
	}
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(redisEntry{
		Result:     entry.Result,
		Confidence: entry.Confidence,
		ExpiresAt:  entry.ExpiresAt.UTC(),
		CreatedAt:  entry.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(entry.ServiceID, entry.InputHash), payload, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, serviceID string, inputHash string) error {
	return s.client.Del(ctx, s.key(serviceID, inputHash)).Err()
}

func (s *RedisStore) key(serviceID string, inputHash string) string {
	return s.keyPrefix + ":" + serviceID + ":" + inputHash
}

var _ Store = (*RedisStore)(nil)
