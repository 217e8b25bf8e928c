package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-client/domain"
)

// RedisMirror persists server-confirmed values in Redis so a new session can
// start from them instead of hitting the API. Entries expire after ttl and
// are evicted whenever their key is invalidated.
type RedisMirror struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	log    *log.Logger
}

// NewRedisMirror creates a mirror writing under prefix. A zero ttl disables
// writes; reads and evictions still work.
func NewRedisMirror(client *redis.Client, prefix string, ttl time.Duration, logger *log.Logger) *RedisMirror {
	if client == nil {
		panic("storage.NewRedisMirror: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisMirror{redis: client, ttl: ttl, prefix: prefix, log: logger}
}

func (m *RedisMirror) Load(ctx context.Context, key domain.Key) (domain.Value, bool) {
	data, err := m.redis.Get(ctx, m.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.log.WithError(err).WithField("key", key.String()).Warn("mirror.load.failed")
			_ = m.redis.Del(ctx, m.redisKey(key)).Err()
		}
		return nil, false
	}
	v, err := decodeValue(key.Kind, data)
	if err != nil {
		m.log.WithError(err).WithField("key", key.String()).Warn("mirror.decode.failed")
		_ = m.redis.Del(ctx, m.redisKey(key)).Err()
		return nil, false
	}
	return v, true
}

func (m *RedisMirror) Save(ctx context.Context, key domain.Key, value domain.Value) {
	if m.ttl == 0 || value == nil || key.HasPendingScope() {
		return
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		m.log.WithError(err).WithField("key", key.String()).Warn("mirror.encode.failed")
		return
	}
	if err := m.redis.Set(ctx, m.redisKey(key), data, m.ttl).Err(); err != nil {
		m.log.WithError(err).WithField("key", key.String()).Warn("mirror.save.failed")
	}
}

func (m *RedisMirror) Evict(ctx context.Context, keys ...domain.Key) {
	if len(keys) == 0 {
		return
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = m.redisKey(k)
	}
	if err := m.redis.Del(ctx, names...).Err(); err != nil {
		m.log.WithError(err).Warn("mirror.evict.failed")
	}
}

func (m *RedisMirror) redisKey(key domain.Key) string {
	return m.prefix + key.String()
}

func decodeValue(kind domain.Kind, data []byte) (domain.Value, error) {
	switch kind {
	case domain.KindBoards:
		return decodeAs[domain.Boards](data)
	case domain.KindBoard:
		return decodeAs[domain.Board](data)
	case domain.KindLists:
		return decodeAs[domain.Lists](data)
	case domain.KindCards:
		return decodeAs[domain.Cards](data)
	case domain.KindCard:
		return decodeAs[domain.Card](data)
	case domain.KindCustomFields:
		return decodeAs[domain.CustomFields](data)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

func decodeAs[T domain.Value](data []byte) (domain.Value, error) {
	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
