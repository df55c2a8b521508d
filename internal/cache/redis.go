package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Redis is a persistent tier backed by a Redis instance, for deployments
// without durable local disk. Values carry their write time in a small JSON
// envelope since Redis has no mtime. Keys expire after maxAge to keep the
// keyspace bounded independently of read TTLs.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	maxAge time.Duration
}

type redisEnvelope struct {
	Data      json.RawMessage `json:"data"`
	WrittenAt int64           `json:"written_at"` // epoch millis
}

func NewRedis(rdb *goredis.Client, prefix string, maxAge time.Duration) *Redis {
	if prefix == "" {
		prefix = "quotefeed:"
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Redis{rdb: rdb, prefix: prefix, maxAge: maxAge}
}

func (r *Redis) Read(key string) ([]byte, time.Time, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, err
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, time.Time{}, err
	}
	return env.Data, time.UnixMilli(env.WrittenAt), nil
}

func (r *Redis) Write(key string, data []byte) error {
	env, err := json.Marshal(redisEnvelope{Data: data, WrittenAt: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.rdb.Set(ctx, r.prefix+key, env, r.maxAge).Err()
}
