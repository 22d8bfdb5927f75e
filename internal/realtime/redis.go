package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pelusa-v/bearboo-letters/internal/refs"
)

const redisPrefix = "rt:"

// RedisBackend stores each collection as one hash: rt:{collection} -> key -> JSON.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to redisURL and checks the connection.
func NewRedisBackend(ctx context.Context, redisURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisBackend{client: client}, nil
}

// collectionKey returns the hash key holding a collection.
func collectionKey(collection string) string {
	return redisPrefix + collection
}

func (r *RedisBackend) Get(ctx context.Context, path string) (Value, bool, error) {
	c, k := refs.Split(path)
	s, err := r.client.HGet(ctx, collectionKey(c), k).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := decode([]byte(s))
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, path string, v Value) error {
	c, k := refs.Split(path)
	b, err := jsonBytes(v)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, collectionKey(c), k, string(b)).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, path string) error {
	c, k := refs.Split(path)
	return r.client.HDel(ctx, collectionKey(c), k).Err()
}

func (r *RedisBackend) List(ctx context.Context, collection string) ([]Entry, error) {
	all, err := r.client.HGetAll(ctx, collectionKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(all))
	for k, s := range all {
		v, err := decode([]byte(s))
		if err != nil {
			continue
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	sortEntries(out)
	return out, nil
}

func (r *RedisBackend) Collections(ctx context.Context, suffix string) ([]string, error) {
	var out []string
	iter := r.client.Scan(ctx, 0, redisPrefix+"*"+suffix, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), redisPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func jsonBytes(v Value) ([]byte, error) {
	if v == nil {
		v = Value{}
	}
	return json.Marshal(v)
}
