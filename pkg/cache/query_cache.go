// Package cache keeps recently computed query embeddings in Redis so repeated
// questions skip the embedding service.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisQueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisQueryCache(rdb *redis.Client, ttl time.Duration) *RedisQueryCache {
	return &RedisQueryCache{rdb: rdb, ttl: ttl}
}

func (c *RedisQueryCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	vector, err := decodeVector(raw)
	if err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

func (c *RedisQueryCache) Set(ctx context.Context, key string, vector []float32) error {
	if err := c.rdb.Set(ctx, key, encodeVector(vector), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Vectors are stored as little-endian float32s, 4 bytes per component.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes, not a multiple of 4", len(raw))
	}
	vector := make([]float32, len(raw)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vector, nil
}
