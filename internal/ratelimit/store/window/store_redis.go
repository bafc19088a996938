package window

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"formgate/pkg/platform/sentinel"
)

var storeLatencyMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "formgate_ratelimit_store_duration_ms",
	Help:    "Latency of rate limit store operations in milliseconds",
	Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
}, []string{"op"})

// RedisStore implements ports.WindowStore on a shared Redis instance. Each key
// holds a JSON array of Unix millisecond timestamps and expires with the
// window, so idle clients clean themselves up.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]time.Time, error) {
	defer observe("get", time.Now())

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit window: %w: %w", sentinel.ErrUnavailable, err)
	}

	var millis []int64
	if err := json.Unmarshal(raw, &millis); err != nil {
		return nil, fmt.Errorf("decode rate limit window: %w: %w", sentinel.ErrMalformed, err)
	}
	out := make([]time.Time, 0, len(millis))
	for _, ms := range millis {
		out = append(out, time.UnixMilli(ms))
	}
	return out, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, timestamps []time.Time, ttl time.Duration) error {
	defer observe("put", time.Now())

	millis := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		millis = append(millis, ts.UnixMilli())
	}
	raw, err := json.Marshal(millis)
	if err != nil {
		return fmt.Errorf("encode rate limit window: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put rate limit window: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func observe(op string, start time.Time) {
	storeLatencyMs.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
