package recorder

import (
	"context"
	"time"

	"github.com/fwdask/fwdask/metrics"
	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisKey = "fwdask:decisions"
)

type redisRecorderOptions struct {
	recorder string
	db       int
	username string
	password string
	key      string
	maxLen   int64
}

type RedisRecorderOption func(opts *redisRecorderOptions)

func RecorderRedisRecorderOption(recorder string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.recorder = recorder
	}
}

func DBRedisRecorderOption(db int) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.db = db
	}
}

func UsernameRedisRecorderOption(username string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.username = username
	}
}

func PasswordRedisRecorderOption(password string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.password = password
	}
}

func KeyRedisRecorderOption(key string) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.key = key
	}
}

// MaxLenRedisRecorderOption keeps only the newest n records under the key. Zero keeps all.
func MaxLenRedisRecorderOption(n int64) RedisRecorderOption {
	return func(opts *redisRecorderOptions) {
		opts.maxLen = n
	}
}

// redisRecorder pushes and trims in one pipeline. The add and trim
// functions pick the Redis type.
type redisRecorder struct {
	client *redis.Client
	key    string
	maxLen int64
	labels metrics.Labels
	add    func(ctx context.Context, p redis.Pipeliner, key string, b []byte)
	trim   func(ctx context.Context, p redis.Pipeliner, key string, n int64)
}

func newRedisRecorder(addr string, opts []RedisRecorderOption) *redisRecorder {
	options := redisRecorderOptions{
		key: DefaultRedisKey,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &redisRecorder{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: options.username,
			Password: options.password,
			DB:       options.db,
		}),
		key:    options.key,
		maxLen: options.maxLen,
		labels: metrics.Labels{"recorder": options.recorder},
	}
}

// RedisListRecorder appends records to a redis list, oldest first.
func RedisListRecorder(addr string, opts ...RedisRecorderOption) Recorder {
	r := newRedisRecorder(addr, opts)
	r.add = func(ctx context.Context, p redis.Pipeliner, key string, b []byte) {
		p.RPush(ctx, key, b)
	}
	r.trim = func(ctx context.Context, p redis.Pipeliner, key string, n int64) {
		p.LTrim(ctx, key, -n, -1)
	}
	return r
}

// RedisSortedSetRecorder adds records to a redis sorted set scored by
// record time in unix milliseconds, so a time range maps to ZRANGEBYSCORE.
func RedisSortedSetRecorder(addr string, opts ...RedisRecorderOption) Recorder {
	r := newRedisRecorder(addr, opts)
	r.add = func(ctx context.Context, p redis.Pipeliner, key string, b []byte) {
		p.ZAdd(ctx, key, &redis.Z{
			Score:  float64(time.Now().UnixMilli()),
			Member: b,
		})
	}
	r.trim = func(ctx context.Context, p redis.Pipeliner, key string, n int64) {
		p.ZRemRangeByRank(ctx, key, 0, -n-1)
	}
	return r
}

func (r *redisRecorder) Record(ctx context.Context, b []byte) error {
	if r.key == "" {
		return nil
	}
	metrics.GetCounter(metrics.MetricRecorderRecordsCounter, r.labels).Inc()

	_, err := r.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		r.add(ctx, p, r.key, b)
		if r.maxLen > 0 {
			r.trim(ctx, p, r.key, r.maxLen)
		}
		return nil
	})
	return err
}

func (r *redisRecorder) Close() error {
	return r.client.Close()
}
