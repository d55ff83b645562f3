package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwdask/fwdask/flow"
	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisKey = "fwdask"
)

type redisOptions struct {
	db       int
	username string
	password string
	key      string
}

type RedisOption func(opts *redisOptions)

func DBRedisOption(db int) RedisOption {
	return func(opts *redisOptions) {
		opts.db = db
	}
}

func UsernameRedisOption(username string) RedisOption {
	return func(opts *redisOptions) {
		opts.username = username
	}
}

func PasswordRedisOption(password string) RedisOption {
	return func(opts *redisOptions) {
		opts.password = password
	}
}

func KeyRedisOption(key string) RedisOption {
	return func(opts *redisOptions) {
		opts.key = key
	}
}

// redisStore keeps every flow as a JSON document appended to three lists:
// <key>:flows, <key>:src:<addr> and <key>:dst:<addr>.
type redisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(addr string, opts ...RedisOption) Store {
	var options redisOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	key := options.key
	if key == "" {
		key = DefaultRedisKey
	}

	return &redisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: options.username,
			Password: options.password,
			DB:       options.db,
		}),
		key: key,
	}
}

func (s *redisStore) Insert(ctx context.Context, f *flow.Flow) error {
	v, err := json.Marshal(f)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.key+":flows", v)
		pipe.RPush(ctx, s.sourceKey(f.NetSource), v)
		pipe.RPush(ctx, s.destinationKey(f.NetDestination), v)
		return nil
	})
	return err
}

func (s *redisStore) FindBySource(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return s.find(ctx, s.sourceKey(addr))
}

func (s *redisStore) FindByDestination(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return s.find(ctx, s.destinationKey(addr))
}

func (s *redisStore) find(ctx context.Context, key string) ([]*flow.Flow, error) {
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	flows := make([]*flow.Flow, 0, len(values))
	for _, v := range values {
		f := &flow.Flow{}
		if err := json.Unmarshal([]byte(v), f); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStoreRead, key, err)
		}
		flows = append(flows, f)
	}
	return flows, nil
}

func (s *redisStore) sourceKey(addr string) string {
	return s.key + ":src:" + addr
}

func (s *redisStore) destinationKey(addr string) string {
	return s.key + ":dst:" + addr
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
