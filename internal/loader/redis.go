package loader

import (
	"context"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisKey = "fwdask:patterns"
)

type redisLoaderOptions struct {
	db       int
	username string
	password string
	key      string
}

type RedisLoaderOption func(opts *redisLoaderOptions)

func DBRedisLoaderOption(db int) RedisLoaderOption {
	return func(opts *redisLoaderOptions) {
		opts.db = db
	}
}

func UsernameRedisLoaderOption(username string) RedisLoaderOption {
	return func(opts *redisLoaderOptions) {
		opts.username = username
	}
}

func PasswordRedisLoaderOption(password string) RedisLoaderOption {
	return func(opts *redisLoaderOptions) {
		opts.password = password
	}
}

func KeyRedisLoaderOption(key string) RedisLoaderOption {
	return func(opts *redisLoaderOptions) {
		if key != "" {
			opts.key = key
		}
	}
}

// redisValue is the Redis type holding the patterns.
type redisValue int

const (
	redisSet redisValue = iota
	redisList
	redisString
)

type redisLoader struct {
	client *redis.Client
	key    string
	value  redisValue
}

// RedisSetLoader reads the members of a set, one pattern each.
func RedisSetLoader(addr string, opts ...RedisLoaderOption) Loader {
	return newRedisLoader(addr, redisSet, opts)
}

// RedisListLoader reads the elements of a list, one pattern each.
func RedisListLoader(addr string, opts ...RedisLoaderOption) Loader {
	return newRedisLoader(addr, redisList, opts)
}

// RedisStringLoader reads a string value holding one pattern per line.
func RedisStringLoader(addr string, opts ...RedisLoaderOption) Loader {
	return newRedisLoader(addr, redisString, opts)
}

func newRedisLoader(addr string, value redisValue, opts []RedisLoaderOption) *redisLoader {
	options := redisLoaderOptions{
		key: DefaultRedisKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return &redisLoader{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: options.username,
			Password: options.password,
			DB:       options.db,
		}),
		key:   options.key,
		value: value,
	}
}

// Patterns treats a missing key as an empty list.
func (l *redisLoader) Patterns(ctx context.Context) ([]string, error) {
	var items []string
	var err error

	switch l.value {
	case redisString:
		var s string
		s, err = l.client.Get(ctx, l.key).Result()
		if err == nil {
			return scanPatterns(strings.NewReader(s))
		}
	case redisList:
		items, err = l.client.LRange(ctx, l.key, 0, -1).Result()
	default:
		items, err = l.client.SMembers(ctx, l.key).Result()
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cleanPatterns(items), nil
}

func (l *redisLoader) Close() error {
	return l.client.Close()
}
