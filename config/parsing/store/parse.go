package store

import (
	"context"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/config/parsing"
	"github.com/fwdask/fwdask/store"
)

func ParseStore(ctx context.Context, cfg *config.StoreConfig) (store.Store, error) {
	if cfg == nil {
		return store.NewMemoryStore(), nil
	}

	if cfg.ClickHouse != nil && cfg.ClickHouse.Addr != "" {
		tlsCfg, err := parsing.BuildClientTLSConfig(cfg.ClickHouse.TLS)
		if err != nil {
			return nil, err
		}
		return store.NewClickHouseStore(ctx, store.ClickHouseConfig{
			Addr:        cfg.ClickHouse.Addr,
			Username:    cfg.ClickHouse.Username,
			Password:    cfg.ClickHouse.Password,
			Database:    cfg.ClickHouse.Database,
			Compress:    cfg.ClickHouse.Compress,
			TLSConfig:   tlsCfg,
			DialTimeout: cfg.ClickHouse.DialTimeout,
			CreateTable: cfg.ClickHouse.CreateTable,
		})
	}

	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		opts := []store.RedisOption{
			store.DBRedisOption(cfg.Redis.DB),
			store.UsernameRedisOption(cfg.Redis.Username),
			store.PasswordRedisOption(cfg.Redis.Password),
		}
		if cfg.Redis.Key != "" {
			opts = append(opts, store.KeyRedisOption(cfg.Redis.Key))
		}
		return store.NewRedisStore(cfg.Redis.Addr, opts...), nil
	}

	return store.NewMemoryStore(), nil
}
