// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package connectors

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/configs"
)

type RedisConnector interface {
	Client() *redis.Client
	Ping(ctx context.Context) error
	Close() error
}

type redisConnector struct {
	cfg    *configs.RedisConfig
	logger commons.Logger
	client *redis.Client
}

func NewRedisConnector(cfg *configs.RedisConfig, logger commons.Logger) (RedisConnector, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.Db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.Addr(), err)
	}

	logger.Infof("redis connected: addr=%s db=%d", cfg.Addr(), cfg.Db)
	return &redisConnector{cfg: cfg, logger: logger, client: client}, nil
}

func (c *redisConnector) Client() *redis.Client { return c.client }

func (c *redisConnector) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisConnector) Close() error {
	return c.client.Close()
}
