// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gorm/caches/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/configs"
)

// PostgresConnector owns the gorm handle for the relational store.
// DB returns a session bound to the caller's context so cancellation
// propagates into queries.
type PostgresConnector interface {
	DB(ctx context.Context) *gorm.DB
	Ping(ctx context.Context) error
	Close() error
}

type postgresConnector struct {
	cfg    *configs.PostgresConfig
	logger commons.Logger
	db     *gorm.DB
}

type PostgresOption func(*postgresConnector) error

// WithQueryCache plugs the gorm query cache in, backed by the given Redis
// connector. Read-mostly tables (call sessions listed by dashboards) benefit;
// writes invalidate through the plugin.
func WithQueryCache(redis RedisConnector, ttl time.Duration) PostgresOption {
	return func(c *postgresConnector) error {
		cachesPlugin := &caches.Caches{Conf: &caches.Config{
			Cacher: &redisCacher{client: redis.Client(), ttl: ttl},
		}}
		if err := c.db.Use(cachesPlugin); err != nil {
			return fmt.Errorf("failed to enable query cache: %w", err)
		}
		c.logger.Infof("postgres query cache enabled, ttl=%s", ttl)
		return nil
	}
}

// NewPostgresConnector opens the relational database per config and applies
// connection-pool limits. The sqlite driver is selected when cfg.Driver says
// so; everything else falls through to postgres.
func NewPostgresConnector(cfg *configs.PostgresConfig, logger commons.Logger, opts ...PostgresOption) (PostgresConnector, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.DbName), gormCfg)
	default:
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConnection > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConnection)
	}
	if cfg.MaxIdealConnection > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdealConnection)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	connector := &postgresConnector{cfg: cfg, logger: logger, db: db}
	for _, opt := range opts {
		if err := opt(connector); err != nil {
			return nil, err
		}
	}

	logger.Infof("postgres connected: host=%s db=%s driver=%s", cfg.Host, cfg.DbName, cfg.Driver)
	return connector, nil
}

func (c *postgresConnector) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx)
}

func (c *postgresConnector) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (c *postgresConnector) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	return sqlDB.Close()
}
