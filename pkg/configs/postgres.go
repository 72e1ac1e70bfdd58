// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package configs

import "fmt"

type PostgresAuthConfig struct {
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
}

// PostgresConfig drives the relational connector. Driver stays "postgres" in
// every deployed environment; "sqlite" exists for local single-binary runs
// where DbName becomes the database file path.
type PostgresConfig struct {
	Driver             string             `mapstructure:"driver"`
	Host               string             `mapstructure:"host" validate:"required"`
	Port               int                `mapstructure:"port" validate:"required"`
	DbName             string             `mapstructure:"db_name" validate:"required"`
	Auth               PostgresAuthConfig `mapstructure:"auth"`
	MaxOpenConnection  int                `mapstructure:"max_open_connection"`
	MaxIdealConnection int                `mapstructure:"max_ideal_connection"`
	SslMode            string             `mapstructure:"ssl_mode"`

	// CacheTTLSeconds enables the query cache when > 0.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Auth.User, c.Auth.Password, c.DbName, c.SslMode)
}

// URL renders the migration-tool connection string.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Auth.User, c.Auth.Password, c.Host, c.Port, c.DbName, c.SslMode)
}
