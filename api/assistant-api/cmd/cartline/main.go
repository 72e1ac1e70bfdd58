// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

// The cartline binary runs and operates the assistant: API server, schema
// migrations, store profile management, knowledge ingestion and session
// exports. Configuration comes from the .env file or environment variables.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "cartline",
		Short:        "Cartline voice commerce assistant",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newStoreCommand())
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newSessionsCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads the application config and builds the service logger that
// every subcommand shares.
func bootstrap() (*config.AppConfig, commons.Logger, error) {
	v, err := config.InitConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}
