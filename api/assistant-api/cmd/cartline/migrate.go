// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"github.com/cartlineai/api/assistant-api/migrations"
	"github.com/cartlineai/config"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the relational schema",
	}
	cmd.AddCommand(newMigrateUpCommand())
	cmd.AddCommand(newMigrateDownCommand())
	cmd.AddCommand(newMigrateVersionCommand())
	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			if err := m.Up(); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					fmt.Println("schema already up to date")
					return nil
				}
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newMigrateDownCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			var migrateErr error
			if all {
				migrateErr = m.Down()
			} else {
				migrateErr = m.Steps(-1)
			}
			if migrateErr != nil {
				if errors.Is(migrateErr, migrate.ErrNoChange) {
					fmt.Println("nothing to roll back")
					return nil
				}
				return fmt.Errorf("failed to roll back: %w", migrateErr)
			}
			fmt.Println("rolled back")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration")
	return cmd
}

func newMigrateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openMigrator()
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			version, dirty, err := m.Version()
			if err != nil {
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				return fmt.Errorf("failed to read schema version: %w", err)
			}
			if dirty {
				fmt.Printf("version %d (dirty)\n", version)
				return nil
			}
			fmt.Printf("version %d\n", version)
			return nil
		},
	}
}

// openMigrator wires the embedded SQL against the configured database.
// Migrations target postgres; sqlite development runs build their schema
// through the server's auto-migration instead.
func openMigrator() (*migrate.Migrate, error) {
	v, err := config.InitConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.PostgresConfig.Driver == "sqlite" {
		return nil, errors.New("migrations target postgres, set POSTGRES__DRIVER=postgres")
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.PostgresConfig.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to open migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", sourceErr)
	}
	if dbErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", dbErr)
	}
}
