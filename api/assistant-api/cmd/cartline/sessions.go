// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	"github.com/cartlineai/pkg/connectors"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Work with recorded call sessions",
	}
	cmd.AddCommand(newSessionsExportCommand())
	return cmd
}

func newSessionsExportCommand() *cobra.Command {
	var storeID, from, to, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write call sessions to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()

			filter := internal_callsession.ListFilter{StoreID: storeID, Limit: 200}
			if filter.From, err = parseExportTime(from, false); err != nil {
				return err
			}
			if filter.To, err = parseExportTime(to, true); err != nil {
				return err
			}

			postgres, err := connectors.NewPostgresConnector(&cfg.PostgresConfig, logger)
			if err != nil {
				return fmt.Errorf("failed to connect postgres: %w", err)
			}
			defer postgres.Close()
			store := internal_callsession.NewStore(postgres, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			var sessions []internal_callsession.CallSession
			for {
				page, total, err := store.List(ctx, filter)
				if err != nil {
					return fmt.Errorf("failed to list sessions: %w", err)
				}
				sessions = append(sessions, page...)
				if len(page) < filter.Limit || int64(len(sessions)) >= total {
					break
				}
				filter.Offset += len(page)
			}

			f, err := internal_callsession.Workbook(sessions)
			if err != nil {
				return fmt.Errorf("failed to build workbook: %w", err)
			}
			defer f.Close()

			if out == "" {
				out = fmt.Sprintf("cartline-sessions-%s.xlsx", time.Now().Format("2006-01-02"))
			}
			if err := f.SaveAs(out); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("wrote %d sessions to %s\n", len(sessions), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "store phone number")
	cmd.Flags().StringVar(&from, "from", "", "start of range, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "end of range, RFC3339 or YYYY-MM-DD")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default cartline-sessions-<date>.xlsx)")
	return cmd
}

// parseExportTime mirrors the conversation API's time parsing: RFC3339 or a
// bare date, where a bare date upper bound covers that whole day.
func parseExportTime(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable time %q, want RFC3339 or YYYY-MM-DD", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}
