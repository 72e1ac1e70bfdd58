// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

func newStoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage store profiles",
	}
	cmd.AddCommand(newStoreAddCommand())
	cmd.AddCommand(newStoreGetCommand())
	cmd.AddCommand(newStoreLsCommand())
	cmd.AddCommand(newStoreRmCommand())
	cmd.AddCommand(newStoreVerifyCommand())
	return cmd
}

func openProfileStore() (internal_storefront.Store, commons.Logger, func(), error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, nil, err
	}
	redis, err := connectors.NewRedisConnector(&cfg.RedisConfig, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	cleanup := func() {
		redis.Close()
		logger.Sync()
	}
	return internal_storefront.NewStore(redis, logger), logger, cleanup, nil
}

func newStoreAddCommand() *cobra.Command {
	profile := internal_storefront.Profile{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update a store profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, cleanup, err := openProfileStore()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.Put(ctx, &profile); err != nil {
				return fmt.Errorf("failed to save store profile: %w", err)
			}
			fmt.Printf("saved store %q for %s\n", profile.StoreName, profile.Phone)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile.Phone, "phone", "", "inbound phone number in E.164 form")
	cmd.Flags().StringVar(&profile.StoreName, "name", "", "store display name")
	cmd.Flags().StringVar(&profile.StoreDetails, "details", "", "store details the assistant can answer from")
	cmd.Flags().StringVar(&profile.ShopifyAccessToken, "shopify-token", "", "Shopify admin API access token")
	cmd.Flags().StringVar(&profile.ShopifyBaseUrl, "shopify-domain", "", "myshopify domain, e.g. maple-thread.myshopify.com")
	cmd.Flags().StringVar(&profile.TransferNumber, "transfer-number", "", "human fallback number for escalations")
	cmd.MarkFlagRequired("phone")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newStoreGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <phone>",
		Short: "Show one store profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, cleanup, err := openProfileStore()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			profile, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Phone:\t%s\n", profile.Phone)
			fmt.Fprintf(w, "Name:\t%s\n", profile.StoreName)
			fmt.Fprintf(w, "Details:\t%s\n", profile.StoreDetails)
			fmt.Fprintf(w, "Shopify domain:\t%s\n", profile.ShopifyBaseUrl)
			fmt.Fprintf(w, "Shopify token:\t%s\n", maskToken(profile.ShopifyAccessToken))
			fmt.Fprintf(w, "Transfer number:\t%s\n", profile.TransferNumber)
			return w.Flush()
		},
	}
}

func newStoreLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List store profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, cleanup, err := openProfileStore()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			profiles, err := store.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list store profiles: %w", err)
			}
			if len(profiles) == 0 {
				fmt.Println("no stores configured")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PHONE\tNAME\tSHOPIFY DOMAIN\tTRANSFER")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Phone, p.StoreName, p.ShopifyBaseUrl, p.TransferNumber)
			}
			return w.Flush()
		},
	}
}

func newStoreRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <phone>",
		Short: "Remove a store profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, cleanup, err := openProfileStore()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("removed store profile %s\n", args[0])
			fmt.Println("indexed knowledge is kept; purge it with DELETE /v1/knowledge/stores/{name}")
			return nil
		},
	}
}

func newStoreVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <phone>",
		Short: "Check the store's Shopify credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, logger, cleanup, err := openProfileStore()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			profile, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if profile.ShopifyAccessToken == "" || profile.ShopifyBaseUrl == "" {
				return errors.New("store has no Shopify credentials configured")
			}

			client := internal_commerce.NewShopifyClient(logger,
				internal_commerce.AdminBaseUrl(profile.ShopifyBaseUrl), profile.ShopifyAccessToken)
			shop, err := client.Shop(ctx)
			if err != nil {
				return fmt.Errorf("credential check failed: %w", err)
			}
			fmt.Printf("ok: %s (%s), currency %s\n", shop.Name, shop.MyshopifyDomain, shop.Currency)
			return nil
		},
	}
}

// maskToken keeps enough of the token to recognize it without exposing it.
func maskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
