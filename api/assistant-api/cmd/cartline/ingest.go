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

	internal_agent_embedding "github.com/cartlineai/api/assistant-api/internal/agent/embedding"
	internal_ingestion "github.com/cartlineai/api/assistant-api/internal/ingestion"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/connectors"
)

func newIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load store knowledge into the search indices",
	}
	cmd.AddCommand(newIngestProductsCommand())
	cmd.AddCommand(newIngestPageCommand())
	return cmd
}

// openIngestor builds the offline pipeline: Redis for profiles, OpenSearch
// for the indices, the embedding client for vectors.
func openIngestor() (internal_ingestion.Ingestor, internal_retrieval.Retriever, func(), error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, nil, err
	}
	redis, err := connectors.NewRedisConnector(&cfg.RedisConfig, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	opensearch, err := connectors.NewOpenSearchConnector(&cfg.OpenSearchConfig, logger)
	if err != nil {
		redis.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect opensearch: %w", err)
	}

	llm := llm_client.NewChatClient(cfg, logger)
	embedder := internal_agent_embedding.NewEmbedder(cfg, logger, llm)
	retriever := internal_retrieval.NewRetriever(opensearch, embedder, logger)
	profiles := internal_storefront.NewStore(redis, logger)
	ingestor := internal_ingestion.NewIngestor(logger, profiles, embedder, retriever)

	cleanup := func() {
		redis.Close()
		logger.Sync()
	}
	return ingestor, retriever, cleanup, nil
}

func newIngestProductsCommand() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Index the store's Shopify catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ingestor, retriever, cleanup, err := openIngestor()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := retriever.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to prepare search indices: %w", err)
			}
			count, err := ingestor.IngestProducts(ctx, phone)
			if err != nil {
				return fmt.Errorf("product ingestion failed: %w", err)
			}
			fmt.Printf("indexed %d product chunks for %s\n", count, phone)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "store", "", "store phone number")
	cmd.MarkFlagRequired("store")
	return cmd
}

func newIngestPageCommand() *cobra.Command {
	var phone, pageUrl string
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Scrape a web page into the store's documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ingestor, retriever, cleanup, err := openIngestor()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := retriever.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("failed to prepare search indices: %w", err)
			}
			count, err := ingestor.IngestPage(ctx, phone, pageUrl)
			if err != nil {
				return fmt.Errorf("page ingestion failed: %w", err)
			}
			fmt.Printf("indexed %d page chunks from %s\n", count, pageUrl)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "store", "", "store phone number")
	cmd.Flags().StringVar(&pageUrl, "url", "", "page to scrape")
	cmd.MarkFlagRequired("store")
	cmd.MarkFlagRequired("url")
	return cmd
}
