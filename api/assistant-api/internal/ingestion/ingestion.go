// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_ingestion

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	internal_agent_embedding "github.com/cartlineai/api/assistant-api/internal/agent/embedding"
	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	"github.com/cartlineai/pkg/commons"
)

const (
	// Page chunk windows overlap so a sentence cut at a border is still
	// retrievable from either side.
	pageChunkSize    = 1000
	pageChunkOverlap = 200

	embedBatchSize = 64
)

// Ingestor fills the vector indices: product catalogs from the store's
// commerce backend, documents from fetched pages. Stores are addressed by
// their profile key (the inbound phone number).
type Ingestor interface {
	// IngestProducts pulls the store's full catalog and indexes one chunk
	// per product. Reruns overwrite: product ids are stable.
	IngestProducts(ctx context.Context, phone string) (int, error)

	// IngestPage fetches a URL, cleans it and indexes overlapping text
	// chunks attributed to the store.
	IngestPage(ctx context.Context, phone, pageUrl string) (int, error)
}

// commerceBuilder builds the per-store commerce client; swapped in tests.
type commerceBuilder func(profile *internal_storefront.Profile) internal_commerce.Client

type ingestor struct {
	logger   commons.Logger
	profiles internal_storefront.Store
	embedder internal_agent_embedding.Embedder
	indexer  internal_retrieval.Indexer
	http     *resty.Client
	commerce commerceBuilder
}

// NewIngestor creates the offline ingestion pipeline.
func NewIngestor(logger commons.Logger, profiles internal_storefront.Store, embedder internal_agent_embedding.Embedder, indexer internal_retrieval.Indexer) Ingestor {
	return &ingestor{
		logger:   logger,
		profiles: profiles,
		embedder: embedder,
		indexer:  indexer,
		http: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(time.Second).
			SetHeader("User-Agent", "cartline-ingest/1.0"),
		commerce: func(profile *internal_storefront.Profile) internal_commerce.Client {
			return internal_commerce.NewShopifyClient(logger, internal_commerce.AdminBaseUrl(profile.ShopifyBaseUrl), profile.ShopifyAccessToken)
		},
	}
}

func (ing *ingestor) IngestProducts(ctx context.Context, phone string) (int, error) {
	started := time.Now()
	defer func() {
		ing.logger.Benchmark("ingestion.IngestProducts", time.Since(started))
	}()

	profile, err := ing.profiles.Get(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve store profile: %w", err)
	}

	products, err := ing.commerce(profile).Products(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch products for %s: %w", profile.StoreName, err)
	}
	if len(products) == 0 {
		ing.logger.Warnf("store %s has no products to ingest", profile.StoreName)
		return 0, nil
	}

	chunks := make([]internal_retrieval.Chunk, 0, len(products))
	for i := range products {
		chunks = append(chunks, productChunk(profile.StoreName, &products[i]))
	}
	if err := ing.embed(ctx, chunks); err != nil {
		return 0, err
	}
	if err := ing.indexer.IndexChunks(ctx, internal_retrieval.ProductIndex, chunks); err != nil {
		return 0, err
	}

	ing.logger.Infof("ingested %d products for store %s", len(chunks), profile.StoreName)
	return len(chunks), nil
}

func (ing *ingestor) IngestPage(ctx context.Context, phone, pageUrl string) (int, error) {
	started := time.Now()
	defer func() {
		ing.logger.Benchmark("ingestion.IngestPage", time.Since(started))
	}()

	profile, err := ing.profiles.Get(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve store profile: %w", err)
	}

	resp, err := ing.http.R().SetContext(ctx).Get(pageUrl)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch %s: %w", pageUrl, err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("fetch %s returned %s", pageUrl, resp.Status())
	}

	cleaned := CleanText(string(resp.Body()))
	if cleaned == "" {
		ing.logger.Warnf("page %s cleaned down to nothing, skipping", pageUrl)
		return 0, nil
	}

	pieces := chunkText(cleaned, pageChunkSize, pageChunkOverlap)
	chunks := make([]internal_retrieval.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, internal_retrieval.Chunk{
			ID:     pageChunkID(pageUrl, i),
			Text:   piece,
			Store:  profile.StoreName,
			Type:   internal_retrieval.TypeWebScrape,
			Source: pageUrl,
		})
	}
	if err := ing.embed(ctx, chunks); err != nil {
		return 0, err
	}
	if err := ing.indexer.IndexChunks(ctx, internal_retrieval.DocumentIndex, chunks); err != nil {
		return 0, err
	}

	ing.logger.Infof("ingested %d chunks from %s for store %s", len(chunks), pageUrl, profile.StoreName)
	return len(chunks), nil
}

// embed fills every chunk's embedding in place, batched against the model's
// input limits.
func (ing *ingestor) embed(ctx context.Context, chunks []internal_retrieval.Chunk) error {
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, chunk := range chunks[start:end] {
			texts = append(texts, chunk.Text)
		}
		vectors, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed chunk batch: %w", err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding batch returned %d vectors for %d texts", len(vectors), len(texts))
		}
		for i, vector := range vectors {
			chunks[start+i].Embedding = vector
		}
	}
	return nil
}

// productChunk renders one product into its indexed form. The text shape
// feeds the product-search prompt context, so it stays stable.
func productChunk(store string, p *internal_commerce.Product) internal_retrieval.Chunk {
	price := p.Price()
	if price == "" {
		price = "N/A"
	}
	text := fmt.Sprintf("Product: %s\nDescription: %s\nPrice: %s", p.Title, CleanText(p.BodyHtml), price)

	return internal_retrieval.Chunk{
		// Shopify product ids come from a global sequence, so the doc id is
		// stable across stores and reruns.
		ID:          fmt.Sprintf("product-%d", p.Id),
		Text:        text,
		Store:       store,
		Type:        internal_retrieval.TypeShopifyProduct,
		Source:      p.Handle,
		Title:       p.Title,
		ProductID:   p.Id,
		Vendor:      p.Vendor,
		ProductType: p.ProductType,
		Tags:        splitTags(p.Tags),
	}
}

// pageChunkID keeps page reruns idempotent: re-fetching a URL overwrites its
// chunks instead of accumulating duplicates.
func pageChunkID(pageUrl string, index int) string {
	sum := sha256.Sum256([]byte(pageUrl))
	return fmt.Sprintf("page-%x-%d", sum[:8], index)
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
