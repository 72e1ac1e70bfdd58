// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/utils"
)

// Embedder turns text into the float32 vectors the retrieval index stores.
// EmbedQuery serves the live search path; EmbedBatch serves ingestion.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type llmEmbedder struct {
	cfg    *config.AppConfig
	logger commons.Logger
	llm    llm_client.ChatClient
}

// NewEmbedder builds the embedding client on the shared model gateway. The
// model comes from assistant config; its dimension must match the index
// mapping, so changing it means reindexing.
func NewEmbedder(cfg *config.AppConfig, logger commons.Logger, llm llm_client.ChatClient) Embedder {
	return &llmEmbedder{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
	}
}

func (e *llmEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *llmEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	started := time.Now()
	defer func() {
		e.logger.Benchmark("embedding.EmbedBatch", time.Since(started))
	}()

	request := &llm_client.EmbeddingRequest{
		Model:  e.cfg.AssistantConfig.EmbeddingModel,
		Inputs: texts,
	}

	var response *llm_client.EmbeddingResponse
	operation := func() error {
		var opErr error
		response, opErr = e.llm.Embedding(ctx, request)
		return opErr
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("embedding %d texts failed: %w", len(texts), err)
	}

	vectors := make([][]float32, len(response.Embeddings))
	for i, embedding := range response.Embeddings {
		vectors[i] = utils.Float64sToFloat32s(embedding)
	}
	return vectors, nil
}
