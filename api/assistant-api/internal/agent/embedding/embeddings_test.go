// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-embedding"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		AssistantConfig: config.AssistantConfig{
			Provider:       "openai",
			EmbeddingModel: "text-embedding-ada-002",
		},
	}
}

type fakeChatClient struct {
	embeddings [][]float64
	err        error
	requests   []*llm_client.EmbeddingRequest
}

func (f *fakeChatClient) Chat(ctx context.Context, providerName string, request *llm_client.ChatRequest) (*llm_client.ChatResponse, error) {
	return &llm_client.ChatResponse{}, nil
}

func (f *fakeChatClient) Embedding(ctx context.Context, request *llm_client.EmbeddingRequest) (*llm_client.EmbeddingResponse, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return nil, f.err
	}
	return &llm_client.EmbeddingResponse{Embeddings: f.embeddings}, nil
}

func TestEmbedBatchConvertsVectors(t *testing.T) {
	fake := &fakeChatClient{embeddings: [][]float64{{0.1, 0.2}, {0.3, 0.4}}}
	embedder := NewEmbedder(testConfig(), newTestLogger(t), fake)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"red shoes", "blue hat"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])

	require.Len(t, fake.requests, 1)
	assert.Equal(t, "text-embedding-ada-002", fake.requests[0].Model)
	assert.Equal(t, []string{"red shoes", "blue hat"}, fake.requests[0].Inputs)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	fake := &fakeChatClient{}
	embedder := NewEmbedder(testConfig(), newTestLogger(t), fake)

	vectors, err := embedder.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Empty(t, fake.requests)
}

func TestEmbedQueryReturnsSingleVector(t *testing.T) {
	fake := &fakeChatClient{embeddings: [][]float64{{0.5, 0.6, 0.7}}}
	embedder := NewEmbedder(testConfig(), newTestLogger(t), fake)

	vector, err := embedder.EmbedQuery(context.Background(), "store hours")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.6, 0.7}, vector)
}

func TestEmbedBatchRetriesOnFailure(t *testing.T) {
	fake := &fakeChatClient{err: errors.New("rate limited")}
	embedder := NewEmbedder(testConfig(), newTestLogger(t), fake)

	_, err := embedder.EmbedBatch(context.Background(), []string{"anything"})
	assert.Error(t, err)
	// Initial attempt plus retries.
	assert.GreaterOrEqual(t, len(fake.requests), 2)
}
