// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package knowledge_api

import (
	internal_agent_embedding "github.com/cartlineai/api/assistant-api/internal/agent/embedding"
	internal_ingestion "github.com/cartlineai/api/assistant-api/internal/ingestion"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// KnowledgeApi is the ops/dashboard surface over the vector store: search
// across both partitions, ingestion triggers and store purges. Search and
// purge address stores by the store name chunks are tagged with; ingestion
// addresses them by profile key (the inbound phone number) because it needs
// the store's commerce credentials.
type KnowledgeApi struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	retriever internal_retrieval.Retriever
	ingestor  internal_ingestion.Ingestor
}

func NewKnowledgeApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	redis connectors.RedisConnector,
	opensearch connectors.OpenSearchConnector,
) *KnowledgeApi {
	llm := llm_client.NewChatClient(cfg, logger)
	embedder := internal_agent_embedding.NewEmbedder(cfg, logger, llm)
	retriever := internal_retrieval.NewRetriever(opensearch, embedder, logger)
	profiles := internal_storefront.NewStore(redis, logger)

	return &KnowledgeApi{
		cfg:       cfg,
		logger:    logger,
		retriever: retriever,
		ingestor:  internal_ingestion.NewIngestor(logger, profiles, embedder, retriever),
	}
}
