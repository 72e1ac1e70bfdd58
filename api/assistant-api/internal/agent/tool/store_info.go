// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent_tool

import (
	"context"
	"fmt"
	"strings"

	internal_nlu "github.com/cartlineai/api/assistant-api/internal/nlu"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	"github.com/cartlineai/pkg/commons"
)

const (
	storeInfoSearchLimit    = 3
	storeInfoScoreThreshold = 0.6

	// storeInfoFallbackQuery stands in when the caller asks about the store
	// without naming anything specific.
	storeInfoFallbackQuery = "store information"
)

type storeInfoTool struct {
	logger   commons.Logger
	searcher internal_retrieval.Searcher
}

// NewStoreInfoTool answers hours, policy and location questions from the
// document index, prefixed with the general store blurb from the profile.
func NewStoreInfoTool(logger commons.Logger, searcher internal_retrieval.Searcher) ToolCaller {
	return &storeInfoTool{
		logger:   logger,
		searcher: searcher,
	}
}

func (t *storeInfoTool) Name() string {
	return internal_nlu.IntentStoreInfo
}

func (t *storeInfoTool) Call(ctx context.Context, call *Call) (*Result, error) {
	query := strings.TrimSpace(call.Entities.String("topic"))
	if query == "" {
		query = strings.TrimSpace(call.Query)
	}
	if query == "" {
		query = storeInfoFallbackQuery
	}

	documents, err := t.searcher.SearchDocuments(ctx, internal_retrieval.DocumentQuery{
		Query:     query,
		Store:     call.Store,
		Limit:     storeInfoSearchLimit,
		Threshold: storeInfoScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("store info tool: %w", err)
	}

	var b strings.Builder
	if call.StoreName != "" {
		fmt.Fprintf(&b, "Store: %s\n", call.StoreName)
	}
	b.WriteString("General information:\n")
	if call.StoreDetails != "" {
		b.WriteString(call.StoreDetails)
	} else {
		b.WriteString("No general store information available.")
	}

	b.WriteString("\n\nRelevant information:\n")
	if len(documents) == 0 {
		b.WriteString("No specific information found for your query.")
	} else {
		for i, hit := range documents {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(strings.TrimSpace(hit.Text))
		}
	}

	return &Result{Content: b.String()}, nil
}
