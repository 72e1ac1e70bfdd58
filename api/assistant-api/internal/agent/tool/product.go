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

// Live-call searches run tighter than the retrieval defaults: three products
// and two supporting documents are the most a spoken reply can carry.
const (
	productSearchLimit     = 3
	productDocumentLimit   = 2
	productScoreThreshold  = 0.6
	noProductDetailsNotice = "No additional product details available."
)

type productTool struct {
	logger   commons.Logger
	searcher internal_retrieval.Searcher
}

// NewProductTool answers catalog questions from the product index, with a
// second pass over the document index for manuals and policy pages that
// mention the product.
func NewProductTool(logger commons.Logger, searcher internal_retrieval.Searcher) ToolCaller {
	return &productTool{
		logger:   logger,
		searcher: searcher,
	}
}

func (t *productTool) Name() string {
	return internal_nlu.IntentProduct
}

func (t *productTool) Call(ctx context.Context, call *Call) (*Result, error) {
	query := t.searchQuery(call)

	products, err := t.searcher.SearchProducts(ctx, internal_retrieval.ProductQuery{
		Query:     query,
		Store:     call.Store,
		Limit:     productSearchLimit,
		Threshold: productScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("product tool: %w", err)
	}

	documents, err := t.searcher.SearchDocuments(ctx, internal_retrieval.DocumentQuery{
		Query:     query,
		Store:     call.Store,
		Limit:     productDocumentLimit,
		Threshold: productScoreThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("product tool: %w", err)
	}

	var b strings.Builder
	if len(products) == 0 {
		b.WriteString("No products matched the query.")
	} else {
		b.WriteString("Products found:\n")
		for i, hit := range products {
			fmt.Fprintf(&b, "\n%d. %s\n", i+1, strings.TrimSpace(hit.Text))
			var meta []string
			if hit.Vendor != "" {
				meta = append(meta, "Vendor: "+hit.Vendor)
			}
			if hit.ProductType != "" {
				meta = append(meta, "Type: "+hit.ProductType)
			}
			if len(hit.Tags) > 0 {
				meta = append(meta, "Tags: "+strings.Join(hit.Tags, ", "))
			}
			if len(meta) > 0 {
				b.WriteString(strings.Join(meta, "\n") + "\n")
			}
		}
	}

	b.WriteString("\n\nAdditional details:\n")
	if len(documents) == 0 {
		b.WriteString(noProductDetailsNotice)
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

// searchQuery builds the vector query from the extracted product fields,
// falling back to the raw utterance when extraction produced nothing.
func (t *productTool) searchQuery(call *Call) string {
	var params internal_nlu.ProductParams
	if err := call.Entities.Decode(&params); err != nil {
		t.logger.Warnf("product tool: entity decode failed: %v", err)
	}

	var terms []string
	if params.ProductName != "" {
		terms = append(terms, params.ProductName)
	}
	if params.ProductType != "" {
		terms = append(terms, params.ProductType)
	}
	if attributes := call.Entities.String("attributes"); attributes != "" {
		terms = append(terms, attributes)
	}

	query := strings.TrimSpace(strings.Join(terms, " "))
	if query == "" {
		return call.Query
	}
	return query
}
