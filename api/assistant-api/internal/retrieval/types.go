// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_retrieval

import "errors"

const (
	// DocumentIndex holds scraped pages, uploaded documents and store detail
	// blurbs; ProductIndex holds one chunk per product.
	DocumentIndex = "cartline-documents"
	ProductIndex  = "cartline-products"

	// EmbeddingDimensions matches the openai embedding model the indices are
	// built with. Changing the model means reindexing.
	EmbeddingDimensions = 1536

	// TypeShopifyProduct tags product chunks; every product search filters
	// on it.
	TypeShopifyProduct = "shopify_product"

	// Document chunk types.
	TypeWebScrape    = "web_scrape"
	TypePdfDocument  = "pdf_document"
	TypeStoreDetails = "store_details"

	DefaultLimit     = 5
	DefaultThreshold = 0.7
)

// ErrNotFound is returned by Lookup when a store has no detail chunks.
var ErrNotFound = errors.New("no store details found")

// Chunk is one indexed passage. Document chunks fill Source; product chunks
// fill the product fields. Embeddings are computed by the ingestion pipeline
// before indexing.
type Chunk struct {
	ID           string    `json:"-"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"embedding"`
	Store        string    `json:"store"`
	Type         string    `json:"type"`
	Source       string    `json:"source,omitempty"`
	Title        string    `json:"title,omitempty"`
	ProductID    int64     `json:"product_id,omitempty"`
	Vendor       string    `json:"vendor,omitempty"`
	ProductType  string    `json:"product_type,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	StoreDetails string    `json:"store_details,omitempty"`
}

// DocumentQuery narrows a document search. Zero Limit and Threshold fall back
// to the defaults; live-call paths pass tighter values explicitly.
type DocumentQuery struct {
	Query     string
	Store     string
	DocType   string
	Source    string
	Limit     int
	Threshold float64
}

// ProductQuery narrows a product search. The shopify_product type filter is
// always applied on top of these.
type ProductQuery struct {
	Query       string
	Store       string
	ProductType string
	Vendor      string
	Tags        []string
	Limit       int
	Threshold   float64
}

// DocumentHit is one scored document match. Score is cosine similarity in
// [0,1] after undoing the engine's score transform.
type DocumentHit struct {
	ID     string  `json:"id"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
	Type   string  `json:"type"`
	Source string  `json:"source"`
	Store  string  `json:"store"`
}

// ProductHit is one scored product match.
type ProductHit struct {
	ID          string   `json:"id"`
	Score       float64  `json:"score"`
	Title       string   `json:"title"`
	ProductID   int64    `json:"productId"`
	Vendor      string   `json:"vendor"`
	ProductType string   `json:"productType"`
	Tags        []string `json:"tags"`
	Store       string   `json:"store"`
	Text        string   `json:"text"`
}

// CombinedResults groups the two partitions of a SearchAll.
type CombinedResults struct {
	Documents []DocumentHit `json:"documents"`
	Products  []ProductHit  `json:"products"`
}

// StoreDetails is the metadata Lookup resolves for a store.
type StoreDetails struct {
	Store   string `json:"store"`
	Details string `json:"details"`
	Source  string `json:"source"`
}

// ScoreToCosine undoes the cosinesimil k-NN score transform. The engine
// reports 1/(2-cos); thresholds in this package are plain cosine similarity.
func ScoreToCosine(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return 2 - 1/score
}

func (q DocumentQuery) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

func (q DocumentQuery) threshold() float64 {
	if q.Threshold > 0 {
		return q.Threshold
	}
	return DefaultThreshold
}

func (q ProductQuery) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

func (q ProductQuery) threshold() float64 {
	if q.Threshold > 0 {
		return q.Threshold
	}
	return DefaultThreshold
}
