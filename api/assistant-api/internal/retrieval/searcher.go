// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"golang.org/x/sync/errgroup"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// Embedder turns query text into the vector the indices are built with.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the vector store: filtered nearest-neighbor
// search over the document and product partitions plus the metadata lookups
// ops tooling needs.
type Searcher interface {
	SearchDocuments(ctx context.Context, query DocumentQuery) ([]DocumentHit, error)
	SearchProducts(ctx context.Context, query ProductQuery) ([]ProductHit, error)

	// SearchAll runs both partitions concurrently with the same query text
	// and store filter.
	SearchAll(ctx context.Context, query, store string, limit int, threshold float64) (*CombinedResults, error)

	// Lookup resolves a store's detail blurb: first an explicit store_details
	// chunk, otherwise a best-effort compilation from its most relevant
	// documents. Returns ErrNotFound when the store has no chunks at all.
	Lookup(ctx context.Context, store string) (*StoreDetails, error)

	// StoreNames aggregates the distinct store identifiers present across
	// both indices.
	StoreNames(ctx context.Context) ([]string, error)
}

// Indexer is the write side of the vector store.
type Indexer interface {
	// EnsureIndexes creates both indices with the k-NN mapping when missing.
	// Safe to call on every startup.
	EnsureIndexes(ctx context.Context) error

	// IndexChunks bulk writes chunks into the index. Chunks must carry their
	// embeddings already.
	IndexChunks(ctx context.Context, index string, chunks []Chunk) error

	// DeleteStore removes every chunk belonging to a store from both indices.
	DeleteStore(ctx context.Context, store string) (int64, error)
}

// Retriever is the full vector store surface.
type Retriever interface {
	Searcher
	Indexer
}

type openSearchRetriever struct {
	opensearch connectors.OpenSearchConnector
	embedder   Embedder
	logger     commons.Logger
}

// NewRetriever builds the OpenSearch-backed retriever.
func NewRetriever(opensearch connectors.OpenSearchConnector, embedder Embedder, logger commons.Logger) Retriever {
	return &openSearchRetriever{
		opensearch: opensearch,
		embedder:   embedder,
		logger:     logger,
	}
}

// chunkSource mirrors the indexed fields minus the embedding.
type chunkSource struct {
	Text         string   `json:"text"`
	Store        string   `json:"store"`
	Type         string   `json:"type"`
	Source       string   `json:"source"`
	Title        string   `json:"title"`
	ProductID    int64    `json:"product_id"`
	Vendor       string   `json:"vendor"`
	ProductType  string   `json:"product_type"`
	Tags         []string `json:"tags"`
	StoreDetails string   `json:"store_details"`
}

type searchHit struct {
	ID     string      `json:"_id"`
	Score  float64     `json:"_score"`
	Source chunkSource `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Stores struct {
			Buckets []struct {
				Key string `json:"key"`
			} `json:"buckets"`
		} `json:"stores"`
	} `json:"aggregations"`
}

func (r *openSearchRetriever) SearchDocuments(ctx context.Context, query DocumentQuery) ([]DocumentHit, error) {
	started := time.Now()
	defer func() {
		r.logger.Benchmark("retrieval.SearchDocuments", time.Since(started))
	}()

	vector, err := r.embedder.EmbedQuery(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document query: %w", err)
	}

	var must []interface{}
	if query.Store != "" {
		must = append(must, term("store", query.Store))
	}
	if query.DocType != "" {
		must = append(must, term("type", query.DocType))
	}
	if query.Source != "" {
		must = append(must, term("source", query.Source))
	}

	hits, err := r.knnSearch(ctx, DocumentIndex, vector, query.limit(), boolFilter(must, nil))
	if err != nil {
		return nil, err
	}

	results := make([]DocumentHit, 0, len(hits))
	for _, hit := range hits {
		cos := ScoreToCosine(hit.Score)
		if cos < query.threshold() {
			continue
		}
		results = append(results, DocumentHit{
			ID:     hit.ID,
			Score:  cos,
			Text:   hit.Source.Text,
			Type:   hit.Source.Type,
			Source: hit.Source.Source,
			Store:  hit.Source.Store,
		})
	}
	return results, nil
}

func (r *openSearchRetriever) SearchProducts(ctx context.Context, query ProductQuery) ([]ProductHit, error) {
	started := time.Now()
	defer func() {
		r.logger.Benchmark("retrieval.SearchProducts", time.Since(started))
	}()

	vector, err := r.embedder.EmbedQuery(ctx, query.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed product query: %w", err)
	}

	must := []interface{}{term("type", TypeShopifyProduct)}
	if query.Store != "" {
		must = append(must, term("store", query.Store))
	}
	if query.ProductType != "" {
		must = append(must, term("product_type", query.ProductType))
	}
	if query.Vendor != "" {
		must = append(must, term("vendor", query.Vendor))
	}

	// Any of the tags may match.
	var should []interface{}
	if len(query.Tags) > 0 {
		should = append(should, map[string]interface{}{
			"terms": map[string]interface{}{"tags": query.Tags},
		})
	}

	hits, err := r.knnSearch(ctx, ProductIndex, vector, query.limit(), boolFilter(must, should))
	if err != nil {
		return nil, err
	}

	results := make([]ProductHit, 0, len(hits))
	for _, hit := range hits {
		cos := ScoreToCosine(hit.Score)
		if cos < query.threshold() {
			continue
		}
		results = append(results, ProductHit{
			ID:          hit.ID,
			Score:       cos,
			Title:       hit.Source.Title,
			ProductID:   hit.Source.ProductID,
			Vendor:      hit.Source.Vendor,
			ProductType: hit.Source.ProductType,
			Tags:        hit.Source.Tags,
			Store:       hit.Source.Store,
			Text:        hit.Source.Text,
		})
	}
	return results, nil
}

func (r *openSearchRetriever) SearchAll(ctx context.Context, query, store string, limit int, threshold float64) (*CombinedResults, error) {
	results := &CombinedResults{}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		documents, err := r.SearchDocuments(groupCtx, DocumentQuery{
			Query:     query,
			Store:     store,
			Limit:     limit,
			Threshold: threshold,
		})
		if err != nil {
			return err
		}
		results.Documents = documents
		return nil
	})
	group.Go(func() error {
		products, err := r.SearchProducts(groupCtx, ProductQuery{
			Query:     query,
			Store:     store,
			Limit:     limit,
			Threshold: threshold,
		})
		if err != nil {
			return err
		}
		results.Products = products
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *openSearchRetriever) Lookup(ctx context.Context, store string) (*StoreDetails, error) {
	body := map[string]interface{}{
		"size": 1,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					term("store", store),
					map[string]interface{}{"exists": map[string]interface{}{"field": "store_details"}},
				},
			},
		},
		"_source": map[string]interface{}{"excludes": []string{"embedding"}},
	}

	response, err := r.search(ctx, []string{DocumentIndex}, body)
	if err != nil {
		return nil, err
	}
	if len(response.Hits.Hits) > 0 {
		hit := response.Hits.Hits[0]
		source := hit.Source.Source
		if source == "" {
			source = "Unknown"
		}
		return &StoreDetails{
			Store:   store,
			Details: hit.Source.StoreDetails,
			Source:  source,
		}, nil
	}

	// No explicit detail chunk: compile a best-effort blurb from the store's
	// most relevant documents.
	documents, err := r.SearchDocuments(ctx, DocumentQuery{
		Query:     "store information description about",
		Store:     store,
		Limit:     DefaultLimit,
		Threshold: 0.01,
	})
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, store)
	}

	var combined bytes.Buffer
	for i, doc := range documents {
		if i > 0 {
			combined.WriteString("\n\n")
		}
		text := doc.Text
		if len(text) > 1000 {
			text = text[:1000]
		}
		combined.WriteString(text)
	}

	return &StoreDetails{
		Store:   store,
		Details: combined.String(),
		Source:  fmt.Sprintf("compiled from %d documents", len(documents)),
	}, nil
}

func (r *openSearchRetriever) StoreNames(ctx context.Context) ([]string, error) {
	body := map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"stores": map[string]interface{}{
				"terms": map[string]interface{}{"field": "store", "size": 500},
			},
		},
	}

	response, err := r.search(ctx, []string{DocumentIndex, ProductIndex}, body)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(response.Aggregations.Stores.Buckets))
	for _, bucket := range response.Aggregations.Stores.Buckets {
		names = append(names, bucket.Key)
	}
	return names, nil
}

// knnSearch runs a filtered nearest-neighbor query. The filter rides inside
// the knn clause so the lucene engine applies it during graph traversal
// rather than post-filtering.
func (r *openSearchRetriever) knnSearch(ctx context.Context, index string, vector []float32, k int, filter map[string]interface{}) ([]searchHit, error) {
	knn := map[string]interface{}{
		"vector": vector,
		"k":      k,
	}
	if filter != nil {
		knn["filter"] = filter
	}

	body := map[string]interface{}{
		"size": k,
		"query": map[string]interface{}{
			"knn": map[string]interface{}{"embedding": knn},
		},
		"_source": map[string]interface{}{"excludes": []string{"embedding"}},
	}

	response, err := r.search(ctx, []string{index}, body)
	if err != nil {
		return nil, err
	}
	return response.Hits.Hits, nil
}

func (r *openSearchRetriever) search(ctx context.Context, indices []string, body map[string]interface{}) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	request := opensearchapi.SearchRequest{
		Index: indices,
		Body:  bytes.NewReader(payload),
	}
	res, err := request.Do(ctx, r.opensearch.Client())
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search returned %s: %s", res.Status(), string(detail))
	}

	var response searchResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &response, nil
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}

func boolFilter(must, should []interface{}) map[string]interface{} {
	if len(must) == 0 && len(should) == 0 {
		return nil
	}
	clause := map[string]interface{}{}
	if len(must) > 0 {
		clause["must"] = must
	}
	if len(should) > 0 {
		clause["should"] = should
		clause["minimum_should_match"] = 1
	}
	return map[string]interface{}{"bool": clause}
}
