// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartlineai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-retrieval"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

type fakeConnector struct {
	client *opensearch.Client
}

func (f *fakeConnector) Client() *opensearch.Client     { return f.client }
func (f *fakeConnector) Ping(ctx context.Context) error { return nil }

type fakeEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func newTestRetriever(t *testing.T, handler http.Handler) (Retriever, *fakeEmbedder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	embedder := &fakeEmbedder{}
	return NewRetriever(&fakeConnector{client: client}, embedder, newTestLogger(t)), embedder
}

// scoreFor renders the engine-side score for a wanted cosine similarity.
func scoreFor(cos float64) float64 {
	return 1 / (2 - cos)
}

func hitsBody(hits ...map[string]interface{}) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{"hits": hits},
	})
	return body
}

// ====== Score conversion ======

func TestScoreToCosine(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected float64
	}{
		{"identical vectors", 1.0, 1.0},
		{"threshold score", scoreFor(0.7), 0.7},
		{"orthogonal vectors", 0.5, 0.0},
		{"zero score", 0, 0},
		{"negative score", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ScoreToCosine(tt.score), 0.0001)
		})
	}
}

// ====== Document search ======

func TestSearchDocumentsFiltersAndThreshold(t *testing.T) {
	var captured map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cartline-documents/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write(hitsBody(
			map[string]interface{}{
				"_id":    "doc-1",
				"_score": scoreFor(0.9),
				"_source": map[string]interface{}{
					"text": "Returns accepted within 30 days.", "type": "web_scrape",
					"source": "https://shop.example/returns", "store": "+15550001111",
				},
			},
			map[string]interface{}{
				"_id":    "doc-2",
				"_score": scoreFor(0.3),
				"_source": map[string]interface{}{
					"text": "Unrelated text.", "type": "web_scrape",
					"source": "https://shop.example/about", "store": "+15550001111",
				},
			},
		))
	})

	retriever, embedder := newTestRetriever(t, handler)
	hits, err := retriever.SearchDocuments(context.Background(), DocumentQuery{
		Query:   "what is the return policy",
		Store:   "+15550001111",
		DocType: "web_scrape",
	})
	require.NoError(t, err)

	// Second hit sits below the default 0.7 threshold.
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].ID)
	assert.InDelta(t, 0.9, hits[0].Score, 0.0001)
	assert.Equal(t, "Returns accepted within 30 days.", hits[0].Text)

	assert.Equal(t, []string{"what is the return policy"}, embedder.texts)

	// Request shape: knn clause with embedded filter terms.
	knn := captured["query"].(map[string]interface{})["knn"].(map[string]interface{})["embedding"].(map[string]interface{})
	assert.EqualValues(t, 5, knn["k"])
	filter := knn["filter"].(map[string]interface{})["bool"].(map[string]interface{})
	must := filter["must"].([]interface{})
	assert.Len(t, must, 2)
}

func TestSearchDocumentsNoFiltersOmitsFilterClause(t *testing.T) {
	var captured map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write(hitsBody())
	})

	retriever, _ := newTestRetriever(t, handler)
	_, err := retriever.SearchDocuments(context.Background(), DocumentQuery{Query: "anything"})
	require.NoError(t, err)

	knn := captured["query"].(map[string]interface{})["knn"].(map[string]interface{})["embedding"].(map[string]interface{})
	_, hasFilter := knn["filter"]
	assert.False(t, hasFilter)
}

// ====== Product search ======

func TestSearchProductsAlwaysFiltersProductType(t *testing.T) {
	var captured map[string]interface{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cartline-products/_search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write(hitsBody(map[string]interface{}{
			"_id":    "prod-1",
			"_score": scoreFor(0.85),
			"_source": map[string]interface{}{
				"title": "Blue Cotton Tee", "product_id": 8801, "vendor": "Maple",
				"product_type": "shirt", "tags": []string{"blue", "cotton"},
				"store": "+15550001111", "type": "shopify_product",
			},
		}))
	})

	retriever, _ := newTestRetriever(t, handler)
	hits, err := retriever.SearchProducts(context.Background(), ProductQuery{
		Query: "blue t-shirt",
		Store: "+15550001111",
		Tags:  []string{"blue", "summer"},
	})
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "Blue Cotton Tee", hits[0].Title)
	assert.EqualValues(t, 8801, hits[0].ProductID)
	assert.Equal(t, []string{"blue", "cotton"}, hits[0].Tags)

	knn := captured["query"].(map[string]interface{})["knn"].(map[string]interface{})["embedding"].(map[string]interface{})
	filter := knn["filter"].(map[string]interface{})["bool"].(map[string]interface{})

	must := filter["must"].([]interface{})
	typeTerm := must[0].(map[string]interface{})["term"].(map[string]interface{})
	assert.Equal(t, TypeShopifyProduct, typeTerm["type"])

	should := filter["should"].([]interface{})
	require.Len(t, should, 1)
	terms := should[0].(map[string]interface{})["terms"].(map[string]interface{})
	assert.Len(t, terms["tags"], 2)
	assert.EqualValues(t, 1, filter["minimum_should_match"])
}

// ====== Combined search ======

func TestSearchAllMergesBothPartitions(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/cartline-documents/_search":
			w.Write(hitsBody(map[string]interface{}{
				"_id": "doc-1", "_score": scoreFor(0.8),
				"_source": map[string]interface{}{"text": "Free shipping over $50.", "store": "+1555"},
			}))
		case "/cartline-products/_search":
			w.Write(hitsBody(map[string]interface{}{
				"_id": "prod-1", "_score": scoreFor(0.75),
				"_source": map[string]interface{}{"title": "Wool Socks", "store": "+1555"},
			}))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	retriever, _ := newTestRetriever(t, handler)
	results, err := retriever.SearchAll(context.Background(), "shipping", "+1555", 3, 0.6)
	require.NoError(t, err)

	require.Len(t, results.Documents, 1)
	require.Len(t, results.Products, 1)
	assert.Equal(t, "Free shipping over $50.", results.Documents[0].Text)
	assert.Equal(t, "Wool Socks", results.Products[0].Title)
}

func TestSearchAllPropagatesPartitionError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cartline-products/_search" {
			http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(hitsBody())
	})

	retriever, _ := newTestRetriever(t, handler)
	_, err := retriever.SearchAll(context.Background(), "shipping", "+1555", 3, 0.6)
	assert.Error(t, err)
}

// ====== Store lookup ======

func TestLookupFindsExplicitDetails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// Explicit-details probe carries an exists clause, not a knn clause.
		_, isKnn := body["query"].(map[string]interface{})["knn"]
		assert.False(t, isKnn)

		w.Header().Set("Content-Type", "application/json")
		w.Write(hitsBody(map[string]interface{}{
			"_id": "det-1", "_score": 1.0,
			"_source": map[string]interface{}{
				"store": "+1555", "store_details": "Family-run outdoor gear store.",
				"source": "onboarding",
			},
		}))
	})

	retriever, _ := newTestRetriever(t, handler)
	details, err := retriever.Lookup(context.Background(), "+1555")
	require.NoError(t, err)

	assert.Equal(t, "Family-run outdoor gear store.", details.Details)
	assert.Equal(t, "onboarding", details.Source)
	assert.Equal(t, "+1555", details.Store)
}

func TestLookupCompilesFallbackFromDocuments(t *testing.T) {
	call := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		w.Header().Set("Content-Type", "application/json")
		if call == 1 {
			// No explicit details chunk.
			w.Write(hitsBody())
			return
		}
		w.Write(hitsBody(
			map[string]interface{}{
				"_id": "doc-1", "_score": scoreFor(0.5),
				"_source": map[string]interface{}{"text": "We sell hiking boots.", "store": "+1555"},
			},
			map[string]interface{}{
				"_id": "doc-2", "_score": scoreFor(0.4),
				"_source": map[string]interface{}{"text": "Open since 1998.", "store": "+1555"},
			},
		))
	})

	retriever, _ := newTestRetriever(t, handler)
	details, err := retriever.Lookup(context.Background(), "+1555")
	require.NoError(t, err)

	assert.Contains(t, details.Details, "We sell hiking boots.")
	assert.Contains(t, details.Details, "Open since 1998.")
	assert.Contains(t, details.Source, "compiled from 2 documents")
}

func TestLookupReturnsNotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(hitsBody())
	})

	retriever, _ := newTestRetriever(t, handler)
	_, err := retriever.Lookup(context.Background(), "+1555")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ====== Store names ======

func TestStoreNamesAggregatesAcrossIndices(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cartline-documents,cartline-products/_search", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"hits": {"hits": []},
			"aggregations": {"stores": {"buckets": [
				{"key": "+15550001111", "doc_count": 12},
				{"key": "+15552223333", "doc_count": 4}
			]}}
		}`)
	})

	retriever, _ := newTestRetriever(t, handler)
	names, err := retriever.StoreNames(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"+15550001111", "+15552223333"}, names)
}

func TestSearchSurfacesEngineError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"reason":"index_not_found"}}`, http.StatusNotFound)
	})

	retriever, _ := newTestRetriever(t, handler)
	_, err := retriever.SearchDocuments(context.Background(), DocumentQuery{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index_not_found")
}
