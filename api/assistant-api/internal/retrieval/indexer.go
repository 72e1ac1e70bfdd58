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
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// indexMapping is shared by both indices; document and product chunks differ
// only in which optional fields they fill.
const indexMapping = `{
  "settings": {
    "index": {
      "knn": true
    }
  },
  "mappings": {
    "properties": {
      "embedding": {
        "type": "knn_vector",
        "dimension": 1536,
        "method": {
          "name": "hnsw",
          "space_type": "cosinesimil",
          "engine": "lucene"
        }
      },
      "text": {"type": "text"},
      "store": {"type": "keyword"},
      "type": {"type": "keyword"},
      "source": {"type": "keyword"},
      "title": {"type": "text"},
      "product_id": {"type": "long"},
      "vendor": {"type": "keyword"},
      "product_type": {"type": "keyword"},
      "tags": {"type": "keyword"},
      "store_details": {"type": "text"}
    }
  }
}`

func (r *openSearchRetriever) EnsureIndexes(ctx context.Context) error {
	for _, index := range []string{DocumentIndex, ProductIndex} {
		if err := r.ensureIndex(ctx, index); err != nil {
			return err
		}
	}
	return nil
}

func (r *openSearchRetriever) ensureIndex(ctx context.Context, index string) error {
	exists := opensearchapi.IndicesExistsRequest{Index: []string{index}}
	res, err := exists.Do(ctx, r.opensearch.Client())
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", index, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("index check for %s returned %s", index, res.Status())
	}

	create := opensearchapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader([]byte(indexMapping)),
	}
	createRes, err := create.Do(ctx, r.opensearch.Client())
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", index, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		detail, _ := io.ReadAll(createRes.Body)
		return fmt.Errorf("create index %s returned %s: %s", index, createRes.Status(), string(detail))
	}

	r.logger.Infof("created vector index: %s", index)
	return nil
}

func (r *openSearchRetriever) IndexChunks(ctx context.Context, index string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	started := time.Now()
	defer func() {
		r.logger.Benchmark("retrieval.IndexChunks", time.Since(started))
	}()

	var buf bytes.Buffer
	for _, chunk := range chunks {
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": index, "_id": chunk.ID},
		}
		actionLine, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		docLine, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("failed to encode chunk %s: %w", chunk.ID, err)
		}
		buf.Write(actionLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	request := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(buf.Bytes()),
		Refresh: "true",
	}
	res, err := request.Do(ctx, r.opensearch.Client())
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bulk index returned %s: %s", res.Status(), string(detail))
	}

	var response struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if response.Errors {
		failed := 0
		reason := ""
		for _, item := range response.Items {
			for _, op := range item {
				if op.Error != nil {
					failed++
					if reason == "" {
						reason = fmt.Sprintf("%s: %s", op.Error.Type, op.Error.Reason)
					}
				}
			}
		}
		return fmt.Errorf("bulk index rejected %d of %d chunks (%s)", failed, len(chunks), reason)
	}

	r.logger.Infof("indexed %d chunks into %s", len(chunks), index)
	return nil
}

func (r *openSearchRetriever) DeleteStore(ctx context.Context, store string) (int64, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": term("store", store),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode delete query: %w", err)
	}

	request := opensearchapi.DeleteByQueryRequest{
		Index: []string{DocumentIndex, ProductIndex},
		Body:  bytes.NewReader(body),
	}
	res, err := request.Do(ctx, r.opensearch.Client())
	if err != nil {
		return 0, fmt.Errorf("delete by query failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return 0, fmt.Errorf("delete by query returned %s: %s", res.Status(), string(detail))
	}

	var response struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode delete response: %w", err)
	}

	r.logger.Infof("deleted %d chunks for store %s", response.Deleted, store)
	return response.Deleted, nil
}
