// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package knowledge_api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ingestProductsRequest addresses the store by profile key so the pipeline
// can reach its commerce backend.
type ingestProductsRequest struct {
	Store string `json:"store" binding:"required"`
}

type ingestPageRequest struct {
	Store string `json:"store" binding:"required"`
	Url   string `json:"url" binding:"required,url"`
}

// IngestProducts pulls a store's catalog into the product index. Runs
// synchronously; catalogs are small enough that a blocking request beats a
// job queue here.
//
// @Router /v1/knowledge/ingest/products [post]
// @Summary Index a store's product catalog
// @Accept json
// @Produce json
func (api *KnowledgeApi) IngestProducts(c *gin.Context) {
	var req ingestProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := api.ingestor.IngestProducts(c.Request.Context(), req.Store)
	if err != nil {
		api.logger.Errorf("product ingestion failed for store %s: %v", req.Store, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": req.Store, "chunks": count})
}

// IngestPage fetches one URL into the document index.
//
// @Router /v1/knowledge/ingest/page [post]
// @Summary Index a web page for a store
// @Accept json
// @Produce json
func (api *KnowledgeApi) IngestPage(c *gin.Context) {
	var req ingestPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := api.ingestor.IngestPage(c.Request.Context(), req.Store, req.Url)
	if err != nil {
		api.logger.Errorf("page ingestion failed for store %s (%s): %v", req.Store, req.Url, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": req.Store, "url": req.Url, "chunks": count})
}

// DeleteStore purges every chunk tagged with a store name from both indices.
//
// @Router /v1/knowledge/stores/{store} [delete]
// @Summary Remove a store's indexed knowledge
// @Produce json
func (api *KnowledgeApi) DeleteStore(c *gin.Context) {
	store := c.Param("store")
	if store == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store is required"})
		return
	}

	deleted, err := api.retriever.DeleteStore(c.Request.Context(), store)
	if err != nil {
		api.logger.Errorf("store purge failed for %s: %v", store, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purge failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"store": store, "deleted": deleted})
}
