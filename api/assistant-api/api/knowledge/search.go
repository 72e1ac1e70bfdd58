// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package knowledge_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
)

type documentSearchRequest struct {
	Store     string  `json:"store" binding:"required"`
	Query     string  `json:"query" binding:"required"`
	Type      string  `json:"type"`
	Source    string  `json:"source"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

type productSearchRequest struct {
	Store       string   `json:"store" binding:"required"`
	Query       string   `json:"query" binding:"required"`
	ProductType string   `json:"product_type"`
	Vendor      string   `json:"vendor"`
	Tags        []string `json:"tags"`
	TopK        int      `json:"top_k"`
	Threshold   float64  `json:"threshold"`
}

type combinedSearchRequest struct {
	Store     string  `json:"store" binding:"required"`
	Query     string  `json:"query" binding:"required"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

// SearchDocuments queries the document partition with optional type and
// source filters.
//
// @Router /v1/knowledge/documents/search [post]
// @Summary Semantic search over a store's documents
// @Accept json
// @Produce json
func (api *KnowledgeApi) SearchDocuments(c *gin.Context) {
	var req documentSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hits, err := api.retriever.SearchDocuments(c.Request.Context(), internal_retrieval.DocumentQuery{
		Query:     req.Query,
		Store:     req.Store,
		DocType:   req.Type,
		Source:    req.Source,
		Limit:     req.TopK,
		Threshold: req.Threshold,
	})
	if err != nil {
		api.logger.Errorf("document search failed for store %s: %v", req.Store, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": hits, "count": len(hits)})
}

// SearchProducts queries the product partition.
//
// @Router /v1/knowledge/products/search [post]
// @Summary Semantic search over a store's product catalog
// @Accept json
// @Produce json
func (api *KnowledgeApi) SearchProducts(c *gin.Context) {
	var req productSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hits, err := api.retriever.SearchProducts(c.Request.Context(), internal_retrieval.ProductQuery{
		Query:       req.Query,
		Store:       req.Store,
		ProductType: req.ProductType,
		Vendor:      req.Vendor,
		Tags:        req.Tags,
		Limit:       req.TopK,
		Threshold:   req.Threshold,
	})
	if err != nil {
		api.logger.Errorf("product search failed for store %s: %v", req.Store, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": hits, "count": len(hits)})
}

// Search runs both partitions with the same query and merges the results.
//
// @Router /v1/knowledge/search [post]
// @Summary Semantic search across documents and products
// @Accept json
// @Produce json
func (api *KnowledgeApi) Search(c *gin.Context) {
	var req combinedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := api.retriever.SearchAll(c.Request.Context(), req.Query, req.Store, req.TopK, req.Threshold)
	if err != nil {
		api.logger.Errorf("combined search failed for store %s: %v", req.Store, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// Stores lists the store names present in the indices.
//
// @Router /v1/knowledge/stores [get]
// @Summary List stores with indexed knowledge
// @Produce json
func (api *KnowledgeApi) Stores(c *gin.Context) {
	names, err := api.retriever.StoreNames(c.Request.Context())
	if err != nil {
		api.logger.Errorf("store aggregation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": names, "count": len(names)})
}
