// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package conversation_api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// ConversationApi exposes the call session history: the per-call records the
// talk surface writes as calls come and go. Merchants use it to review what
// their callers asked and whether the assistant had to escalate.
type ConversationApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	sessions internal_callsession.Store
}

func NewConversationApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
) *ConversationApi {
	return &ConversationApi{
		cfg:      cfg,
		logger:   logger,
		sessions: internal_callsession.NewStore(postgres, logger),
	}
}

// List returns call sessions newest-first, filtered by store and time range.
//
// @Router /v1/conversation [get]
// @Summary List call sessions
// @Param store query string false "store phone number"
// @Param from query string false "RFC3339 or YYYY-MM-DD"
// @Param to query string false "RFC3339 or YYYY-MM-DD (inclusive)"
// @Param limit query int false "page size, default 50"
// @Param offset query int false "page start"
// @Produce json
func (api *ConversationApi) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessions, total, err := api.sessions.List(c.Request.Context(), filter)
	if err != nil {
		api.logger.Errorf("session listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// Get returns a single call session with its full transcript.
//
// @Router /v1/conversation/{sessionId} [get]
// @Summary Fetch one call session
// @Produce json
func (api *ConversationApi) Get(c *gin.Context) {
	sessionID := c.Param("sessionId")

	cs, err := api.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, internal_callsession.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		api.logger.Errorf("session lookup failed for %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, cs)
}

func listFilter(c *gin.Context) (internal_callsession.ListFilter, error) {
	filter := internal_callsession.ListFilter{
		StoreID: c.Query("store"),
	}

	var err error
	if filter.From, err = parseTimeParam(c.Query("from"), false); err != nil {
		return filter, err
	}
	if filter.To, err = parseTimeParam(c.Query("to"), true); err != nil {
		return filter, err
	}

	if raw := c.Query("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil {
			return filter, fmt.Errorf("limit must be an integer, got %q", raw)
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if filter.Offset, err = strconv.Atoi(raw); err != nil {
			return filter, fmt.Errorf("offset must be an integer, got %q", raw)
		}
	}
	return filter, nil
}

// parseTimeParam accepts RFC3339 timestamps or bare dates. A bare date used
// as an upper bound covers that whole day.
func parseTimeParam(value string, endOfDay bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable time %q, want RFC3339 or YYYY-MM-DD", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}
