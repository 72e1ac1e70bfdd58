// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package conversation_api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
)

const (
	// exportPageSize matches the store's hard page cap.
	exportPageSize = 200

	// exportRowLimit bounds workbook size; beyond this merchants should
	// narrow the time range.
	exportRowLimit = 10000

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export streams the filtered session history as an XLSX workbook.
//
// @Router /v1/conversation/export [get]
// @Summary Export call sessions as a spreadsheet
// @Param store query string false "store phone number"
// @Param from query string false "RFC3339 or YYYY-MM-DD"
// @Param to query string false "RFC3339 or YYYY-MM-DD (inclusive)"
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
func (api *ConversationApi) Export(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter.Limit = exportPageSize
	filter.Offset = 0

	sessions, err := api.collectSessions(c, filter)
	if err != nil {
		api.logger.Errorf("session export failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	f, err := internal_callsession.Workbook(sessions)
	if err != nil {
		api.logger.Errorf("workbook build failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	defer f.Close()

	buffer, err := f.WriteToBuffer()
	if err != nil {
		api.logger.Errorf("workbook serialization failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("cartline-sessions-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buffer.Bytes())
}

// collectSessions pages through the store until the filter is exhausted or
// the export row limit is hit.
func (api *ConversationApi) collectSessions(c *gin.Context, filter internal_callsession.ListFilter) ([]internal_callsession.CallSession, error) {
	var all []internal_callsession.CallSession
	for {
		page, total, err := api.sessions.List(c.Request.Context(), filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < filter.Limit || int64(len(all)) >= total {
			break
		}
		if len(all) >= exportRowLimit {
			api.logger.Warnf("session export truncated at %d rows, store=%s", exportRowLimit, filter.StoreID)
			all = all[:exportRowLimit]
			break
		}
		filter.Offset += len(page)
	}
	return all, nil
}
