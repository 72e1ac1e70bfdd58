// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package health_check_api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

type healthCheckApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	postgres connectors.PostgresConnector
}

func New(cfg *config.AppConfig, logger commons.Logger, postgres connectors.PostgresConnector) *healthCheckApi {
	return &healthCheckApi{
		cfg:      cfg,
		logger:   logger,
		postgres: postgres,
	}
}

// Healthz is the liveness probe: the process is up and serving.
func (hc *healthCheckApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": hc.cfg.Version})
}

// Readiness is the readiness probe: dependencies answer.
func (hc *healthCheckApi) Readiness(c *gin.Context) {
	if err := hc.postgres.Ping(c.Request.Context()); err != nil {
		hc.logger.Errorf("readiness failed on postgres: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
