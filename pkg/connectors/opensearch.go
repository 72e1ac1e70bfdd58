// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package connectors

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/configs"
)

type OpenSearchConnector interface {
	Client() *opensearch.Client
	Ping(ctx context.Context) error
}

type openSearchConnector struct {
	cfg    *configs.OpenSearchConfig
	logger commons.Logger
	client *opensearch.Client
}

func NewOpenSearchConnector(cfg *configs.OpenSearchConfig, logger commons.Logger) (OpenSearchConnector, error) {
	osCfg := opensearch.Config{
		Addresses: []string{cfg.Address},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	logger.Infof("opensearch client ready: address=%s", cfg.Address)
	return &openSearchConnector{cfg: cfg, logger: logger, client: client}, nil
}

func (c *openSearchConnector) Client() *opensearch.Client { return c.client }

func (c *openSearchConnector) Ping(ctx context.Context) error {
	req := opensearchapi.PingRequest{}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch ping returned status %s", res.Status())
	}
	return nil
}
