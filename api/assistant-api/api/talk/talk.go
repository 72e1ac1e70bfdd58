// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package assistant_talk_api

import (
	"fmt"

	internal_agent "github.com/cartlineai/api/assistant-api/internal/agent"
	internal_agent_embedding "github.com/cartlineai/api/assistant-api/internal/agent/embedding"
	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	internal_twilio_telephony "github.com/cartlineai/api/assistant-api/internal/telephony/twilio"
	internal_vonage_telephony "github.com/cartlineai/api/assistant-api/internal/telephony/vonage"
	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// engineFactory is the slice of the agent factory the stream drives.
type engineFactory interface {
	Engine(session *internal_agent.Session) (internal_agent.Engine, error)
}

// TalkApi hosts the call-facing surface: the telephony webhooks that answer
// inbound calls and the WebSocket stream the voice runtime holds the
// conversation over.
type TalkApi struct {
	cfg      *config.AppConfig
	logger   commons.Logger
	sessions internal_callsession.Store
	stores   internal_storefront.Store
	engines  engineFactory
	twilio   internal_twilio_telephony.Twilio
	vonage   internal_vonage_telephony.Vonage
}

func NewTalkApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	redis connectors.RedisConnector,
	opensearch connectors.OpenSearchConnector,
) (*TalkApi, error) {
	llm := llm_client.NewChatClient(cfg, logger)
	embedder := internal_agent_embedding.NewEmbedder(cfg, logger, llm)
	retriever := internal_retrieval.NewRetriever(opensearch, embedder, logger)

	engines, err := internal_agent.NewFactory(cfg, logger, llm, retriever)
	if err != nil {
		return nil, err
	}

	return &TalkApi{
		cfg:      cfg,
		logger:   logger,
		sessions: internal_callsession.NewStore(postgres, logger),
		stores:   internal_storefront.NewStore(redis, logger),
		engines:  engines,
		twilio:   internal_twilio_telephony.NewTwilio(cfg, logger),
		vonage:   internal_vonage_telephony.NewVonage(cfg, logger),
	}, nil
}

// streamUrl is the public wss endpoint carrying the minted session token.
func (api *TalkApi) streamUrl(token string) string {
	return fmt.Sprintf("wss://%s/v1/talk/stream?token=%s", api.cfg.PublicHost, token)
}
