// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package assistant_routers

import (
	"github.com/gin-gonic/gin"

	conversationApi "github.com/cartlineai/api/assistant-api/api/conversation"
	assistantTalkApi "github.com/cartlineai/api/assistant-api/api/talk"
	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// TalkApiRoute mounts the call-facing surface: the telephony webhooks that
// answer inbound calls and the WebSocket stream the voice runtime drives.
func TalkApiRoute(
	cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger,
	postgres connectors.PostgresConnector,
	redis connectors.RedisConnector,
	opensearch connectors.OpenSearchConnector) error {
	talkApi, err := assistantTalkApi.NewTalkApi(cfg, logger, postgres, redis, opensearch)
	if err != nil {
		return err
	}

	apiv1 := engine.Group("v1/talk")
	{
		// conversation stream for the voice runtime
		apiv1.GET("/stream", talkApi.Stream)

		// incoming calls and status callbacks
		apiv1.POST("/twilio/inbound", talkApi.TwilioInbound)
		apiv1.POST("/twilio/status", talkApi.TwilioStatus)
		apiv1.GET("/vonage/answer", talkApi.VonageAnswer)
		apiv1.POST("/vonage/answer", talkApi.VonageAnswer)
		apiv1.POST("/vonage/event", talkApi.VonageEvent)
	}
	return nil
}

// ConversationApiRoute mounts the call session history for merchant review.
func ConversationApiRoute(
	cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger,
	postgres connectors.PostgresConnector) {
	api := conversationApi.NewConversationApi(cfg, logger, postgres)

	apiv1 := engine.Group("v1/conversation")
	{
		apiv1.GET("", api.List)
		apiv1.GET("/export", api.Export)
		apiv1.GET("/:sessionId", api.Get)
	}
}
