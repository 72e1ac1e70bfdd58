// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package assistant_talk_api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	internal_twilio_telephony "github.com/cartlineai/api/assistant-api/internal/telephony/twilio"
	internal_vonage_telephony "github.com/cartlineai/api/assistant-api/internal/telephony/vonage"
	"github.com/cartlineai/pkg/utils"
)

// unknownStoreMessage is spoken to callers on numbers no store profile owns.
const unknownStoreMessage = "We're sorry, this number is not connected to a store right now. Please try again later."

// TwilioInbound answers Twilio's incoming-call webhook. It resolves the
// store profile from the dialed number, parks a pending session and returns
// TwiML connecting the call's media stream to the voice runtime.
//
// @Router /v1/talk/twilio/inbound [post]
// @Summary Answer an inbound Twilio call
// @Produce xml
func (api *TalkApi) TwilioInbound(c *gin.Context) {
	if !api.twilio.ValidateSignature(c.Request) {
		api.logger.Warnf("rejected twilio webhook with bad signature from %s", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	called := c.PostForm("To")
	caller := c.PostForm("From")
	callSid := c.PostForm("CallSid")
	api.logger.Infof("inbound twilio call: sid=%s, from=%s, to=%s", callSid, caller, called)

	profile, err := api.stores.Get(c.Request.Context(), called)
	if err != nil {
		api.logger.Warnf("no store profile for %s (call %s): %v", called, callSid, err)
		doc, twimlErr := api.twilio.RejectTwiML(unknownStoreMessage)
		api.answerTwiML(c, doc, twimlErr)
		return
	}

	sessionID, err := api.parkSession(c.Request.Context(), "twilio", callSid, caller, called, profile)
	if err != nil {
		api.logger.Errorf("failed to park session for call %s: %v", callSid, err)
		doc, twimlErr := api.twilio.RejectTwiML(unknownStoreMessage)
		api.answerTwiML(c, doc, twimlErr)
		return
	}

	token, err := MintStreamToken(api.cfg, sessionID)
	if err != nil {
		api.logger.Errorf("failed to mint stream token for session %s: %v", sessionID, err)
		doc, twimlErr := api.twilio.RejectTwiML(unknownStoreMessage)
		api.answerTwiML(c, doc, twimlErr)
		return
	}

	doc, twimlErr := api.twilio.StreamTwiML(api.streamUrl(token))
	api.answerTwiML(c, doc, twimlErr)
}

// TwilioStatus absorbs call-status callbacks. A terminal status for a
// session no stream ever claimed marks it abandoned; anything else is just
// logged.
//
// @Router /v1/talk/twilio/status [post]
// @Summary Twilio call status callback
func (api *TalkApi) TwilioStatus(c *gin.Context) {
	if !api.twilio.ValidateSignature(c.Request) {
		api.logger.Warnf("rejected twilio status callback with bad signature from %s", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	callSid := c.PostForm("CallSid")
	status := c.PostForm("CallStatus")
	api.logger.Debugf("twilio status callback: sid=%s, status=%s", callSid, status)

	if callSid != "" && internal_twilio_telephony.IsTerminalStatus(status) {
		api.settleAbandon(callSid)
	}
	c.Status(http.StatusNoContent)
}

// vonageAnswerParams is the answer webhook payload. Vonage sends query
// parameters on GET and a JSON body on POST depending on the application's
// configuration; both are accepted.
type vonageAnswerParams struct {
	To               string `form:"to" json:"to"`
	From             string `form:"from" json:"from"`
	ConversationUuid string `form:"conversation_uuid" json:"conversation_uuid"`
	Uuid             string `form:"uuid" json:"uuid"`
}

// VonageAnswer answers Vonage's answer webhook with an NCCO document
// bridging the call to the voice runtime.
//
// @Router /v1/talk/vonage/answer [get]
// @Summary Answer an inbound Vonage call
// @Produce json
func (api *TalkApi) VonageAnswer(c *gin.Context) {
	var params vonageAnswerParams
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&params)
	} else {
		err = c.ShouldBindJSON(&params)
	}
	if err != nil {
		api.logger.Warnf("unparseable vonage answer webhook: %v", err)
		c.JSON(http.StatusOK, api.vonage.RejectNcco(unknownStoreMessage))
		return
	}

	channelUUID := params.ConversationUuid
	if channelUUID == "" {
		channelUUID = params.Uuid
	}
	api.logger.Infof("inbound vonage call: conversation=%s, from=%s, to=%s", channelUUID, params.From, params.To)

	profile, err := api.stores.Get(c.Request.Context(), params.To)
	if err != nil {
		api.logger.Warnf("no store profile for %s (conversation %s): %v", params.To, channelUUID, err)
		c.JSON(http.StatusOK, api.vonage.RejectNcco(unknownStoreMessage))
		return
	}

	sessionID, err := api.parkSession(c.Request.Context(), "vonage", channelUUID, params.From, params.To, profile)
	if err != nil {
		api.logger.Errorf("failed to park session for conversation %s: %v", channelUUID, err)
		c.JSON(http.StatusOK, api.vonage.RejectNcco(unknownStoreMessage))
		return
	}

	token, err := MintStreamToken(api.cfg, sessionID)
	if err != nil {
		api.logger.Errorf("failed to mint stream token for session %s: %v", sessionID, err)
		c.JSON(http.StatusOK, api.vonage.RejectNcco(unknownStoreMessage))
		return
	}

	c.JSON(http.StatusOK, api.vonage.ConnectNcco(api.streamUrl(token)))
}

// vonageEventParams is the slice of the event webhook Cartline reads.
type vonageEventParams struct {
	Status           string `json:"status"`
	Uuid             string `json:"uuid"`
	ConversationUuid string `json:"conversation_uuid"`
}

// VonageEvent absorbs call event callbacks, abandoning sessions whose call
// ended before any stream claimed them. Always answers 204: Vonage retries
// anything else.
//
// @Router /v1/talk/vonage/event [post]
// @Summary Vonage call event callback
func (api *TalkApi) VonageEvent(c *gin.Context) {
	var event vonageEventParams
	if err := c.ShouldBindJSON(&event); err != nil {
		api.logger.Debugf("unparseable vonage event: %v", err)
		c.Status(http.StatusNoContent)
		return
	}

	channelUUID := event.ConversationUuid
	if channelUUID == "" {
		channelUUID = event.Uuid
	}
	api.logger.Debugf("vonage event: conversation=%s, status=%s", channelUUID, event.Status)

	if channelUUID != "" && internal_vonage_telephony.IsTerminalStatus(event.Status) {
		api.settleAbandon(channelUUID)
	}
	c.Status(http.StatusNoContent)
}

// parkSession saves the pending row a stream connection will later claim.
func (api *TalkApi) parkSession(ctx context.Context, provider, channelUUID, caller, called string, profile *internal_storefront.Profile) (string, error) {
	return api.sessions.Save(ctx, &internal_callsession.CallSession{
		Status:      internal_callsession.StatusPending,
		Provider:    provider,
		ChannelUUID: channelUUID,
		Caller:      caller,
		Called:      called,
		StoreID:     profile.Phone,
		StoreName:   profile.StoreName,
	})
}

// settleAbandon settles the session row off the request path. Providers
// retry status callbacks that answer slowly, so storage never holds up the
// webhook response.
func (api *TalkApi) settleAbandon(channelUUID string) {
	utils.Go(context.Background(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		api.abandonUnclaimed(ctx, channelUUID)
	})
}

// abandonUnclaimed flips a still-pending session to abandoned. Claimed or
// finished sessions are left for the stream teardown to settle.
func (api *TalkApi) abandonUnclaimed(ctx context.Context, channelUUID string) {
	cs, err := api.sessions.FindByChannel(ctx, channelUUID)
	if err != nil {
		api.logger.Debugf("status callback for unknown channel %s: %v", channelUUID, err)
		return
	}
	if !cs.IsPending() {
		return
	}
	if err := api.sessions.Abandon(ctx, cs.SessionID); err != nil {
		api.logger.Errorf("failed to abandon session %s: %v", cs.SessionID, err)
	}
}

// answerTwiML writes a TwiML document, falling back to an empty 200 when the
// builder failed; Twilio treats that as "hang up".
func (api *TalkApi) answerTwiML(c *gin.Context, doc string, err error) {
	if err != nil {
		api.logger.Errorf("failed to render twiml: %v", err)
		c.Status(http.StatusOK)
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, doc)
}
