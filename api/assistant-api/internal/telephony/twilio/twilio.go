// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_twilio_telephony

import (
	"net/http"

	twilio_client "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"

	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
)

// SignatureHeader carries Twilio's HMAC over the webhook URL and form.
const SignatureHeader = "X-Twilio-Signature"

// Twilio is the webhook-side helper for calls delivered over Twilio: request
// signature validation and the TwiML documents the voice webhooks answer
// with. Call audio never touches this service; the TwiML points Twilio's
// media stream at the voice runtime.
type Twilio struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	validator twilio_client.RequestValidator
}

func NewTwilio(cfg *config.AppConfig, logger commons.Logger) Twilio {
	return Twilio{
		cfg:       cfg,
		logger:    logger,
		validator: twilio_client.NewRequestValidator(cfg.TwilioConfig.AuthToken),
	}
}

// ValidateSignature checks the signature header against the request form.
// The signed URL is rebuilt on the configured public host because Twilio
// signs the URL it dialed, not whatever the service sees behind the
// TLS-terminating proxy.
func (tpc Twilio) ValidateSignature(req *http.Request) bool {
	if !tpc.cfg.TwilioConfig.ValidateSignature {
		return true
	}

	signature := req.Header.Get(SignatureHeader)
	if signature == "" {
		return false
	}
	if err := req.ParseForm(); err != nil {
		tpc.logger.Warnf("unparseable twilio webhook form: %v", err)
		return false
	}

	params := make(map[string]string, len(req.PostForm))
	for key := range req.PostForm {
		params[key] = req.PostForm.Get(key)
	}

	url := "https://" + tpc.cfg.PublicHost + req.URL.RequestURI()
	return tpc.validator.Validate(url, params, signature)
}

// StreamTwiML answers an inbound call by connecting Twilio's media stream to
// the voice runtime.
func (tpc Twilio) StreamTwiML(streamUrl string) (string, error) {
	stream := twiml.VoiceStream{
		Url: streamUrl,
	}
	connect := twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}
	return twiml.Voice([]twiml.Element{connect})
}

// RejectTwiML speaks an apology and hangs up. Answered to calls on numbers
// without a store profile.
func (tpc Twilio) RejectTwiML(message string) (string, error) {
	say := &twiml.VoiceSay{
		Message: message,
	}
	hangup := &twiml.VoiceHangup{}
	return twiml.Voice([]twiml.Element{say, hangup})
}

// IsTerminalStatus reports whether a status callback value means the call is
// over from Twilio's point of view.
func IsTerminalStatus(status string) bool {
	switch status {
	case "completed", "busy", "failed", "no-answer", "canceled":
		return true
	}
	return false
}
