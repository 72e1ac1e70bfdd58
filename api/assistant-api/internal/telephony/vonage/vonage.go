// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_vonage_telephony

import (
	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
)

// Endpoint is a connect target inside an NCCO connect action.
type Endpoint struct {
	Type        string            `json:"type"`
	Uri         string            `json:"uri"`
	ContentType string            `json:"content-type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Action is one NCCO step. Only the actions Cartline answers with are
// modelled; the full document is a bare JSON array of actions.
type Action struct {
	Action   string     `json:"action"`
	Text     string     `json:"text,omitempty"`
	Endpoint []Endpoint `json:"endpoint,omitempty"`
}

// Vonage is the webhook-side helper for calls delivered over Vonage. Answer
// webhooks reply with an NCCO document; audio flows between Vonage and the
// voice runtime, never through this service.
type Vonage struct {
	cfg    *config.AppConfig
	logger commons.Logger
}

func NewVonage(cfg *config.AppConfig, logger commons.Logger) Vonage {
	return Vonage{
		cfg:    cfg,
		logger: logger,
	}
}

// ConnectNcco bridges the caller's audio to the voice runtime over a
// websocket endpoint. Vonage requires a content type on websocket endpoints.
func (vt Vonage) ConnectNcco(streamUrl string) []Action {
	return []Action{
		{
			Action: "connect",
			Endpoint: []Endpoint{
				{
					Type:        "websocket",
					Uri:         streamUrl,
					ContentType: "audio/l16;rate=16000",
				},
			},
		},
	}
}

// RejectNcco speaks an apology; with no follow-up action Vonage ends the
// call. Answered to calls on numbers without a store profile.
func (vt Vonage) RejectNcco(message string) []Action {
	return []Action{
		{
			Action: "talk",
			Text:   message,
		},
	}
}

// IsTerminalStatus reports whether an event webhook status means the call is
// over (or never connected) from Vonage's point of view.
func IsTerminalStatus(status string) bool {
	switch status {
	case "completed", "failed", "rejected", "busy", "cancelled", "timeout", "unanswered":
		return true
	}
	return false
}
