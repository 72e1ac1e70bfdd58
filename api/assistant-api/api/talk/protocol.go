// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package assistant_talk_api

import (
	"encoding/json"
)

// =============================================================================
// Stream Message Types
// =============================================================================

// StreamMessageType defines the type of message and what data structure to
// expect in its payload.
type StreamMessageType string

const (
	// Request types (runtime -> server)
	StreamTypeSessionStart StreamMessageType = "session_start" // Data: SessionStartData
	StreamTypeUserSpeech   StreamMessageType = "user_speech"   // Data: UserSpeechData
	StreamTypeSessionEnd   StreamMessageType = "session_end"   // Data: nil

	// Response types (server -> runtime)
	StreamTypeSessionReady StreamMessageType = "session_ready" // Data: SessionReadyData
	StreamTypeAgentSpeech  StreamMessageType = "agent_speech"  // Data: AgentSpeechData
	StreamTypeTransfer     StreamMessageType = "transfer"      // Data: TransferData
	StreamTypeError        StreamMessageType = "error"         // Data: ErrorData

	// Control types (bidirectional)
	StreamTypePing StreamMessageType = "ping" // Data: nil
	StreamTypePong StreamMessageType = "pong" // Data: nil
)

// =============================================================================
// Request/Response Envelope
// =============================================================================

// StreamRequest is an incoming WebSocket message from the voice runtime.
type StreamRequest struct {
	Type      StreamMessageType `json:"type"`
	Timestamp int64             `json:"timestamp"`
	Data      json.RawMessage   `json:"data,omitempty"`
}

// StreamResponse is an outgoing WebSocket message to the voice runtime.
type StreamResponse struct {
	Type    StreamMessageType `json:"type"`
	Success bool              `json:"success"`
	Data    interface{}       `json:"data,omitempty"`
	Error   *ErrorData        `json:"error,omitempty"`
}

// =============================================================================
// Data Structures for each message type
// =============================================================================

// SessionStartData identifies the runtime's view of the call.
// Used with: StreamTypeSessionStart
type SessionStartData struct {
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// UserSpeechData carries one transcript from the runtime's STT. Interim
// results arrive with Completed false and are not conversation turns.
// Used with: StreamTypeUserSpeech
type UserSpeechData struct {
	ID        string `json:"id,omitempty"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// SessionReadyData confirms the claim and hands the runtime the greeting to
// speak.
// Used with: StreamTypeSessionReady
type SessionReadyData struct {
	SessionID string `json:"session_id"`
	StoreName string `json:"store_name,omitempty"`
	Greeting  string `json:"greeting"`
}

// AgentSpeechData is one TTS-sized chunk of the agent's reply. Chunks of a
// turn share an ID; the last one carries Completed true.
// Used with: StreamTypeAgentSpeech
type AgentSpeechData struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Index     int    `json:"index"`
	Completed bool   `json:"completed"`
}

// TransferData tells the runtime to move the call to a human.
// Used with: StreamTypeTransfer
type TransferData struct {
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// ErrorData contains error information.
// Used with: StreamTypeError or in StreamResponse.Error
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
