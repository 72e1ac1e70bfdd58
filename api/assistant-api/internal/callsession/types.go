// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_callsession

import (
	"time"

	"gorm.io/gorm"

	gorm_generator "github.com/cartlineai/pkg/models/gorm/generators"
)

// Call session status constants.
const (
	StatusPending   = "pending"   // Webhook created the row, waiting for the stream connection
	StatusActive    = "active"    // Stream connection claimed the session
	StatusCompleted = "completed" // Call ended, transcript persisted
	StatusAbandoned = "abandoned" // Never claimed before the provider's terminal status callback
)

// CallSession is the one-row-per-call record. It bridges the gap between the
// telephony webhook that answers the call and the WebSocket stream that
// carries the conversation, then receives the transcript and outcome fields
// exactly once when the call ends.
//
// Telephony providers fire status callbacks asynchronously, sometimes after
// the stream has already disconnected, so the row is never deleted during the
// call lifecycle; it only moves through statuses:
// pending → active → completed, or pending → abandoned.
type CallSession struct {
	Id        uint64 `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	SessionID string `json:"sessionId" gorm:"column:session_id;type:varchar(36);not null;uniqueIndex"`
	Status    string `json:"status" gorm:"column:status;type:varchar(20);not null;default:pending;index"`

	// Provider is the telephony provider that delivered the call.
	Provider string `json:"provider" gorm:"column:provider;type:varchar(50);not null;default:''"`

	// ChannelUUID is the provider-specific call identifier (Twilio CallSid,
	// Vonage conversation UUID). Stored so status callbacks can be correlated
	// with the session they belong to.
	ChannelUUID string `json:"channelUuid" gorm:"column:channel_uuid;type:varchar(200);not null;default:'';index"`

	Caller string `json:"caller" gorm:"column:caller_number;type:varchar(50);not null;default:'';index"`
	Called string `json:"called" gorm:"column:called_number;type:varchar(50);not null;default:''"`

	// StoreID is the store's inbound phone number, the key into the store
	// profile hash the call was answered with.
	StoreID   string `json:"storeId" gorm:"column:store_id;type:varchar(50);not null;index"`
	StoreName string `json:"storeName" gorm:"column:store_name;type:varchar(200);not null;default:''"`

	Transcript string `json:"transcript" gorm:"column:transcript;type:text;not null;default:''"`

	// QueryType is the dominant intent observed across the call.
	QueryType string `json:"queryType" gorm:"column:query_type;type:varchar(50);not null;default:''"`

	// CallReason is the caller's opening request, kept verbatim for review.
	CallReason string `json:"callReason" gorm:"column:call_reason;type:text;not null;default:''"`

	Escalated       bool   `json:"escalated" gorm:"column:escalated;not null;default:false"`
	DurationSeconds uint32 `json:"durationSeconds" gorm:"column:duration_seconds;not null;default:0"`

	StartedAt   time.Time `json:"startedAt" gorm:"column:started_at;type:timestamp;not null;index"`
	CreatedDate time.Time `json:"createdDate" gorm:"type:timestamp;not null;<-:create"`
	UpdatedDate time.Time `json:"updatedDate" gorm:"type:timestamp;default:null"`
}

func (CallSession) TableName() string {
	return "call_sessions"
}

func (cs *CallSession) BeforeCreate(tx *gorm.DB) (err error) {
	if cs.Id <= 0 {
		cs.Id = gorm_generator.ID()
	}
	if cs.CreatedDate.IsZero() {
		cs.CreatedDate = time.Now()
	}
	if cs.StartedAt.IsZero() {
		cs.StartedAt = cs.CreatedDate
	}
	return nil
}

// IsPending returns true if no stream connection has claimed the session yet.
func (cs *CallSession) IsPending() bool {
	return cs.Status == StatusPending
}

// IsActive returns true if a stream connection owns the session.
func (cs *CallSession) IsActive() bool {
	return cs.Status == StatusActive
}

// Completion carries the end-of-call fields written exactly once.
type Completion struct {
	Transcript      string
	QueryType       string
	CallReason      string
	Escalated       bool
	DurationSeconds uint32
}
