// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_callsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/connectors"
)

// ErrNotFound is returned when no call session exists for the given id.
var ErrNotFound = errors.New("call session not found")

// Store provides operations to save and retrieve call sessions from Postgres.
//
// Sessions are one-per-call records. Telephony providers send status callbacks
// asynchronously, and those can arrive at any time, including after the stream
// has disconnected and the session has been completed. Therefore the row is
// never deleted during the call lifecycle; it only transitions through
// statuses: pending → active → completed/abandoned.
type Store interface {
	// Save stores a call session with a generated session id (UUID) when none
	// is set. Returns the session id.
	Save(ctx context.Context, cs *CallSession) (string, error)

	// Get retrieves a call session by session id regardless of its current
	// status. This is intentional: status callbacks from telephony providers
	// may arrive after the call has already ended and still need the row.
	Get(ctx context.Context, sessionID string) (*CallSession, error)

	// FindByChannel resolves a session from the provider's call identifier
	// (Twilio CallSid, Vonage conversation UUID). Status callbacks carry the
	// provider id, not the session id.
	FindByChannel(ctx context.Context, channelUUID string) (*CallSession, error)

	// Claim atomically transitions a session from "pending" to "active".
	// Only one concurrent stream connection can win the claim; later callers
	// get an error because the row is no longer claimable.
	Claim(ctx context.Context, sessionID string) (*CallSession, error)

	// Complete marks the session completed and writes the end-of-call fields
	// (transcript, dominant intent, reason, escalation flag, duration).
	// Called exactly once when the stream closes.
	Complete(ctx context.Context, sessionID string, outcome Completion) error

	// Abandon marks a still-pending session abandoned. Used by provider
	// status callbacks when the caller hung up before the stream connected.
	Abandon(ctx context.Context, sessionID string) error

	// UpdateField sets a single column on an existing session. Used to patch
	// the provider channel UUID once the provider reports it.
	UpdateField(ctx context.Context, sessionID, field, value string) error

	// List returns sessions newest-first with optional filters.
	List(ctx context.Context, filter ListFilter) ([]CallSession, int64, error)
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	StoreID string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

type postgresStore struct {
	postgres connectors.PostgresConnector
	logger   commons.Logger
}

// NewStore creates a call session store backed by Postgres.
func NewStore(postgres connectors.PostgresConnector, logger commons.Logger) Store {
	return &postgresStore{
		postgres: postgres,
		logger:   logger,
	}
}

func (s *postgresStore) Save(ctx context.Context, cs *CallSession) (string, error) {
	if cs.SessionID == "" {
		cs.SessionID = uuid.New().String()
	}
	if cs.Status == "" {
		cs.Status = StatusPending
	}

	db := s.postgres.DB(ctx)
	if err := db.Create(cs).Error; err != nil {
		return "", fmt.Errorf("failed to save call session %s: %w", cs.SessionID, err)
	}

	s.logger.Infof("saved call session: sessionId=%s, store=%s, caller=%s, provider=%s",
		cs.SessionID, cs.StoreID, cs.Caller, cs.Provider)

	return cs.SessionID, nil
}

func (s *postgresStore) Get(ctx context.Context, sessionID string) (*CallSession, error) {
	db := s.postgres.DB(ctx)
	var cs CallSession
	if err := db.Where("session_id = ?", sessionID).First(&cs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load call session %s: %w", sessionID, err)
	}

	s.logger.Debugf("resolved call session: sessionId=%s, store=%s, status=%s",
		cs.SessionID, cs.StoreID, cs.Status)

	return &cs, nil
}

func (s *postgresStore) FindByChannel(ctx context.Context, channelUUID string) (*CallSession, error) {
	db := s.postgres.DB(ctx)
	var cs CallSession
	if err := db.Where("channel_uuid = ?", channelUUID).Order("started_at DESC").First(&cs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: channel %s", ErrNotFound, channelUUID)
		}
		return nil, fmt.Errorf("failed to resolve channel %s: %w", channelUUID, err)
	}
	return &cs, nil
}

// Claim uses an atomic UPDATE ... WHERE status = 'pending' so only one stream
// connection can win. The row stays readable for late status callbacks.
func (s *postgresStore) Claim(ctx context.Context, sessionID string) (*CallSession, error) {
	db := s.postgres.DB(ctx)

	result := db.Model(&CallSession{}).
		Where("session_id = ? AND status = ?", sessionID, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusActive,
			"updated_date": time.Now(),
		})

	if result.Error != nil {
		return nil, fmt.Errorf("failed to claim call session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("call session %s not found or already claimed", sessionID)
	}

	var cs CallSession
	if err := db.Where("session_id = ?", sessionID).First(&cs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch claimed call session %s: %w", sessionID, err)
	}

	s.logger.Debugf("claimed call session: sessionId=%s, store=%s, caller=%s",
		cs.SessionID, cs.StoreID, cs.Caller)

	return &cs, nil
}

func (s *postgresStore) Complete(ctx context.Context, sessionID string, outcome Completion) error {
	db := s.postgres.DB(ctx)
	result := db.Model(&CallSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":           StatusCompleted,
			"transcript":       outcome.Transcript,
			"query_type":       outcome.QueryType,
			"call_reason":      outcome.CallReason,
			"escalated":        outcome.Escalated,
			"duration_seconds": outcome.DurationSeconds,
			"updated_date":     time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete call session %s: %w", sessionID, result.Error)
	}

	s.logger.Infof("completed call session: sessionId=%s, intent=%s, escalated=%v, duration=%ds",
		sessionID, outcome.QueryType, outcome.Escalated, outcome.DurationSeconds)
	return nil
}

// Abandon only fires on still-pending rows; a claimed session that ends goes
// through Complete instead.
func (s *postgresStore) Abandon(ctx context.Context, sessionID string) error {
	db := s.postgres.DB(ctx)
	result := db.Model(&CallSession{}).
		Where("session_id = ? AND status = ?", sessionID, StatusPending).
		Updates(map[string]interface{}{
			"status":       StatusAbandoned,
			"updated_date": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to abandon call session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Infof("abandoned call session: sessionId=%s", sessionID)
	}
	return nil
}

func (s *postgresStore) UpdateField(ctx context.Context, sessionID, field, value string) error {
	db := s.postgres.DB(ctx)

	// Allowlist of updatable fields to prevent SQL injection
	allowed := map[string]bool{
		"channel_uuid": true,
		"status":       true,
		"provider":     true,
	}
	if !allowed[field] {
		return fmt.Errorf("field %q is not updatable on call session", field)
	}

	result := db.Model(&CallSession{}).
		Where("session_id = ?", sessionID).
		Update(field, value)

	if result.Error != nil {
		return fmt.Errorf("failed to update field %s on call session %s: %w", field, sessionID, result.Error)
	}

	s.logger.Debugf("updated call session field: sessionId=%s, %s=%s", sessionID, field, value)
	return nil
}

func (s *postgresStore) List(ctx context.Context, filter ListFilter) ([]CallSession, int64, error) {
	db := s.postgres.DB(ctx).Model(&CallSession{})

	if filter.StoreID != "" {
		db = db.Where("store_id = ?", filter.StoreID)
	}
	if !filter.From.IsZero() {
		db = db.Where("started_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("started_at <= ?", filter.To)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count call sessions: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var sessions []CallSession
	if err := db.Order("started_at DESC").Limit(limit).Offset(filter.Offset).Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list call sessions: %w", err)
	}

	return sessions, total, nil
}
