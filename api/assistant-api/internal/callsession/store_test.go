// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_callsession

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cartlineai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-callsession"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

// mockConnector satisfies connectors.PostgresConnector over a sqlmock handle.
type mockConnector struct {
	db *gorm.DB
}

func (m *mockConnector) DB(ctx context.Context) *gorm.DB { return m.db.WithContext(ctx) }
func (m *mockConnector) Ping(ctx context.Context) error  { return nil }
func (m *mockConnector) Close() error                    { return nil }

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{Conn: db, PreferSimpleProtocol: true})
	gdb, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewStore(&mockConnector{db: gdb}, newTestLogger(t)), mock, db
}

func sessionColumns() []string {
	return []string{
		"id", "session_id", "status", "provider", "channel_uuid",
		"caller_number", "called_number", "store_id", "store_name",
		"transcript", "query_type", "call_reason", "escalated",
		"duration_seconds", "started_at", "created_date", "updated_date",
	}
}

func sessionRow(sessionID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(sessionColumns()).AddRow(
		uint64(42), sessionID, status, "twilio", "CA123",
		"+15550001111", "+15559990000", "+15559990000", "Maple Outfitters",
		"", "", "", false, uint32(0), now, now, now,
	)
}

// =============================================================================
// Save
// =============================================================================

func TestSaveGeneratesSessionID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO "call_sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint64(42)))

	cs := &CallSession{
		Provider: "twilio",
		Caller:   "+15550001111",
		Called:   "+15559990000",
		StoreID:  "+15559990000",
	}
	sessionID, err := store.Save(context.Background(), cs)

	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
	assert.Equal(t, sessionID, cs.SessionID)
	assert.Equal(t, StatusPending, cs.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveKeepsProvidedSessionID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO "call_sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uint64(7)))

	cs := &CallSession{SessionID: "fixed-session-id", StoreID: "+15559990000"}
	sessionID, err := store.Save(context.Background(), cs)

	require.NoError(t, err)
	assert.Equal(t, "fixed-session-id", sessionID)
}

// =============================================================================
// Claim
// =============================================================================

func TestClaimTransitionsPendingSession(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE "call_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "call_sessions" WHERE session_id =`)).
		WillReturnRows(sessionRow("sess-1", StatusActive))

	cs, err := store.Claim(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, "sess-1", cs.SessionID)
	assert.Equal(t, StatusActive, cs.Status)
	assert.Equal(t, "+15550001111", cs.Caller)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLosesWhenAlreadyClaimed(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE "call_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Claim(context.Background(), "sess-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already claimed")
}

// =============================================================================
// Complete / Abandon
// =============================================================================

func TestCompleteWritesOutcome(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE "call_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Complete(context.Background(), "sess-1", Completion{
		Transcript:      "USER:\nwhere is my order\n\n",
		QueryType:       "order",
		CallReason:      "where is my order",
		Escalated:       false,
		DurationSeconds: 95,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbandonIgnoresNonPendingSessions(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE "call_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Abandon(context.Background(), "sess-1")

	// Abandoning an already-claimed session is a no-op, not an error.
	require.NoError(t, err)
}

// =============================================================================
// UpdateField
// =============================================================================

func TestUpdateFieldRejectsUnknownColumn(t *testing.T) {
	store, _, db := newMockStore(t)
	defer db.Close()

	err := store.UpdateField(context.Background(), "sess-1", "transcript", "oops")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not updatable")
}

func TestUpdateFieldPatchesChannelUUID(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE "call_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateField(context.Background(), "sess-1", "channel_uuid", "CA999")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// List
// =============================================================================

func TestListFiltersByStore(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "call_sessions"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`SELECT \* FROM "call_sessions"`).
		WillReturnRows(sessionRow("sess-1", StatusCompleted))

	sessions, total, err := store.List(context.Background(), ListFilter{StoreID: "+15559990000"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-1", sessions[0].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
