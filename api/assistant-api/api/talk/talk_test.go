// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package assistant_talk_api

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	internal_agent "github.com/cartlineai/api/assistant-api/internal/agent"
	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	internal_twilio_telephony "github.com/cartlineai/api/assistant-api/internal/telephony/twilio"
	internal_vonage_telephony "github.com/cartlineai/api/assistant-api/internal/telephony/vonage"
	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-talk"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func testTalkConfig() *config.AppConfig {
	return &config.AppConfig{
		Secret:     "test-signing-secret",
		PublicHost: "voice.example.com",
		TwilioConfig: config.TwilioConfig{
			ValidateSignature: false,
		},
		StreamConfig: config.StreamConfig{
			TokenTtlSeconds: 60,
		},
	}
}

// ====== Session store fake ======

// fakeSessionStore keeps sessions in a map and records lifecycle calls.
type fakeSessionStore struct {
	mu        sync.Mutex
	saved     []*internal_callsession.CallSession
	saveErr   error
	claimErr  error
	sessions  map[string]*internal_callsession.CallSession
	abandoned []string
	completed map[string]internal_callsession.Completion
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions:  map[string]*internal_callsession.CallSession{},
		completed: map[string]internal_callsession.Completion{},
	}
}

func (f *fakeSessionStore) Save(ctx context.Context, cs *internal_callsession.CallSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if cs.SessionID == "" {
		cs.SessionID = fmt.Sprintf("session-%d", len(f.saved)+1)
	}
	if cs.Status == "" {
		cs.Status = internal_callsession.StatusPending
	}
	f.saved = append(f.saved, cs)
	f.sessions[cs.SessionID] = cs
	return cs.SessionID, nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*internal_callsession.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs, ok := f.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("call session not found: %s", sessionID)
	}
	return cs, nil
}

func (f *fakeSessionStore) FindByChannel(ctx context.Context, channelUUID string) (*internal_callsession.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cs := range f.sessions {
		if cs.ChannelUUID == channelUUID {
			return cs, nil
		}
	}
	return nil, fmt.Errorf("call session not found for channel %s", channelUUID)
}

func (f *fakeSessionStore) Claim(ctx context.Context, sessionID string) (*internal_callsession.CallSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	cs, ok := f.sessions[sessionID]
	if !ok || cs.Status != internal_callsession.StatusPending {
		return nil, fmt.Errorf("call session %s not found or already claimed", sessionID)
	}
	cs.Status = internal_callsession.StatusActive
	return cs, nil
}

func (f *fakeSessionStore) Complete(ctx context.Context, sessionID string, outcome internal_callsession.Completion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[sessionID] = outcome
	if cs, ok := f.sessions[sessionID]; ok {
		cs.Status = internal_callsession.StatusCompleted
	}
	return nil
}

func (f *fakeSessionStore) Abandon(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, sessionID)
	if cs, ok := f.sessions[sessionID]; ok && cs.Status == internal_callsession.StatusPending {
		cs.Status = internal_callsession.StatusAbandoned
	}
	return nil
}

func (f *fakeSessionStore) UpdateField(ctx context.Context, sessionID, field, value string) error {
	return nil
}

func (f *fakeSessionStore) List(ctx context.Context, filter internal_callsession.ListFilter) ([]internal_callsession.CallSession, int64, error) {
	return nil, 0, nil
}

func (f *fakeSessionStore) savedSessions() []*internal_callsession.CallSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*internal_callsession.CallSession(nil), f.saved...)
}

func (f *fakeSessionStore) abandonedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.abandoned...)
}

func (f *fakeSessionStore) completionFor(sessionID string) (internal_callsession.Completion, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	outcome, ok := f.completed[sessionID]
	return outcome, ok
}

func (f *fakeSessionStore) completionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completed)
}

// ====== Profile store fake ======

type fakeProfileStore struct {
	profiles map[string]*internal_storefront.Profile
}

func (f *fakeProfileStore) Get(ctx context.Context, phone string) (*internal_storefront.Profile, error) {
	profile, ok := f.profiles[phone]
	if !ok {
		return nil, fmt.Errorf("%w: %s", internal_storefront.ErrNotFound, phone)
	}
	return profile, nil
}

func (f *fakeProfileStore) Put(ctx context.Context, profile *internal_storefront.Profile) error {
	return nil
}

func (f *fakeProfileStore) Delete(ctx context.Context, phone string) error {
	return nil
}

func (f *fakeProfileStore) List(ctx context.Context) ([]internal_storefront.Profile, error) {
	return nil, nil
}

// ====== Engine fakes ======

// fakeEngine scripts one reply per utterance.
type fakeEngine struct {
	mu         sync.Mutex
	greeting   string
	greetings  int
	replies    map[string]*internal_agent.Reply
	utterances []string
	completion internal_callsession.Completion
	err        error
}

func (e *fakeEngine) Greeting() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.greetings++
	return e.greeting
}

func (e *fakeEngine) Respond(ctx context.Context, utterance string) (*internal_agent.Reply, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.utterances = append(e.utterances, utterance)
	if e.err != nil {
		return nil, e.err
	}
	return e.replies[utterance], nil
}

func (e *fakeEngine) Completion() internal_callsession.Completion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completion
}

func (e *fakeEngine) heardUtterances() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.utterances...)
}

func (e *fakeEngine) greetingCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.greetings
}

type fakeEngineFactory struct {
	mu       sync.Mutex
	engine   internal_agent.Engine
	err      error
	sessions []*internal_agent.Session
}

func (f *fakeEngineFactory) Engine(session *internal_agent.Session) (internal_agent.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, session)
	if f.err != nil {
		return nil, f.err
	}
	return f.engine, nil
}

func (f *fakeEngineFactory) builtSessions() []*internal_agent.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*internal_agent.Session(nil), f.sessions...)
}

// ====== Harness ======

func newTestTalkApi(t *testing.T, sessions *fakeSessionStore, stores *fakeProfileStore, engines engineFactory) *TalkApi {
	t.Helper()
	cfg := testTalkConfig()
	logger := newTestLogger(t)
	return &TalkApi{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		stores:   stores,
		engines:  engines,
		twilio:   internal_twilio_telephony.NewTwilio(cfg, logger),
		vonage:   internal_vonage_telephony.NewVonage(cfg, logger),
	}
}

func testRouter(api *TalkApi) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/talk/stream", api.Stream)
	router.POST("/v1/talk/twilio/inbound", api.TwilioInbound)
	router.POST("/v1/talk/twilio/status", api.TwilioStatus)
	router.GET("/v1/talk/vonage/answer", api.VonageAnswer)
	router.POST("/v1/talk/vonage/answer", api.VonageAnswer)
	router.POST("/v1/talk/vonage/event", api.VonageEvent)
	return router
}
