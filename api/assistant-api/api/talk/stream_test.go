// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package assistant_talk_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_agent "github.com/cartlineai/api/assistant-api/internal/agent"
	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
)

// ====== Stream test harness ======

type streamFixture struct {
	api       *TalkApi
	server    *httptest.Server
	sessions  *fakeSessionStore
	factory   *fakeEngineFactory
	engine    *fakeEngine
	sessionID string
}

func newStreamFixture(t *testing.T, engine *fakeEngine, profiles map[string]*internal_storefront.Profile) *streamFixture {
	t.Helper()

	sessions := newFakeSessionStore()
	sessionID, err := sessions.Save(context.Background(), &internal_callsession.CallSession{
		Status:      internal_callsession.StatusPending,
		Provider:    "twilio",
		ChannelUUID: "CA0123456789",
		Caller:      "+15557654321",
		Called:      "+15551230000",
		StoreID:     "+15551230000",
		StoreName:   "Maple & Thread",
	})
	require.NoError(t, err)

	factory := &fakeEngineFactory{engine: engine}
	api := newTestTalkApi(t, sessions, &fakeProfileStore{profiles: profiles}, factory)
	server := httptest.NewServer(testRouter(api))
	t.Cleanup(server.Close)

	return &streamFixture{
		api:       api,
		server:    server,
		sessions:  sessions,
		factory:   factory,
		engine:    engine,
		sessionID: sessionID,
	}
}

func (fx *streamFixture) dial(t *testing.T, token string) (*websocket.Conn, *http.Response) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/v1/talk/stream?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			t.Cleanup(func() { resp.Body.Close() })
		}
		return nil, resp
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn, resp
}

func (fx *streamFixture) mintToken(t *testing.T) string {
	t.Helper()
	token, err := MintStreamToken(fx.api.cfg, fx.sessionID)
	require.NoError(t, err)
	return token
}

func writeStreamRequest(t *testing.T, conn *websocket.Conn, msgType StreamMessageType, data interface{}) {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		require.NoError(t, err)
		raw = encoded
	}
	payload, err := json.Marshal(StreamRequest{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func readStreamResponse(t *testing.T, conn *websocket.Conn) StreamResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp StreamResponse
	require.NoError(t, json.Unmarshal(message, &resp))
	return resp
}

func decodeStreamData(t *testing.T, resp StreamResponse, out interface{}) {
	t.Helper()
	encoded, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, out))
}

// ====== Tests ======

func TestStreamConversationFlow(t *testing.T) {
	engine := &fakeEngine{
		greeting: "Hi, thanks for calling Maple & Thread! How can I help?",
		replies: map[string]*internal_agent.Reply{
			"where is my order": {
				Intent:    "order_status",
				Text:      "Your order shipped yesterday. It arrives Tuesday.",
				Sentences: []string{"Your order shipped yesterday.", "It arrives Tuesday."},
			},
		},
		completion: internal_callsession.Completion{
			Transcript:      "Assistant: Hi\nUser: where is my order",
			QueryType:       "order_status",
			CallReason:      "order status check",
			DurationSeconds: 42,
		},
	}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	conn, _ := fx.dial(t, fx.mintToken(t))
	require.NotNil(t, conn)

	// The greeting arrives before the runtime says anything.
	ready := readStreamResponse(t, conn)
	assert.Equal(t, StreamTypeSessionReady, ready.Type)
	assert.True(t, ready.Success)
	var readyData SessionReadyData
	decodeStreamData(t, ready, &readyData)
	assert.Equal(t, fx.sessionID, readyData.SessionID)
	assert.Equal(t, "Maple & Thread", readyData.StoreName)
	assert.Equal(t, engine.greeting, readyData.Greeting)

	writeStreamRequest(t, conn, StreamTypeUserSpeech, UserSpeechData{
		ID:        "utt-1",
		Content:   "where is my order",
		Completed: true,
		Timestamp: time.Now().UnixMilli(),
	})

	first := readStreamResponse(t, conn)
	require.Equal(t, StreamTypeAgentSpeech, first.Type)
	var firstChunk AgentSpeechData
	decodeStreamData(t, first, &firstChunk)
	assert.Equal(t, "Your order shipped yesterday.", firstChunk.Content)
	assert.Equal(t, 0, firstChunk.Index)
	assert.False(t, firstChunk.Completed)

	second := readStreamResponse(t, conn)
	require.Equal(t, StreamTypeAgentSpeech, second.Type)
	var secondChunk AgentSpeechData
	decodeStreamData(t, second, &secondChunk)
	assert.Equal(t, "It arrives Tuesday.", secondChunk.Content)
	assert.Equal(t, 1, secondChunk.Index)
	assert.True(t, secondChunk.Completed)
	assert.Equal(t, firstChunk.ID, secondChunk.ID)

	writeStreamRequest(t, conn, StreamTypePing, nil)
	pong := readStreamResponse(t, conn)
	assert.Equal(t, StreamTypePong, pong.Type)

	writeStreamRequest(t, conn, StreamTypeSessionEnd, nil)

	assert.Eventually(t, func() bool {
		return fx.sessions.completionCount() == 1
	}, 3*time.Second, 10*time.Millisecond, "session never completed")

	outcome, ok := fx.sessions.completionFor(fx.sessionID)
	require.True(t, ok)
	assert.Equal(t, engine.completion, outcome)

	built := fx.factory.builtSessions()
	require.Len(t, built, 1)
	assert.Equal(t, fx.sessionID, built[0].SessionID)
	assert.Equal(t, "+15557654321", built[0].Caller)
	require.NotNil(t, built[0].Profile)
	assert.Equal(t, "Maple & Thread", built[0].Profile.StoreName)
}

func TestStreamSendsTransferDirective(t *testing.T) {
	engine := &fakeEngine{
		greeting: "Hello!",
		replies: map[string]*internal_agent.Reply{
			"let me talk to a person": {
				Intent:    "escalation",
				Text:      "Of course, connecting you now.",
				Sentences: []string{"Of course, connecting you now."},
				Transfer: &internal_agent.Transfer{
					Number: "+15559998888",
					Reason: "caller asked for a human",
				},
			},
		},
	}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	conn, _ := fx.dial(t, fx.mintToken(t))
	require.NotNil(t, conn)
	readStreamResponse(t, conn) // session_ready

	writeStreamRequest(t, conn, StreamTypeUserSpeech, UserSpeechData{
		Content: "let me talk to a person", Completed: true,
	})

	speech := readStreamResponse(t, conn)
	assert.Equal(t, StreamTypeAgentSpeech, speech.Type)

	transfer := readStreamResponse(t, conn)
	require.Equal(t, StreamTypeTransfer, transfer.Type)
	var directive TransferData
	decodeStreamData(t, transfer, &directive)
	assert.Equal(t, "+15559998888", directive.Number)
	assert.Equal(t, "caller asked for a human", directive.Reason)
}

func TestStreamIgnoresInterimSpeech(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	conn, _ := fx.dial(t, fx.mintToken(t))
	require.NotNil(t, conn)
	readStreamResponse(t, conn) // session_ready

	writeStreamRequest(t, conn, StreamTypeUserSpeech, UserSpeechData{
		Content: "where is", Completed: false,
	})
	writeStreamRequest(t, conn, StreamTypeSessionEnd, nil)

	assert.Eventually(t, func() bool {
		return fx.sessions.completionCount() == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Empty(t, engine.heardUtterances())
}

func TestStreamRepeatedSessionStartGreetsOnce(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	conn, _ := fx.dial(t, fx.mintToken(t))
	require.NotNil(t, conn)
	first := readStreamResponse(t, conn)
	require.Equal(t, StreamTypeSessionReady, first.Type)

	writeStreamRequest(t, conn, StreamTypeSessionStart, SessionStartData{SessionID: fx.sessionID})
	second := readStreamResponse(t, conn)
	require.Equal(t, StreamTypeSessionReady, second.Type)

	var firstData, secondData SessionReadyData
	decodeStreamData(t, first, &firstData)
	decodeStreamData(t, second, &secondData)
	assert.Equal(t, firstData.Greeting, secondData.Greeting)
	assert.Equal(t, 1, engine.greetingCalls())
}

func TestStreamAnswersUnsupportedTypeWithError(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	conn, _ := fx.dial(t, fx.mintToken(t))
	require.NotNil(t, conn)
	readStreamResponse(t, conn) // session_ready

	writeStreamRequest(t, conn, StreamMessageType("bogus"), nil)

	errResp := readStreamResponse(t, conn)
	assert.Equal(t, StreamTypeError, errResp.Type)
	assert.False(t, errResp.Success)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, http.StatusBadRequest, errResp.Error.Code)
}

func TestStreamSurvivesMissingProfile(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{})

	conn, _ := fx.dial(t, fx.mintToken(t))
	require.NotNil(t, conn)

	ready := readStreamResponse(t, conn)
	assert.Equal(t, StreamTypeSessionReady, ready.Type)

	built := fx.factory.builtSessions()
	require.Len(t, built, 1)
	assert.Nil(t, built[0].Profile)
}

func TestStreamRejectsInvalidToken(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, nil)

	conn, resp := fx.dial(t, "not-a-valid-token")
	assert.Nil(t, conn)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStreamRejectsAlreadyClaimedSession(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	token := fx.mintToken(t)
	conn, _ := fx.dial(t, token)
	require.NotNil(t, conn)
	readStreamResponse(t, conn) // session_ready; the claim happened

	second, resp := fx.dial(t, token)
	assert.Nil(t, second)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStreamAcceptsBearerToken(t *testing.T) {
	engine := &fakeEngine{greeting: "Hello!"}
	fx := newStreamFixture(t, engine, map[string]*internal_storefront.Profile{
		"+15551230000": testProfile(),
	})

	wsURL := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/v1/talk/stream"
	header := http.Header{"Authorization": {"Bearer " + fx.mintToken(t)}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	ready := readStreamResponse(t, conn)
	assert.Equal(t, StreamTypeSessionReady, ready.Type)
}
