// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package assistant_talk_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	internal_agent "github.com/cartlineai/api/assistant-api/internal/agent"
	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	"github.com/cartlineai/pkg/commons"
	"github.com/cartlineai/pkg/utils"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream handles the voice runtime's connection for one call.
// The WebSocket carries transcripts and reply text only; call audio stays
// between the caller, the telephony provider and the runtime.
//
// @Router /v1/talk/stream [get]
// @Summary Conversation stream for a claimed call session
// @Param token query string false "Stream token minted by the telephony webhook"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} gin.H
// @Failure 409 {object} gin.H
func (api *TalkApi) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.Request)
	}

	sessionID, err := VerifyStreamToken(api.cfg, token)
	if err != nil {
		api.logger.Warnf("stream rejected: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired stream token"})
		return
	}

	// Every log line under this connection carries the session id.
	ctx := commons.WithRequestID(c.Request.Context(), sessionID)

	cs, err := api.sessions.Claim(ctx, sessionID)
	if err != nil {
		api.logger.Warnf("stream rejected for session %s: %v", sessionID, err)
		c.JSON(http.StatusConflict, gin.H{"error": "session is not claimable"})
		return
	}

	source := c.GetHeader(utils.HEADER_SOURCE_KEY)
	if source == "" {
		source = "unidentified"
	}
	api.logger.Infof("stream claimed session %s (runtime %s)", sessionID, source)

	profile, err := api.stores.Get(ctx, cs.StoreID)
	if err != nil {
		// The webhook resolved this profile when it answered the call, so a
		// miss here means it was deleted in between. The call carries on with
		// the generic greeting and no commerce access rather than dropping.
		api.logger.Errorf("store profile lost for session %s (store %s): %v", sessionID, cs.StoreID, err)
		profile = nil
	}

	engine, err := api.engines.Engine(&internal_agent.Session{
		SessionID: cs.SessionID,
		Caller:    cs.Caller,
		StoreID:   cs.StoreID,
		Profile:   profile,
	})
	if err != nil {
		api.logger.Errorf("failed to build engine for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to start conversation"})
		return
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Errorf("websocket upgrade failed for session %s: %v", sessionID, err)
		return
	}

	stream := &callStream{
		logger:   api.logger,
		conn:     conn,
		sessions: api.sessions,
		session:  cs,
		engine:   engine,
	}
	stream.run(ctx)
}

// bearerToken accepts the Authorization header for runtimes that cannot set
// query parameters on upgrade requests.
func bearerToken(req *http.Request) string {
	auth := req.Header.Get(utils.HEADER_AUTH_KEY)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// callStream owns one WebSocket connection for the lifetime of a call.
type callStream struct {
	logger   commons.Logger
	conn     *websocket.Conn
	sessions internal_callsession.Store
	session  *internal_callsession.CallSession
	engine   internal_agent.Engine
	greeting string

	writeMu sync.Mutex // serializes writes; speech chunks and pongs interleave
	once    sync.Once
}

// run drives the read loop until the runtime hangs up, the context dies or
// the socket errors. The session row is completed exactly once on the way
// out.
func (s *callStream) run(ctx context.Context) {
	defer s.finish()
	defer s.conn.Close()

	if err := s.sendReady(); err != nil {
		s.logger.Errorf("failed to greet session %s: %v", s.session.SessionID, err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugf("stream closed normally for session %s", s.session.SessionID)
			} else {
				s.logger.Warnf("stream read error for session %s: %v", s.session.SessionID, err)
			}
			return
		}

		var req StreamRequest
		if err := json.Unmarshal(message, &req); err != nil {
			s.logger.Warnf("unparseable stream message on session %s: %v", s.session.SessionID, err)
			s.sendError(http.StatusBadRequest, "unparseable message")
			continue
		}

		done, err := s.handle(ctx, &req)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Errorf("stream turn failed for session %s: %v", s.session.SessionID, err)
			}
			return
		}
		if done {
			return
		}
	}
}

func (s *callStream) handle(ctx context.Context, req *StreamRequest) (bool, error) {
	switch req.Type {
	case StreamTypeSessionStart:
		// The claim already happened on upgrade. Re-sending ready covers
		// runtimes that wait for a start acknowledgement before listening.
		return false, s.sendReady()

	case StreamTypeUserSpeech:
		var speech UserSpeechData
		if len(req.Data) > 0 {
			if err := json.Unmarshal(req.Data, &speech); err != nil {
				s.logger.Warnf("unparseable user speech on session %s: %v", s.session.SessionID, err)
				return false, s.sendError(http.StatusBadRequest, "unparseable user_speech payload")
			}
		}
		if !speech.Completed {
			return false, nil
		}
		return false, s.respond(ctx, speech.Content)

	case StreamTypePing:
		return false, s.send(StreamTypePong, nil)

	case StreamTypeSessionEnd:
		return true, nil

	default:
		return false, s.sendError(http.StatusBadRequest, fmt.Sprintf("unsupported message type %q", req.Type))
	}
}

// respond runs one utterance through the agent and streams the reply back as
// per-sentence chunks, followed by a transfer directive when the caller asked
// for a human.
func (s *callStream) respond(ctx context.Context, utterance string) error {
	s.logger.Tracef(ctx, "caller: %q", utils.Truncate(utterance, 120))
	reply, err := s.engine.Respond(ctx, utterance)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}

	turnID := uuid.New().String()
	sentences := reply.Sentences
	if len(sentences) == 0 && reply.Text != "" {
		sentences = []string{reply.Text}
	}
	s.logger.Tracef(ctx, "agent: intent=%q sentences=%d transfer=%v",
		reply.Intent, len(sentences), reply.Transfer != nil)
	for i, sentence := range sentences {
		err := s.send(StreamTypeAgentSpeech, AgentSpeechData{
			ID:        turnID,
			Content:   sentence,
			Index:     i,
			Completed: i == len(sentences)-1,
		})
		if err != nil {
			return err
		}
	}

	if reply.Transfer != nil {
		return s.send(StreamTypeTransfer, TransferData{
			Number: reply.Transfer.Number,
			Reason: reply.Transfer.Reason,
		})
	}
	return nil
}

// sendReady greets the runtime. The greeting is rendered once; a repeated
// session_start gets the same line instead of a second transcript entry.
func (s *callStream) sendReady() error {
	if s.greeting == "" {
		s.greeting = s.engine.Greeting()
	}
	return s.send(StreamTypeSessionReady, SessionReadyData{
		SessionID: s.session.SessionID,
		StoreName: s.session.StoreName,
		Greeting:  s.greeting,
	})
}

func (s *callStream) send(msgType StreamMessageType, data interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	payload, err := json.Marshal(StreamResponse{
		Type:    msgType,
		Success: true,
		Data:    data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msgType, err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *callStream) sendError(code int, message string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	payload, err := json.Marshal(StreamResponse{
		Type:    StreamTypeError,
		Success: false,
		Error:   &ErrorData{Code: code, Message: message},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal error message: %w", err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// finish persists the call outcome exactly once. It runs on a fresh context
// because the request context is usually dead by the time the socket closes.
func (s *callStream) finish() {
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.sessions.Complete(ctx, s.session.SessionID, s.engine.Completion()); err != nil {
			s.logger.Errorf("failed to persist outcome for session %s: %v", s.session.SessionID, err)
		}
	})
}
