// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_callsession

import (
	"strings"
	"sync"
	"time"

	"github.com/cartlineai/pkg/utils"
)

const (
	RoleUser  = "USER"
	RoleAgent = "AGENT"
)

// Turn is one utterance in the call transcript.
type Turn struct {
	Role    string
	Content string
	At      time.Time
}

// TranscriptRecorder accumulates the conversation in memory during the call.
// The rendered transcript is written to the session row exactly once at call
// end, so the recorder never touches storage itself.
type TranscriptRecorder struct {
	mu        sync.Mutex
	turns     []Turn
	escalated bool
}

func NewTranscriptRecorder() *TranscriptRecorder {
	return &TranscriptRecorder{turns: make([]Turn, 0, 16)}
}

func (r *TranscriptRecorder) AppendUser(content string) {
	r.append(RoleUser, content)
}

func (r *TranscriptRecorder) AppendAgent(content string) {
	r.append(RoleAgent, content)
}

func (r *TranscriptRecorder) append(role, content string) {
	if utils.IsEmpty(content) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, Turn{Role: role, Content: content, At: time.Now()})
}

// Escalate marks the call as handed to a human. Sticky for the call.
func (r *TranscriptRecorder) Escalate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.escalated = true
}

func (r *TranscriptRecorder) Escalated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.escalated
}

// Turns returns a copy of the recorded turns.
func (r *TranscriptRecorder) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Turn, len(r.turns))
	copy(out, r.turns)
	return out
}

func (r *TranscriptRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns)
}

// FirstUser returns the caller's opening utterance, the stored call reason.
func (r *TranscriptRecorder) FirstUser() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, turn := range r.turns {
		if turn.Role == RoleUser {
			return turn.Content
		}
	}
	return ""
}

// String renders the transcript in the persisted wire shape:
//
//	USER:
//	<content>
//
//	AGENT:
//	<content>
func (r *TranscriptRecorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, turn := range r.turns {
		b.WriteString(turn.Role)
		b.WriteString(":\n")
		b.WriteString(turn.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
