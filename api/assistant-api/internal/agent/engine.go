// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	internal_agent_tool "github.com/cartlineai/api/assistant-api/internal/agent/tool"
	internal_sentence_assembler "github.com/cartlineai/api/assistant-api/internal/assembler/text"
	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	internal_commerce "github.com/cartlineai/api/assistant-api/internal/commerce"
	internal_nlu "github.com/cartlineai/api/assistant-api/internal/nlu"
	internal_retrieval "github.com/cartlineai/api/assistant-api/internal/retrieval"
	internal_storefront "github.com/cartlineai/api/assistant-api/internal/storefront"
	internal_synthesizes "github.com/cartlineai/api/assistant-api/internal/synthesizes"
	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
)

// Callers asking for a person bypass the whole pipeline; matching is
// case-insensitive substring so "can I please talk to agent now" still hits.
var escalationPhrases = []string{
	"speak to human",
	"talk to agent",
	"agent please",
	"transfer me",
	"real person",
}

const (
	transferReply   = "I understand you'd like to speak with a human representative. I'll transfer your call now."
	noTransferReply = "I'm sorry, I can't transfer your call right now. Is there anything else I can help you with?"
	recoveryReply   = "I'm sorry, I'm having trouble processing that right now. Could you say that again?"

	transferReason = "Customer requested human assistance"

	// classifierHistoryTurns is how much context the intent model sees. Six
	// turns disambiguates follow-ups ("cancel it") without drowning the
	// few-shot prompt.
	classifierHistoryTurns = 6
)

// Session is the immutable identity of one claimed call.
type Session struct {
	SessionID string
	Caller    string
	StoreID   string
	Profile   *internal_storefront.Profile
}

// Transfer directs the voice runtime to move the call to a human.
type Transfer struct {
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// Reply is the engine's output for one caller utterance. Text is the
// normalized spoken form; Sentences are its TTS-sized chunks. Transfer is set
// when the call should leave the assistant.
type Reply struct {
	Intent    string
	Text      string
	Sentences []string
	Transfer  *Transfer
}

// toolDispatcher is the slice of the tool registry the engine drives.
type toolDispatcher interface {
	Dispatch(ctx context.Context, call *internal_agent_tool.Call) (*internal_agent_tool.Result, error)
}

// Engine drives one call's conversation. It is not shared between calls: the
// transcript, the escalation flag and the commerce client all belong to a
// single session.
type Engine interface {
	// Greeting returns the opening line, recorded as the first agent turn.
	// Called once when the stream claims the session.
	Greeting() string

	// Respond runs the pipeline for one final utterance. Degraded turns
	// (provider down, tool unreachable) still produce a spoken reply; the
	// error return is reserved for a cancelled context.
	Respond(ctx context.Context, utterance string) (*Reply, error)

	// Completion renders the end-of-call fields for the session row.
	Completion() internal_callsession.Completion
}

// Factory builds per-call engines on the shared pipeline components.
type Factory struct {
	cfg        *config.AppConfig
	logger     commons.Logger
	llm        llm_client.ChatClient
	searcher   internal_retrieval.Searcher
	classifier internal_nlu.Classifier
	extractor  internal_nlu.Extractor
	normalizer internal_synthesizes.TextNormalizer
	assembler  internal_sentence_assembler.SentenceAssembler
	trimmer    *historyTrimmer
}

func NewFactory(cfg *config.AppConfig, logger commons.Logger, llm llm_client.ChatClient, searcher internal_retrieval.Searcher) (*Factory, error) {
	classifier, err := internal_nlu.NewClassifier(cfg, logger, llm)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	// Env vars carry the dictionary override as one joined string.
	var dictionaries []string
	if cfg.AssistantConfig.Dictionaries != "" {
		dictionaries = strings.Split(cfg.AssistantConfig.Dictionaries, commons.SEPARATOR)
	}

	return &Factory{
		cfg:        cfg,
		logger:     logger,
		llm:        llm,
		searcher:   searcher,
		classifier: classifier,
		extractor:  internal_nlu.NewExtractor(cfg, logger, llm),
		normalizer: internal_synthesizes.NewSpeechNormalizer(logger, dictionaries...),
		assembler:  internal_sentence_assembler.NewSentenceAssembler(logger),
		trimmer:    newHistoryTrimmer(logger, cfg.AssistantConfig.ChatModel, cfg.AssistantConfig.HistoryTokenBudget),
	}, nil
}

// Engine builds the pipeline for one claimed session. The commerce client is
// scoped to the store the call arrived on, so it cannot be shared.
func (f *Factory) Engine(session *Session) (Engine, error) {
	var storeName, storeDetails, baseUrl, accessToken string
	if session.Profile != nil {
		storeName = session.Profile.StoreName
		storeDetails = session.Profile.StoreDetails
		baseUrl = internal_commerce.AdminBaseUrl(session.Profile.ShopifyBaseUrl)
		accessToken = session.Profile.ShopifyAccessToken
	}

	responder, err := newResponder(f.cfg, f.logger, f.llm, f.trimmer, storeName, storeDetails)
	if err != nil {
		return nil, err
	}

	commerce := internal_commerce.NewShopifyClient(f.logger, baseUrl, accessToken)
	return &callEngine{
		logger:     f.logger,
		session:    session,
		classifier: f.classifier,
		extractor:  f.extractor,
		tools:      internal_agent_tool.NewRegistry(f.logger, f.searcher, commerce),
		responder:  responder,
		normalizer: f.normalizer,
		assembler:  f.assembler,
		recorder:   internal_callsession.NewTranscriptRecorder(),
		started:    time.Now(),
	}, nil
}

type callEngine struct {
	logger     commons.Logger
	session    *Session
	classifier internal_nlu.Classifier
	extractor  internal_nlu.Extractor
	tools      toolDispatcher
	responder  *responder
	normalizer internal_synthesizes.TextNormalizer
	assembler  internal_sentence_assembler.SentenceAssembler
	recorder   *internal_callsession.TranscriptRecorder
	started    time.Time

	mu      sync.Mutex
	intents map[string]int
	order   []string
}

func (e *callEngine) Greeting() string {
	greeting := "Hello, welcome to our online store. How can I help you today?"
	if e.session.Profile != nil && e.session.Profile.StoreName != "" {
		greeting = fmt.Sprintf("Hello, welcome to %s. How can I help you today?", e.session.Profile.StoreName)
	}
	e.recorder.AppendAgent(greeting)
	return greeting
}

func (e *callEngine) Respond(ctx context.Context, utterance string) (*Reply, error) {
	started := time.Now()
	defer func() {
		e.logger.Benchmark("agent.Turn", time.Since(started))
	}()

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, nil
	}

	// Snapshot before this turn lands: classifier and responder both see the
	// conversation up to, not including, the current utterance.
	history := e.recorder.Turns()
	e.recorder.AppendUser(utterance)

	if isEscalationRequest(utterance) {
		e.logger.Infof("escalation requested on session %s", e.session.SessionID)
		return e.escalate(ctx), nil
	}

	intent, err := e.classifier.Classify(ctx, renderHistory(tailTurns(history, classifierHistoryTurns)), utterance)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warnf("classification degraded on session %s: %v", e.session.SessionID, err)
	}
	e.observeIntent(intent)

	entities := e.extractor.Extract(ctx, intent, utterance)

	var toolContext string
	result, err := e.tools.Dispatch(ctx, &internal_agent_tool.Call{
		Intent:       intent,
		Query:        utterance,
		Entities:     entities,
		Store:        e.storeName(),
		StoreName:    e.storeName(),
		StoreDetails: e.storeDetails(),
		Caller:       e.session.Caller,
	})
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		e.logger.Errorf("tool dispatch failed on session %s for intent %s: %v", e.session.SessionID, intent, err)
		toolContext = "I encountered an error while retrieving the requested information."
	case result != nil:
		toolContext = result.Content
	}

	text, err := e.responder.Respond(ctx, history, utterance, toolContext)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Errorf("responder failed on session %s: %v", e.session.SessionID, err)
		text = recoveryReply
	}

	e.recorder.AppendAgent(text)
	return e.reply(ctx, intent, text, nil), nil
}

func (e *callEngine) Completion() internal_callsession.Completion {
	return internal_callsession.Completion{
		Transcript:      e.recorder.String(),
		QueryType:       e.dominantIntent(),
		CallReason:      e.recorder.FirstUser(),
		Escalated:       e.recorder.Escalated(),
		DurationSeconds: uint32(time.Since(e.started).Seconds()),
	}
}

// escalate flags the session and hands back the transfer directive. A store
// without a transfer number gets a spoken apology instead; the escalation is
// still recorded for review.
func (e *callEngine) escalate(ctx context.Context) *Reply {
	e.recorder.Escalate()

	var number string
	if e.session.Profile != nil {
		number = e.session.Profile.TransferNumber
	}
	if number == "" {
		e.logger.Warnf("no transfer number configured for store %s, keeping session %s on the line",
			e.session.StoreID, e.session.SessionID)
		e.recorder.AppendAgent(noTransferReply)
		return e.reply(ctx, "", noTransferReply, nil)
	}

	e.recorder.AppendAgent(transferReply)
	return e.reply(ctx, "", transferReply, &Transfer{Number: number, Reason: transferReason})
}

func (e *callEngine) reply(ctx context.Context, intent, text string, transfer *Transfer) *Reply {
	normalized := e.normalizer.Normalize(ctx, text)
	return &Reply{
		Intent:    intent,
		Text:      normalized,
		Sentences: e.assembler.Assemble(normalized),
		Transfer:  transfer,
	}
}

func (e *callEngine) storeName() string {
	if e.session.Profile == nil {
		return ""
	}
	return e.session.Profile.StoreName
}

func (e *callEngine) storeDetails() string {
	if e.session.Profile == nil {
		return ""
	}
	return e.session.Profile.StoreDetails
}

// observeIntent tracks per-intent turn counts for the session row's dominant
// query type.
func (e *callEngine) observeIntent(intent string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.intents == nil {
		e.intents = map[string]int{}
	}
	if _, seen := e.intents[intent]; !seen {
		e.order = append(e.order, intent)
	}
	e.intents[intent]++
}

// dominantIntent is the most frequent non-general intent of the call, first
// observed winning ties. A call that never left chit-chat reports general.
func (e *callEngine) dominantIntent() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dominant string
	best := 0
	for _, intent := range e.order {
		if intent == internal_nlu.IntentGeneral {
			continue
		}
		if e.intents[intent] > best {
			dominant = intent
			best = e.intents[intent]
		}
	}
	if dominant == "" && e.intents[internal_nlu.IntentGeneral] > 0 {
		return internal_nlu.IntentGeneral
	}
	return dominant
}

func isEscalationRequest(utterance string) bool {
	lowered := strings.ToLower(utterance)
	for _, phrase := range escalationPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// renderHistory flattens turns into the ROLE: content block the classifier
// prompt expects.
func renderHistory(turns []internal_callsession.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, turn.Role+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

func tailTurns(turns []internal_callsession.Turn, n int) []internal_callsession.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
