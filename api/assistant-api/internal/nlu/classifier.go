// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_nlu

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flosch/pongo2/v6"

	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
)

// Classifier maps a caller utterance to one of the intent labels.
type Classifier interface {
	// Classify returns the label for query given the recent conversation
	// history (already rendered as text, may be empty). It never leaves the
	// label set: when the model misbehaves or the provider is unreachable it
	// falls back to FallbackIntent so the call can continue, returning the
	// underlying error alongside for logging.
	Classify(ctx context.Context, history, query string) (string, error)
}

var classifierSystemTemplate = pongo2.Must(pongo2.FromString(`You are an intent classification system for an e-commerce customer service platform.
Classify the user's query into one of these intents:
- product: Questions about products, items, prices, availability, recommendations, etc.
- order: Questions about order status, tracking, delivery times, etc.
- update_order: Requests to change order details like shipping address, email, phone, etc.
- cancel_order: Requests to cancel orders or get refunds.
- store_info: Questions about store hours, locations, policies, contact information, etc.
- general: Greetings, thanks, goodbyes and anything that fits nowhere else.

Examples:
{{ examples|safe }}

Return only the intent name and nothing else. No explanations, no punctuation, just the single intent word.
When the user enters their phone number, customer ID, or address details classify as 'update_order'.`))

// The safe filter keeps caller text verbatim; template output is a prompt,
// not HTML.
var classifierQueryTemplate = pongo2.Must(pongo2.FromString(`History: {{ history|safe }}

Query: {{ query|safe }}
Intent:`))

type llmClassifier struct {
	cfg    *config.AppConfig
	logger commons.Logger
	llm    llm_client.ChatClient
	system string
}

// NewClassifier builds the LLM-backed classifier. It always runs on openai
// regardless of the responder provider; the few-shot prompt is tuned against
// those models.
func NewClassifier(cfg *config.AppConfig, logger commons.Logger, llm llm_client.ChatClient) (Classifier, error) {
	system, err := classifierSystemTemplate.Execute(pongo2.Context{"examples": examplesBlock()})
	if err != nil {
		return nil, err
	}
	return &llmClassifier{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
		system: system,
	}, nil
}

func (c *llmClassifier) Classify(ctx context.Context, history, query string) (string, error) {
	started := time.Now()
	defer func() {
		c.logger.Benchmark("nlu.Classify", time.Since(started))
	}()

	user, err := classifierQueryTemplate.Execute(pongo2.Context{
		"history": history,
		"query":   query,
	})
	if err != nil {
		return FallbackIntent, err
	}

	request := &llm_client.ChatRequest{
		Model: c.cfg.AssistantConfig.ClassifierModel,
		Messages: []llm_client.ChatMessage{
			{Role: llm_client.RoleSystem, Content: c.system},
			{Role: llm_client.RoleUser, Content: user},
		},
		Temperature: 0.2,
		MaxTokens:   16,
	}

	var response *llm_client.ChatResponse
	operation := func() error {
		var opErr error
		response, opErr = c.llm.Chat(ctx, "openai", request)
		return opErr
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		c.logger.Errorf("intent classification failed, falling back to %s: %v", FallbackIntent, err)
		return FallbackIntent, err
	}

	intent := strings.ToLower(strings.TrimSpace(response.Content))
	if !IsIntent(intent) {
		c.logger.Warnf("classifier returned unknown label %q for query %q, falling back to %s",
			intent, query, FallbackIntent)
		return FallbackIntent, nil
	}

	c.logger.Debugf("classified intent: %s", intent)
	return intent, nil
}
