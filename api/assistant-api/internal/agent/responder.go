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
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flosch/pongo2/v6"

	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
)

var responderSystemTemplate = pongo2.Must(pongo2.FromString(`You are a voice assistant for {{ store_name|safe }}. Your interface with users will be voice.
You can deal with customer's orders, product inquiries, and general customer support.
You should use short and concise responses, avoiding usage of unpronounceable punctuation.
{% if store_details %}Below given are the details of this particular store:
{{ store_details|safe }}

{% endif %}When a Context block is attached to the customer's message, answer from it and do not invent details beyond it.
When the context reports that something was not found or could not be done, relay that honestly and suggest a next step.
Always be helpful and polite. If you cannot assist a customer with their request, apologize and offer to connect them with a human representative.`))

// Spoken replies stay short; the cap is generous enough for a three-order
// read-back and nothing more.
const (
	responderTemperature = 0.7
	responderMaxTokens   = 300
)

// responder produces the agent's side of the conversation: the rendered
// store prompt, the budget-trimmed history and the current utterance with its
// tool context go to the chat model configured for the deployment.
type responder struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	llm     llm_client.ChatClient
	trimmer *historyTrimmer
	system  string
}

func newResponder(cfg *config.AppConfig, logger commons.Logger, llm llm_client.ChatClient, trimmer *historyTrimmer, storeName, storeDetails string) (*responder, error) {
	if storeName == "" {
		storeName = "an online store"
	}
	system, err := responderSystemTemplate.Execute(pongo2.Context{
		"store_name":    storeName,
		"store_details": storeDetails,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render responder prompt: %w", err)
	}
	return &responder{
		cfg:     cfg,
		logger:  logger,
		llm:     llm,
		trimmer: trimmer,
		system:  system,
	}, nil
}

// Respond generates the reply for query. history is the transcript before
// this turn; toolContext is the data block the dispatched tool produced, or
// empty for straight chit-chat.
func (r *responder) Respond(ctx context.Context, history []internal_callsession.Turn, query, toolContext string) (string, error) {
	started := time.Now()
	defer func() {
		r.logger.Benchmark("agent.Respond", time.Since(started))
	}()

	messages := make([]llm_client.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm_client.ChatMessage{Role: llm_client.RoleSystem, Content: r.system})
	for _, turn := range r.trimmer.Trim(history) {
		role := llm_client.RoleUser
		if turn.Role == internal_callsession.RoleAgent {
			role = llm_client.RoleAssistant
		}
		messages = append(messages, llm_client.ChatMessage{Role: role, Content: turn.Content})
	}

	content := query
	if toolContext != "" {
		content = fmt.Sprintf("%s\n\nContext:\n%s", query, toolContext)
	}
	messages = append(messages, llm_client.ChatMessage{Role: llm_client.RoleUser, Content: content})

	request := &llm_client.ChatRequest{
		Model:       r.cfg.AssistantConfig.ChatModel,
		Messages:    messages,
		Temperature: responderTemperature,
		MaxTokens:   responderMaxTokens,
	}

	var response *llm_client.ChatResponse
	operation := func() error {
		var opErr error
		response, opErr = r.llm.Chat(ctx, r.cfg.AssistantConfig.Provider, request)
		return opErr
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return "", fmt.Errorf("responder chat failed: %w", err)
	}

	return strings.TrimSpace(response.Content), nil
}
