// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package llm_client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropic_option "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openai_option "github.com/openai/openai-go/option"

	"github.com/cartlineai/config"
	"github.com/cartlineai/pkg/commons"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string
	Content string
}

type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int64
}

type ChatResponse struct {
	Content      string
	InputTokens  int64
	OutputTokens int64
}

type EmbeddingRequest struct {
	Model  string
	Inputs []string
}

type EmbeddingResponse struct {
	Embeddings [][]float64
}

// ChatClient fans chat requests out to the configured model provider and
// serves embedding requests. Embeddings always run on openai because the
// vector index is built with openai dimensions.
type ChatClient interface {
	Chat(ctx context.Context, providerName string, request *ChatRequest) (*ChatResponse, error)
	Embedding(ctx context.Context, request *EmbeddingRequest) (*EmbeddingResponse, error)
}

type chatClient struct {
	cfg             *config.AppConfig
	logger          commons.Logger
	openaiClient    openai.Client
	anthropicClient anthropic.Client
}

func NewChatClient(cfg *config.AppConfig, logger commons.Logger) ChatClient {
	return &chatClient{
		cfg:             cfg,
		logger:          logger,
		openaiClient:    openai.NewClient(openai_option.WithAPIKey(cfg.OpenaiApiKey)),
		anthropicClient: anthropic.NewClient(anthropic_option.WithAPIKey(cfg.AnthropicApiKey)),
	}
}

func (client *chatClient) Chat(ctx context.Context, providerName string, request *ChatRequest) (*ChatResponse, error) {
	switch providerName := strings.ToLower(providerName); providerName {
	case "openai":
		return client.openaiChat(ctx, request)
	case "anthropic":
		return client.anthropicChat(ctx, request)
	default:
		return nil, errors.New("illegal provider for chat request")
	}
}

func (client *chatClient) openaiChat(ctx context.Context, request *ChatRequest) (*ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages))
	for _, m := range request.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(request.Model),
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(request.MaxTokens)
	}

	resp, err := client.openaiClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat returned no choices")
	}

	return &ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (client *chatClient) anthropicChat(ctx context.Context, request *ChatRequest) (*ChatResponse, error) {
	system, turns := SplitSystem(request.Messages)

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(request.Temperature)
	}

	resp, err := client.anthropicClient.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat failed: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &ChatResponse{
		Content:      content.String(),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func (client *chatClient) Embedding(ctx context.Context, request *EmbeddingRequest) (*EmbeddingResponse, error) {
	if len(request.Inputs) == 0 {
		return &EmbeddingResponse{}, nil
	}

	resp, err := client.openaiClient.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: request.Inputs},
		Model: openai.EmbeddingModel(request.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	if len(resp.Data) != len(request.Inputs) {
		return nil, fmt.Errorf("openai embedding returned %d vectors for %d inputs", len(resp.Data), len(request.Inputs))
	}

	embeddings := make([][]float64, len(resp.Data))
	for _, d := range resp.Data {
		if int(d.Index) < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	return &EmbeddingResponse{Embeddings: embeddings}, nil
}

// SplitSystem separates leading system messages from conversational turns.
// Anthropic takes the system prompt as a dedicated request field rather than
// an inline message.
func SplitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var system strings.Builder
	turns := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
			continue
		}
		turns = append(turns, m)
	}
	return system.String(), turns
}
