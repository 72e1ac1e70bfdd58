// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cartlineai/config"
	llm_client "github.com/cartlineai/pkg/clients/llm"
	"github.com/cartlineai/pkg/commons"
)

// Entities is the loosely typed extraction result. Keys depend on the intent;
// use Decode to project the interesting subset into a typed struct.
type Entities map[string]interface{}

// String returns the entity value as a trimmed string when present. Numeric
// values are rendered rather than dropped because the model frequently
// returns order ids as numbers.
func (e Entities) String(key string) string {
	v, ok := e[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}

// Extractor pulls structured fields out of a caller utterance. The fields it
// looks for depend on the intent the utterance was classified as.
type Extractor interface {
	Extract(ctx context.Context, intent, query string) Entities
}

// Per-intent extraction prompts. Each asks for a flat JSON object so the
// response survives the first-brace/last-brace recovery below.
var extractionPrompts = map[string]string{
	IntentOrder: `Extract all information related to an order status query.
Focus on:
1. Order IDs/numbers (look for patterns like #12345, order 12345, etc.)
2. Timeframes mentioned (e.g., "ordered last week")
3. Specific products mentioned in relation to the order
4. Any customer identifiers (name, email, phone)

Return a JSON object with keys order_id, timeframe, product, name, email, phone.
If information is not present, set the value to null.`,

	IntentUpdateOrder: `Extract all information related to an order update request.
Focus on:
1. Order ID/number if present
2. Contact information (email, phone)
3. Address details (complete address or parts like city, state, zip)
4. What specifically needs to be updated (shipping address, email, phone, etc.)

For addresses, extract as much detail as possible.
For phone numbers, standardize to E.164 format if possible.
For emails, verify they contain @ and a domain.

Return a JSON object with keys order_id, email, phone, address1, address2, city, province_code, zip, country, last_name.
If information is not present, set the value to null.`,

	IntentCancelOrder: `Extract all information related to an order cancellation request.
Focus on:
1. Order ID/number if present
2. Reason for cancellation (if mentioned)
3. Any timeframe mentioned (e.g., "ordered yesterday")
4. Customer identifiers (name, email, phone)

Return a JSON object with keys order_id, reason, timeframe, name, email, phone.
If information is not present, set the value to null.`,

	IntentProduct: `Extract all product-related information from this query.
Focus on:
1. Product type (e.g., shirt, shoes, electronics)
2. Specific product name if mentioned
3. Product attributes (color, size, material, etc.)
4. Price information or budget constraints
5. Preferences or requirements (e.g., "waterproof", "formal", "casual")

Return a JSON object with keys product_type, product_name, attributes, price_info.
If information is not present, set the value to null.`,

	IntentStoreInfo: `Extract all store-related information from this query.
Focus on:
1. What specific information is being requested (hours, location, policies)
2. Any specific location mentioned
3. Any specific policy type mentioned (returns, shipping, payment)

Return a JSON object with keys request_type, location, policy_type.
If information is not present, set the value to null.`,
}

type llmExtractor struct {
	cfg    *config.AppConfig
	logger commons.Logger
	llm    llm_client.ChatClient
}

// NewExtractor builds the LLM-backed entity extractor with regex fallbacks.
func NewExtractor(cfg *config.AppConfig, logger commons.Logger, llm llm_client.ChatClient) Extractor {
	return &llmExtractor{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
	}
}

// Extract never fails the turn: when the model call or its JSON cannot be
// used, it degrades to the regex fallback for the intent.
func (e *llmExtractor) Extract(ctx context.Context, intent, query string) Entities {
	started := time.Now()
	defer func() {
		e.logger.Benchmark("nlu.Extract", time.Since(started))
	}()

	prompt, ok := extractionPrompts[intent]
	if !ok {
		// General chit-chat has nothing structured to pull out.
		return Entities{"query": query}
	}

	entities, err := e.extractLLM(ctx, prompt, query)
	if err != nil {
		e.logger.Warnf("llm extraction failed for intent %s, using regex fallback: %v", intent, err)
		return FallbackExtract(intent, query)
	}
	return entities
}

func (e *llmExtractor) extractLLM(ctx context.Context, prompt, query string) (Entities, error) {
	request := &llm_client.ChatRequest{
		Model: e.cfg.AssistantConfig.ClassifierModel,
		Messages: []llm_client.ChatMessage{
			{Role: llm_client.RoleSystem, Content: prompt},
			{Role: llm_client.RoleUser, Content: fmt.Sprintf("Customer query: %s\n\nJSON:", query)},
		},
		Temperature: 0.2,
		MaxTokens:   512,
	}

	var response *llm_client.ChatResponse
	operation := func() error {
		var opErr error
		response, opErr = e.llm.Chat(ctx, "openai", request)
		return opErr
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}

	return ParseEntityJSON(response.Content)
}

// ParseEntityJSON recovers the JSON object from a model response that may be
// wrapped in prose or a markdown fence. Everything between the first "{" and
// the last "}" is treated as the object.
func ParseEntityJSON(content string) (Entities, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var entities Entities
	if err := json.Unmarshal([]byte(content[start:end+1]), &entities); err != nil {
		return nil, fmt.Errorf("failed to parse entity JSON: %w", err)
	}

	// Null-valued keys carry no information, drop them so callers can test
	// presence with a plain lookup.
	for k, v := range entities {
		if v == nil {
			delete(entities, k)
		}
	}
	return entities, nil
}

// ====== Regex fallbacks ======

var orderIdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)order\s+(?:#|number|id|no\.?)\s*(\d+)`),
	regexp.MustCompile(`(?i)order\s+(\d+)`),
	regexp.MustCompile(`#(\d+)`),
	regexp.MustCompile(`(\d{6,})`),
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:\+\d{1,3}[-.\s]?)?(?:\(?\d{3}\)?[-.\s]?)?(?:\d{3}[-.\s]?\d{4})\b`),
	regexp.MustCompile(`\b\d{10}\b`),
	regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
}

var phoneCleanPattern = regexp.MustCompile(`[^\d+]`)

var addressFieldPatterns = []struct {
	re  *regexp.Regexp
	key string
}{
	{regexp.MustCompile(`(?i)address(?:\s+\d+)?\s+(?:is|:)?\s+([^.,]+)`), "address1"},
	{regexp.MustCompile(`(?i)address\s*line\s*1\s*(?:is|:)?\s+([^.,]+)`), "address1"},
	{regexp.MustCompile(`(?i)address\s*line\s*2\s*(?:is|:)?\s+([^.,]+)`), "address2"},
	{regexp.MustCompile(`(?i)city\s+(?:is|:)?\s+([^.,]+)`), "city"},
	{regexp.MustCompile(`(?i)(?:last name|surname|family name)\s+(?:is|:)?\s+([^.,]+)`), "last_name"},
	{regexp.MustCompile(`(?i)country\s+(?:is|:)?\s+([^.,]+)`), "country"},
	{regexp.MustCompile(`(?i)(?:zip|postal|zip code|postal code)\s+(?:is|:)?\s+([^.,\s]+)`), "zip"},
	{regexp.MustCompile(`(?i)(?:state|province)\s+(?:is|:)?\s+([^.,]+)`), "province_code"},
}

var productKeywordPattern = regexp.MustCompile(`(?i)\b(?:shirt|shoes|jacket|pants|dress|product|item)\b`)

// FallbackExtract is the pattern-only extraction path, public so degraded
// deployments (no LLM credentials) can still pull order ids out of text.
func FallbackExtract(intent, query string) Entities {
	switch intent {
	case IntentOrder, IntentCancelOrder:
		entities := Entities{}
		if orderID := ExtractOrderID(query); orderID != "" {
			entities["order_id"] = orderID
		}
		return entities
	case IntentUpdateOrder:
		return extractUpdateOrderRegex(query)
	case IntentProduct:
		return Entities{"product_keywords": productKeywordPattern.FindAllString(query, -1)}
	case IntentStoreInfo:
		return Entities{"query_type": IntentStoreInfo}
	default:
		return Entities{"query": query}
	}
}

func extractUpdateOrderRegex(query string) Entities {
	entities := Entities{}
	if orderID := ExtractOrderID(query); orderID != "" {
		entities["order_id"] = orderID
	}
	if email := ExtractEmail(query); email != "" {
		entities["email"] = email
	}
	if phone := ExtractPhone(query); phone != "" {
		entities["phone"] = phone
	}
	for _, p := range addressFieldPatterns {
		if m := p.re.FindStringSubmatch(query); m != nil {
			entities[p.key] = strings.TrimSpace(m[1])
		}
	}
	return entities
}

// ExtractOrderID scans for an order identifier. The last pattern picks up any
// run of six or more digits, which is what callers usually read out.
func ExtractOrderID(query string) string {
	for _, p := range orderIdPatterns {
		if m := p.FindStringSubmatch(query); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractEmail returns the first email address in the query.
func ExtractEmail(query string) string {
	return emailPattern.FindString(query)
}

// ExtractPhone returns the first phone number in the query, stripped down to
// digits and a leading plus.
func ExtractPhone(query string) string {
	for _, p := range phonePatterns {
		if m := p.FindString(query); m != "" {
			return phoneCleanPattern.ReplaceAllString(m, "")
		}
	}
	return ""
}
