// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_nlu

import "strings"

// Intent labels. Every caller utterance maps to exactly one of these; the
// label picks the tool that handles the turn.
const (
	IntentProduct     = "product"
	IntentOrder       = "order"
	IntentUpdateOrder = "update_order"
	IntentCancelOrder = "cancel_order"
	IntentStoreInfo   = "store_info"
	IntentGeneral     = "general"
)

// FallbackIntent is returned when the model produces a label outside the
// known set. Store information handling degrades gracefully for any query,
// which makes it the safest default on a live call.
const FallbackIntent = IntentStoreInfo

// Intents returns the label set in prompt order.
func Intents() []string {
	return []string{
		IntentProduct,
		IntentOrder,
		IntentUpdateOrder,
		IntentCancelOrder,
		IntentStoreInfo,
		IntentGeneral,
	}
}

// IsIntent reports whether s is a known label.
func IsIntent(s string) bool {
	switch s {
	case IntentProduct, IntentOrder, IntentUpdateOrder, IntentCancelOrder, IntentStoreInfo, IntentGeneral:
		return true
	}
	return false
}

// Few-shot examples rendered into the classifier prompt, three per label.
// Ordered slice rather than a map so the rendered prompt is deterministic.
var intentExamples = []struct {
	intent   string
	examples []string
}{
	{IntentProduct, []string{
		"Do you have any blue t-shirts?",
		"What products do you sell?",
		"Tell me about your bestselling items",
	}},
	{IntentOrder, []string{
		"Where is my order?",
		"Can you check the status of my order?",
		"Has my order shipped yet?",
	}},
	{IntentUpdateOrder, []string{
		"I need to change my shipping address",
		"Can I update my email on my order?",
		"I entered the wrong phone number for my order",
	}},
	{IntentCancelOrder, []string{
		"I want to cancel my order",
		"How do I get a refund?",
		"I changed my mind about my purchase",
	}},
	{IntentStoreInfo, []string{
		"What are your store hours?",
		"Where is your store located?",
		"Tell me about your return policy",
	}},
	{IntentGeneral, []string{
		"Hello there",
		"Thanks for your help",
		"Goodbye",
	}},
}

// Examples returns the curated utterances for one label, nil for unknown
// labels.
func Examples(intent string) []string {
	for _, group := range intentExamples {
		if group.intent == intent {
			out := make([]string, len(group.examples))
			copy(out, group.examples)
			return out
		}
	}
	return nil
}

func examplesBlock() string {
	var b strings.Builder
	for _, group := range intentExamples {
		for _, example := range group.examples {
			b.WriteString("\nQuery: ")
			b.WriteString(example)
			b.WriteString("\nIntent: ")
			b.WriteString(group.intent)
			b.WriteString("\n")
		}
	}
	return b.String()
}
