// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_agent

import (
	"github.com/pkoukk/tiktoken-go"

	internal_callsession "github.com/cartlineai/api/assistant-api/internal/callsession"
	"github.com/cartlineai/pkg/commons"
)

// historyTrimmer keeps the responder context inside the configured token
// budget. Turns are dropped from the front so the newest exchanges, which
// carry the state of the conversation, always survive.
type historyTrimmer struct {
	budget int
	count  func(text string) int
}

func newHistoryTrimmer(logger commons.Logger, model string, budget int) *historyTrimmer {
	// Rough four-characters-per-token approximation, used only when the
	// tokenizer vocabularies cannot be loaded.
	count := func(text string) int {
		return len(text)/4 + 1
	}

	if encoding, err := tiktoken.EncodingForModel(model); err == nil {
		count = func(text string) int {
			return len(encoding.Encode(text, nil, nil))
		}
	} else if encoding, fallbackErr := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE); fallbackErr == nil {
		logger.Warnf("no tokenizer for model %s, counting with %s: %v", model, tiktoken.MODEL_CL100K_BASE, err)
		count = func(text string) int {
			return len(encoding.Encode(text, nil, nil))
		}
	} else {
		logger.Warnf("tokenizer unavailable, approximating token counts: %v", fallbackErr)
	}

	return &historyTrimmer{budget: budget, count: count}
}

// Trim returns the newest suffix of turns that fits the budget. A single
// oversized newest turn is kept rather than dropped so the responder always
// sees the latest exchange.
func (t *historyTrimmer) Trim(turns []internal_callsession.Turn) []internal_callsession.Turn {
	if len(turns) == 0 || t.budget <= 0 {
		return nil
	}

	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		tokens := t.count(turns[i].Content)
		if total+tokens > t.budget {
			if start == len(turns) {
				start = i
			}
			break
		}
		total += tokens
		start = i
	}
	return turns[start:]
}
