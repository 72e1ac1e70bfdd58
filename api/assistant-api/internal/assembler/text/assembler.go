// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_sentence_assembler

import (
	"strings"
	"unicode"

	"github.com/cartlineai/pkg/commons"
)

// SentenceAssembler chops a normalized reply into sentence-sized chunks. The
// talk stream sends each chunk as its own agent_speech event so the voice
// runtime can start synthesis before the whole reply is delivered.
type SentenceAssembler interface {
	Assemble(text string) []string
}

type sentenceAssembler struct {
	logger commons.Logger
}

func NewSentenceAssembler(logger commons.Logger) SentenceAssembler {
	return &sentenceAssembler{logger: logger}
}

// Assemble splits on sentence terminators followed by whitespace, and on
// newlines. A terminator glued to the next word (decimals, dotted
// identifiers) does not split; runs like "?!" or "..." stay with their
// sentence.
func (a *sentenceAssembler) Assemble(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := make([]string, 0, 4)
	var current strings.Builder

	flush := func() {
		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}

		current.WriteRune(r)
		if !isTerminator(r) {
			continue
		}
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
