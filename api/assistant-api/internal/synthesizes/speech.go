// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_synthesizes

import (
	"context"
	"regexp"
	"strings"

	internal_normalizers "github.com/cartlineai/api/assistant-api/internal/synthesizes/normalizers"
	"github.com/cartlineai/pkg/commons"
)

// =============================================================================
// Speech Normalizer
// =============================================================================

// TextNormalizer prepares an agent reply for a TTS engine that accepts plain
// text only. Chat models emit markdown and digits; phones speak words.
type TextNormalizer interface {
	Normalize(ctx context.Context, text string) string
}

// DefaultDictionaries is the normalizer chain voice replies run through.
// Currency runs before the digit spellers so "$45.90" is money, not a digit
// run; symbols run last so expanded text is not re-scanned.
var DefaultDictionaries = []string{"currency", "digit", "number", "symbol"}

type speechNormalizer struct {
	logger      commons.Logger
	normalizers []internal_normalizers.Normalizer
}

// NewSpeechNormalizer builds the reply-to-speech pipeline. With no dictionary
// names it uses DefaultDictionaries.
func NewSpeechNormalizer(logger commons.Logger, dictionaries ...string) TextNormalizer {
	if len(dictionaries) == 0 {
		dictionaries = DefaultDictionaries
	}
	return &speechNormalizer{
		logger:      logger,
		normalizers: internal_normalizers.BuildPipeline(logger, dictionaries),
	}
}

func (n *speechNormalizer) Normalize(ctx context.Context, text string) string {
	if text == "" {
		return text
	}

	text = RemoveMarkdown(text)
	for _, normalizer := range n.normalizers {
		text = normalizer.Normalize(text)
	}
	return collapseWhitespace(text)
}

// =============================================================================
// Markdown Removal
// =============================================================================

var markdownPatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// Fenced code before inline code, or the fence backticks get half-eaten.
	{regexp.MustCompile("(?s)```[^`]*```"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s*`), ""},
	{regexp.MustCompile(`\*{1,2}([^*]+?)\*{1,2}|_{1,2}([^_]+?)_{1,2}`), "$1$2"},
	{regexp.MustCompile(`(?m)^>\s?`), ""},
	// Images before links so the bang is consumed with the rest.
	{regexp.MustCompile(`!\[(.*?)\]\(.*?\)`), "$1"},
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},
	{regexp.MustCompile(`(?m)^(-{3,}|\*{3,}|_{3,})$`), ""},
	{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},
	{regexp.MustCompile(`[*_]+`), ""},
}

// RemoveMarkdown strips markdown markers while keeping the visible text.
func RemoveMarkdown(text string) string {
	for _, p := range markdownPatterns {
		text = p.pattern.ReplaceAllString(text, p.replacement)
	}
	return text
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func collapseWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
