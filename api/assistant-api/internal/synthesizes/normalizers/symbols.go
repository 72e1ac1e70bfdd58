// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_normalizers

import (
	"regexp"
	"strings"

	"github.com/cartlineai/pkg/commons"
)

// =============================================================================
// Symbol Normalizer
// =============================================================================

// Replacements carry a leading space so a symbol glued to a word still reads
// as a separate token ("25%" becomes "25 percent").
var symbolReplacer = strings.NewReplacer(
	"%", " percent",
	"&", " and",
	"+", " plus",
	"=", " equals",
	"@", " at",
	"#", " hash",
	"½", "one-half",
	"℃", " degrees celsius",
	"℉", " degrees fahrenheit",
	"°", " degrees",
	"£", " pounds",
	"€", " euros",
	"¥", " yen",
	"₩", " won",
	"₿", " bitcoin",
	"™", " trademark",
	"©", " copyright",
	"®", " registered",
	"±", " plus or minus",
	"π", " pi",
	"×", " multiplied by",
	"÷", " divided by",
	"≈", " approximately",
	"≠", " not equal to",
	"≤", " less than or equal to",
	"≥", " greater than or equal to",
	"∞", " infinity",
	"√", " square root",
)

type symbolNormalizer struct {
	logger commons.Logger
}

// NewSymbolNormalizer replaces typographic and math symbols with words.
func NewSymbolNormalizer(logger commons.Logger) Normalizer {
	return &symbolNormalizer{logger: logger}
}

func (n *symbolNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return symbolReplacer.Replace(text)
}

// =============================================================================
// URL Normalizer
// =============================================================================

// urlPattern captures the scheme and host of a URL-looking token; the path is
// left alone so only domain dots are spoken.
var urlPattern = regexp.MustCompile(`\b(?:https?://)?(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}\b`)

type urlNormalizer struct {
	logger commons.Logger
}

// NewUrlNormalizer reads domain dots out loud ("example.com" becomes
// "example dot com").
func NewUrlNormalizer(logger commons.Logger) Normalizer {
	return &urlNormalizer{logger: logger}
}

func (n *urlNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return urlPattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.ReplaceAll(match, ".", " dot ")
	})
}
