// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_ingestion

import (
	"regexp"
	"strings"
)

// Scraped pages arrive as HTML or markdown-ish extractions; product bodies
// are Shopify rich text. Everything goes through the same cleaner before
// embedding. Images are stripped before links so `![alt](url)` does not
// leave its alt text behind as a dangling fragment.
var (
	htmlTagPattern        = regexp.MustCompile(`<[^>]*>`)
	markdownHeaderPattern = regexp.MustCompile(`(^|\n)#+\s`)
	markdownImagePattern  = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	markdownLinkPattern   = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	leftoverLinkPattern   = regexp.MustCompile(`\[[^\]]*\]\([^)]*\)`)
	boldPattern           = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnderscorePattern = regexp.MustCompile(`__(.*?)__`)
	italicPattern         = regexp.MustCompile(`\*(.*?)\*`)
	underscorePattern     = regexp.MustCompile(`_(.*?)_`)
	urlPattern            = regexp.MustCompile(`http\S+|www\.\S+`)
	whitespacePattern     = regexp.MustCompile(`\s+`)
)

// CleanText strips HTML tags, markdown markers and URLs from raw page or
// product-body text, leaving a single-spaced plain-text string for embedding.
func CleanText(raw string) string {
	text := htmlTagPattern.ReplaceAllString(raw, "")
	text = markdownHeaderPattern.ReplaceAllString(text, "$1")
	text = markdownImagePattern.ReplaceAllString(text, "")
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = leftoverLinkPattern.ReplaceAllString(text, "")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = boldUnderscorePattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = underscorePattern.ReplaceAllString(text, "$1")
	text = urlPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// chunkText splits cleaned text into overlapping rune windows so context near
// a chunk border lands in both neighbors.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
