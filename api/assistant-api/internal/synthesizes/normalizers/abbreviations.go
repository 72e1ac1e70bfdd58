// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_normalizers

import (
	"regexp"

	"github.com/cartlineai/pkg/commons"
)

type patternReplacement struct {
	pattern     *regexp.Regexp
	replacement string
}

func applyPatterns(text string, patterns []patternReplacement) string {
	for _, p := range patterns {
		text = p.pattern.ReplaceAllString(text, p.replacement)
	}
	return text
}

// =============================================================================
// General Abbreviation Normalizer
// =============================================================================

// Trailing periods of dotted abbreviations are consumed by the pattern, so
// "etc." becomes "etcetera" without a stray dot.
var generalAbbreviationPatterns = []patternReplacement{
	{regexp.MustCompile(`(?i)\bdr\.`), "doctor"},
	{regexp.MustCompile(`(?i)\bmrs\.`), "missus"},
	{regexp.MustCompile(`(?i)\bmr\.`), "mister"},
	{regexp.MustCompile(`(?i)\bms\.`), "miz"},
	{regexp.MustCompile(`(?i)\baka\b`), "ay kay ay"},
	{regexp.MustCompile(`(?i)\betc\.`), "etcetera"},
	{regexp.MustCompile(`(?i)\bi\.e\.`), "that is"},
	{regexp.MustCompile(`(?i)\be\.g\.`), "for example"},
	{regexp.MustCompile(`(?i)\ba\.m\.`), "ay em"},
	{regexp.MustCompile(`(?i)\bp\.m\.`), "pee em"},
	{regexp.MustCompile(`(?i)\bvs\.`), "versus"},
	{regexp.MustCompile(`(?i)\bjr\.`), "junior"},
	{regexp.MustCompile(`(?i)\bsr\.`), "senior"},
	{regexp.MustCompile(`(?i)\basap\b`), "ay sap"},
	{regexp.MustCompile(`(?i)\bave\.`), "avenue"},
	{regexp.MustCompile(`(?i)\bapt\.`), "apartment"},
	{regexp.MustCompile(`(?i)\bdept\.`), "department"},
}

type generalAbbreviationNormalizer struct {
	logger commons.Logger
}

// NewGeneralAbbreviationNormalizer expands everyday written abbreviations
// (titles, latin shorthand, address words) into their spoken forms.
func NewGeneralAbbreviationNormalizer(logger commons.Logger) Normalizer {
	return &generalAbbreviationNormalizer{logger: logger}
}

func (n *generalAbbreviationNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return applyPatterns(text, generalAbbreviationPatterns)
}

// =============================================================================
// Role Abbreviation Normalizer
// =============================================================================

// Dotted variants are listed before their plain forms so "C.E.O." resolves in
// one pass.
var roleAbbreviationPatterns = []patternReplacement{
	{regexp.MustCompile(`(?i)\bC\.E\.O\.`), "see ee oh"},
	{regexp.MustCompile(`(?i)\bCEO\b`), "see ee oh"},
	{regexp.MustCompile(`(?i)\bC\.F\.O\.`), "see ef oh"},
	{regexp.MustCompile(`(?i)\bCFO\b`), "see ef oh"},
	{regexp.MustCompile(`(?i)\bC\.O\.O\.`), "see oh oh"},
	{regexp.MustCompile(`(?i)\bCOO\b`), "see oh oh"},
	{regexp.MustCompile(`(?i)\bC\.T\.O\.`), "see tee oh"},
	{regexp.MustCompile(`(?i)\bCTO\b`), "see tee oh"},
	{regexp.MustCompile(`(?i)\bC\.I\.O\.`), "see eye oh"},
	{regexp.MustCompile(`(?i)\bCIO\b`), "see eye oh"},
	{regexp.MustCompile(`(?i)\bC\.M\.O\.`), "see em oh"},
	{regexp.MustCompile(`(?i)\bCMO\b`), "see em oh"},
	{regexp.MustCompile(`(?i)\bV\.P\.`), "vee pee"},
	{regexp.MustCompile(`(?i)\bVP\b`), "vee pee"},
	{regexp.MustCompile(`(?i)\bPh\.D\.?`), "pee aitch dee"},
	{regexp.MustCompile(`(?i)\bPhD\b`), "pee aitch dee"},
	{regexp.MustCompile(`(?i)\bH\.R\.`), "aitch are"},
	{regexp.MustCompile(`(?i)\bHR\b`), "aitch are"},
	{regexp.MustCompile(`(?i)\bR&D\b`), "are and dee"},
}

type roleAbbreviationNormalizer struct {
	logger commons.Logger
}

// NewRoleAbbreviationNormalizer spells out job-title initialisms letter by
// letter so they are pronounced, not mumbled.
func NewRoleAbbreviationNormalizer(logger commons.Logger) Normalizer {
	return &roleAbbreviationNormalizer{logger: logger}
}

func (n *roleAbbreviationNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return applyPatterns(text, roleAbbreviationPatterns)
}

// =============================================================================
// Tech Abbreviation Normalizer
// =============================================================================

var techAbbreviationPatterns = []patternReplacement{
	{regexp.MustCompile(`(?i)\bTCP/IP\b`), "tee see pee eye pee"},
	{regexp.MustCompile(`(?i)\bCI/CD\b`), "see eye see dee"},
	{regexp.MustCompile(`(?i)\bNoSQL\b`), "no ess queue el"},
	{regexp.MustCompile(`(?i)\bSQL\b`), "ess queue el"},
	{regexp.MustCompile(`(?i)\bHTML\b`), "aitch tee em el"},
	{regexp.MustCompile(`(?i)\bCSS\b`), "see es es"},
	{regexp.MustCompile(`(?i)\bAPI\b`), "ay pee eye"},
	{regexp.MustCompile(`(?i)\bAI\b`), "eh eye"},
	{regexp.MustCompile(`(?i)\bML\b`), "em el"},
	{regexp.MustCompile(`(?i)\bSaaS\b`), "sass"},
	{regexp.MustCompile(`(?i)\bPaaS\b`), "pass"},
	{regexp.MustCompile(`(?i)\bVPN\b`), "vee pee en"},
	{regexp.MustCompile(`(?i)\bCPU\b`), "see pee you"},
	{regexp.MustCompile(`(?i)\bGPU\b`), "gee pee you"},
	{regexp.MustCompile(`(?i)\bSDK\b`), "ess dee kay"},
	{regexp.MustCompile(`(?i)\bDevOps\b`), "dev ops"},
	{regexp.MustCompile(`(?i)\bCartline\b`), "cart line"},
}

type techAbbreviationNormalizer struct {
	logger commons.Logger
}

// NewTechAbbreviationNormalizer converts tech initialisms and the product
// name into phonetic respellings.
func NewTechAbbreviationNormalizer(logger commons.Logger) Normalizer {
	return &techAbbreviationNormalizer{logger: logger}
}

func (n *techAbbreviationNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return applyPatterns(text, techAbbreviationPatterns)
}

// =============================================================================
// Address Normalizer
// =============================================================================

var addressPatterns = []patternReplacement{
	{regexp.MustCompile(`(?i)\bst\b`), "street"},
	{regexp.MustCompile(`(?i)\bave\b`), "avenue"},
	{regexp.MustCompile(`(?i)\brd\b`), "road"},
	{regexp.MustCompile(`(?i)\bblvd\b`), "boulevard"},
	{regexp.MustCompile(`(?i)\bln\b`), "lane"},
	{regexp.MustCompile(`(?i)\bhwy\b`), "highway"},
}

type addressNormalizer struct {
	logger commons.Logger
}

// NewAddressNormalizer expands bare street-suffix abbreviations. Suffixes
// glued to ordinals ("1st", "3rd") have no word boundary and stay untouched.
func NewAddressNormalizer(logger commons.Logger) Normalizer {
	return &addressNormalizer{logger: logger}
}

func (n *addressNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return applyPatterns(text, addressPatterns)
}
