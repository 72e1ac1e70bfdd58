// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_normalizers

import (
	"strings"

	"github.com/cartlineai/pkg/commons"
)

// =============================================================================
// Normalizer Interface
// =============================================================================

// Normalizer rewrites one class of text token into its spoken form. Each
// normalizer is independent and order-insensitive unless documented otherwise;
// the speech pipeline chains them.
type Normalizer interface {
	Normalize(text string) string
}

// BuildPipeline resolves a list of normalizer names into instances. Unknown
// names are skipped with a warning so a bad dictionary string never breaks a
// live call.
func BuildPipeline(logger commons.Logger, names []string) []Normalizer {
	normalizers := make([]Normalizer, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		var normalizer Normalizer

		switch name {
		case "currency":
			normalizer = NewCurrencyNormalizer(logger)
		case "date":
			normalizer = NewDateNormalizer(logger)
		case "time":
			normalizer = NewTimeNormalizer(logger)
		case "number", "number-to-word":
			normalizer = NewNumberToWordNormalizer(logger)
		case "digit", "digit-sequence":
			normalizer = NewDigitSequenceNormalizer(logger)
		case "symbol":
			normalizer = NewSymbolNormalizer(logger)
		case "url":
			normalizer = NewUrlNormalizer(logger)
		case "address":
			normalizer = NewAddressNormalizer(logger)
		case "general-abbreviation", "general":
			normalizer = NewGeneralAbbreviationNormalizer(logger)
		case "role-abbreviation", "role":
			normalizer = NewRoleAbbreviationNormalizer(logger)
		case "tech-abbreviation", "tech":
			normalizer = NewTechAbbreviationNormalizer(logger)
		default:
			logger.Warnf("normalizer: unknown normalizer '%s', skipping", name)
			continue
		}
		normalizers = append(normalizers, normalizer)
	}
	return normalizers
}
