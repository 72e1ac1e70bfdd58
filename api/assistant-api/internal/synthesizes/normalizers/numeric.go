// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_normalizers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ntw "moul.io/number-to-words"

	"github.com/cartlineai/pkg/commons"
)

// =============================================================================
// Currency Normalizer
// =============================================================================

// currencyPattern requires an explicit cents part; bare "$50" is left for the
// voice engine to read natively.
var currencyPattern = regexp.MustCompile(`\$([\d,]+)\.(\d{2})`)

type currencyNormalizer struct {
	logger commons.Logger
}

// NewCurrencyNormalizer expands $X.YY amounts into "X dollars and YY cents".
func NewCurrencyNormalizer(logger commons.Logger) Normalizer {
	return &currencyNormalizer{logger: logger}
}

func (n *currencyNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return currencyPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := currencyPattern.FindStringSubmatch(match)
		dollars, err := strconv.Atoi(strings.ReplaceAll(groups[1], ",", ""))
		if err != nil {
			return match
		}
		cents, err := strconv.Atoi(groups[2])
		if err != nil {
			return match
		}
		return fmt.Sprintf("%s dollars and %s cents", ntw.IntegerToEnUs(dollars), ntw.IntegerToEnUs(cents))
	})
}

// =============================================================================
// Number To Word Normalizer
// =============================================================================

// smallNumberPattern matches standalone one- and two-digit numbers. Longer
// runs are the digit-sequence normalizer's territory.
var smallNumberPattern = regexp.MustCompile(`\b\d{1,2}\b`)

var numberOnes = []string{
	"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var numberTens = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

type numberToWordNormalizer struct {
	logger commons.Logger
}

// NewNumberToWordNormalizer spells out standalone numbers up to 99.
func NewNumberToWordNormalizer(logger commons.Logger) Normalizer {
	return &numberToWordNormalizer{logger: logger}
}

func (n *numberToWordNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return smallNumberPattern.ReplaceAllStringFunc(text, func(match string) string {
		value, err := strconv.Atoi(match)
		if err != nil {
			return match
		}
		return smallNumberWord(value)
	})
}

func smallNumberWord(value int) string {
	if value < 20 {
		return numberOnes[value]
	}
	word := numberTens[value/10]
	if value%10 > 0 {
		word += "-" + numberOnes[value%10]
	}
	return word
}

// =============================================================================
// Digit Sequence Normalizer
// =============================================================================

// digitSequencePattern matches identifier-like digit runs: order numbers,
// phone numbers, tracking codes. Anything this long is read digit by digit.
var digitSequencePattern = regexp.MustCompile(`\b\d{4,}\b`)

var digitWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
}

type digitSequenceNormalizer struct {
	logger commons.Logger
}

// NewDigitSequenceNormalizer spells runs of four or more digits one digit at
// a time, the way a person reads an order number over the phone.
func NewDigitSequenceNormalizer(logger commons.Logger) Normalizer {
	return &digitSequenceNormalizer{logger: logger}
}

func (n *digitSequenceNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return digitSequencePattern.ReplaceAllStringFunc(text, func(match string) string {
		words := make([]string, 0, len(match))
		for _, r := range match {
			words = append(words, digitWords[r-'0'])
		}
		return strings.Join(words, " ")
	})
}

// =============================================================================
// Date Normalizer
// =============================================================================

var (
	isoDatePattern    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDatePattern  = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	dashDatePattern   = regexp.MustCompile(`\b(\d{2})-(\d{2})-(\d{4})\b`)
	dottedDatePattern = regexp.MustCompile(`\b(\d{4})\.(\d{2})\.(\d{2})\b`)
)

type dateNormalizer struct {
	logger commons.Logger
}

// NewDateNormalizer rewrites numeric dates as "January 15, 2024". Numeric
// day-month orderings follow day-first convention; invalid dates are left
// untouched.
func NewDateNormalizer(logger commons.Logger) Normalizer {
	return &dateNormalizer{logger: logger}
}

func (n *dateNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	text = replaceDate(text, isoDatePattern, 1, 2, 3)
	text = replaceDate(text, dottedDatePattern, 1, 2, 3)
	text = replaceDate(text, slashDatePattern, 3, 2, 1)
	text = replaceDate(text, dashDatePattern, 3, 2, 1)
	return text
}

func replaceDate(text string, pattern *regexp.Regexp, yearIdx, monthIdx, dayIdx int) string {
	return pattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := pattern.FindStringSubmatch(match)
		year, _ := strconv.Atoi(groups[yearIdx])
		month, _ := strconv.Atoi(groups[monthIdx])
		day, _ := strconv.Atoi(groups[dayIdx])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return match
		}
		return fmt.Sprintf("%s %d, %d", time.Month(month).String(), day, year)
	})
}

// =============================================================================
// Time Normalizer
// =============================================================================

var clockPattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

type timeNormalizer struct {
	logger commons.Logger
}

// NewTimeNormalizer converts 24-hour clock times to 12-hour with AM/PM.
func NewTimeNormalizer(logger commons.Logger) Normalizer {
	return &timeNormalizer{logger: logger}
}

func (n *timeNormalizer) Normalize(text string) string {
	if text == "" {
		return text
	}
	return clockPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := clockPattern.FindStringSubmatch(match)
		hour, _ := strconv.Atoi(groups[1])
		minute, _ := strconv.Atoi(groups[2])
		if hour > 23 || minute > 59 {
			return match
		}

		meridiem := "AM"
		switch {
		case hour == 0:
			hour = 12
		case hour == 12:
			meridiem = "PM"
		case hour > 12:
			hour -= 12
			meridiem = "PM"
		}
		return fmt.Sprintf("%d:%s %s", hour, groups[2], meridiem)
	})
}
