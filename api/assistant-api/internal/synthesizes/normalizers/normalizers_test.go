// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package internal_normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cartlineai/pkg/commons"
)

func newTestLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewApplicationLogger(
		commons.Name("test-normalizers"),
		commons.Path(t.TempDir()),
		commons.Level("debug"),
	)
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return logger
}

func runNormalizerCases(t *testing.T, normalizer Normalizer, cases []struct{ name, input, expected string }) {
	t.Helper()
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizer.Normalize(tt.input))
		})
	}
}

// ====== Currency ======

func TestCurrencyNormalizer(t *testing.T) {
	runNormalizerCases(t, NewCurrencyNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"basic amount", "The price is $10.50", "The price is ten dollars and fifty cents"},
		{"thousands with comma", "Total cost: $1,234.56", "Total cost: one thousand two hundred thirty-four dollars and fifty-six cents"},
		{"zero cents", "That costs $100.00", "That costs one hundred dollars and zero cents"},
		{"single dollar keeps plural", "Cost is $1.99", "Cost is one dollars and ninety-nine cents"},
		{"no cents part is left alone", "Price is $50", "Price is $50"},
		{"multiple amounts", "Item A: $5.00, Item B: $10.25", "Item A: five dollars and zero cents, Item B: ten dollars and twenty-five cents"},
		{"no currency", "Hello world", "Hello world"},
		{"empty", "", ""},
	})
}

// ====== Number to word ======

func TestNumberToWordNormalizer(t *testing.T) {
	runNormalizerCases(t, NewNumberToWordNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"single digit", "I have 5 apples", "I have five apples"},
		{"teens", "There are 15 students", "There are fifteen students"},
		{"round tens", "He is 20 years old", "He is twenty years old"},
		{"compound", "We need 42 items", "We need forty-two items"},
		{"upper bound", "There are 99 problems", "There are ninety-nine problems"},
		{"three digits untouched", "Population is 100", "Population is 100"},
		{"multiple numbers", "Room 5 has 12 chairs and 3 tables", "Room five has twelve chairs and three tables"},
		{"digits inside words untouched", "item1 2items 3", "item1 2items three"},
		{"empty", "", ""},
	})

	// Zero maps to the empty table slot. The digit-sequence normalizer is the
	// one that knows how to say "zero"; standalone zeros are rare enough in
	// agent replies that this has never been worth special-casing.
	t.Run("zero drops out", func(t *testing.T) {
		normalizer := NewNumberToWordNormalizer(newTestLogger(t))
		assert.Equal(t, "Count is ", normalizer.Normalize("Count is 0"))
	})
}

// ====== Digit sequence ======

func TestDigitSequenceNormalizer(t *testing.T) {
	runNormalizerCases(t, NewDigitSequenceNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"order number", "Your order 123456 has shipped", "Your order one two three four five six has shipped"},
		{"phone number", "Call 5551234567 today", "Call five five five one two three four five six seven today"},
		{"four digit minimum", "Code 1001", "Code one zero zero one"},
		{"three digits untouched", "Room 101", "Room 101"},
		{"two runs", "Orders 4412 and 9903", "Orders four four one two and nine nine zero three"},
		{"digits glued to letters untouched", "SKU-991824X", "SKU-991824X"},
		{"empty", "", ""},
	})
}

// ====== Date ======

func TestDateNormalizer(t *testing.T) {
	runNormalizerCases(t, NewDateNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"iso format", "Meeting on 2024-01-15", "Meeting on January 15, 2024"},
		{"day first slashes", "Date: 15/01/2024", "Date: January 15, 2024"},
		{"day first dashes", "Due: 25-12-2024", "Due: December 25, 2024"},
		{"dotted format", "Created: 2024.06.30", "Created: June 30, 2024"},
		{"multiple dates", "From 2024-01-01 to 2024-12-31", "From January 1, 2024 to December 31, 2024"},
		{"date at start", "2024-07-04 is Independence Day", "July 4, 2024 is Independence Day"},
		{"invalid month untouched", "Ref 2024-13-40", "Ref 2024-13-40"},
		{"no date", "No date here", "No date here"},
		{"empty", "", ""},
	})
}

// ====== Time ======

func TestTimeNormalizer(t *testing.T) {
	runNormalizerCases(t, NewTimeNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"noon", "Meeting at 12:00", "Meeting at 12:00 PM"},
		{"afternoon", "Call at 14:30", "Call at 2:30 PM"},
		{"leading zero morning", "Wake up at 07:00", "Wake up at 7:00 AM"},
		{"midnight", "Event at 00:00", "Event at 12:00 AM"},
		{"single digit hour", "Starts at 9:30", "Starts at 9:30 AM"},
		{"range", "From 09:00 to 17:00", "From 9:00 AM to 5:00 PM"},
		{"late night", "Party ends at 23:59", "Party ends at 11:59 PM"},
		{"invalid hour untouched", "Time is 25:00", "Time is 25:00"},
		{"empty", "", ""},
	})
}

// ====== Address ======

func TestAddressNormalizer(t *testing.T) {
	runNormalizerCases(t, NewAddressNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"street", "123 Main St", "123 Main street"},
		{"avenue", "456 Park Ave", "456 Park avenue"},
		{"road", "789 Oak Rd", "789 Oak road"},
		{"boulevard", "101 Sunset Blvd", "101 Sunset boulevard"},
		{"several in one line", "From Main St to Park Ave via Oak Rd", "From Main street to Park avenue via Oak road"},
		{"uppercase input", "123 MAIN ST", "123 MAIN street"},
		{"full word untouched", "123 Main Street", "123 Main Street"},
		{"suffix inside word untouched", "First place", "First place"},
		{"empty", "", ""},
	})
}

// ====== URL ======

func TestUrlNormalizer(t *testing.T) {
	runNormalizerCases(t, NewUrlNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"https host", "Visit https://example.com", "Visit https://example dot com"},
		{"www host", "Check www.google.com", "Check www dot google dot com"},
		{"path left alone", "Link: https://site.io/path", "Link: https://site dot io/path"},
		{"bare domains", "Sites: example.com and test.org", "Sites: example dot com and test dot org"},
		{"subdomain", "Visit api.example.com", "Visit api dot example dot com"},
		{"sentence period untouched", "Done. Next step", "Done. Next step"},
		{"empty", "", ""},
	})
}

// ====== Symbols ======

func TestSymbolNormalizer(t *testing.T) {
	runNormalizerCases(t, NewSymbolNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"percent", "Growth is 25%", "Growth is 25 percent"},
		{"ampersand", "R&D department", "R andD department"},
		{"plus equals", "2+2=4", "2 plus2 equals4"},
		{"at", "Email me @ work", "Email me  at work"},
		{"currency symbols", "Prices: £10, €20, ¥100", "Prices:  pounds10,  euros20,  yen100"},
		{"degrees celsius", "Temperature is 25℃", "Temperature is 25 degrees celsius"},
		{"trademark copyright", "Brand™ Product©", "Brand trademark Product copyright"},
		{"math", "Calculate: π × 2", "Calculate:  pi  multiplied by 2"},
		{"comparisons", "x ≤ 10 and y ≥ 5", "x  less than or equal to 10 and y  greater than or equal to 5"},
		{"half fraction", "Add ½ cup", "Add one-half cup"},
		{"no symbols", "Plain text here", "Plain text here"},
		{"empty", "", ""},
	})
}

// ====== Abbreviations ======

func TestGeneralAbbreviationNormalizer(t *testing.T) {
	runNormalizerCases(t, NewGeneralAbbreviationNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"doctor title", "Dr. Smith is here", "doctor Smith is here"},
		{"mr and mrs", "Mr. and Mrs. Jones", "mister and missus Jones"},
		{"latin shorthand", "fruits i.e. apples e.g. red ones", "fruits that is apples for example red ones"},
		{"etc", "apples, oranges, etc.", "apples, oranges, etcetera"},
		{"time markers", "Meeting at 9 a.m. ends at 5 p.m.", "Meeting at 9 ay em ends at 5 pee em"},
		{"versus", "Team A vs. Team B", "Team A versus Team B"},
		{"junior senior", "John Jr. and James Sr.", "John junior and James senior"},
		{"asap", "Need this ASAP", "Need this ay sap"},
		{"address words", "123 Main Ave. Apt. 4", "123 Main avenue apartment 4"},
		{"department", "Contact dept. manager", "Contact department manager"},
		{"empty", "", ""},
	})
}

func TestRoleAbbreviationNormalizer(t *testing.T) {
	runNormalizerCases(t, NewRoleAbbreviationNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"ceo", "The CEO announced", "The see ee oh announced"},
		{"dotted form", "The C.E.O. spoke", "The see ee oh spoke"},
		{"lowercase", "ceo and CTO", "see ee oh and see tee oh"},
		{"c suite", "CEO CFO COO CTO CIO CMO", "see ee oh see ef oh see oh oh see tee oh see eye oh see em oh"},
		{"vp", "Talk to the VP", "Talk to the vee pee"},
		{"phd after doctor", "Dr. Smith, PhD", "Dr. Smith, pee aitch dee"},
		{"hr", "Contact HR today", "Contact aitch are today"},
		{"r and d", "R&D is working", "are and dee is working"},
		{"no roles", "Regular text here", "Regular text here"},
		{"empty", "", ""},
	})
}

func TestTechAbbreviationNormalizer(t *testing.T) {
	runNormalizerCases(t, NewTechAbbreviationNormalizer(newTestLogger(t)), []struct{ name, input, expected string }{
		{"ai", "We use AI for automation", "We use eh eye for automation"},
		{"api", "The API is ready", "The ay pee eye is ready"},
		{"mixed", "Using ML and AI with API", "Using em el and eh eye with ay pee eye"},
		{"web stack", "HTML and CSS", "aitch tee em el and see es es"},
		{"brand name", "Built with Cartline", "Built with cart line"},
		{"databases", "Using SQL and NoSQL", "Using ess queue el and no ess queue el"},
		{"networking", "VPN over TCP/IP", "vee pee en over tee see pee eye pee"},
		{"hardware", "Upgrade CPU and GPU", "Upgrade see pee you and gee pee you"},
		{"pipeline jargon", "DevOps with CI/CD pipeline", "dev ops with see eye see dee pipeline"},
		{"no abbreviations", "Plain text only", "Plain text only"},
		{"empty", "", ""},
	})
}

// ====== Pipeline ======

func TestBuildPipeline(t *testing.T) {
	logger := newTestLogger(t)

	t.Run("resolves known names", func(t *testing.T) {
		pipeline := BuildPipeline(logger, []string{"currency", "number", "digit", "symbol"})
		assert.Len(t, pipeline, 4)
	})

	t.Run("skips unknown names", func(t *testing.T) {
		pipeline := BuildPipeline(logger, []string{"currency", "nope", "symbol"})
		assert.Len(t, pipeline, 2)
	})

	t.Run("normalizes casing and spacing", func(t *testing.T) {
		pipeline := BuildPipeline(logger, []string{" Currency ", "NUMBER-TO-WORD"})
		assert.Len(t, pipeline, 2)
	})

	t.Run("chain reads an order line aloud", func(t *testing.T) {
		pipeline := BuildPipeline(logger, []string{"currency", "digit", "number", "symbol"})
		text := "Order 118432 ships with 2 items for $45.90"
		for _, n := range pipeline {
			text = n.Normalize(text)
		}
		assert.Equal(t, "Order one one eight four three two ships with two items for forty-five dollars and ninety cents", text)
	})
}

func TestNormalizersHandleWhitespaceOnlyInput(t *testing.T) {
	logger := newTestLogger(t)
	normalizers := map[string]Normalizer{
		"currency": NewCurrencyNormalizer(logger),
		"date":     NewDateNormalizer(logger),
		"time":     NewTimeNormalizer(logger),
		"number":   NewNumberToWordNormalizer(logger),
		"digit":    NewDigitSequenceNormalizer(logger),
		"address":  NewAddressNormalizer(logger),
		"url":      NewUrlNormalizer(logger),
		"tech":     NewTechAbbreviationNormalizer(logger),
		"role":     NewRoleAbbreviationNormalizer(logger),
		"general":  NewGeneralAbbreviationNormalizer(logger),
		"symbol":   NewSymbolNormalizer(logger),
	}

	for name, normalizer := range normalizers {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "", normalizer.Normalize(""))
			assert.Equal(t, "   ", normalizer.Normalize("   "))
		})
	}
}
