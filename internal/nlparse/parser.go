// Package nlparse turns free-form swap phrases into raw intents.
//
// Examples:
//   - "swap 1 ETH to USDC"
//   - "convert 0.5 eth on ethereum to usdc on arbitrum"
//   - "trade 100 USDC for MATIC on polygon"
package nlparse

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"intentswap/internal/intent"
)

// ErrUnparsable is returned when the phrase does not match the swap grammar.
var ErrUnparsable = errors.New("unparsable swap phrase")

// Leading verbs are interchangeable and optional.
var verbPrefix = regexp.MustCompile(`(?i)^(?:please\s+)?(?:swap|convert|trade|exchange)\s+`)

// pattern: <amount> <token> [on <chain>] to|for <token> [on <chain>]
// A single trailing "on <chain>" names the destination chain, matching how
// people phrase "swap 1 ETH to USDC on arbitrum".
var pattern = regexp.MustCompile(`(?i)^(-?\d+(?:\.\d+)?|-?\.\d+)\s+([a-z0-9]+)(?:\s+on\s+([a-z]+))?\s+(?:to|for)\s+([a-z0-9]+)(?:\s+on\s+([a-z]+))?$`)

// Parse extracts a raw intent from a natural language phrase. It only splits
// the phrase into fields; chain, token and amount validation happens during
// normalization.
func Parse(text string) (intent.RawIntent, error) {
	phrase := strings.TrimSpace(text)
	if phrase == "" {
		return intent.RawIntent{}, errors.Wrap(ErrUnparsable, "empty input")
	}
	stripped := verbPrefix.ReplaceAllString(phrase, "")

	m := pattern.FindStringSubmatch(stripped)
	if m == nil {
		return intent.RawIntent{}, errors.Wrap(ErrUnparsable,
			"expected '<amount> <token> to <token> [on <chain>]'")
	}

	return intent.RawIntent{
		Amount:    m[1],
		FromToken: strings.ToUpper(m[2]),
		FromChain: strings.ToLower(m[3]),
		ToToken:   strings.ToUpper(m[4]),
		ToChain:   strings.ToLower(m[5]),
		RawText:   phrase,
	}, nil
}
