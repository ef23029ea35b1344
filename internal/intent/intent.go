package intent

import (
	"math/big"

	"github.com/shopspring/decimal"

	"intentswap/internal/registry"
)

// RawIntent is the untrusted, possibly partially populated intent handed in
// by the natural-language layer. Nothing about it is assumed sanitized.
type RawIntent struct {
	FromChain string `json:"from_chain"`
	ToChain   string `json:"to_chain"`
	FromToken string `json:"from_token"`
	ToToken   string `json:"to_token"`
	Amount    string `json:"amount"`
	RawText   string `json:"raw_text,omitempty"`
}

// SwapIntent is a validated, canonicalized swap intent. Immutable after
// normalization.
type SwapIntent struct {
	FromChain string
	ToChain   string
	FromAsset registry.Asset
	ToAsset   registry.Asset
	// Amount is the human-denominated amount.
	Amount decimal.Decimal
	// AmountBase is Amount scaled to FromAsset's decimals.
	AmountBase *big.Int
	RawText    string
}

// CrossChain reports whether the intent moves value between two chains.
func (si SwapIntent) CrossChain() bool {
	return si.FromChain != si.ToChain
}
