package quote

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"intentswap/internal/intent"
)

// CallData is the source-provided execution payload. For cross-chain routes
// it already embeds the bridge call; the pipeline packages it unchanged.
type CallData struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Quote is one priced execution path for an intent from one routing source.
// It is owned by the aggregator call that produced it and discarded after
// selection.
type Quote struct {
	SourceID string
	// EstimatedOutput is in human units of the destination token.
	EstimatedOutput decimal.Decimal
	// PriceImpact is a percentage, e.g. 0.15 for 0.15%.
	PriceImpact decimal.Decimal
	// GasEstimate is in human units of the source chain's native token.
	GasEstimate       decimal.Decimal
	EstimatedDuration time.Duration
	CrossChain        bool
	CallData          CallData
}

// SelectedRoute is the quote chosen by the aggregator plus the selection
// rationale. Immutable once chosen.
type SelectedRoute struct {
	Quote  Quote
	Intent intent.SwapIntent
	Score  decimal.Decimal
	// TieBreak records how the winner was decided: "score", "duration" or
	// "source-order".
	TieBreak string
}

// Source is a single liquidity/routing backend.
type Source interface {
	// ID is the stable identifier used for configuration ordering and logs.
	ID() string
	// SupportsCrossChain reports whether the source can route between chains.
	SupportsCrossChain() bool
	// Quote prices the intent. slippage is a tolerance percentage.
	Quote(ctx context.Context, in intent.SwapIntent, slippage decimal.Decimal) (Quote, error)
}
