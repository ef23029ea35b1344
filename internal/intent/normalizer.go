package intent

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"intentswap/internal/apperrors"
	"intentswap/internal/registry"
)

// Normalizer validates raw intents against the registry. It is a pure
// function over (registry, input) with no side effects.
type Normalizer struct {
	reg       *registry.Registry
	maxAmount decimal.Decimal
}

// NewNormalizer creates a Normalizer. maxAmount is the per-call safety
// ceiling in human token units; zero disables the ceiling.
func NewNormalizer(reg *registry.Registry, maxAmount decimal.Decimal) *Normalizer {
	return &Normalizer{reg: reg, maxAmount: maxAmount}
}

// Normalize canonicalizes raw into a SwapIntent or fails with one of the
// client-input error kinds.
func (n *Normalizer) Normalize(raw RawIntent) (SwapIntent, error) {
	fromChainName := strings.TrimSpace(raw.FromChain)
	if fromChainName == "" {
		fromChainName = n.reg.DefaultChain()
	}
	fromChain, ok := n.reg.Chain(fromChainName)
	if !ok {
		return SwapIntent{}, errors.Wrapf(apperrors.ErrUnsupportedChain, "from chain %q", raw.FromChain)
	}

	toChainName := strings.TrimSpace(raw.ToChain)
	if toChainName == "" {
		// Same-chain swap when the destination chain is omitted.
		toChainName = fromChain.Name
	}
	toChain, ok := n.reg.Chain(toChainName)
	if !ok {
		return SwapIntent{}, errors.Wrapf(apperrors.ErrUnsupportedChain, "to chain %q", raw.ToChain)
	}

	fromAsset, ok := n.reg.Asset(fromChain.Name, raw.FromToken)
	if !ok {
		return SwapIntent{}, errors.Wrapf(apperrors.ErrUnknownToken, "token %q on %s", raw.FromToken, fromChain.Name)
	}
	toAsset, ok := n.reg.Asset(toChain.Name, raw.ToToken)
	if !ok {
		return SwapIntent{}, errors.Wrapf(apperrors.ErrUnknownToken, "token %q on %s", raw.ToToken, toChain.Name)
	}

	amount, err := n.parseAmount(raw.Amount, fromAsset)
	if err != nil {
		return SwapIntent{}, err
	}

	return SwapIntent{
		FromChain:  fromChain.Name,
		ToChain:    toChain.Name,
		FromAsset:  fromAsset,
		ToAsset:    toAsset,
		Amount:     amount,
		AmountBase: amount.Shift(fromAsset.Decimals).BigInt(),
		RawText:    raw.RawText,
	}, nil
}

func (n *Normalizer) parseAmount(s string, asset registry.Asset) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, errors.Wrapf(apperrors.ErrInvalidAmount, "amount %q is not numeric", s)
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, errors.Wrapf(apperrors.ErrInvalidAmount, "amount %q is not positive", s)
	}
	if amount.Exponent() < -asset.Decimals {
		return decimal.Zero, errors.Wrapf(apperrors.ErrInvalidAmount,
			"amount %q exceeds %s precision of %d decimals", s, asset.Symbol, asset.Decimals)
	}
	if n.maxAmount.Sign() > 0 && amount.GreaterThan(n.maxAmount) {
		return decimal.Zero, errors.Wrapf(apperrors.ErrInvalidAmount,
			"amount %q exceeds per-call ceiling %s", s, n.maxAmount)
	}
	return amount, nil
}
