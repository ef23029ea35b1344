package intent

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"intentswap/internal/apperrors"
	"intentswap/internal/registry"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	reg := registry.Default(registry.Options{})
	n := NewNormalizer(reg, decimal.NewFromInt(1_000_000))

	t.Run("cross-chain swap", func(t *testing.T) {
		in, err := n.Normalize(RawIntent{
			FromChain: "ethereum",
			ToChain:   "arbitrum",
			FromToken: "ETH",
			ToToken:   "USDC",
			Amount:    "0.5",
		})
		require.NoError(t, err)
		require.True(t, in.CrossChain())
		require.True(t, in.FromAsset.Native())
		require.Equal(t, int32(6), in.ToAsset.Decimals)
		require.Equal(t, big.NewInt(500_000_000_000_000_000).String(), in.AmountBase.String())
	})

	t.Run("chains default when omitted", func(t *testing.T) {
		in, err := n.Normalize(RawIntent{FromToken: "ETH", ToToken: "USDC", Amount: "1"})
		require.NoError(t, err)
		require.Equal(t, "ethereum", in.FromChain)
		require.Equal(t, "ethereum", in.ToChain)
		require.False(t, in.CrossChain())
	})

	t.Run("chain alias resolves to canonical name", func(t *testing.T) {
		in, err := n.Normalize(RawIntent{FromChain: "eth", FromToken: "ETH", ToToken: "DAI", Amount: "1"})
		require.NoError(t, err)
		require.Equal(t, "ethereum", in.FromChain)
	})

	t.Run("stablecoin base units use its decimals", func(t *testing.T) {
		in, err := n.Normalize(RawIntent{FromToken: "USDC", ToToken: "ETH", Amount: "100.25"})
		require.NoError(t, err)
		require.Equal(t, "100250000", in.AmountBase.String())
	})

	t.Run("unsupported chain", func(t *testing.T) {
		_, err := n.Normalize(RawIntent{FromChain: "solana", FromToken: "SOL", ToToken: "USDC", Amount: "1"})
		require.ErrorIs(t, err, apperrors.ErrUnsupportedChain)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := n.Normalize(RawIntent{FromToken: "DOGE", ToToken: "USDC", Amount: "1"})
		require.ErrorIs(t, err, apperrors.ErrUnknownToken)
	})
}

func TestNormalizeAmountValidation(t *testing.T) {
	t.Parallel()

	reg := registry.Default(registry.Options{})
	n := NewNormalizer(reg, decimal.NewFromInt(1_000_000))

	cases := []struct {
		name   string
		amount string
	}{
		{"negative", "-1"},
		{"zero", "0"},
		{"non-numeric", "lots"},
		{"empty", ""},
		{"above ceiling", "1000001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(RawIntent{FromToken: "ETH", ToToken: "USDC", Amount: tc.amount})
			require.ErrorIs(t, err, apperrors.ErrInvalidAmount)
		})
	}

	t.Run("finer than token precision", func(t *testing.T) {
		// USDC has 6 decimals; 7 fractional digits cannot be represented.
		_, err := n.Normalize(RawIntent{FromToken: "USDC", ToToken: "ETH", Amount: "0.0000001"})
		require.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	})

	t.Run("exactly token precision is fine", func(t *testing.T) {
		in, err := n.Normalize(RawIntent{FromToken: "USDC", ToToken: "ETH", Amount: "0.000001"})
		require.NoError(t, err)
		require.Equal(t, "1", in.AmountBase.String())
	})
}
