package oneinch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/intent"
	"intentswap/internal/registry"
)

func makeIntent(t *testing.T, fromChain, toChain string) intent.SwapIntent {
	t.Helper()
	reg := registry.Default(registry.Options{})
	n := intent.NewNormalizer(reg, decimal.Decimal{})
	in, err := n.Normalize(intent.RawIntent{
		FromChain: fromChain,
		ToChain:   toChain,
		FromToken: "ETH",
		ToToken:   "USDC",
		Amount:    "1",
	})
	require.NoError(t, err)
	return in
}

func newTestSource(t *testing.T, handler http.HandlerFunc) (*Source, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	reg := registry.Default(registry.Options{})
	src := NewSource(Config{
		APIKey:        "test-key",
		BaseURL:       ts.URL,
		WalletAddress: common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"),
	}, reg, zap.NewNop())
	return src, ts
}

func TestSameChainQuote(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/swap/v6.0/1/swap", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			q := r.URL.Query()
			require.Equal(t, "1000000000000000000", q.Get("amount"))
			require.Equal(t, "1", q.Get("slippage"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"toAmount": "2450000000",
				"priceImpact": "7.3",
				"tx": {
					"to": "0x1111111254EEB25477B68fb85Ed929f73A960582",
					"data": "0x1234abcd",
					"value": "1000000000000000000",
					"gas": 210000,
					"gasPrice": "20000000000"
				}
			}`))
		})

		q, err := src.Quote(context.Background(), makeIntent(t, "ethereum", "ethereum"), decimal.NewFromInt(1))
		require.NoError(t, err)
		require.Equal(t, "oneinch", q.SourceID)
		require.False(t, q.CrossChain)
		// 2450000000 base units at 6 decimals.
		require.True(t, q.EstimatedOutput.Equal(decimal.NewFromInt(2450)), q.EstimatedOutput.String())
		// 210000 gas * 20 gwei = 0.0042 native.
		require.True(t, q.GasEstimate.Equal(decimal.NewFromFloat(0.0042)), q.GasEstimate.String())
		require.Equal(t, []byte{0x12, 0x34, 0xab, 0xcd}, q.CallData.Data)
		require.Equal(t, "1000000000000000000", q.CallData.Value.String())
		// Reported impact feeds the selection ceiling, so the wire value
		// must win over the default.
		require.True(t, q.PriceImpact.Equal(decimal.NewFromFloat(7.3)), q.PriceImpact.String())
	})

	t.Run("price impact defaults when the response omits it", func(t *testing.T) {
		src, _ := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"toAmount": "2450000000",
				"tx": {"to": "0x1111111254EEB25477B68fb85Ed929f73A960582", "data": "0x12", "value": "0"}
			}`))
		})

		q, err := src.Quote(context.Background(), makeIntent(t, "ethereum", "ethereum"), decimal.NewFromInt(1))
		require.NoError(t, err)
		require.True(t, q.PriceImpact.Equal(decimal.NewFromFloat(0.1)), q.PriceImpact.String())
	})

	t.Run("api error body surfaces as NoRouteAvailable", func(t *testing.T) {
		src, _ := newTestSource(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Bad Request","description":"insufficient liquidity","statusCode":400}`))
		})

		_, err := src.Quote(context.Background(), makeIntent(t, "ethereum", "ethereum"), decimal.NewFromInt(1))
		require.ErrorIs(t, err, apperrors.ErrNoRouteAvailable)
		require.Contains(t, err.Error(), "insufficient liquidity")
	})

	t.Run("no api key disables the source", func(t *testing.T) {
		reg := registry.Default(registry.Options{})
		src := NewSource(Config{}, reg, zap.NewNop())

		_, err := src.Quote(context.Background(), makeIntent(t, "ethereum", "ethereum"), decimal.NewFromInt(1))
		require.ErrorIs(t, err, apperrors.ErrNoRouteAvailable)
	})
}

func TestCrossChainQuote(t *testing.T) {
	t.Parallel()

	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fusion-plus/quoter/v1.0/quote/receive", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "1", q.Get("srcChain"))
		require.Equal(t, "42161", q.Get("dstChain"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dstTokenAmount": "2448000000",
			"priceImpactPercent": "0.15",
			"recommendedPreset": {"auctionDuration": 180}
		}`))
	})

	q, err := src.Quote(context.Background(), makeIntent(t, "ethereum", "arbitrum"), decimal.NewFromInt(1))
	require.NoError(t, err)
	require.True(t, q.CrossChain)
	require.True(t, q.EstimatedOutput.Equal(decimal.NewFromInt(2448)), q.EstimatedOutput.String())
	require.True(t, q.PriceImpact.Equal(decimal.NewFromFloat(0.15)))
	require.Equal(t, 180, int(q.EstimatedDuration.Seconds()))
	require.True(t, src.SupportsCrossChain())
}
