package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"intentswap/internal/config"
	"intentswap/internal/infra/evm"
	"intentswap/internal/infra/evm/mock"
	"intentswap/internal/intent"
	"intentswap/internal/pipeline"
	"intentswap/internal/registry"
	"intentswap/internal/status"
	"intentswap/internal/transport/http/dto"
)

// stubSwapper records the raw intent it received and returns a scripted
// result.
type stubSwapper struct {
	gotRaw intent.RawIntent
	result pipeline.SwapResult
	status status.TxStatus
	err    error
}

func (s *stubSwapper) ExecuteSwap(_ context.Context, raw intent.RawIntent) pipeline.SwapResult {
	s.gotRaw = raw
	return s.result
}

func (s *stubSwapper) CheckStatus(context.Context, string, common.Hash) (status.TxStatus, error) {
	return s.status, s.err
}

func newTestServer(t *testing.T, swapper Swapper, provider evm.Provider) *Server {
	t.Helper()
	if provider == nil {
		provider = evm.NewStaticPool(nil)
	}
	reg := registry.Default(registry.Options{})
	srv, err := NewServer(swapper, provider, reg, &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	return srv
}

func TestPingHandler(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubSwapper{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "pong", string(body))
}

func TestSwapHandler(t *testing.T) {
	t.Parallel()

	t.Run("natural language body", func(t *testing.T) {
		swapper := &stubSwapper{result: pipeline.SwapResult{ID: "run-1", Status: pipeline.StatusConfirmed, TxHash: "0xabc"}}
		srv := newTestServer(t, swapper, nil)

		body, _ := json.Marshal(dto.SwapRequest{Text: "swap 1 ETH to USDC on arbitrum"})
		req := httptest.NewRequest(http.MethodPost, "/swap", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "1", swapper.gotRaw.Amount)
		require.Equal(t, "ETH", swapper.gotRaw.FromToken)
		require.Equal(t, "arbitrum", swapper.gotRaw.ToChain)

		var out pipeline.SwapResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
		require.Equal(t, "run-1", out.ID)
		require.Equal(t, pipeline.StatusConfirmed, out.Status)
	})

	t.Run("structured body", func(t *testing.T) {
		swapper := &stubSwapper{result: pipeline.SwapResult{Status: pipeline.StatusPending}}
		srv := newTestServer(t, swapper, nil)

		body, _ := json.Marshal(dto.SwapRequest{
			FromChain: "ethereum",
			ToChain:   "arbitrum",
			FromToken: "ETH",
			ToToken:   "USDC",
			Amount:    "0.5",
		})
		req := httptest.NewRequest(http.MethodPost, "/swap", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "0.5", swapper.gotRaw.Amount)
	})

	t.Run("unparsable phrase", func(t *testing.T) {
		srv := newTestServer(t, &stubSwapper{}, nil)

		body, _ := json.Marshal(dto.SwapRequest{Text: "hello world"})
		req := httptest.NewRequest(http.MethodPost, "/swap", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		srv := newTestServer(t, &stubSwapper{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/swap", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := newTestServer(t, &stubSwapper{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/swap", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejected swap maps to 422", func(t *testing.T) {
		swapper := &stubSwapper{result: pipeline.SwapResult{
			Status:    pipeline.StatusFailed,
			ErrorKind: "InvalidAmount",
		}}
		srv := newTestServer(t, swapper, nil)

		body, _ := json.Marshal(dto.SwapRequest{FromToken: "ETH", ToToken: "USDC", Amount: "-1"})
		req := httptest.NewRequest(http.MethodPost, "/swap", bytes.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestStatusHandler(t *testing.T) {
	t.Parallel()

	hash := "0x9c16af030f01838ee9b1536b3b9a2207b69e0b07a0b9d042d4fd1f1e2b0a3b11"

	t.Run("ok", func(t *testing.T) {
		swapper := &stubSwapper{status: status.TxStatus{State: status.StateConfirmed, BlockNumber: 100, Confirmations: 3}}
		srv := newTestServer(t, swapper, nil)

		req := httptest.NewRequest(http.MethodGet, "/swap/ethereum/"+hash+"/status", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var out dto.StatusResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
		require.Equal(t, "confirmed", out.State)
		require.Equal(t, uint64(100), out.BlockNumber)
	})

	t.Run("bad hash", func(t *testing.T) {
		srv := newTestServer(t, &stubSwapper{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/swap/ethereum/nothash/status", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBalanceHandler(t *testing.T) {
	t.Parallel()

	address := "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	t.Run("ok", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().BalanceAt(gomock.Any(), common.HexToAddress(address), nil).
			Return(big.NewInt(1_500_000_000_000_000_000), nil)
		provider := evm.NewStaticPool(map[string]evm.Client{"ethereum": client})

		srv := newTestServer(t, &stubSwapper{}, provider)

		req := httptest.NewRequest(http.MethodGet, "/balance?chain=ethereum&address="+address, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var out dto.BalanceResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
		require.Equal(t, "1500000000000000000", out.BalanceWei)
		require.Equal(t, "1.5", out.Balance)
		require.Equal(t, "ETH", out.Symbol)
	})

	t.Run("missing address", func(t *testing.T) {
		srv := newTestServer(t, &stubSwapper{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/balance?chain=ethereum", nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no provider", func(t *testing.T) {
		srv := newTestServer(t, &stubSwapper{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/balance?chain=ethereum&address="+address, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		require.Equal(t, http.StatusBadGateway, w.Code)
	})
}
