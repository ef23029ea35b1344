package http

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"intentswap/internal/intent"
	"intentswap/internal/nlparse"
	"intentswap/internal/pipeline"
	"intentswap/internal/transport/http/dto"
)

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req dto.SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	raw, err := rawIntentFrom(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The swap outlives the request timeout knob on purpose: status
	// resolution can take minutes and the result reports a timeout itself.
	result := s.swapper.ExecuteSwap(r.Context(), raw)

	code := http.StatusOK
	if result.Status == pipeline.StatusFailed && result.TxHash == "" {
		code = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, code, result)
}

func rawIntentFrom(req dto.SwapRequest) (intent.RawIntent, error) {
	if req.Text != "" {
		raw, err := nlparse.Parse(req.Text)
		if err != nil {
			return intent.RawIntent{}, err
		}
		return raw, nil
	}
	if req.FromToken == "" || req.ToToken == "" || req.Amount == "" {
		return intent.RawIntent{}, errors.New("either text or from_token/to_token/amount is required")
	}
	return intent.RawIntent{
		FromChain: req.FromChain,
		ToChain:   req.ToChain,
		FromToken: req.FromToken,
		ToToken:   req.ToToken,
		Amount:    req.Amount,
	}, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	chain := r.PathValue("chain")
	hashHex := r.PathValue("hash")
	if len(hashHex) != common.HashLength*2+2 {
		http.Error(w, "invalid transaction hash", http.StatusBadRequest)
		return
	}

	st, err := s.swapper.CheckStatus(r.Context(), chain, common.HexToHash(hashHex))
	if err != nil {
		s.log.Warn("status check failed", zap.Error(err))
		http.Error(w, "status check failed", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, http.StatusOK, dto.StatusResponse{
		Chain:         chain,
		TxHash:        hashHex,
		State:         string(st.State),
		BlockNumber:   st.BlockNumber,
		Confirmations: st.Confirmations,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	chainName := r.URL.Query().Get("chain")
	if chainName == "" {
		chainName = s.reg.DefaultChain()
	}
	addressHex := r.URL.Query().Get("address")
	if !common.IsHexAddress(addressHex) {
		http.Error(w, "valid address query parameter is required", http.StatusBadRequest)
		return
	}

	chain, ok := s.reg.Chain(chainName)
	if !ok {
		http.Error(w, "unsupported chain", http.StatusBadRequest)
		return
	}
	client, err := s.provider.ForChain(chain.Name)
	if err != nil {
		http.Error(w, "chain provider unavailable", http.StatusBadGateway)
		return
	}

	wei, err := client.BalanceAt(r.Context(), common.HexToAddress(addressHex), nil)
	if err != nil {
		s.log.Warn("balance lookup failed", zap.Error(err))
		http.Error(w, "balance lookup failed", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, http.StatusOK, dto.BalanceResponse{
		Chain:      chain.Name,
		Address:    common.HexToAddress(addressHex).Hex(),
		BalanceWei: wei.String(),
		Balance:    decimal.NewFromBigInt(wei, 0).Shift(-18).String(),
		Symbol:     chain.NativeSymbol,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("response write error", zap.Error(err))
	}
}
