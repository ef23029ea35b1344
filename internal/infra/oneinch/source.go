// Package oneinch routes swaps through the 1inch Aggregation API for
// same-chain swaps and the Fusion+ quoter for cross-chain ones.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/intent"
	"intentswap/internal/quote"
	"intentswap/internal/registry"
)

const (
	defaultBaseURL = "https://api.1inch.dev"

	sourceID = "oneinch"

	// Durations the router itself does not report.
	sameChainDuration  = 30 * time.Second
	crossChainDuration = 3 * time.Minute
)

// fallbackGasPriceWei is used when a quote response carries no gas price.
var fallbackGasPriceWei = decimal.NewFromInt(20_000_000_000)

// Config carries the API client settings.
type Config struct {
	// APIKey authorizes calls to api.1inch.dev. Empty disables the source.
	APIKey  string
	BaseURL string
	// WalletAddress is sent as the taker for calldata requests.
	WalletAddress common.Address
	// Timeout bounds each HTTP round trip.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Source prices intents against the 1inch router. Safe for concurrent use.
type Source struct {
	cfg    Config
	reg    *registry.Registry
	client *http.Client
	log    *zap.Logger
}

// NewSource creates the 1inch routing source.
func NewSource(cfg Config, reg *registry.Registry, log *zap.Logger) *Source {
	cfg = cfg.withDefaults()
	return &Source{
		cfg:    cfg,
		reg:    reg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// ID implements quote.Source.
func (s *Source) ID() string { return sourceID }

// SupportsCrossChain implements quote.Source. Cross-chain routing goes
// through Fusion+.
func (s *Source) SupportsCrossChain() bool { return true }

// swapResponse is the aggregation /swap wire shape, reduced to the fields
// the pipeline consumes.
type swapResponse struct {
	ToAmount    string `json:"toAmount"`
	PriceImpact string `json:"priceImpact"`
	Tx          struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		Gas      int64  `json:"gas"`
		GasPrice string `json:"gasPrice"`
	} `json:"tx"`
}

// fusionQuoteResponse is the Fusion+ quoter wire shape.
type fusionQuoteResponse struct {
	DstTokenAmount string `json:"dstTokenAmount"`
	PriceImpact    string `json:"priceImpactPercent"`
	Recommended    struct {
		AuctionDuration int64 `json:"auctionDuration"`
	} `json:"recommendedPreset"`
}

// apiError is the error body every api.1inch.dev endpoint returns.
type apiError struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	StatusCode  int    `json:"statusCode"`
}

func (e apiError) message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Error
}

// Quote implements quote.Source.
func (s *Source) Quote(ctx context.Context, in intent.SwapIntent, slippage decimal.Decimal) (quote.Quote, error) {
	if s.cfg.APIKey == "" {
		return quote.Quote{}, errors.Wrap(apperrors.ErrNoRouteAvailable, "oneinch source not configured")
	}
	if in.CrossChain() {
		return s.crossChainQuote(ctx, in)
	}
	return s.sameChainQuote(ctx, in, slippage)
}

func (s *Source) sameChainQuote(ctx context.Context, in intent.SwapIntent, slippage decimal.Decimal) (quote.Quote, error) {
	chain, ok := s.reg.Chain(in.FromChain)
	if !ok {
		return quote.Quote{}, errors.Wrap(apperrors.ErrUnsupportedChain, in.FromChain)
	}

	params := url.Values{
		"src":      {in.FromAsset.Address.Hex()},
		"dst":      {in.ToAsset.Address.Hex()},
		"amount":   {in.AmountBase.String()},
		"from":     {s.cfg.WalletAddress.Hex()},
		"slippage": {slippage.String()},
	}

	// /swap returns both the priced output and ready-to-sign calldata, so a
	// single round trip covers quoting and building.
	endpoint := fmt.Sprintf("%s/swap/v6.0/%d/swap", s.cfg.BaseURL, chain.ID)
	var resp swapResponse
	if err := s.get(ctx, endpoint, params, &resp); err != nil {
		return quote.Quote{}, errors.Wrap(err, "s.get")
	}

	out, err := baseToHuman(resp.ToAmount, in.ToAsset.Decimals)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "baseToHuman")
	}

	gasPrice := fallbackGasPriceWei
	if resp.Tx.GasPrice != "" {
		if p, perr := decimal.NewFromString(resp.Tx.GasPrice); perr == nil {
			gasPrice = p
		}
	}
	gasUnits := resp.Tx.Gas
	if gasUnits == 0 {
		gasUnits = 200_000
	}
	gasNative := decimal.NewFromInt(gasUnits).Mul(gasPrice).Shift(-18)

	callValue := big.NewInt(0)
	if resp.Tx.Value != "" {
		if v, ok := new(big.Int).SetString(resp.Tx.Value, 10); ok {
			callValue = v
		}
	}
	data, err := hexutil.Decode(resp.Tx.Data)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "hexutil.Decode")
	}

	impact := decimal.NewFromFloat(0.1)
	if resp.PriceImpact != "" {
		if p, perr := decimal.NewFromString(resp.PriceImpact); perr == nil {
			impact = p
		}
	}

	s.log.Debug("oneinch quote",
		zap.String("chain", in.FromChain),
		zap.String("to_amount", out.String()))

	return quote.Quote{
		SourceID:          sourceID,
		EstimatedOutput:   out,
		PriceImpact:       impact,
		GasEstimate:       gasNative,
		EstimatedDuration: sameChainDuration,
		CallData: quote.CallData{
			To:    common.HexToAddress(resp.Tx.To),
			Data:  data,
			Value: callValue,
		},
	}, nil
}

func (s *Source) crossChainQuote(ctx context.Context, in intent.SwapIntent) (quote.Quote, error) {
	srcChain, ok := s.reg.Chain(in.FromChain)
	if !ok {
		return quote.Quote{}, errors.Wrap(apperrors.ErrUnsupportedChain, in.FromChain)
	}
	dstChain, ok := s.reg.Chain(in.ToChain)
	if !ok {
		return quote.Quote{}, errors.Wrap(apperrors.ErrUnsupportedChain, in.ToChain)
	}

	params := url.Values{
		"srcChain":        {fmt.Sprintf("%d", srcChain.ID)},
		"dstChain":        {fmt.Sprintf("%d", dstChain.ID)},
		"srcTokenAddress": {in.FromAsset.Address.Hex()},
		"dstTokenAddress": {in.ToAsset.Address.Hex()},
		"amount":          {in.AmountBase.String()},
		"walletAddress":   {s.cfg.WalletAddress.Hex()},
	}

	endpoint := s.cfg.BaseURL + "/fusion-plus/quoter/v1.0/quote/receive"
	var resp fusionQuoteResponse
	if err := s.get(ctx, endpoint, params, &resp); err != nil {
		return quote.Quote{}, errors.Wrap(err, "s.get")
	}

	out, err := baseToHuman(resp.DstTokenAmount, in.ToAsset.Decimals)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "baseToHuman")
	}

	impact := decimal.NewFromFloat(0.15)
	if resp.PriceImpact != "" {
		if p, perr := decimal.NewFromString(resp.PriceImpact); perr == nil {
			impact = p
		}
	}
	duration := crossChainDuration
	if resp.Recommended.AuctionDuration > 0 {
		duration = time.Duration(resp.Recommended.AuctionDuration) * time.Second
	}

	// Fusion+ settles via the canonical 1inch router on the source chain.
	return quote.Quote{
		SourceID:          sourceID,
		EstimatedOutput:   out,
		PriceImpact:       impact,
		GasEstimate:       decimal.NewFromFloat(0.005),
		EstimatedDuration: duration,
		CrossChain:        true,
		CallData: quote.CallData{
			To:    common.HexToAddress("0x1111111254EEB25477B68fb85Ed929f73A960582"),
			Value: big.NewInt(0),
		},
	}, nil
}

func (s *Source) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "http.NewRequestWithContext")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(apperrors.ErrNetworkUnavailable, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "io.ReadAll")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if jerr := json.Unmarshal(body, &apiErr); jerr == nil && apiErr.message() != "" {
			return errors.Wrapf(apperrors.ErrNoRouteAvailable, "oneinch: %s", apiErr.message())
		}
		return errors.Wrapf(apperrors.ErrNoRouteAvailable, "oneinch: status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "json.Unmarshal")
	}
	return nil
}

// baseToHuman converts a base-unit decimal string to human units.
func baseToHuman(amount string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "bad amount %q", amount)
	}
	return d.Shift(-decimals), nil
}
