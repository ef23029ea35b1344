// Package univ2 prices same-chain swaps directly against Uniswap V2 pools.
package univ2

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/infra/evm"
	"intentswap/internal/intent"
	"intentswap/internal/quote"
	"intentswap/internal/registry"
)

// Canonical mainnet deployments. The source only quotes on Ethereum, where
// these contracts live.
var (
	factoryAddress = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	routerAddress  = common.HexToAddress("0x7a250d5630B4cF539739dF2C9dBbd04A36cBf65a")
)

const (
	sourceID      = "uniswapv2"
	supportsChain = "ethereum"

	swapDuration = 30 * time.Second

	// Deadline given to the router relative to quote time.
	txDeadline = 20 * time.Minute
)

// Minimal ABIs for the factory lookup, pair reads and router calldata.
const (
	factoryABIJSON = `[
		{"inputs":[{"internalType":"address","name":"","type":"address"},{"internalType":"address","name":"","type":"address"}],"name":"getPair","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
	]`
	pairABIJSON = `[
		{"inputs":[],"name":"token0","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"getReserves","outputs":[{"internalType":"uint112","name":"_reserve0","type":"uint112"},{"internalType":"uint112","name":"_reserve1","type":"uint112"},{"internalType":"uint32","name":"_blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"}
	]`
	routerABIJSON = `[
		{"inputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"internalType":"uint256","name":"amountOutMin","type":"uint256"},{"internalType":"address[]","name":"path","type":"address[]"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"}],"name":"swapExactETHForTokens","outputs":[{"internalType":"uint256[]","name":"amounts","type":"uint256[]"}],"stateMutability":"payable","type":"function"}
	]`
)

// Source quotes and builds calldata against V2 pools on Ethereum mainnet.
type Source struct {
	provider evm.Provider
	reg      *registry.Registry
	wallet   common.Address

	factoryABI abi.ABI
	pairABI    abi.ABI
	routerABI  abi.ABI

	log *zap.Logger
}

// NewSource creates the V2 pool source.
func NewSource(provider evm.Provider, reg *registry.Registry, wallet common.Address, log *zap.Logger) (*Source, error) {
	factoryABI, err := abi.JSON(strings.NewReader(factoryABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "abi.JSON factory")
	}
	pairABI, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "abi.JSON pair")
	}
	routerABI, err := abi.JSON(strings.NewReader(routerABIJSON))
	if err != nil {
		return nil, errors.Wrap(err, "abi.JSON router")
	}

	return &Source{
		provider:   provider,
		reg:        reg,
		wallet:     wallet,
		factoryABI: factoryABI,
		pairABI:    pairABI,
		routerABI:  routerABI,
		log:        log,
	}, nil
}

// ID implements quote.Source.
func (s *Source) ID() string { return sourceID }

// SupportsCrossChain implements quote.Source.
func (s *Source) SupportsCrossChain() bool { return false }

// Quote implements quote.Source. The pool's own executed rate is the quote;
// there is no external price feed involved.
func (s *Source) Quote(ctx context.Context, in intent.SwapIntent, slippage decimal.Decimal) (quote.Quote, error) {
	if in.FromChain != supportsChain {
		return quote.Quote{}, errors.Wrapf(apperrors.ErrNoRouteAvailable, "no v2 pools on %s", in.FromChain)
	}

	client, err := s.provider.ForChain(in.FromChain)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "s.provider.ForChain")
	}

	tokenIn, err := s.effectiveToken(in.FromAsset)
	if err != nil {
		return quote.Quote{}, err
	}
	tokenOut, err := s.effectiveToken(in.ToAsset)
	if err != nil {
		return quote.Quote{}, err
	}

	// Native input rides along as call value, token input moves via the
	// router's transferFrom.
	valueIn := big.NewInt(0)
	if in.FromAsset.Native() {
		valueIn = in.AmountBase
	}

	pair, err := s.getPair(ctx, client, tokenIn, tokenOut)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "s.getPair")
	}

	reserveIn, reserveOut, err := s.orientedReserves(ctx, client, pair, tokenIn)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "s.orientedReserves")
	}

	amountOut, ok := GetAmountOut(in.AmountBase, reserveIn, reserveOut)
	if !ok || amountOut.Sign() == 0 {
		return quote.Quote{}, errors.Wrap(apperrors.ErrNoRouteAvailable, "insufficient pool liquidity")
	}

	impactF, _ := PriceImpactPercent(in.AmountBase, amountOut, reserveIn, reserveOut).Float64()

	data, err := s.swapCalldata(in, tokenIn, tokenOut, amountOut, slippage)
	if err != nil {
		return quote.Quote{}, errors.Wrap(err, "s.swapCalldata")
	}

	s.log.Debug("v2 pool quote",
		zap.String("pair", pair.Hex()),
		zap.String("amount_out", amountOut.String()))

	return quote.Quote{
		SourceID:          sourceID,
		EstimatedOutput:   decimal.NewFromBigInt(amountOut, 0).Shift(-in.ToAsset.Decimals),
		PriceImpact:       decimal.NewFromFloat(impactF),
		GasEstimate:       decimal.NewFromFloat(0.002),
		EstimatedDuration: swapDuration,
		CallData: quote.CallData{
			To:    routerAddress,
			Data:  data,
			Value: valueIn,
		},
	}, nil
}

// effectiveToken maps the native sentinel to the wrapped token for pool
// lookups; pools never hold raw ether.
func (s *Source) effectiveToken(a registry.Asset) (common.Address, error) {
	if !a.Native() {
		return a.Address, nil
	}
	weth, ok := s.reg.Asset(a.Chain, "WETH")
	if !ok {
		return common.Address{}, errors.Wrap(apperrors.ErrNoRouteAvailable, "no wrapped native token registered")
	}
	return weth.Address, nil
}

func (s *Source) getPair(ctx context.Context, client evm.Client, tokenA, tokenB common.Address) (common.Address, error) {
	out, err := s.call(ctx, client, s.factoryABI, factoryAddress, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	pair, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.New("failed to cast getPair result to address")
	}
	if pair == (common.Address{}) {
		return common.Address{}, errors.Wrap(apperrors.ErrNoRouteAvailable, "pair does not exist")
	}
	return pair, nil
}

// orientedReserves returns the pair reserves ordered as (in, out) for the
// given input token.
func (s *Source) orientedReserves(ctx context.Context, client evm.Client, pair, tokenIn common.Address) (*big.Int, *big.Int, error) {
	out, err := s.call(ctx, client, s.pairABI, pair, "token0")
	if err != nil {
		return nil, nil, err
	}
	token0, ok := out[0].(common.Address)
	if !ok {
		return nil, nil, errors.New("failed to cast token0 result to address")
	}

	out, err = s.call(ctx, client, s.pairABI, pair, "getReserves")
	if err != nil {
		return nil, nil, err
	}
	const requiredSize = 2
	if len(out) < requiredSize {
		return nil, nil, errors.Errorf("insufficient outputs from getReserves call: expected %d, got %d", requiredSize, len(out))
	}
	reserve0, ok0 := out[0].(*big.Int)
	reserve1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, errors.New("failed to cast reserves to *big.Int")
	}

	if token0 == tokenIn {
		return new(big.Int).Set(reserve0), new(big.Int).Set(reserve1), nil
	}
	return new(big.Int).Set(reserve1), new(big.Int).Set(reserve0), nil
}

func (s *Source) swapCalldata(in intent.SwapIntent, tokenIn, tokenOut common.Address, amountOut *big.Int, slippage decimal.Decimal) ([]byte, error) {
	minOut := decimal.NewFromBigInt(amountOut, 0).
		Mul(decimal.NewFromInt(100).Sub(slippage)).
		Div(decimal.NewFromInt(100)).
		BigInt()
	deadline := big.NewInt(time.Now().Add(txDeadline).Unix())
	path := []common.Address{tokenIn, tokenOut}

	if in.FromAsset.Native() {
		data, err := s.routerABI.Pack("swapExactETHForTokens", minOut, path, s.wallet, deadline)
		if err != nil {
			return nil, errors.Wrap(err, "s.routerABI.Pack")
		}
		return data, nil
	}

	data, err := s.routerABI.Pack("swapExactTokensForTokens", in.AmountBase, minOut, path, s.wallet, deadline)
	if err != nil {
		return nil, errors.Wrap(err, "s.routerABI.Pack")
	}
	return data, nil
}

func (s *Source) call(ctx context.Context, client evm.Client, contractABI abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrap(err, "contractABI.Pack")
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "client.CallContract")
	}

	out, err := contractABI.Unpack(method, res)
	if err != nil {
		return nil, errors.Wrap(err, "contractABI.Unpack")
	}
	return out, nil
}
