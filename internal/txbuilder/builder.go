package txbuilder

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/infra/evm"
	"intentswap/internal/quote"
	"intentswap/internal/registry"
)

// Static gas-limit floors used when call simulation is unavailable.
const (
	sameChainGasFloor  = 250_000
	crossChainGasFloor = 400_000
)

// TxDescriptor is an unsigned, chain-specific transaction. It is built once
// per selected route and never mutated after signing begins; re-estimation
// produces a new descriptor.
type TxDescriptor struct {
	Chain   string
	ChainID *big.Int
	To      common.Address
	Data    []byte
	Value   *big.Int
	// GasLimit includes the configured buffer when it comes from a static
	// floor rather than simulation.
	GasLimit uint64
	// GasPrice is set on legacy-fee chains; GasFeeCap/GasTipCap on chains
	// with a base-fee market. Exactly one of the two shapes is populated.
	GasPrice  *big.Int
	GasFeeCap *big.Int
	GasTipCap *big.Int
	// Nonce resolution is deferred to the signer to avoid a race between
	// build and send.
}

// Config carries the fee and gas-limit knobs.
type Config struct {
	// FeeMultiplierNum/Den scale the sampled base fee, default 12/10 (1.2x).
	FeeMultiplierNum int64
	FeeMultiplierDen int64
	// GasBufferPercent pads static gas-limit floors, default 20.
	GasBufferPercent int64
}

func (c Config) withDefaults() Config {
	if c.FeeMultiplierNum == 0 || c.FeeMultiplierDen == 0 {
		c.FeeMultiplierNum, c.FeeMultiplierDen = 12, 10
	}
	if c.GasBufferPercent == 0 {
		c.GasBufferPercent = 20
	}
	return c
}

// Builder turns a selected route into a TxDescriptor.
type Builder struct {
	provider evm.Provider
	reg      *registry.Registry
	from     common.Address
	cfg      Config
	log      *zap.Logger
}

// NewBuilder creates a Builder. from is the sending address used for call
// simulation; the zero address disables simulation in favor of static floors.
func NewBuilder(provider evm.Provider, reg *registry.Registry, from common.Address, cfg Config, log *zap.Logger) *Builder {
	return &Builder{provider: provider, reg: reg, from: from, cfg: cfg.withDefaults(), log: log}
}

// Build resolves gas parameters for the route's source chain and packages
// the source-provided call data unchanged.
func (b *Builder) Build(ctx context.Context, route quote.SelectedRoute) (TxDescriptor, error) {
	chain, ok := b.reg.Chain(route.Intent.FromChain)
	if !ok {
		return TxDescriptor{}, errors.Wrapf(apperrors.ErrUnsupportedChain, "chain %q", route.Intent.FromChain)
	}
	client, err := b.provider.ForChain(chain.Name)
	if err != nil {
		return TxDescriptor{}, err
	}

	value := route.Quote.CallData.Value
	if value == nil {
		value = new(big.Int)
	}

	d := TxDescriptor{
		Chain:   chain.Name,
		ChainID: new(big.Int).SetUint64(chain.ID),
		To:      route.Quote.CallData.To,
		Data:    route.Quote.CallData.Data,
		Value:   value,
	}

	if err := b.resolveFees(ctx, client, chain, &d); err != nil {
		return TxDescriptor{}, err
	}

	d.GasLimit, err = b.resolveGasLimit(ctx, client, route, d)
	if err != nil {
		return TxDescriptor{}, err
	}

	b.log.Debug("transaction built",
		zap.String("chain", d.Chain),
		zap.String("to", d.To.Hex()),
		zap.Uint64("gas_limit", d.GasLimit))
	return d, nil
}

// resolveFees samples current fee data. It never defaults to zero: missing
// fee data fails the build.
func (b *Builder) resolveFees(ctx context.Context, client evm.Client, chain registry.Chain, d *TxDescriptor) error {
	if chain.LegacyFees {
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return errors.Wrapf(apperrors.ErrGasEstimationFailed, "gas price on %s: %v", chain.Name, err)
		}
		if gasPrice == nil || gasPrice.Sign() <= 0 {
			return errors.Wrapf(apperrors.ErrGasEstimationFailed, "empty gas price on %s", chain.Name)
		}
		d.GasPrice = gasPrice
		return nil
	}

	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return errors.Wrapf(apperrors.ErrGasEstimationFailed, "head block on %s: %v", chain.Name, err)
	}
	if head == nil || head.BaseFee == nil || head.BaseFee.Sign() <= 0 {
		return errors.Wrapf(apperrors.ErrGasEstimationFailed, "no base fee on %s", chain.Name)
	}
	tip, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return errors.Wrapf(apperrors.ErrGasEstimationFailed, "tip cap on %s: %v", chain.Name, err)
	}

	// maxFeePerGas = baseFee * multiplier + tip.
	feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(b.cfg.FeeMultiplierNum))
	feeCap.Div(feeCap, big.NewInt(b.cfg.FeeMultiplierDen))
	feeCap.Add(feeCap, tip)
	d.GasFeeCap = feeCap
	d.GasTipCap = tip
	return nil
}

// resolveGasLimit simulates the call when a sender address is known, else
// applies the per-operation static floor plus buffer. An underestimate is
// expected to fail fast at broadcast, not here.
func (b *Builder) resolveGasLimit(ctx context.Context, client evm.Client, route quote.SelectedRoute, d TxDescriptor) (uint64, error) {
	if b.from != (common.Address{}) {
		limit, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From:  b.from,
			To:    &d.To,
			Value: d.Value,
			Data:  d.Data,
		})
		if err == nil && limit > 0 {
			return limit, nil
		}
		b.log.Debug("gas simulation unavailable, using static floor", zap.Error(err))
	}

	floor := uint64(sameChainGasFloor)
	if route.Quote.CrossChain {
		floor = crossChainGasFloor
	}
	return floor + floor*uint64(b.cfg.GasBufferPercent)/100, nil
}
