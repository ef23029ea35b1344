package txbuilder

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/infra/evm"
	"intentswap/internal/infra/evm/mock"
	"intentswap/internal/intent"
	"intentswap/internal/quote"
	"intentswap/internal/registry"
)

func routeOn(t *testing.T, fromChain string, crossChain bool) quote.SelectedRoute {
	t.Helper()
	reg := registry.Default(registry.Options{})
	asset, ok := reg.Asset(fromChain, "USDC")
	require.True(t, ok)

	return quote.SelectedRoute{
		Quote: quote.Quote{
			SourceID:   "test",
			CrossChain: crossChain,
			CallData: quote.CallData{
				To:    common.HexToAddress("0x1111111254EEB25477B68fb85Ed929f73A960582"),
				Data:  []byte{0x12, 0x34},
				Value: big.NewInt(0),
			},
		},
		Intent: intent.SwapIntent{
			FromChain: fromChain,
			ToChain:   fromChain,
			FromAsset: asset,
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	reg := registry.Default(registry.Options{})
	log := zap.NewNop()
	sender := common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

	t.Run("eip-1559 fees", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().HeaderByNumber(gomock.Any(), nil).
			Return(&types.Header{BaseFee: big.NewInt(100)}, nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).Return(uint64(180_000), nil)

		provider := evm.NewStaticPool(map[string]evm.Client{"ethereum": client})
		b := NewBuilder(provider, reg, sender, Config{}, log)

		d, err := b.Build(context.Background(), routeOn(t, "ethereum", false))
		require.NoError(t, err)
		// maxFeePerGas = 100*1.2 + 2
		require.Equal(t, big.NewInt(122), d.GasFeeCap)
		require.Equal(t, big.NewInt(2), d.GasTipCap)
		require.Nil(t, d.GasPrice)
		require.Equal(t, uint64(180_000), d.GasLimit)
		require.Equal(t, big.NewInt(1), d.ChainID)
	})

	t.Run("legacy fees on polygon", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(30_000_000_000), nil)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).Return(uint64(150_000), nil)

		provider := evm.NewStaticPool(map[string]evm.Client{"polygon": client})
		b := NewBuilder(provider, reg, sender, Config{}, log)

		d, err := b.Build(context.Background(), routeOn(t, "polygon", false))
		require.NoError(t, err)
		require.Equal(t, big.NewInt(30_000_000_000), d.GasPrice)
		require.Nil(t, d.GasFeeCap)
		require.Nil(t, d.GasTipCap)
	})

	t.Run("fee lookup failure is GasEstimationFailed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().HeaderByNumber(gomock.Any(), nil).
			Return(nil, errors.New("rpc down"))

		provider := evm.NewStaticPool(map[string]evm.Client{"ethereum": client})
		b := NewBuilder(provider, reg, sender, Config{}, log)

		_, err := b.Build(context.Background(), routeOn(t, "ethereum", false))
		require.ErrorIs(t, err, apperrors.ErrGasEstimationFailed)
	})

	t.Run("zero suggested price never passes through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(0), nil)

		provider := evm.NewStaticPool(map[string]evm.Client{"polygon": client})
		b := NewBuilder(provider, reg, sender, Config{}, log)

		_, err := b.Build(context.Background(), routeOn(t, "polygon", false))
		require.ErrorIs(t, err, apperrors.ErrGasEstimationFailed)
	})

	t.Run("static floor plus buffer without sender", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().HeaderByNumber(gomock.Any(), nil).
			Return(&types.Header{BaseFee: big.NewInt(100)}, nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)

		provider := evm.NewStaticPool(map[string]evm.Client{"ethereum": client})
		b := NewBuilder(provider, reg, common.Address{}, Config{}, log)

		t.Run("same chain", func(t *testing.T) {
			d, err := b.Build(context.Background(), routeOn(t, "ethereum", false))
			require.NoError(t, err)
			require.Equal(t, uint64(300_000), d.GasLimit) // 250k + 20%
		})
	})

	t.Run("cross-chain floor when simulation fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		client := mock.NewMockClient(ctrl)
		client.EXPECT().HeaderByNumber(gomock.Any(), nil).
			Return(&types.Header{BaseFee: big.NewInt(100)}, nil)
		client.EXPECT().SuggestGasTipCap(gomock.Any()).Return(big.NewInt(2), nil)
		client.EXPECT().EstimateGas(gomock.Any(), gomock.Any()).
			Return(uint64(0), errors.New("execution reverted"))

		provider := evm.NewStaticPool(map[string]evm.Client{"ethereum": client})
		b := NewBuilder(provider, reg, sender, Config{}, log)

		d, err := b.Build(context.Background(), routeOn(t, "ethereum", true))
		require.NoError(t, err)
		require.Equal(t, uint64(480_000), d.GasLimit) // 400k + 20%
	})

	t.Run("unknown chain", func(t *testing.T) {
		provider := evm.NewStaticPool(nil)
		b := NewBuilder(provider, reg, sender, Config{}, log)

		route := routeOn(t, "ethereum", false)
		route.Intent.FromChain = "solana"
		_, err := b.Build(context.Background(), route)
		require.ErrorIs(t, err, apperrors.ErrUnsupportedChain)
	})

	t.Run("no client for chain", func(t *testing.T) {
		provider := evm.NewStaticPool(nil)
		b := NewBuilder(provider, reg, sender, Config{}, log)

		_, err := b.Build(context.Background(), routeOn(t, "ethereum", false))
		require.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
	})
}
