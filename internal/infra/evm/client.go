package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// Client is the subset of chain-node RPC the pipeline depends on.
// *ethclient.Client satisfies it directly; tests use the generated mock.
type Client interface {
	// HeaderByNumber returns the header of the given block, latest when nil.
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	// BlockNumber returns the latest block height.
	BlockNumber(ctx context.Context) (uint64, error)
	// SuggestGasPrice returns a legacy gas price estimate.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	// SuggestGasTipCap returns a priority fee estimate for EIP-1559 chains.
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	// EstimateGas simulates the call and returns a gas limit.
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	// PendingNonceAt returns the next nonce for the account, including
	// pending transactions.
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	// SendTransaction broadcasts a signed transaction.
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	// TransactionReceipt returns the receipt of a mined transaction, or
	// ethereum.NotFound.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	// TransactionByHash returns the transaction and whether it is still
	// pending, or ethereum.NotFound.
	TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error)
	// BalanceAt returns the native balance at the given block, latest when nil.
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	// CallContract executes a read-only contract call.
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to a chain RPC endpoint.
func Dial(rpcURL string) (Client, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "ethclient.Dial")
	}
	return c, nil
}
