package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/infra/evm"
	"intentswap/internal/txbuilder"
)

// SignedTx is the broadcast outcome. Raw signed bytes are never retained
// past the send; only the hash leaves this package.
type SignedTx struct {
	Chain     string
	Hash      common.Hash
	Nonce     uint64
	Simulated bool
}

// Signer holds the signing credential in process memory only and serializes
// nonce-fetch + sign + submit per (chain, address). Without a key it runs in
// simulate mode: no broadcast, a deterministic pseudo hash instead.
type Signer struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	provider evm.Provider
	log      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New parses the hex-encoded private key. An empty key selects simulate
// mode. The key material never appears in errors or logs.
func New(privateKeyHex string, provider evm.Provider, log *zap.Logger) (*Signer, error) {
	s := &Signer{
		provider: provider,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		log.Warn("no signing key configured, running in simulate mode")
		return s, nil
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		// Deliberately not wrapping err: its message may echo key material.
		return nil, errors.Wrap(apperrors.ErrSigningError, "malformed private key")
	}
	s.key = key
	s.address = crypto.PubkeyToAddress(key.PublicKey)
	log.Info("signer ready", zap.String("address", s.address.Hex()))
	return s, nil
}

// Address returns the signing address, zero in simulate mode.
func (s *Signer) Address() common.Address {
	return s.address
}

// Simulated reports whether the signer runs without a credential.
func (s *Signer) Simulated() bool {
	return s.key == nil
}

// SignAndSend resolves the current nonce, signs the descriptor and
// broadcasts it. On a stale-nonce or underpriced rejection it retries
// exactly once with refreshed nonce and fees; a second rejection is
// surfaced.
func (s *Signer) SignAndSend(ctx context.Context, d txbuilder.TxDescriptor) (SignedTx, error) {
	if s.key == nil {
		return s.simulate(d), nil
	}

	client, err := s.provider.ForChain(d.Chain)
	if err != nil {
		return SignedTx{}, err
	}

	// The lock is scoped to nonce-fetch + sign + submit so two concurrent
	// swaps for the same account cannot reuse a nonce.
	lock := s.lockFor(d.Chain, s.address)
	lock.Lock()
	defer lock.Unlock()

	hash, nonce, err := s.sendOnce(ctx, client, d)
	if err == nil {
		return SignedTx{Chain: d.Chain, Hash: hash, Nonce: nonce}, nil
	}
	if !retryableRejection(err) {
		return SignedTx{}, err
	}

	s.log.Warn("broadcast rejected, retrying with refreshed nonce and fees",
		zap.String("chain", d.Chain), zap.Error(err))
	hash, nonce, err = s.sendOnce(ctx, client, bumpFees(d))
	if err != nil {
		return SignedTx{}, errors.Wrapf(apperrors.ErrBroadcastRejected, "retry exhausted: %v", err)
	}
	return SignedTx{Chain: d.Chain, Hash: hash, Nonce: nonce, Simulated: false}, nil
}

func (s *Signer) sendOnce(ctx context.Context, client evm.Client, d txbuilder.TxDescriptor) (common.Hash, uint64, error) {
	nonce, err := client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, 0, errors.Wrapf(apperrors.ErrNetworkUnavailable, "nonce fetch: %v", err)
	}

	var txData types.TxData
	if d.GasFeeCap != nil {
		txData = &types.DynamicFeeTx{
			ChainID:   d.ChainID,
			Nonce:     nonce,
			GasTipCap: d.GasTipCap,
			GasFeeCap: d.GasFeeCap,
			Gas:       d.GasLimit,
			To:        &d.To,
			Value:     d.Value,
			Data:      d.Data,
		}
	} else {
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: d.GasPrice,
			Gas:      d.GasLimit,
			To:       &d.To,
			Value:    d.Value,
			Data:     d.Data,
		}
	}

	tx, err := types.SignNewTx(s.key, types.LatestSignerForChainID(d.ChainID), txData)
	if err != nil {
		return common.Hash{}, 0, errors.Wrapf(apperrors.ErrSigningError, "sign: %v", err)
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, 0, errors.Wrapf(apperrors.ErrBroadcastRejected, "send: %v", err)
	}
	s.log.Info("transaction broadcast",
		zap.String("chain", d.Chain),
		zap.String("hash", tx.Hash().Hex()),
		zap.Uint64("nonce", nonce))
	return tx.Hash(), nonce, nil
}

// simulate produces a deterministic pseudo hash without touching the
// network. Mirrors the keyless development mode of the original service.
func (s *Signer) simulate(d txbuilder.TxDescriptor) SignedTx {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixNano()))
	payload := append([]byte(d.Chain), d.To.Bytes()...)
	payload = append(payload, d.Data...)
	payload = append(payload, ts[:]...)
	hash := crypto.Keccak256Hash(payload)
	s.log.Info("simulated broadcast", zap.String("chain", d.Chain), zap.String("hash", hash.Hex()))
	return SignedTx{Chain: d.Chain, Hash: hash, Simulated: true}
}

func (s *Signer) lockFor(chain string, addr common.Address) *sync.Mutex {
	key := chain + "/" + strings.ToLower(addr.Hex())
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// retryableRejection matches the node error strings that a refreshed nonce
// or fee can fix.
func retryableRejection(err error) bool {
	if !errors.Is(err, apperrors.ErrBroadcastRejected) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"nonce too low",
		"nonce too high",
		"already known",
		"underpriced",
		"replacement transaction",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// bumpFees returns a new descriptor with fees raised ~12.5%, the usual
// replacement threshold. The input descriptor is never mutated.
func bumpFees(d txbuilder.TxDescriptor) txbuilder.TxDescriptor {
	out := d
	if d.GasPrice != nil {
		out.GasPrice = bump(d.GasPrice)
	}
	if d.GasFeeCap != nil {
		out.GasFeeCap = bump(d.GasFeeCap)
	}
	if d.GasTipCap != nil {
		out.GasTipCap = bump(d.GasTipCap)
	}
	return out
}

func bump(v *big.Int) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(1125))
	return out.Div(out, big.NewInt(1000))
}
