package status

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"intentswap/internal/infra/evm"
	"intentswap/internal/registry"
)

// State is the uniform transaction status the resolver reports.
type State string

const (
	StateSubmitted State = "submitted"
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
	// StateTimedOut means the wait budget ran out; the transaction may still
	// confirm later. It is deliberately distinct from StateFailed.
	StateTimedOut State = "timedOut"
)

// Terminal reports whether polling can stop at this state.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed || s == StateTimedOut
}

// TxStatus is one observation of a submitted transaction.
type TxStatus struct {
	State         State
	BlockNumber   uint64
	Confirmations uint64
}

// Config carries the polling knobs.
type Config struct {
	// MaxWait bounds how long Await blocks.
	MaxWait time.Duration
	// InitialPoll is the first poll interval; it doubles up to MaxPoll.
	InitialPoll time.Duration
	MaxPoll     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxWait == 0 {
		c.MaxWait = 5 * time.Minute
	}
	if c.InitialPoll == 0 {
		c.InitialPoll = 2 * time.Second
	}
	if c.MaxPoll == 0 {
		c.MaxPoll = 30 * time.Second
	}
	return c
}

// Resolver polls chain providers until a submitted transaction reaches a
// terminal state. Each Await owns only its own transaction hash; independent
// polls never block each other.
type Resolver struct {
	provider evm.Provider
	reg      *registry.Registry
	cfg      Config
	log      *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(provider evm.Provider, reg *registry.Registry, cfg Config, log *zap.Logger) *Resolver {
	return &Resolver{provider: provider, reg: reg, cfg: cfg.withDefaults(), log: log}
}

// newPollBackoff builds the poll-interval schedule. The wait itself is
// bounded by the MaxWait context, so the schedule must never stop on its
// own: a backoff.Stop here would turn the poll loop into a zero-interval
// spin against the provider.
func newPollBackoff(cfg Config) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialPoll
	b.Multiplier = 2
	b.MaxInterval = cfg.MaxPoll
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return b
}

// Await polls with geometric backoff until the transaction confirms, fails,
// or the wait budget runs out. The chain's configured confirmation depth
// decides when pending becomes confirmed.
func (r *Resolver) Await(ctx context.Context, chain string, hash common.Hash) (State, error) {
	b := newPollBackoff(r.cfg)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.MaxWait)
	defer cancel()

	// seen flips once the network has acknowledged the hash; a later
	// not-found then means dropped/replaced rather than not-yet-visible.
	seen := false
	for {
		st, err := r.Check(ctx, chain, hash)
		if err == nil {
			if st.State != StateSubmitted {
				seen = true
			}
			if st.State == StateConfirmed || st.State == StateFailed {
				return st.State, nil
			}
			if st.State == StateSubmitted && seen {
				r.log.Warn("transaction no longer known to the network, treating as dropped",
					zap.String("chain", chain), zap.String("hash", hash.Hex()))
				return StateFailed, nil
			}
		} else if ctx.Err() == nil {
			// Provider hiccups are retried on the same backoff schedule.
			r.log.Warn("status poll failed", zap.String("chain", chain), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			// Not a failure: the transaction may still confirm later.
			return StateTimedOut, nil
		case <-time.After(b.NextBackOff()):
		}
	}
}

// Check performs a single observation. Callers use it for explicit re-checks
// after a timed-out wait; the core stays stateless between calls.
func (r *Resolver) Check(ctx context.Context, chain string, hash common.Hash) (TxStatus, error) {
	chainCfg, ok := r.reg.Chain(chain)
	if !ok {
		return TxStatus{}, errors.Errorf("unknown chain %q", chain)
	}
	client, err := r.provider.ForChain(chainCfg.Name)
	if err != nil {
		return TxStatus{}, err
	}

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err == nil && receipt != nil {
		if receipt.Status != 1 {
			return TxStatus{State: StateFailed, BlockNumber: receipt.BlockNumber.Uint64()}, nil
		}
		head, err := client.BlockNumber(ctx)
		if err != nil {
			return TxStatus{}, errors.Wrap(err, "client.BlockNumber")
		}
		mined := receipt.BlockNumber.Uint64()
		var confirmations uint64
		if head >= mined {
			confirmations = head - mined + 1
		}
		st := TxStatus{State: StatePending, BlockNumber: mined, Confirmations: confirmations}
		if confirmations >= chainCfg.Confirmations {
			st.State = StateConfirmed
		}
		return st, nil
	}
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		return TxStatus{}, errors.Wrap(err, "client.TransactionReceipt")
	}

	// No receipt yet: pending in the mempool, or not acknowledged at all.
	_, _, err = client.TransactionByHash(ctx, hash)
	if err == nil {
		// Known to the network, mempool or just mined.
		return TxStatus{State: StatePending}, nil
	}
	if !errors.Is(err, ethereum.NotFound) {
		return TxStatus{}, errors.Wrap(err, "client.TransactionByHash")
	}
	return TxStatus{State: StateSubmitted}, nil
}
