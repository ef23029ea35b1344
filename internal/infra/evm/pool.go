package evm

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/registry"
)

// Provider hands out chain clients by chain name.
type Provider interface {
	ForChain(chain string) (Client, error)
}

// Pool is the process-wide Provider. It is built once at startup and
// read-only afterwards.
type Pool struct {
	clients map[string]Client
}

// NewPool dials every registry chain that has an RPC URL configured. Chains
// without an endpoint are skipped, not fatal: they fail per-request with
// ErrNetworkUnavailable instead.
func NewPool(reg *registry.Registry, log *zap.Logger) *Pool {
	clients := make(map[string]Client)
	for _, c := range reg.Chains() {
		if c.RPCURL == "" {
			log.Warn("no rpc endpoint configured", zap.String("chain", c.Name))
			continue
		}
		client, err := Dial(c.RPCURL)
		if err != nil {
			log.Warn("failed to dial chain rpc", zap.String("chain", c.Name), zap.Error(err))
			continue
		}
		clients[c.Name] = client
		log.Info("chain client ready", zap.String("chain", c.Name), zap.Uint64("chain_id", c.ID))
	}
	return &Pool{clients: clients}
}

// NewStaticPool builds a Provider from pre-constructed clients, keyed by
// chain name. Used in tests and simulations.
func NewStaticPool(clients map[string]Client) *Pool {
	copied := make(map[string]Client, len(clients))
	for name, c := range clients {
		copied[strings.ToLower(name)] = c
	}
	return &Pool{clients: copied}
}

// ForChain returns the client for a chain, or ErrNetworkUnavailable when no
// endpoint is connected.
func (p *Pool) ForChain(chain string) (Client, error) {
	c, ok := p.clients[strings.ToLower(chain)]
	if !ok {
		return nil, errors.Wrapf(apperrors.ErrNetworkUnavailable, "no client for chain %q", chain)
	}
	return c, nil
}
