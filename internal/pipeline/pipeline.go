package pipeline

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/intent"
	"intentswap/internal/quote"
	"intentswap/internal/registry"
	"intentswap/internal/signer"
	"intentswap/internal/status"
	"intentswap/internal/txbuilder"
)

// Status is the caller-facing swap outcome.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// SwapResult is the single output of a pipeline run. It is not mutated after
// the run completes; a later status check is a new read.
type SwapResult struct {
	ID          string             `json:"id"`
	Status      Status             `json:"status"`
	TxHash      string             `json:"tx_hash,omitempty"`
	ExplorerURL string             `json:"explorer_url,omitempty"`
	Simulated   bool               `json:"simulated,omitempty"`
	Quote       *quote.Quote       `json:"quote,omitempty"`
	Intent      *intent.SwapIntent `json:"intent,omitempty"`
	// TimedOut marks a pending result whose status wait ran out. The
	// transaction may still confirm later; this is explicitly not a loss.
	TimedOut bool `json:"timed_out,omitempty"`
	// ErrorKind and ErrorStage are set only on failure. Error carries a
	// human-readable cause, never credential or provider-internal detail.
	ErrorKind  string `json:"error_kind,omitempty"`
	ErrorStage string `json:"error_stage,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Config carries the orchestration knobs.
type Config struct {
	// ExecBudget is the wall-clock budget for normalize-through-broadcast.
	// Exceeding it aborts before signing; a timeout never leaves a
	// transaction half-submitted without tracking.
	ExecBudget time.Duration
}

func (c Config) withDefaults() Config {
	if c.ExecBudget == 0 {
		c.ExecBudget = 45 * time.Second
	}
	return c
}

// Pipeline sequences normalize → quote → build → sign → resolve with the
// per-stage retry and timeout policy of each component. Independent runs
// share no mutable state beyond the registry and the signer's nonce locks.
type Pipeline struct {
	normalizer *intent.Normalizer
	aggregator *quote.Aggregator
	builder    *txbuilder.Builder
	signer     *signer.Signer
	resolver   *status.Resolver
	reg        *registry.Registry
	cfg        Config
	log        *zap.Logger
}

// New wires the pipeline stages together.
func New(
	normalizer *intent.Normalizer,
	aggregator *quote.Aggregator,
	builder *txbuilder.Builder,
	sgn *signer.Signer,
	resolver *status.Resolver,
	reg *registry.Registry,
	cfg Config,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		aggregator: aggregator,
		builder:    builder,
		signer:     sgn,
		resolver:   resolver,
		reg:        reg,
		cfg:        cfg.withDefaults(),
		log:        log,
	}
}

// ExecuteSwap runs the full pipeline for one raw intent. Every failure mode
// surfaces through the result's error fields; re-invoking with an identical
// intent is an independent new swap by design.
func (p *Pipeline) ExecuteSwap(ctx context.Context, raw intent.RawIntent) SwapResult {
	id := uuid.NewString()
	log := p.log.With(zap.String("swap_id", id))

	execCtx, cancel := context.WithTimeout(ctx, p.cfg.ExecBudget)
	defer cancel()

	in, err := p.normalizer.Normalize(raw)
	if err != nil {
		return p.fail(id, nil, nil, apperrors.AtStage(apperrors.StageNormalize, err))
	}
	log.Info("intent normalized",
		zap.String("from", in.FromChain+"/"+in.FromAsset.Symbol),
		zap.String("to", in.ToChain+"/"+in.ToAsset.Symbol),
		zap.String("amount", in.Amount.String()))

	quotes, err := p.aggregator.GetQuotes(execCtx, in)
	if err != nil {
		return p.fail(id, &in, nil, apperrors.AtStage(apperrors.StageQuote, err))
	}
	route, err := p.aggregator.SelectBest(quotes, in)
	if err != nil {
		return p.fail(id, &in, nil, apperrors.AtStage(apperrors.StageQuote, err))
	}

	descriptor, err := p.builder.Build(execCtx, route)
	if err != nil {
		return p.fail(id, &in, &route.Quote, apperrors.AtStage(apperrors.StageBuild, err))
	}

	// The budget must not expire mid-broadcast: check before signing so a
	// timeout can never leave an untracked transaction behind.
	if err := execCtx.Err(); err != nil {
		return p.fail(id, &in, &route.Quote,
			apperrors.AtStage(apperrors.StageSign, errors.Wrap(apperrors.ErrPipelineTimeout, err.Error())))
	}

	signed, err := p.signer.SignAndSend(execCtx, descriptor)
	if err != nil {
		// The signer reports context expiry as a provider failure; the budget
		// context is the authority on whether this was a timeout.
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			err = errors.Wrap(apperrors.ErrPipelineTimeout, "broadcast budget exhausted")
		}
		return p.fail(id, &in, &route.Quote, apperrors.AtStage(apperrors.StageSign, err))
	}

	result := SwapResult{
		ID:          id,
		Status:      StatusPending,
		TxHash:      signed.Hash.Hex(),
		ExplorerURL: p.reg.ExplorerTxURL(signed.Chain, signed.Hash.Hex()),
		Simulated:   signed.Simulated,
		Quote:       &route.Quote,
		Intent:      &in,
	}
	if signed.Simulated {
		// Nothing on chain to watch in simulate mode.
		result.Status = StatusConfirmed
		return result
	}

	// Status resolution runs on the caller's context, outside the
	// quote-through-broadcast budget. A cancel from here on downgrades to
	// "stop polling": the transaction itself cannot be recalled.
	state, err := p.resolver.Await(ctx, signed.Chain, signed.Hash)
	if err != nil {
		return p.fail(id, &in, &route.Quote, apperrors.AtStage(apperrors.StageStatus, err))
	}
	switch state {
	case status.StateConfirmed:
		result.Status = StatusConfirmed
	case status.StateFailed:
		result.Status = StatusFailed
		result.ErrorStage = string(apperrors.StageStatus)
		result.Error = "transaction reverted or was dropped without confirmation"
	case status.StateTimedOut:
		result.Status = StatusPending
		result.TimedOut = true
	default:
		result.Status = StatusPending
	}
	log.Info("swap finished", zap.String("status", string(result.Status)), zap.String("hash", result.TxHash))
	return result
}

// CheckStatus performs a single stateless re-check of a submitted
// transaction, the caller-initiated follow-up after a timed-out wait.
func (p *Pipeline) CheckStatus(ctx context.Context, chain string, hash common.Hash) (status.TxStatus, error) {
	return p.resolver.Check(ctx, chain, hash)
}

func (p *Pipeline) fail(id string, in *intent.SwapIntent, q *quote.Quote, err error) SwapResult {
	stage, _ := apperrors.StageOf(err)
	kind := apperrors.KindOf(err)
	p.log.Warn("swap failed",
		zap.String("swap_id", id),
		zap.String("stage", string(stage)),
		zap.String("kind", kind),
		zap.Error(err))
	return SwapResult{
		ID:         id,
		Status:     StatusFailed,
		Intent:     in,
		Quote:      q,
		ErrorKind:  kind,
		ErrorStage: string(stage),
		Error:      err.Error(),
	}
}
