package quote

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"intentswap/internal/apperrors"
	"intentswap/internal/intent"
)

// AggregatorConfig carries the scoring and timeout knobs.
type AggregatorConfig struct {
	// PerSourceTimeout bounds each source request independently.
	PerSourceTimeout time.Duration
	// TotalTimeout bounds the whole fan-out call.
	TotalTimeout time.Duration
	// MaxPriceImpact is the ceiling percentage for the selected quote.
	MaxPriceImpact decimal.Decimal
	// SameChainBonus multiplies the score of same-chain sources when the
	// intent itself is same-chain. Slightly above 1 prefers them at
	// near-ties without hard-filtering cross-chain routes.
	SameChainBonus decimal.Decimal
	// Slippage is the tolerance percentage forwarded to sources.
	Slippage decimal.Decimal
}

// Aggregator fans an intent out to the configured sources, scores the
// returned quotes and selects the best route. Source order is the
// configuration order and serves as the final tie-break.
type Aggregator struct {
	sources []Source
	cfg     AggregatorConfig
	log     *zap.Logger
}

// NewAggregator creates an Aggregator over the given sources.
func NewAggregator(sources []Source, cfg AggregatorConfig, log *zap.Logger) *Aggregator {
	if cfg.SameChainBonus.Sign() <= 0 {
		cfg.SameChainBonus = decimal.NewFromInt(1)
	}
	return &Aggregator{sources: sources, cfg: cfg, log: log}
}

type sourceResult struct {
	index int
	quote Quote
	err   error
}

// GetQuotes requests one quote per eligible source concurrently. A source
// that errors or times out is dropped; the call fails with NoRouteAvailable
// only when nothing viable remains. Returned quotes keep source
// configuration order.
func (a *Aggregator) GetQuotes(ctx context.Context, in intent.SwapIntent) ([]Quote, error) {
	eligible := make([]Source, 0, len(a.sources))
	for _, s := range a.sources {
		// Cross-chain intents need cross-chain-capable sources. Same-chain
		// intents may use either kind.
		if in.CrossChain() && !s.SupportsCrossChain() {
			continue
		}
		eligible = append(eligible, s)
	}
	if len(eligible) == 0 {
		return nil, errors.Wrapf(apperrors.ErrNoRouteAvailable,
			"no source can route %s -> %s", in.FromChain, in.ToChain)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.TotalTimeout)
	defer cancel()

	ch := make(chan sourceResult, len(eligible))
	for i, s := range eligible {
		go func(index int, src Source) {
			srcCtx, srcCancel := context.WithTimeout(ctx, a.cfg.PerSourceTimeout)
			defer srcCancel()

			q, err := src.Quote(srcCtx, in, a.cfg.Slippage)
			if err != nil {
				ch <- sourceResult{index: index, err: errors.Wrapf(err, "source %s", src.ID())}
				return
			}
			q.SourceID = src.ID()
			ch <- sourceResult{index: index, quote: q}
		}(i, s)
	}

	// Wait for all sources to settle or the total timeout, whichever comes
	// first, then proceed with whatever quotes succeeded.
	ordered := make([]*Quote, len(eligible))
	var combinedErr error
collect:
	for range eligible {
		select {
		case res := <-ch:
			if res.err != nil {
				a.log.Warn("quote source dropped",
					zap.String("source", eligible[res.index].ID()),
					zap.Error(res.err))
				combinedErr = multierr.Append(combinedErr, res.err)
				continue
			}
			q := res.quote
			ordered[res.index] = &q
		case <-ctx.Done():
			combinedErr = multierr.Append(combinedErr, ctx.Err())
			break collect
		}
	}

	quotes := make([]Quote, 0, len(eligible))
	for _, q := range ordered {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	if len(quotes) == 0 {
		if combinedErr == nil {
			combinedErr = errors.New("no source returned a quote")
		}
		return nil, errors.Wrap(apperrors.ErrNoRouteAvailable, combinedErr.Error())
	}
	return quotes, nil
}

// SelectBest scores the quotes and returns the winning route. Selection is
// deterministic: identical quote sets always produce the same route.
func (a *Aggregator) SelectBest(quotes []Quote, in intent.SwapIntent) (SelectedRoute, error) {
	if len(quotes) == 0 {
		return SelectedRoute{}, errors.Wrap(apperrors.ErrNoRouteAvailable, "empty quote set")
	}

	best := -1
	var bestScore decimal.Decimal
	tieBreak := "score"
	for i, q := range quotes {
		score := a.score(q, in)
		if best == -1 || score.GreaterThan(bestScore) {
			best, bestScore, tieBreak = i, score, "score"
			continue
		}
		if !score.Equal(bestScore) {
			continue
		}
		// Exact score tie: prefer the faster route, then the source listed
		// first in configuration (quotes keep that order).
		if q.EstimatedDuration < quotes[best].EstimatedDuration {
			best, tieBreak = i, "duration"
		} else if q.EstimatedDuration == quotes[best].EstimatedDuration {
			tieBreak = "source-order"
		}
	}

	winner := quotes[best]
	if a.cfg.MaxPriceImpact.Sign() > 0 && winner.PriceImpact.GreaterThan(a.cfg.MaxPriceImpact) {
		return SelectedRoute{}, errors.Wrapf(apperrors.ErrExcessivePriceImpact,
			"price impact %s%% exceeds ceiling %s%%", winner.PriceImpact, a.cfg.MaxPriceImpact)
	}

	a.log.Info("route selected",
		zap.String("source", winner.SourceID),
		zap.String("score", bestScore.String()),
		zap.String("tie_break", tieBreak))

	return SelectedRoute{
		Quote:    winner,
		Intent:   in,
		Score:    bestScore,
		TieBreak: tieBreak,
	}, nil
}

// score is estimated output minus a gas-cost-in-output-token estimate. The
// conversion uses the quote's own implied rate when the source token is the
// chain's native token; otherwise no on-hand price exists and the gas term
// is left out rather than guessed.
func (a *Aggregator) score(q Quote, in intent.SwapIntent) decimal.Decimal {
	score := q.EstimatedOutput
	if in.FromAsset.Native() && in.Amount.Sign() > 0 {
		rate := q.EstimatedOutput.Div(in.Amount)
		score = score.Sub(q.GasEstimate.Mul(rate))
	}
	if !in.CrossChain() && !q.CrossChain {
		score = score.Mul(a.cfg.SameChainBonus)
	}
	return score
}
