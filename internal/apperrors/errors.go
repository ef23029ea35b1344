package apperrors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedChain is returned when a chain name does not resolve
	// against the chain registry and no alias matches.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrUnknownToken is returned when a token symbol is not registered for
	// the resolved chain.
	ErrUnknownToken = errors.New("unknown token")

	// ErrInvalidAmount is returned when an amount is non-numeric,
	// non-positive, finer than the token's precision, or above the
	// configured safety ceiling.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNoRouteAvailable is returned when every routing source failed,
	// timed out, or returned zero viable quotes.
	ErrNoRouteAvailable = errors.New("no route available")

	// ErrExcessivePriceImpact is returned when the selected quote's price
	// impact exceeds the configured ceiling.
	ErrExcessivePriceImpact = errors.New("excessive price impact")

	// ErrGasEstimationFailed is returned when no fee data is obtainable for
	// the target chain.
	ErrGasEstimationFailed = errors.New("gas estimation failed")

	// ErrSigningError is returned on credential or transaction format
	// problems. Non-retryable within a pipeline run.
	ErrSigningError = errors.New("signing error")

	// ErrBroadcastRejected is returned when the network rejects the signed
	// transaction after the single nonce/fee refresh retry.
	ErrBroadcastRejected = errors.New("broadcast rejected")

	// ErrPipelineTimeout is returned when the quote-through-broadcast budget
	// is exhausted before signing.
	ErrPipelineTimeout = errors.New("pipeline timeout")

	// ErrNetworkUnavailable is returned when an upstream chain provider is
	// unreachable.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Stage names the pipeline stage an error originated from.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageQuote     Stage = "quote"
	StageBuild     Stage = "build"
	StageSign      Stage = "sign"
	StageStatus    Stage = "status"
)

// kindNames maps taxonomy sentinels to the names surfaced to callers.
var kindNames = []struct {
	err  error
	name string
}{
	{ErrUnsupportedChain, "UnsupportedChain"},
	{ErrUnknownToken, "UnknownToken"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrNoRouteAvailable, "NoRouteAvailable"},
	{ErrExcessivePriceImpact, "ExcessivePriceImpact"},
	{ErrGasEstimationFailed, "GasEstimationFailed"},
	{ErrSigningError, "SigningError"},
	{ErrBroadcastRejected, "BroadcastRejected"},
	{ErrPipelineTimeout, "PipelineTimeout"},
	{ErrNetworkUnavailable, "NetworkUnavailable"},
}

// KindOf returns the caller-facing name of the error kind, or "Unknown" when
// the error carries none of the taxonomy sentinels.
func KindOf(err error) string {
	for _, k := range kindNames {
		if stderrors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unknown"
}

// stageError attaches the originating stage without reinterpreting the kind.
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// AtStage wraps err with stage context. errors.Is still matches the
// underlying kind.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &stageError{stage: stage, err: err}
}

// StageOf reports the stage attached to err, if any.
func StageOf(err error) (Stage, bool) {
	var se *stageError
	if stderrors.As(err, &se) {
		return se.stage, true
	}
	return "", false
}
