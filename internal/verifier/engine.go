// engine.go - Verification engine: structural gate, predicate dispatch, and
// statistics bookkeeping for single and batched calls.

package verifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Verifier is the capability interface shared by the base engine and any
// decorator composed on top of it.
type Verifier interface {
	Verify(ctx context.Context, proof *Proof, inputs PublicInputs) (Result, error)
	Stats() Stats
}

// proofCoords is the fixed coordinate count of the proof shape, used as the
// base term of the cost model.
const proofCoords = 8

// Engine orchestrates structural validation, the verification predicate, and
// statistics tracking. The engine exclusively owns its statistics; they are
// mutated only after a completed (non-error) check, so structural rejections
// leave counters untouched and retries advance state identically.
type Engine struct {
	cfg  *Config
	pred Predicate
	log  zerolog.Logger

	mu       sync.Mutex
	stats    Stats
	costUsed uint64
}

// NewEngine builds a verification engine from an immutable configuration and
// a predicate.
func NewEngine(cfg *Config, pred Predicate, log zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrNotInitialized)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pred == nil {
		return nil, fmt.Errorf("%w: nil predicate", ErrNotInitialized)
	}
	return &Engine{
		cfg:  cfg,
		pred: pred,
		log:  log.With().Str("component", "engine").Logger(),
	}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() *Config { return e.cfg }

// Verify runs one verification to completion: structural checks fail fast
// with a typed error and no statistics mutation; a completed predicate run
// yields the acceptance boolean and advances the counters.
func (e *Engine) Verify(ctx context.Context, proof *Proof, inputs PublicInputs) (Result, error) {
	if err := e.checkDeadline(ctx); err != nil {
		return Result{}, err
	}
	if !e.cfg.FormatAllowed(e.pred.Format()) {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, e.pred.Format())
	}
	if err := ValidateProof(proof); err != nil {
		return Result{}, err
	}
	if err := ValidateInputs(inputs, e.cfg); err != nil {
		return Result{}, err
	}

	cost := uint64(proofCoords + len(inputs))
	if e.cfg.CostLimit > 0 && cost > e.cfg.CostLimit {
		return Result{}, fmt.Errorf("%w: cost %d exceeds limit %d", ErrCostLimitExceeded, cost, e.cfg.CostLimit)
	}

	ok, err := e.pred.Check(proof, inputs)
	if err != nil {
		return Result{}, fmt.Errorf("predicate check: %w", err)
	}

	e.record(ok, cost)
	e.log.Debug().Bool("success", ok).Uint64("cost", cost).Str("format", e.pred.Format()).Msg("verification completed")

	return Result{
		Success:     ok,
		CostUsed:    cost,
		Timestamp:   time.Now(),
		ProofFormat: e.pred.Format(),
	}, nil
}

// VerifyBatch verifies each (proof, inputs) pair independently. A length
// mismatch between the two arrays is a fatal argument error rejected before
// any item runs; a failing item never aborts the remaining items, so the
// result slice always matches the input length. Context expiry mid-batch
// surfaces as ErrDeadlineExceeded rather than a silent partial result.
func (e *Engine) VerifyBatch(ctx context.Context, proofs []*Proof, inputs []PublicInputs) ([]Result, error) {
	if len(proofs) != len(inputs) {
		return nil, fmt.Errorf("%w: %d proofs, %d input sets", ErrLengthMismatch, len(proofs), len(inputs))
	}
	results := make([]Result, len(proofs))
	for i := range proofs {
		if err := e.checkDeadline(ctx); err != nil {
			return nil, err
		}
		res, err := e.Verify(ctx, proofs[i], inputs[i])
		if err != nil {
			res = Result{ProofFormat: e.pred.Format(), Timestamp: time.Now(), Err: err}
		}
		results[i] = res
	}
	return results, nil
}

// Stats returns a snapshot of the verification counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// record advances the counters after a completed check. Holding the stats
// mutex here is what makes the extension layer's threshold read safe.
func (e *Engine) record(success bool, cost uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Total++
	if success {
		e.stats.Successful++
	} else {
		e.stats.Failed++
	}
	e.costUsed += cost
	e.stats.AverageCost = float64(e.costUsed) / float64(e.stats.Total)
}

// checkDeadline maps context expiry onto the core's error taxonomy.
func (e *Engine) checkDeadline(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrDeadlineExceeded, ctx.Err())
	default:
		return nil
	}
}
