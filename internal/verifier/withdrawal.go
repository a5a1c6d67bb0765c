// withdrawal.go - The withdrawal protocol: root membership, proof
// verification, and atomic nullifier consumption.
//
// This is the most safety-critical path in the gateway. The guard holds one
// mutex across the entire check-then-verify-then-spend sequence so that no
// two concurrent withdrawals can both observe the same nullifier as unspent.
// All work under the lock is in-memory computation; hold times are bounded by
// the cost of the verification predicate.

package verifier

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/rs/zerolog"
)

// WithdrawalGuard composes the root history, the nullifier registry, and a
// verification engine into the withdrawal-specific protocol. It owns the
// registry exclusively and holds the only write path into the root history.
type WithdrawalGuard struct {
	mu         sync.Mutex
	engine     *Engine
	roots      *RootHistory
	nullifiers *NullifierRegistry
	audit      zerolog.Logger
}

// NewWithdrawalGuard builds a guard around an engine and a root history.
// The audit logger receives one structured record per completed withdrawal
// verification, as a side channel distinct from the return value.
func NewWithdrawalGuard(engine *Engine, roots *RootHistory, audit zerolog.Logger) (*WithdrawalGuard, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrNotInitialized)
	}
	if roots == nil {
		return nil, fmt.Errorf("%w: nil root history", ErrNotInitialized)
	}
	return &WithdrawalGuard{
		engine:     engine,
		roots:      roots,
		nullifiers: NewNullifierRegistry(),
		audit:      audit.With().Str("component", "withdrawal").Logger(),
	}, nil
}

// VerifyWithdrawal runs the withdrawal protocol, each step short-circuiting
// on failure:
//
//  1. Reject an already-consumed nullifier (cheap check before any
//     verification cost is spent)
//  2. Reject a root outside the accepted history
//  3. Assemble public inputs as [nullifier, root, recipientHash] - the order
//     is part of the external contract
//  4. Run the verification engine
//  5. On success only, mark the nullifier consumed
//
// Steps 1 and 5 are linearizable with respect to each other: the whole
// sequence runs under the guard's mutex, so at most one call per nullifier
// can ever return success.
func (g *WithdrawalGuard) VerifyWithdrawal(ctx context.Context, proof *Proof, nullifier, root, recipientHash *big.Int) (Result, error) {
	if nullifier == nil || root == nil || recipientHash == nil {
		return Result{}, fmt.Errorf("%w: nil withdrawal input", ErrInvalidInputs)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nullifiers.IsConsumed(nullifier) {
		g.audit.Warn().
			Str("nullifier", nullifier.String()).
			Str("root", root.String()).
			Bool("success", false).
			Str("reason", "nullifier_reused").
			Msg("withdrawal rejected")
		return Result{}, fmt.Errorf("%w: %s", ErrNullifierReused, nullifier.String())
	}

	if !g.roots.IsKnown(root) {
		g.audit.Warn().
			Str("nullifier", nullifier.String()).
			Str("root", root.String()).
			Bool("success", false).
			Str("reason", "unknown_root").
			Msg("withdrawal rejected")
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownRoot, root.String())
	}

	inputs := PublicInputs{nullifier, root, recipientHash}
	res, err := g.engine.Verify(ctx, proof, inputs)
	if err != nil {
		return Result{}, err
	}

	if res.Success {
		if err := g.nullifiers.Spend(nullifier); err != nil {
			// Unreachable while the lock covers steps 1-5; kept as a hard
			// failure rather than a silent double spend.
			return Result{}, err
		}
	}

	g.audit.Info().
		Str("nullifier", nullifier.String()).
		Str("root", root.String()).
		Bool("success", res.Success).
		Msg("withdrawal verification completed")

	return res, nil
}

// IsKnownRoot reports whether the root is in the accepted history.
func (g *WithdrawalGuard) IsKnownRoot(root *big.Int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roots.IsKnown(root)
}

// AppendRoot records a newly accepted root. This is the privileged
// administrative path and is not exposed to general callers.
func (g *WithdrawalGuard) AppendRoot(root *big.Int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roots.Append(root)
}

// Roots returns the live accepted roots, oldest first.
func (g *WithdrawalGuard) Roots() []*big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.roots.Roots()
}

// SpentCount returns how many nullifiers have been consumed.
func (g *WithdrawalGuard) SpentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nullifiers.Count()
}
