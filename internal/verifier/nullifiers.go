// nullifiers.go - Consumed-nullifier set, the double-spend guard.
//
// The registry is append-only: once a nullifier is marked consumed it can
// never be reset. This is the anchor invariant of the whole system; there is
// deliberately no deletion path.
//
// NOTE: NullifierRegistry is not thread-safe by itself; the WithdrawalGuard
// owns it exclusively and serializes all access.

package verifier

import (
	"fmt"
	"math/big"
)

// NullifierRegistry tracks which nullifiers have been consumed.
type NullifierRegistry struct {
	consumed map[string]bool
}

// NewNullifierRegistry creates an empty registry.
func NewNullifierRegistry() *NullifierRegistry {
	return &NullifierRegistry{consumed: make(map[string]bool)}
}

// IsConsumed reports whether the nullifier has already been spent.
func (r *NullifierRegistry) IsConsumed(n *big.Int) bool {
	if n == nil {
		return false
	}
	return r.consumed[n.String()]
}

// Spend marks the nullifier consumed. Returns ErrNullifierReused if it was
// already consumed; the transition from unspent to spent happens exactly once
// per nullifier over the registry's lifetime.
func (r *NullifierRegistry) Spend(n *big.Int) error {
	if n == nil {
		return fmt.Errorf("%w: nil nullifier", ErrInvalidInputs)
	}
	key := n.String()
	if r.consumed[key] {
		return fmt.Errorf("%w: %s", ErrNullifierReused, key)
	}
	r.consumed[key] = true
	return nil
}

// Count returns the number of consumed nullifiers.
func (r *NullifierRegistry) Count() int { return len(r.consumed) }
