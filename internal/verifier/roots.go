// roots.go - Bounded registry of accepted state roots.
//
// Roots are appended by the privileged administrative path and only read by
// the WithdrawalGuard. The history is a fixed-capacity ring: once full, each
// append evicts the oldest root, so the membership window is explicit and the
// structure cannot grow without bound.
//
// NOTE: RootHistory is not thread-safe by itself; the WithdrawalGuard owns
// the lock that covers it.

package verifier

import (
	"fmt"
	"math/big"
)

// DefaultRootCapacity is the root history size unless configured otherwise.
const DefaultRootCapacity = 128

// RootHistory is a fixed-capacity, oldest-first-evicting registry of accepted
// Merkle roots.
type RootHistory struct {
	slots    []string
	next     int
	appended uint64
}

// NewRootHistory creates an empty history with the given capacity.
func NewRootHistory(capacity int) (*RootHistory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: root history capacity must be positive, got %d", ErrNotInitialized, capacity)
	}
	return &RootHistory{slots: make([]string, 0, capacity)}, nil
}

// Append records a newly accepted root. When the history is at capacity the
// oldest root is overwritten; withdrawals referencing it will fail with
// ErrUnknownRoot from then on.
func (h *RootHistory) Append(root *big.Int) error {
	if root == nil {
		return fmt.Errorf("%w: nil root", ErrInvalidInputs)
	}
	key := root.String()
	if len(h.slots) < cap(h.slots) {
		h.slots = append(h.slots, key)
	} else {
		h.slots[h.next] = key
	}
	h.next = (h.next + 1) % cap(h.slots)
	h.appended++
	return nil
}

// IsKnown reports whether the root is in the live membership window. The scan
// is linear by design; history length is bounded by configuration.
func (h *RootHistory) IsKnown(root *big.Int) bool {
	if root == nil {
		return false
	}
	key := root.String()
	for _, s := range h.slots {
		if s == key {
			return true
		}
	}
	return false
}

// Len returns the number of live roots.
func (h *RootHistory) Len() int { return len(h.slots) }

// TotalAppended returns the monotone append cursor: the count of all roots
// ever accepted, including evicted ones.
func (h *RootHistory) TotalAppended() uint64 { return h.appended }

// Roots returns the live roots, oldest first.
func (h *RootHistory) Roots() []*big.Int {
	out := make([]*big.Int, 0, len(h.slots))
	start := 0
	if len(h.slots) == cap(h.slots) {
		start = h.next
	}
	for i := 0; i < len(h.slots); i++ {
		s := h.slots[(start+i)%len(h.slots)]
		r, _ := new(big.Int).SetString(s, 10)
		out = append(out, r)
	}
	return out
}
