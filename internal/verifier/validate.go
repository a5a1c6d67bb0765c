// validate.go - Structural well-formedness checks for proofs and public
// inputs.
//
// Both checks are pure functions: no side effects, no I/O, deterministic for
// the same arguments. They run before any predicate so malformed requests
// fail cheaply and never touch verifier state.

package verifier

import "fmt"

// ValidateProof checks that every coordinate of the proof is present and
// non-zero. A zero coordinate stands in for "not a valid curve point" until a
// predicate performs the true curve-membership test.
func ValidateProof(p *Proof) error {
	if p == nil {
		return fmt.Errorf("%w: nil proof", ErrInvalidProof)
	}
	names := [8]string{"a.x", "a.y", "b.x0", "b.x1", "b.y0", "b.y1", "c.x", "c.y"}
	for i, c := range p.Coordinates() {
		if c == nil {
			return fmt.Errorf("%w: missing coordinate %s", ErrInvalidProof, names[i])
		}
		if c.Sign() == 0 {
			return fmt.Errorf("%w: zero coordinate %s", ErrInvalidProof, names[i])
		}
	}
	return nil
}

// ValidateInputs checks that the public input sequence is within the
// configured length bound and that no element is zero. A zero element signals
// an unset signal and is rejected.
func ValidateInputs(inputs PublicInputs, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrNotInitialized)
	}
	if len(inputs) > cfg.MaxInputs {
		return fmt.Errorf("%w: %d inputs exceeds maximum %d", ErrInvalidInputs, len(inputs), cfg.MaxInputs)
	}
	for i, in := range inputs {
		if in == nil {
			return fmt.Errorf("%w: input %d is nil", ErrInvalidInputs, i)
		}
		if in.Sign() == 0 {
			return fmt.Errorf("%w: input %d is zero", ErrInvalidInputs, i)
		}
	}
	return nil
}
