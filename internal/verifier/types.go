// types.go - Proof representation, configuration, and result types for the
// verification core.
//
// A Proof carries the three curve-point-like structures of a Groth16-shaped
// proof. Coordinates are held as big integers; the predicate in use decides
// how much curve structure it actually demands of them.

package verifier

import (
	"fmt"
	"math/big"
	"time"
)

// G1Point is a G1 curve point given by two field element coordinates.
type G1Point struct {
	X *big.Int `json:"x"`
	Y *big.Int `json:"y"`
}

// G2Point is a G2 curve point over a quadratic extension, four coordinates.
type G2Point struct {
	X0 *big.Int `json:"x0"`
	X1 *big.Int `json:"x1"`
	Y0 *big.Int `json:"y0"`
	Y1 *big.Int `json:"y1"`
}

// Proof is a fixed-shape proof bundle (A, C in G1, B in G2), matching the
// (Ar, Bs, Krs) layout of a Groth16 proof. Immutable once constructed; passed
// by pointer but never mutated by verification operations.
type Proof struct {
	A G1Point `json:"a"`
	B G2Point `json:"b"`
	C G1Point `json:"c"`
}

// Coordinates returns all eight proof coordinates in fixed order
// (A.X, A.Y, B.X0, B.X1, B.Y0, B.Y1, C.X, C.Y).
func (p *Proof) Coordinates() []*big.Int {
	return []*big.Int{
		p.A.X, p.A.Y,
		p.B.X0, p.B.X1, p.B.Y0, p.B.Y1,
		p.C.X, p.C.Y,
	}
}

// PublicInputs is the ordered sequence of non-secret field elements a proof is
// checked against.
type PublicInputs []*big.Int

// Supported proof format identifiers.
const (
	FormatChecksum = "checksum"
	FormatGroth16  = "groth16"
)

// DefaultMaxInputs bounds the public input sequence length unless overridden.
const DefaultMaxInputs = 100

// Config holds the immutable verifier configuration. It is loaded once at
// initialization and only read afterwards.
type Config struct {
	// MaxInputs bounds len(inputs) for a single verification.
	MaxInputs int `json:"max_inputs"`

	// MaxProofSize bounds the serialized proof size in bytes, enforced at the
	// gateway boundary before decoding.
	MaxProofSize int `json:"max_proof_size"`

	// CostLimit bounds the accounted cost of a single verification.
	// Zero disables the limit.
	CostLimit uint64 `json:"cost_limit"`

	// RequireTimestamp makes the gateway reject requests without a client
	// timestamp. The core itself stamps every result regardless.
	RequireTimestamp bool `json:"require_timestamp"`

	// AllowedProofFormats lists the predicate formats this verifier accepts.
	AllowedProofFormats []string `json:"allowed_proof_formats"`
}

// DefaultConfig returns the default verifier configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxInputs:           DefaultMaxInputs,
		MaxProofSize:        4096,
		CostLimit:           0,
		RequireTimestamp:    false,
		AllowedProofFormats: []string{FormatChecksum, FormatGroth16},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MaxInputs <= 0 {
		return fmt.Errorf("%w: max_inputs must be positive, got %d", ErrNotInitialized, c.MaxInputs)
	}
	if c.MaxProofSize <= 0 {
		return fmt.Errorf("%w: max_proof_size must be positive, got %d", ErrNotInitialized, c.MaxProofSize)
	}
	if len(c.AllowedProofFormats) == 0 {
		return fmt.Errorf("%w: no allowed proof formats", ErrNotInitialized)
	}
	return nil
}

// FormatAllowed reports whether the given predicate format is accepted.
func (c *Config) FormatAllowed(format string) bool {
	for _, f := range c.AllowedProofFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Result is the per-call outcome of a verification. It is an output value,
// not persisted state.
type Result struct {
	Success     bool      `json:"success"`
	CostUsed    uint64    `json:"cost_used"`
	Timestamp   time.Time `json:"timestamp"`
	ProofFormat string    `json:"proof_format"`

	// Err records the per-item error in batch results, where the call-level
	// error return cannot attribute failures to individual items.
	Err error `json:"-"`
}

// String renders a human-readable verification report line.
func (r Result) String() string {
	status := "REJECTED"
	if r.Success {
		status = "ACCEPTED"
	}
	if r.Err != nil {
		return fmt.Sprintf("%s (format=%s, cost=%d): %v", status, r.ProofFormat, r.CostUsed, r.Err)
	}
	return fmt.Sprintf("%s (format=%s, cost=%d)", status, r.ProofFormat, r.CostUsed)
}

// Stats is a read-only snapshot of the engine's verification counters.
// Counters are monotonically non-decreasing; only completed (non-error)
// verifications are counted.
type Stats struct {
	Total       uint64  `json:"total"`
	Successful  uint64  `json:"successful"`
	Failed      uint64  `json:"failed"`
	AverageCost float64 `json:"average_cost"`
}

// String renders a human-readable statistics report.
func (s Stats) String() string {
	return fmt.Sprintf("verifications: total=%d successful=%d failed=%d avg_cost=%.2f",
		s.Total, s.Successful, s.Failed, s.AverageCost)
}
