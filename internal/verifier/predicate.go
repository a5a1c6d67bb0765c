// predicate.go - Pluggable verification predicates.
//
// A Predicate decides pass/fail for a structurally valid (proof, inputs)
// pair. Predicates must be pure functions of their arguments so verification
// is deterministic and replayable for auditing.
//
// Two implementations ship here: the reference checksum predicate, and a real
// Groth16 pairing check over BN254 backed by gnark.

package verifier

import (
	"fmt"
	"math/big"
	"os"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// Predicate computes the acceptance decision for a structurally valid proof
// and its public inputs. Check is invoked only after ValidateProof and
// ValidateInputs have both passed.
type Predicate interface {
	// Check returns the acceptance boolean. A returned error means the check
	// could not be completed (malformed point, missing key material) and is
	// distinct from a completed rejection.
	Check(proof *Proof, inputs PublicInputs) (bool, error)

	// Format identifies the proof format this predicate verifies.
	Format() string
}

// ChecksumModulus is the fixed constant K of the reference predicate. The
// source material carried two divergent values (1234567 and 12345); this
// implementation standardizes on 1234567 and regression tests pin it.
const ChecksumModulus = 1234567

// ChecksumPredicate is the educational stand-in for a pairing check: it sums
// all proof coordinates and input elements and accepts when the accumulator
// is not a multiple of ChecksumModulus.
type ChecksumPredicate struct{}

// Format implements Predicate.
func (ChecksumPredicate) Format() string { return FormatChecksum }

// Check implements Predicate.
func (ChecksumPredicate) Check(proof *Proof, inputs PublicInputs) (bool, error) {
	if proof == nil {
		return false, fmt.Errorf("%w: nil proof", ErrInvalidProof)
	}
	acc := new(big.Int)
	for _, c := range proof.Coordinates() {
		if c == nil {
			return false, fmt.Errorf("%w: missing coordinate", ErrInvalidProof)
		}
		acc.Add(acc, c)
	}
	for _, in := range inputs {
		if in == nil {
			return false, fmt.Errorf("%w: nil input", ErrInvalidInputs)
		}
		acc.Add(acc, in)
	}
	return acc.Mod(acc, big.NewInt(ChecksumModulus)).Sign() != 0, nil
}

// Groth16Predicate verifies proofs with a real bilinear-pairing equality
// check over BN254. The Proof's (A, B, C) map onto the Groth16 (Ar, Bs, Krs)
// points and the public inputs become the verification witness.
type Groth16Predicate struct {
	vk *groth16bn254.VerifyingKey
}

// NewGroth16Predicate builds a pairing-backed predicate from a verifying key.
func NewGroth16Predicate(vk *groth16bn254.VerifyingKey) (*Groth16Predicate, error) {
	if vk == nil {
		return nil, fmt.Errorf("%w: nil verifying key", ErrNotInitialized)
	}
	return &Groth16Predicate{vk: vk}, nil
}

// LoadGroth16VerifyingKey reads a BN254 Groth16 verifying key from disk.
func LoadGroth16VerifyingKey(path string) (*groth16bn254.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verifying key: %w", err)
	}
	defer f.Close()
	var vk groth16bn254.VerifyingKey
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return &vk, nil
}

// Format implements Predicate.
func (p *Groth16Predicate) Format() string { return FormatGroth16 }

// Check implements Predicate. A proof whose coordinates do not form valid
// curve points is a failed check, not an internal error: malformed points are
// exactly what a forged proof looks like.
func (p *Groth16Predicate) Check(proof *Proof, inputs PublicInputs) (bool, error) {
	if p.vk == nil {
		return false, fmt.Errorf("%w: nil verifying key", ErrNotInitialized)
	}
	var gp groth16bn254.Proof
	if err := setG1(&gp.Ar, proof.A); err != nil {
		return false, nil
	}
	if err := setG2(&gp.Bs, proof.B); err != nil {
		return false, nil
	}
	if err := setG1(&gp.Krs, proof.C); err != nil {
		return false, nil
	}

	witness := make(fr.Vector, len(inputs))
	for i, in := range inputs {
		witness[i].SetBigInt(in)
	}

	if err := groth16bn254.Verify(&gp, p.vk, witness); err != nil {
		return false, nil
	}
	return true, nil
}

// setG1 loads a G1 point from raw coordinates, rejecting anything off the
// curve or outside the subgroup.
func setG1(dst *bn254.G1Affine, src G1Point) error {
	dst.X.SetBigInt(src.X)
	dst.Y.SetBigInt(src.Y)
	if !dst.IsOnCurve() || !dst.IsInSubGroup() {
		return fmt.Errorf("%w: not a valid G1 point", ErrInvalidProof)
	}
	return nil
}

// setG2 loads a G2 point from raw coordinates, same validity requirements.
func setG2(dst *bn254.G2Affine, src G2Point) error {
	dst.X.A0.SetBigInt(src.X0)
	dst.X.A1.SetBigInt(src.X1)
	dst.Y.A0.SetBigInt(src.Y0)
	dst.Y.A1.SetBigInt(src.Y1)
	if !dst.IsOnCurve() || !dst.IsInSubGroup() {
		return fmt.Errorf("%w: not a valid G2 point", ErrInvalidProof)
	}
	return nil
}
