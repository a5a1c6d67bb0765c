// Package proofgen produces deterministic proofs, public inputs, and derived
// protocol values for tests and demo fixtures.
//
// Generated proofs are structurally valid and accepted (or rejected) by the
// checksum predicate by construction. Nullifiers and recipient hashes are
// derived with MiMC over BN254, the same way the pool derives serial numbers
// from note secrets.
package proofgen

import (
	"crypto/rand"
	"math/big"

	fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"poolgate/internal/verifier"
)

// Proof builds a structurally valid proof from a seed. Distinct seeds give
// distinct coordinate sets; all coordinates are non-zero.
func Proof(seed int64) *verifier.Proof {
	base := seed*1000 + 1
	c := func(i int64) *big.Int { return big.NewInt(base + i*1001) }
	return &verifier.Proof{
		A: verifier.G1Point{X: c(0), Y: c(1)},
		B: verifier.G2Point{X0: c(2), X1: c(3), Y0: c(4), Y1: c(5)},
		C: verifier.G1Point{X: c(6), Y: c(7)},
	}
}

// Inputs builds n non-zero public inputs from a seed.
func Inputs(seed int64, n int) verifier.PublicInputs {
	inputs := make(verifier.PublicInputs, n)
	for i := 0; i < n; i++ {
		inputs[i] = big.NewInt(seed*10000 + int64(i) + 1)
	}
	return inputs
}

// AcceptedProof builds a proof the checksum predicate accepts for the given
// inputs: if the combined accumulator lands on a multiple of the modulus, the
// last coordinate is nudged off it.
func AcceptedProof(seed int64, inputs verifier.PublicInputs) *verifier.Proof {
	p := Proof(seed)
	adjustChecksum(p, inputs, true)
	return p
}

// RejectedProof builds a structurally valid proof the checksum predicate
// rejects for the given inputs.
func RejectedProof(seed int64, inputs verifier.PublicInputs) *verifier.Proof {
	p := Proof(seed)
	adjustChecksum(p, inputs, false)
	return p
}

// InvalidProof builds a proof with a zero coordinate, failing structural
// validation.
func InvalidProof() *verifier.Proof {
	p := Proof(1)
	p.C.Y = big.NewInt(0)
	return p
}

// adjustChecksum retargets the proof's last coordinate so the checksum
// accumulator is (or is not) a multiple of the predicate modulus.
func adjustChecksum(p *verifier.Proof, inputs verifier.PublicInputs, accept bool) {
	acc := new(big.Int)
	for _, c := range p.Coordinates() {
		acc.Add(acc, c)
	}
	for _, in := range inputs {
		acc.Add(acc, in)
	}
	mod := new(big.Int).Mod(acc, big.NewInt(verifier.ChecksumModulus)).Int64()
	if accept {
		if mod == 0 {
			p.C.Y = new(big.Int).Add(p.C.Y, big.NewInt(1))
		}
		return
	}
	// Shift the last coordinate so the accumulator becomes a multiple of the
	// modulus, keeping the coordinate non-zero.
	if mod != 0 {
		p.C.Y = new(big.Int).Add(p.C.Y, big.NewInt(verifier.ChecksumModulus-mod))
	}
}

// Nullifier derives the one-time-use spend token from a note secret and its
// commitment randomness: MiMC(sk || rho).
func Nullifier(sk, rho *big.Int) *big.Int {
	return mimcHash(sk, rho)
}

// RecipientHash commits to a withdrawal recipient.
func RecipientHash(recipient *big.Int) *big.Int {
	return mimcHash(recipient)
}

// RandomFieldElement draws a uniform non-zero BN254 scalar field element
// using crypto/rand.
func RandomFieldElement() *big.Int {
	var e fr.Element
	for {
		if _, err := e.SetRandom(); err != nil {
			continue
		}
		if !e.IsZero() {
			return e.BigInt(new(big.Int))
		}
	}
}

// RandomBytes generates n random bytes using crypto/rand.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

// mimcHash absorbs the values as canonical field elements and returns the
// digest as a big integer.
func mimcHash(values ...*big.Int) *big.Int {
	h := mimc.NewMiMC()
	for _, v := range values {
		var e fr.Element
		e.SetBigInt(v)
		b := e.Bytes()
		h.Write(b[:])
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}
