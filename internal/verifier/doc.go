// Package verifier implements the stateful proof-verification core of the
// poolgate gateway.
//
// Overview:
//   - Validates structural well-formedness of proofs and public inputs before
//     any predicate runs
//   - Runs a pluggable verification predicate (reference checksum predicate or
//     a real Groth16 pairing check over BN254 via gnark)
//   - Tracks verification statistics (total/successful/failed, average cost)
//   - Enforces the withdrawal anti-replay protocol: bounded root history
//     membership plus atomic nullifier check-and-spend
//
// Concurrency Model:
//   - The Engine guards its statistics with an internal mutex
//   - RootHistory and NullifierRegistry are not thread-safe by themselves; the
//     WithdrawalGuard owns them exclusively and holds one mutex across the
//     whole check-then-verify-then-spend sequence, so no two concurrent
//     withdrawals can both observe the same nullifier as unspent
//
// Usage:
//   - Build an Engine with NewEngine, wrap it in a WithdrawalGuard for
//     withdrawal-style operations, and optionally decorate it with an
//     ExtendedVerifier for application-specific rules
//   - See internal/gateway for the HTTP surface over this package
package verifier
