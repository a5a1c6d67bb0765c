// errors.go - Error taxonomy for the verification core.
//
// Callers need to distinguish "proof genuinely invalid" from "attempted
// replay" from "malformed request", so every failure mode has its own
// sentinel. Match with errors.Is; wrapped errors carry call-site detail.

package verifier

import "errors"

var (
	// ErrInvalidProof signals a structurally malformed proof (a zero or
	// missing coordinate). Detected before any state mutation.
	ErrInvalidProof = errors.New("invalid proof structure")

	// ErrInvalidInputs signals malformed public inputs: a zero element or a
	// sequence longer than the configured maximum.
	ErrInvalidInputs = errors.New("invalid public inputs")

	// ErrNullifierReused signals a double-spend attempt: the nullifier was
	// already consumed. Terminal for that nullifier; no retry can succeed.
	ErrNullifierReused = errors.New("nullifier already consumed")

	// ErrUnknownRoot signals a withdrawal referencing a root that was never
	// accepted (or has been evicted from the bounded history).
	ErrUnknownRoot = errors.New("unknown merkle root")

	// ErrLengthMismatch signals a batch call whose argument arrays differ in
	// length. The batch is rejected before any item runs.
	ErrLengthMismatch = errors.New("batch argument length mismatch")

	// ErrBaseVerificationFailed signals that the extension layer's underlying
	// verification did not accept the proof.
	ErrBaseVerificationFailed = errors.New("base verification failed")

	// ErrThresholdNotMet signals that the extension layer was invoked before
	// the base verifier accumulated enough successful verifications.
	ErrThresholdNotMet = errors.New("verification threshold not met")

	// ErrNotInitialized signals a verifier constructed without its required
	// configuration, predicate, or key material.
	ErrNotInitialized = errors.New("verifier not initialized")

	// ErrUnsupportedFormat signals a predicate format outside the configured
	// allow-list.
	ErrUnsupportedFormat = errors.New("proof format not allowed")

	// ErrCostLimitExceeded signals a verification whose accounted cost would
	// exceed the configured limit. Rejected before the predicate runs.
	ErrCostLimitExceeded = errors.New("verification cost limit exceeded")

	// ErrDeadlineExceeded signals that the call's context expired before the
	// verification completed. Distinct from a silent partial result.
	ErrDeadlineExceeded = errors.New("verification deadline exceeded")
)
