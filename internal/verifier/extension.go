// extension.go - Application-specific verification layered on top of a base
// verifier.
//
// The extension is a decorator over the Verifier capability interface: it
// composes explicitly with whatever base it is given rather than subclassing
// an engine, so extensions can stack.

package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultActivationThreshold is the successful-verification count a base
// verifier must reach before extended flows are permitted.
const DefaultActivationThreshold = 1000

// ExtensionConfig parameterizes the application predicate and the trust
// threshold of an ExtendedVerifier.
type ExtensionConfig struct {
	// AppKey is the modulus of the application predicate: application data is
	// accepted when appData mod AppKey == 0. Stand-in for real business rules
	// such as token allow-lists or compliance checks.
	AppKey uint64 `json:"app_key"`

	// ActivationThreshold is the minimum successful base verification count
	// required before VerifyWithExtension is permitted.
	ActivationThreshold uint64 `json:"activation_threshold"`
}

// ExtendedVerifier decorates a base Verifier with an application predicate
// and a verification-count threshold gate.
type ExtendedVerifier struct {
	base Verifier
	cfg  ExtensionConfig
	log  zerolog.Logger
}

// NewExtendedVerifier wraps a base verifier. A zero AppKey has no meaningful
// predicate and is rejected; a zero threshold falls back to the default.
func NewExtendedVerifier(base Verifier, cfg ExtensionConfig, log zerolog.Logger) (*ExtendedVerifier, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: nil base verifier", ErrNotInitialized)
	}
	if cfg.AppKey == 0 {
		return nil, fmt.Errorf("%w: zero application key", ErrNotInitialized)
	}
	if cfg.ActivationThreshold == 0 {
		cfg.ActivationThreshold = DefaultActivationThreshold
	}
	return &ExtendedVerifier{
		base: base,
		cfg:  cfg,
		log:  log.With().Str("component", "extension").Logger(),
	}, nil
}

// Verify delegates to the base verifier, satisfying the Verifier interface so
// extensions compose.
func (v *ExtendedVerifier) Verify(ctx context.Context, proof *Proof, inputs PublicInputs) (Result, error) {
	return v.base.Verify(ctx, proof, inputs)
}

// Stats delegates to the base verifier.
func (v *ExtendedVerifier) Stats() Stats { return v.base.Stats() }

// VerifyWithExtension runs the extended protocol: the threshold gate, the
// base verification, then the application predicate over appData. The
// combined result is base AND application check.
//
// The threshold is read from the base verifier's stats snapshot, which the
// engine serializes with its counter mutation, so the gate never acts on a
// torn read. The gate runs before the base verification: an untrusted
// verifier should not spend predicate cost on extended flows at all.
func (v *ExtendedVerifier) VerifyWithExtension(ctx context.Context, proof *Proof, inputs PublicInputs, appData uint64) (Result, error) {
	if successful := v.base.Stats().Successful; successful < v.cfg.ActivationThreshold {
		return Result{}, fmt.Errorf("%w: %d successful verifications, need %d",
			ErrThresholdNotMet, successful, v.cfg.ActivationThreshold)
	}

	res, err := v.base.Verify(ctx, proof, inputs)
	if err != nil {
		return Result{}, err
	}
	if !res.Success {
		return res, fmt.Errorf("%w", ErrBaseVerificationFailed)
	}

	appOK := appData%v.cfg.AppKey == 0
	res.Success = appOK
	v.log.Debug().Uint64("app_data", appData).Bool("success", appOK).Msg("extension check completed")
	return res, nil
}

// VerifyBatchWithExtension mirrors the engine's batch contract: all three
// arrays must have the same length or the batch is rejected before any item
// runs, and items are evaluated independently with per-item errors recorded
// in the result slots.
func (v *ExtendedVerifier) VerifyBatchWithExtension(ctx context.Context, proofs []*Proof, inputs []PublicInputs, appData []uint64) ([]Result, error) {
	if len(proofs) != len(inputs) || len(proofs) != len(appData) {
		return nil, fmt.Errorf("%w: %d proofs, %d input sets, %d app data values",
			ErrLengthMismatch, len(proofs), len(inputs), len(appData))
	}
	results := make([]Result, len(proofs))
	for i := range proofs {
		res, err := v.VerifyWithExtension(ctx, proofs[i], inputs[i], appData[i])
		if err != nil {
			res.Err = err
			res.Success = false
			if res.Timestamp.IsZero() {
				res.Timestamp = time.Now()
			}
		}
		results[i] = res
	}
	return results, nil
}
