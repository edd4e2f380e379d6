package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

// VerificationState is the account's email verification status.
type VerificationState string

const (
	// StateUnverified is the state every account starts in.
	StateUnverified VerificationState = "unverified"
	// StateVerified is terminal; no transition leaves it.
	StateVerified VerificationState = "verified"
)

const textCodeInvalidTransition = "INVALID_VERIFICATION_TRANSITION"

// ErrInvalidTransition is returned when a requested state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid verification state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

var verificationTransitions = map[VerificationState]map[VerificationState]bool{
	StateUnverified: {
		StateVerified: true,
	},
	StateVerified: {},
}

// CanTransition reports whether moving from one verification state to another
// is legal.
func CanTransition(from, to VerificationState) bool {
	allowed, ok := verificationTransitions[from]
	if !ok {
		return false
	}
	return allowed[to]
}

// EnsureTransition validates a verification state change. Verified is
// terminal, so the only transition that passes is unverified to verified; a
// repeat confirmation surfaces as already verified rather than a generic
// transition error.
func EnsureTransition(from, to VerificationState) error {
	if from == StateVerified && to == StateVerified {
		return ErrAlreadyVerified
	}

	if !CanTransition(from, to) {
		return goerrors.New("invalid verification state transition", goerrors.CategoryValidation).
			WithTextCode(textCodeInvalidTransition).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"from": string(from),
				"to":   string(to),
			})
	}

	return nil
}
