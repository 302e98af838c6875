package verkle

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument wraps malformed-input errors: these indicate a caller
// bug (wrong-length key/value, duplicate query keys) rather than anything
// about the state of the trie or a proof.
var ErrInvalidArgument = errors.New("verkle: invalid argument")

// ErrReason is a terse, machine-checkable rejection reason returned by
// Verify for a proof that fails to check out. A rejection is a normal
// outcome, not a malformed-input error, so it is returned as a value
// rather than constructed via fmt.Errorf wrapping.
type ErrReason string

const (
	// ReasonBadExtensionPresent is returned when a proof's
	// extension_present byte carries a value other than NoExtension,
	// Present or OtherStem.
	ReasonBadExtensionPresent ErrReason = "BAD_EXTENSION_PRESENT"

	// ReasonValuePresentWithoutExtension is returned when the verifier is
	// asked to check a non-nil value for a key whose stem the proof
	// claims has no extension node.
	ReasonValuePresentWithoutExtension ErrReason = "VALUE_PRESENT_WITHOUT_EXTENSION"

	// ReasonOtherStemUnresolved is returned when extension_present claims
	// OtherStem but no entry in other_stems (or among the stems that do
	// carry an extension in this same proof) shares the required prefix.
	ReasonOtherStemUnresolved ErrReason = "OTHERSTEM_UNRESOLVED"

	// ReasonCommitmentCountMismatch is returned when the number of
	// commitments supplied in the proof does not match the number of
	// distinct node indices the verifier derives from the queried keys.
	ReasonCommitmentCountMismatch ErrReason = "COMMITMENT_COUNT_MISMATCH"

	// ReasonIPACheckFailed is returned when every structural check passes
	// but the underlying IPA multiproof fails to verify.
	ReasonIPACheckFailed ErrReason = "IPA_CHECK_FAILED"

	// ReasonMalformedProof is returned for any structural inconsistency
	// not covered by a more specific reason (bad point encoding, wrong
	// ipa_proof length, unsorted other_stems, ...).
	ReasonMalformedProof ErrReason = "MALFORMED_PROOF"
)

// Error satisfies the error interface so ErrReason can be returned directly
// from Verify.
func (r ErrReason) Error() string { return string(r) }

// rejection pairs a terse ErrReason with human-readable detail, so callers
// can match on errors.Is(err, ReasonXxx) while logs still get context.
type rejection struct {
	reason ErrReason
	detail string
}

func (r *rejection) Error() string { return r.detail }

func (r *rejection) Unwrap() error { return r.reason }

func reject(reason ErrReason, format string, args ...any) error {
	return &rejection{reason: reason, detail: fmt.Sprintf("%s: %s", reason, fmt.Sprintf(format, args...))}
}
