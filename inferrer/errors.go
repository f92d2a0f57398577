package inferrer

import "errors"

// Sentinel errors, one per invariant the inferrer refuses to guess past
// (spec.md §4.3 "never panics on malformed input; returns explicit errors").
var (
	ErrMissingContract        = errors.New("inferrer: missing contract metadata")
	ErrMissingSourceReference = errors.New("inferrer: missing source reference")
	ErrExpectedEvmStep        = errors.New("inferrer: expected an EVM step")
	ErrMissingFunctionJumpdest = errors.New("inferrer: call trace has no function jumpdest but has already jumped into a function")
	ErrAbiDecode              = errors.New("inferrer: failed to decode ABI data")
	ErrInvariantViolation     = errors.New("inferrer: invariant violation")
)
