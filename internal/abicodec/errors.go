package abicodec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidABI is returned when a stored ABI document cannot be parsed.
	ErrInvalidABI = errors.New("invalid contract ABI")

	// ErrUnknownFunction is returned when a fragment names a function the
	// parsed ABI does not declare.
	ErrUnknownFunction = errors.New("unknown function")
)

// ValidationError reports an argument-count mismatch for one fragment in a
// batch. The whole batch is aborted: partial call lists must never reach the
// signer, because the batch executes atomically.
type ValidationError struct {
	FragmentIndex int
	Fragment      string
	Expected      int
	Actual        int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fragment %d (%s): expected %d arguments, got %d",
		e.FragmentIndex, e.Fragment, e.Expected, e.Actual)
}

// EncodingError reports a value that could not be converted to its declared
// ABI type during packing. The raw coercion layer never fails; this is where
// malformed input finally surfaces, with the parameter and type attached.
type EncodingError struct {
	Param string
	Type  string
	Cause error
}

func (e *EncodingError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("encoding %s value: %v", e.Type, e.Cause)
	}
	return fmt.Sprintf("encoding parameter %q as %s: %v", e.Param, e.Type, e.Cause)
}

func (e *EncodingError) Unwrap() error {
	return e.Cause
}
