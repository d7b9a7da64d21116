package rangebuilder

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant marks a broken guarantee of the earlier pipeline stages,
	// such as a cycle in range nesting or a start marker found after its
	// content. Processing of the document should stop.
	ErrInvariant = errors.New("range invariant violated")

	// ErrUnbalancedRange marks a range whose markers could not be paired.
	ErrUnbalancedRange = errors.New("unbalanced range")
)

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...)
}

func unbalancedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnbalancedRange}, args...)...)
}
