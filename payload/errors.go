package payload

import (
	"fmt"
	"strings"
)

// EncodingError occurs when a value cannot be represented in its
// declared encoded width. Values are treated as unsigned
// two's-complement of the declared width; negative values are
// permitted as long as they fit that width after wraparound.
type EncodingError struct {
	// Value is the offending value, as evaluated.
	Value uint64

	// Width is the declared encoded width in bytes.
	Width int
}

func (o *EncodingError) Error() string {
	return fmt.Sprintf("value 0x%x does not fit in %d bytes", o.Value, o.Width)
}

// UnresolvedSymbolError occurs when a reference names a symbol that is
// present in neither the buffer's symbol table nor the context.
type UnresolvedSymbolError struct {
	// Symbol is the name that failed to resolve.
	Symbol string
}

func (o *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("symbol '%s' was not found in the buffer's symbol table or the context",
		o.Symbol)
}

// CyclicReferenceError occurs when evaluating a reference re-enters
// its own evaluation (e.g., a placeholder bound to an expression
// containing itself).
type CyclicReferenceError struct {
	// Name is the name of the reference that depends on itself.
	Name string
}

func (o *CyclicReferenceError) Error() string {
	return fmt.Sprintf("reference '%s' depends on its own value", o.Name)
}

// OverlapError occurs when the resolved byte ranges of two regions
// intersect.
type OverlapError struct {
	RegionA string
	StartA  int
	EndA    int
	RegionB string
	StartB  int
	EndB    int
}

func (o *OverlapError) Error() string {
	return fmt.Sprintf("region '%s' (0x%x-0x%x) overlaps region '%s' (0x%x-0x%x)",
		o.RegionA, o.StartA, o.EndA,
		o.RegionB, o.StartB, o.EndB)
}

// RegionSealedError occurs when a region is mutated after it has taken
// part in a resolve.
type RegionSealedError struct {
	// Region is the name of the sealed region.
	Region string
}

func (o *RegionSealedError) Error() string {
	return fmt.Sprintf("region '%s' cannot be modified because it was already resolved",
		o.Region)
}

// ResolutionError aggregates every reference-evaluation failure from a
// single resolve call. Exploit payloads often contain many
// placeholders - reporting only the first failure would defeat
// iterative development.
type ResolutionError struct {
	// Errs contains one error per failed reference.
	Errs []error
}

func (o *ResolutionError) Error() string {
	msgs := make([]string, len(o.Errs))

	for i, err := range o.Errs {
		msgs[i] = err.Error()
	}

	return fmt.Sprintf("failed to evaluate %d reference(s): %s",
		len(o.Errs), strings.Join(msgs, "; "))
}

func (o *ResolutionError) Unwrap() []error {
	return o.Errs
}
