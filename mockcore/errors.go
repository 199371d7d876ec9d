package mockcore

import (
	"fmt"

	"github.com/wdstat/statmock/arena"
)

// newErr constructs an *arena.Error of kind for declarator, reusing the
// arena package's error type so callers never need to distinguish which
// package raised a given Kind (spec.md §7 groups all seven kinds as one
// reporting surface).
func newErr(kind arena.Kind, declarator, format string, args ...any) *arena.Error {
	return arena.NewError(kind, declarator, fmt.Sprintf(format, args...))
}

// ErrNotSupported is returned by operations the original framework defines
// but this rendition deliberately does not implement (Open Question
// decision: identical-mocks batch-add stays unsupported — see DESIGN.md).
var ErrNotSupported = fmt.Errorf("statmock: operation not supported by this implementation")
