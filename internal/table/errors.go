package table

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound is returned by Page implementations when nothing matches a selector.
	ErrElementNotFound = errors.New("element not found")

	// ErrStructuralMismatch signals markup that does not have the expected table shape.
	ErrStructuralMismatch = errors.New("table structure mismatch")

	// ErrRowOutOfRange is a structural mismatch for a row index outside the rendered rows.
	ErrRowOutOfRange = fmt.Errorf("%w: row index out of range", ErrStructuralMismatch)

	// ErrColumnNotFound is a structural mismatch for an unknown header or column index.
	ErrColumnNotFound = fmt.Errorf("%w: column not found", ErrStructuralMismatch)

	// ErrCoercion matches any *CoercionError.
	ErrCoercion = errors.New("value coercion failed")

	// ErrPaginationUnterminated means the pager never reached its last page within MaxPages advances.
	ErrPaginationUnterminated = errors.New("could not determine end of pages")

	// ErrInvalidRoot is returned by ValidateRoot for a root that is not a single selector.
	ErrInvalidRoot = errors.New("invalid table root selector")

	// ErrSettleTimeout means the table body did not change after an action within SettleTimeout.
	ErrSettleTimeout = errors.New("table did not settle")
)

// CoercionError reports a value that could not be parsed into a sort domain.
type CoercionError struct {
	Index int
	Value string
	Type  ValueType
	Err   error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce value %q at index %d to %s: %v", e.Value, e.Index, e.Type, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

func (e *CoercionError) Is(target error) bool { return target == ErrCoercion }
