package locked

import "errors"

var (
	// ErrNotInitialized indicates use of a Heap whose region was never set.
	ErrNotInitialized = errors.New("locked: heap not initialized")

	// ErrInvalidConfig indicates a Config that fails validation.
	ErrInvalidConfig = errors.New("locked: invalid config")
)
