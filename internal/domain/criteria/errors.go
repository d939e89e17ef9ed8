package criteria

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidCatalog = errors.New("invalid criteria catalog")
	ErrInvalidKind    = errors.New("invalid subject kind")
)
