package twiga

import "errors"

// Sentinel errors for the fixed error taxonomy this system exposes to
// callers. Layers wrap these with fmt.Errorf("...: %w", err) rather
// than inventing new error values per call site.
var (
	ErrInvalidConfig = errors.New("twiga: invalid configuration")
	ErrQueryEmpty    = errors.New("twiga: query has no searchable words")
)
