package analysis

import "errors"

// Sentinel kinds for analysis client errors.
var (
	// ErrUnavailable reports that the analysis service cannot be reached,
	// either because no endpoint is configured or the circuit is open.
	ErrUnavailable = errors.New("analysis service unavailable")
)
