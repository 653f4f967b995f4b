package session

import "errors"

// Sentinel kinds for session lifecycle errors.
var (
	// ErrInvalidTransition reports an operation the current lifecycle
	// state does not accept.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrSubmissionInFlight reports a submission trigger that lost the
	// guard race while another trigger's terminal write is running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)
