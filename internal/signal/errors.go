package signal

import "errors"

// Sentinel kinds for signal source errors.
var (
	// ErrUnavailable marks a provider whose model failed to initialize.
	// The condition is permanent for the session; callers continue with
	// the modality absent.
	ErrUnavailable = errors.New("signal provider unavailable")
)
