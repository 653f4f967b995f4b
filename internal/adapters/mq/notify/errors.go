package notify

import "errors"

// Sentinel kinds for notification delivery errors.
var (
	ErrQueueFull = errors.New("notification queue full")
)
