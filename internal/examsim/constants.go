package examsim

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusCreated  = 201
	StatusAccepted = 202
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	// ProcessingDelay leaves the event writers time to drain before the
	// documents are read back.
	ProcessingDelay      = 3 * time.Second
	PercentageMultiplier = 100
)
