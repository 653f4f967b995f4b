package model

import "time"

// BoundingBox locates a detection within a normalized frame, with
// coordinates and extents in [0,1].
type BoundingBox struct {
	X float64
	Y float64
	W float64
	H float64
}

// DetectedObject is one prohibited-object hit reported by the signal
// provider for a single frame.
type DetectedObject struct {
	Class string
	Score float64
	Box   BoundingBox
}

// DetectionSample carries the per-cycle output of the signal provider.
// Samples are ephemeral: they are evaluated by the debouncer and
// discarded, never persisted.
type DetectionSample struct {
	// SampleID makes client-pushed samples idempotent.
	SampleID string

	FaceCount       int
	FaceConfidences []float64
	FaceBoxes       []BoundingBox
	Objects         []DetectedObject
	GazeAway        bool

	// FrameRef is an opaque key to an externally stored thumbnail.
	// Optional; used only for observer snapshots.
	FrameRef string

	CapturedAt time.Time
}
