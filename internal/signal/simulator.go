package signal

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Default simulator configuration constants.
const (
	defaultRandomSeed  = 42
	defaultConfidence  = 0.82
	confidenceSpread   = 0.17
	defaultFaceExtent  = 0.3
	faceOriginSpread   = 0.2
	defaultLatencyZero = 0
)

// Step is one scripted stretch of consecutive samples. A Count of n
// yields n samples with the given shape before the script advances.
type Step struct {
	Count   int
	Faces   int
	Gaze    bool
	Objects []model.DetectedObject
}

// Clean returns a step of n ordinary samples: one attentive face, no
// prohibited objects.
func Clean(n int) Step {
	return Step{Count: n, Faces: 1}
}

// Simulator is a scripted Provider for tests and load drives. It
// replays its script, then produces clean samples indefinitely. Safe
// for concurrent use; sampling is deterministic for a fixed seed aside
// from generated sample IDs.
type Simulator struct {
	mu          sync.Mutex
	script      []Step
	pos         int
	used        int
	rng         *rand.Rand
	minLatency  time.Duration
	maxLatency  time.Duration
	now         func() time.Time
	unavailable bool
}

// NewSimulator creates a simulator with a deterministic seed and no
// script: every sample is clean until options say otherwise.
func NewSimulator(opts ...SimOption) *Simulator {
	s := &Simulator{
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
		minLatency: defaultLatencyZero,
		maxLatency: defaultLatencyZero,
		now:        time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sample produces the next scripted sample, honoring ctx for
// cancellation. A simulator configured as unavailable always returns
// ErrUnavailable, standing in for a model that failed to initialize.
func (s *Simulator) Sample(ctx context.Context) (model.DetectionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return model.DetectionSample{}, ErrUnavailable
	}

	// Simulate inference latency
	if s.maxLatency > s.minLatency {
		latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
		select {
		case <-ctx.Done():
			return model.DetectionSample{}, fmt.Errorf("sampling cancelled: %w", ctx.Err())
		case <-time.After(latency):
		}
	} else if err := ctx.Err(); err != nil {
		return model.DetectionSample{}, fmt.Errorf("sampling cancelled: %w", err)
	}

	step := s.currentStep()
	id := uuid.NewString()

	sample := model.DetectionSample{
		SampleID:   id,
		FaceCount:  step.Faces,
		GazeAway:   step.Gaze,
		FrameRef:   "sim/frames/" + id,
		CapturedAt: s.now(),
	}
	for i := 0; i < step.Faces; i++ {
		sample.FaceConfidences = append(sample.FaceConfidences, defaultConfidence+s.rng.Float64()*confidenceSpread)
		sample.FaceBoxes = append(sample.FaceBoxes, model.BoundingBox{
			X: s.rng.Float64() * faceOriginSpread,
			Y: s.rng.Float64() * faceOriginSpread,
			W: defaultFaceExtent,
			H: defaultFaceExtent,
		})
	}
	if len(step.Objects) > 0 {
		sample.Objects = make([]model.DetectedObject, len(step.Objects))
		copy(sample.Objects, step.Objects)
	}

	return sample, nil
}

// currentStep returns the script step the next sample draws from and
// advances the cursor. Exhausted scripts fall back to clean samples.
func (s *Simulator) currentStep() Step {
	for s.pos < len(s.script) {
		step := s.script[s.pos]
		if s.used < step.Count {
			s.used++
			return step
		}
		s.pos++
		s.used = 0
	}
	return Clean(1)
}
