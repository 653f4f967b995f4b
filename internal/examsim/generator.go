package examsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	eventIDDivisor     = 10000
	profileDivisor     = 8
)

// Constants for candidate profile cases.
const (
	caseFocused   = 0
	caseRestless  = 1
	caseCopyPaste = 2
	caseGazer     = 3
	caseAbsent    = 4
	casePhoneUser = 5
	caseCrowded   = 6
	caseChaotic   = 7
)

// Constants for traffic shaping.
const (
	// confirmBurst is how many consecutive matching samples a script
	// emits so a condition can survive the debounce threshold when the
	// cohort runs long enough to span several evaluation cycles.
	confirmBurst = 4

	// noFaceBurst is longer because an empty frame carries extra grace.
	noFaceBurst = 7

	cleanSampleCount = 5
	maxRestlessSteps = 3
	objectScoreHigh  = 0.9
	crowdedFaces     = 2
	manualSubmitOdds = 0.7
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generatePlans creates the scripted candidate behaviors, one per session.
func generatePlans(ctx context.Context, config *Config, stats *Stats) ([]Plan, error) {
	logger.Get().Info(ctx, "generating candidate plans", logger.Int("numSessions", config.NumSessions), logger.Int("numExams", config.NumExams))

	plans := make([]Plan, config.NumSessions)

	// Pre-allocate candidate IDs to ensure uniqueness
	candidateIDs := make([]string, config.NumSessions)
	for i := 0; i < config.NumSessions; i++ {
		candidateIDs[i] = uuid.New().String()
	}

	// Generate plans concurrently
	type planResult struct {
		index int
		plan  Plan
		err   error
	}

	resultChan := make(chan planResult, config.NumSessions)

	// Use worker pool for plan generation
	workerCount := minInt(config.Workers, config.NumSessions)
	plansPerWorker := config.NumSessions / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * plansPerWorker
		end := start + plansPerWorker
		if worker == workerCount-1 {
			end = config.NumSessions // Last worker gets remaining plans
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- planResult{index: i, err: ctx.Err()}
					return
				default:
					examID := fmt.Sprintf("exam-%03d", i%config.NumExams+1)
					plan := generateSinglePlan(i, candidateIDs[i], examID)
					resultChan <- planResult{index: i, plan: plan, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumSessions; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during plan generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate plan %d: %w", result.index, result.err)
			}
			plans[result.index] = result.plan
		}
	}

	stats.SessionsPlanned = len(plans)
	logger.Get().Info(ctx, "generated candidate plans successfully", logger.Int("count", len(plans)))

	return plans, nil
}

// generateSinglePlan scripts one candidate with a varied behavior profile.
func generateSinglePlan(index int, candidateID, examID string) Plan {
	plan := Plan{
		CandidateID: candidateID,
		ExamID:      examID,
		Submit:      getRandomFloat() < manualSubmitOdds,
	}

	randNum, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))
	switch randNum.Int64() {
	case caseFocused:
		// Clean run: face in frame, no triggers.
		plan.Profile = "focused"
		plan.Samples = cleanSamples(index, cleanSampleCount)
	case caseRestless:
		// A few tab switches and focus losses.
		plan.Profile = "restless"
		plan.Triggers = restlessTriggers(index)
		plan.Samples = cleanSamples(index, cleanSampleCount)
	case caseCopyPaste:
		// Clipboard and context-menu activity.
		plan.Profile = "copy-paste"
		plan.Triggers = []triggerRequest{
			newTrigger(index, 0, "copy", "ctrl+c on question text"),
			newTrigger(index, 1, "paste", "ctrl+v into answer field"),
			newTrigger(index, 2, "contextmenu", ""),
		}
		plan.Samples = cleanSamples(index, cleanSampleCount)
	case caseGazer:
		// Eyes off-screen long enough to outlast the debounce threshold.
		plan.Profile = "gazer"
		plan.Samples = gazeSamples(index, confirmBurst)
	case caseAbsent:
		// Empty frames; no-face needs the longer burst to confirm.
		plan.Profile = "absent"
		plan.Samples = noFaceSamples(index, noFaceBurst)
	case casePhoneUser:
		// A phone in frame with high detector confidence.
		plan.Profile = "phone-user"
		plan.Samples = objectSamples(index, "cell phone", confirmBurst)
	case caseCrowded:
		// A second face next to the candidate.
		plan.Profile = "crowded"
		plan.Samples = crowdedSamples(index, confirmBurst)
	case caseChaotic:
		// Everything at once; the classic panicked cheater.
		plan.Profile = "chaotic"
		plan.Triggers = []triggerRequest{
			newTrigger(index, 0, "fullscreenchange", "left fullscreen"),
			newTrigger(index, 1, "tab-switch", ""),
			newTrigger(index, 2, "devtools", "devtools opened"),
			newTrigger(index, 3, "multiple-windows", "second window detected"),
		}
		plan.Samples = append(objectSamples(index, "book", confirmBurst), gazeSamples(index+1, confirmBurst)...)
	default:
		plan.Profile = "focused"
		plan.Samples = cleanSamples(index, cleanSampleCount)
	}

	return plan
}

// restlessTriggers scripts one to three window-discipline slips.
func restlessTriggers(index int) []triggerRequest {
	count, _ := rand.Int(rand.Reader, big.NewInt(maxRestlessSteps))
	n := int(count.Int64()) + 1

	kinds := []string{"tab-switch", "window-blur", "visibilitychange"}
	triggers := make([]triggerRequest, 0, n)
	for i := 0; i < n; i++ {
		triggers = append(triggers, newTrigger(index, i, kinds[i%len(kinds)], ""))
	}
	return triggers
}

// newTrigger builds a trigger with a unique event ID.
func newTrigger(index, seq int, trigger, detail string) triggerRequest {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(eventIDDivisor))
	eventID := "trig_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(int64(seq), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)

	return triggerRequest{
		EventID: eventID,
		Trigger: trigger,
		Detail:  detail,
	}
}

// newSampleID builds a unique sample ID.
func newSampleID(index, seq int) string {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(eventIDDivisor))
	return "sample_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(int64(seq), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)
}

// cleanSamples scripts ordinary one-face frames.
func cleanSamples(index, n int) []sampleRequest {
	samples := make([]sampleRequest, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, sampleRequest{
			SampleID:  newSampleID(index, i),
			FaceCount: 1,
		})
	}
	return samples
}

// gazeSamples scripts frames with the candidate looking off-screen.
func gazeSamples(index, n int) []sampleRequest {
	samples := make([]sampleRequest, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, sampleRequest{
			SampleID:  newSampleID(index, i),
			FaceCount: 1,
			GazeAway:  true,
		})
	}
	return samples
}

// noFaceSamples scripts empty frames.
func noFaceSamples(index, n int) []sampleRequest {
	samples := make([]sampleRequest, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, sampleRequest{
			SampleID:  newSampleID(index, i),
			FaceCount: 0,
		})
	}
	return samples
}

// objectSamples scripts frames with a prohibited object in view.
func objectSamples(index int, class string, n int) []sampleRequest {
	samples := make([]sampleRequest, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, sampleRequest{
			SampleID:  newSampleID(index, i),
			FaceCount: 1,
			Objects: []objectPayload{
				{Class: class, Score: objectScoreHigh},
			},
		})
	}
	return samples
}

// crowdedSamples scripts frames with a second face.
func crowdedSamples(index, n int) []sampleRequest {
	samples := make([]sampleRequest, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, sampleRequest{
			SampleID:  newSampleID(index, i),
			FaceCount: crowdedFaces,
		})
	}
	return samples
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
