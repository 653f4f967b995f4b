package examsim

import (
	"fmt"
	"log"
	"sort"
)

// maxScore is the pristine behavior score a session starts from.
const maxScore = 100

// bucketRank orders risk buckets from most to least urgent, matching
// the observer sort contract.
var bucketRank = map[string]int{
	"critical": 0,
	"high":     1,
	"medium":   2,
	"low":      3,
}

// verifyResults cross-checks the session documents and live views.
func verifyResults(config *Config, docs []sessionDoc, views []liveView) error {
	log.Println("🔍 Verifying results...")

	if len(docs) == 0 {
		return fmt.Errorf("no session documents to verify")
	}

	// Sort documents by score (ascending) to surface the riskiest ones
	sortedDocs := make([]sessionDoc, len(docs))
	copy(sortedDocs, docs)
	sort.Slice(sortedDocs, func(i, j int) bool {
		return sortedDocs[i].Score < sortedDocs[j].Score
	})

	if err := verifyDocumentConsistency(docs); err != nil {
		log.Printf("⚠️  Document consistency warning: %v", err)
	} else {
		log.Println("✅ Document consistency verified")
	}

	for _, view := range views {
		if err := verifyLiveViewOrdering(view); err != nil {
			log.Printf("⚠️  Live view ordering warning for %s: %v", view.ExamID, err)
		}
	}
	if len(views) > 0 {
		log.Println("✅ Live view ordering checked")
	}

	// Display the riskiest sessions
	displayHighestRisk(sortedDocs, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyDocumentConsistency checks the scoring invariants every
// document has to satisfy regardless of traffic.
func verifyDocumentConsistency(docs []sessionDoc) error {
	for _, doc := range docs {
		if doc.Score < 0 || doc.Score > maxScore {
			return fmt.Errorf("session %s has score %d outside [0,%d]", doc.ID, doc.Score, maxScore)
		}

		violations := 0
		for _, n := range doc.Counts {
			violations += n
		}
		if doc.WarningCount != violations {
			return fmt.Errorf("session %s has %d warnings but %d confirmed violations",
				doc.ID, doc.WarningCount, violations)
		}

		switch doc.State {
		case "submitted", "auto-submitted":
			if doc.SubmitReason == "" {
				return fmt.Errorf("terminal session %s has no submit reason", doc.ID)
			}
		}
	}
	return nil
}

// verifyLiveViewOrdering checks that a view lists its sessions most
// urgent bucket first.
func verifyLiveViewOrdering(view liveView) error {
	prev := -1
	for i, s := range view.Sessions {
		rank, ok := bucketRank[s.RiskBucket]
		if !ok {
			return fmt.Errorf("session %s has unknown risk bucket %q", s.SessionID, s.RiskBucket)
		}
		if rank < prev {
			return fmt.Errorf("bucket order broken at entry %d: %s after a less urgent bucket", i, s.RiskBucket)
		}
		prev = rank
	}
	return nil
}

// displayHighestRisk shows the sessions that ended with the lowest scores.
func displayHighestRisk(sortedDocs []sessionDoc, verbose bool) {
	topN := 10
	if len(sortedDocs) < topN {
		topN = len(sortedDocs)
	}

	log.Printf("🚩 %d highest-risk sessions:", topN)
	for i := 0; i < topN; i++ {
		doc := sortedDocs[i]
		flag := ""
		if doc.Flagged {
			flag = " [flagged for review]"
		}
		log.Printf("   %d. %s - Score: %d, Warnings: %d%s", i+1, doc.CandidateID, doc.Score, doc.WarningCount, flag)
	}

	if verbose {
		// Show some statistics
		if len(sortedDocs) > 0 {
			avgScore := calculateAverageScore(sortedDocs)
			minScore := sortedDocs[0].Score
			maxSeen := sortedDocs[len(sortedDocs)-1].Score
			flagged := 0
			for _, doc := range sortedDocs {
				if doc.Flagged {
					flagged++
				}
			}

			log.Printf(`📊 Score statistics:
   Average: %.1f
   Maximum: %d
   Minimum: %d
   Flagged: %d
`, avgScore, maxSeen, minScore, flagged)
		}
	}
}

// calculateAverageScore calculates the average behavior score.
func calculateAverageScore(docs []sessionDoc) float64 {
	if len(docs) == 0 {
		return 0
	}

	sum := 0
	for _, doc := range docs {
		sum += doc.Score
	}

	return float64(sum) / float64(len(docs))
}
