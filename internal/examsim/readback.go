package examsim

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveSessionDocs reads back the final session documents concurrently.
func retrieveSessionDocs(ctx context.Context, config *Config, plans []Plan, stats *Stats) ([]sessionDoc, error) {
	// Only sessions that were actually created can be read back.
	sessionIDs := make([]string, 0, len(plans))
	for _, plan := range plans {
		if plan.SessionID != "" {
			sessionIDs = append(sessionIDs, plan.SessionID)
		}
	}

	log.Printf("📋 Retrieving %d session documents with %d workers...", len(sessionIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	docs := make([]sessionDoc, len(sessionIDs))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					sessionID := sessionIDs[index]
					doc, err := retrieveSingleDoc(ctx, client, config.BaseURL, sessionID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get session %s: %v", sessionID, err)
						}
					} else {
						docs[index] = doc
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("📋 Documents: %d/%d retrieved (success: %d, failed: %d)",
							total, len(sessionIDs), ret, fail)
					}
				}
			}
		}()
	}

	// Send indices to workers
	go func() {
		defer close(indexChan)
		for i := range sessionIDs {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out empty entries (failed retrievals)
	validDocs := make([]sessionDoc, 0, len(docs))
	for _, doc := range docs {
		if doc.ID != "" { // Empty ID indicates failed retrieval
			validDocs = append(validDocs, doc)
		}
	}

	// Update stats
	stats.DocsRetrieved = len(validDocs)

	log.Printf(`✅ Document retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validDocs), int(atomic.LoadInt64(&failed)))

	return validDocs, nil
}

// retrieveSingleDoc reads one session document.
func retrieveSingleDoc(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (sessionDoc, error) {
	url := fmt.Sprintf("%s/sessions/%s", baseURL, sessionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return sessionDoc{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return sessionDoc{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return sessionDoc{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var doc sessionDoc
	if err := unmarshalJSON(body, &doc); err != nil {
		return sessionDoc{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return doc, nil
}

// retrieveLiveViews reads the observer live view of every exam touched
// by the cohort.
func retrieveLiveViews(ctx context.Context, config *Config, plans []Plan, stats *Stats) ([]liveView, error) {
	// Collect the distinct exams, keeping output order stable.
	seen := make(map[string]bool)
	examIDs := make([]string, 0, config.NumExams)
	for _, plan := range plans {
		if !seen[plan.ExamID] {
			seen[plan.ExamID] = true
			examIDs = append(examIDs, plan.ExamID)
		}
	}
	sort.Strings(examIDs)

	log.Printf("📺 Getting live views for %d exams...", len(examIDs))

	client := newHTTPClient(config.Timeout)
	views := make([]liveView, 0, len(examIDs))

	for _, examID := range examIDs {
		view, err := retrieveSingleLiveView(ctx, client, config.BaseURL, examID)
		if err != nil {
			log.Printf("⚠️  Failed to get live view for %s: %v", examID, err)
			continue
		}
		views = append(views, view)
	}

	stats.LiveViewsRetrieved = len(views)
	log.Printf("✅ Retrieved %d live views", len(views))

	return views, nil
}

// retrieveSingleLiveView reads the aggregated view of one exam.
func retrieveSingleLiveView(ctx context.Context, client *HTTPClient, baseURL, examID string) (liveView, error) {
	url := fmt.Sprintf("%s/exams/%s/live", baseURL, examID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return liveView{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return liveView{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return liveView{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var view liveView
	if err := unmarshalJSON(body, &view); err != nil {
		return liveView{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return view, nil
}
