package examsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// driveSessions walks every plan through the session lifecycle and its
// scripted traffic, using a concurrent worker pool.
func driveSessions(ctx context.Context, config *Config, plans []Plan, stats *Stats) error {
	log.Printf("🎓 Driving %d candidate sessions with %d workers...", len(plans), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Counters for statistics
	var (
		started    int64
		failed     int64
		submitted  int64
		triggers   int64
		trigFailed int64
		samples    int64
		sampFailed int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	planChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range planChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := driveSinglePlan(ctx, client, config, &plans[index])

					atomic.AddInt64(&triggers, result.triggersOK)
					atomic.AddInt64(&trigFailed, result.triggersFailed)
					atomic.AddInt64(&samples, result.samplesOK)
					atomic.AddInt64(&sampFailed, result.samplesFailed)
					if result.started {
						atomic.AddInt64(&started, 1)
					} else {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Session for candidate %s failed: %v", plans[index].CandidateID, result.err)
						}
					}
					if result.submitted {
						atomic.AddInt64(&submitted, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						ok := atomic.LoadInt64(&started)
						bad := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d sessions driven (failed: %d)", ok+bad, len(plans), bad)
						} else {
							fmt.Printf("\r🎓 Sessions: %d/%d driven (failed: %d)", ok+bad, len(plans), bad)
						}
					}
				}
			}
		}()
	}

	// Send plan indices to workers
	go func() {
		defer close(planChan)
		for i := range plans {
			select {
			case <-ctx.Done():
				return
			case planChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.SessionsStarted = int(atomic.LoadInt64(&started))
	stats.SessionsFailed = int(atomic.LoadInt64(&failed))
	stats.SessionsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.TriggersSubmitted = int(atomic.LoadInt64(&triggers))
	stats.TriggersFailed = int(atomic.LoadInt64(&trigFailed))
	stats.SamplesSubmitted = int(atomic.LoadInt64(&samples))
	stats.SamplesFailed = int(atomic.LoadInt64(&sampFailed))

	log.Printf(`✅ Session driving completed:
   Started: %d
   Failed: %d
   Manually submitted: %d
   Triggers: %d (failed: %d)
   Samples: %d (failed: %d)
`, stats.SessionsStarted, stats.SessionsFailed, stats.SessionsSubmitted,
		stats.TriggersSubmitted, stats.TriggersFailed,
		stats.SamplesSubmitted, stats.SamplesFailed)

	return nil
}

// driveResult accumulates one plan's outcome.
type driveResult struct {
	started        bool
	submitted      bool
	triggersOK     int64
	triggersFailed int64
	samplesOK      int64
	samplesFailed  int64
	err            error
}

// driveSinglePlan creates the session, walks it to in-progress, replays
// the scripted traffic and optionally submits.
func driveSinglePlan(ctx context.Context, client *HTTPClient, config *Config, plan *Plan) driveResult {
	var result driveResult

	sessionID, err := createSession(ctx, client, config.BaseURL, plan)
	if err != nil {
		result.err = err
		return result
	}
	plan.SessionID = sessionID

	// Walk the lifecycle: acknowledge -> camera -> start.
	if err := postLifecycle(ctx, client, config.BaseURL, sessionID, "acknowledge"); err != nil {
		result.err = fmt.Errorf("acknowledge: %w", err)
		return result
	}
	if err := postCamera(ctx, client, config.BaseURL, sessionID); err != nil {
		result.err = fmt.Errorf("camera check: %w", err)
		return result
	}
	if err := postLifecycle(ctx, client, config.BaseURL, sessionID, "start"); err != nil {
		result.err = fmt.Errorf("start: %w", err)
		return result
	}
	result.started = true

	// Replay scripted traffic. Triggers score immediately; samples feed
	// the debounced camera cycle.
	for _, trig := range plan.Triggers {
		if err := postTrigger(ctx, client, config.BaseURL, sessionID, trig); err != nil {
			result.triggersFailed++
			continue
		}
		result.triggersOK++
	}
	for _, sample := range plan.Samples {
		if err := postSample(ctx, client, config.BaseURL, sessionID, sample); err != nil {
			result.samplesFailed++
			continue
		}
		result.samplesOK++
	}

	if plan.Submit {
		if err := postSubmit(ctx, client, config.BaseURL, sessionID); err == nil {
			result.submitted = true
		}
	}

	return result
}

// createSession opens the session and returns its assigned ID.
func createSession(ctx context.Context, client *HTTPClient, baseURL string, plan *Plan) (string, error) {
	req := createSessionRequest{
		ExamID:          plan.ExamID,
		CandidateID:     plan.CandidateID,
		DurationSeconds: 300,
	}

	resp, err := client.Post(ctx, baseURL+"/sessions", req)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusCreated {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var doc sessionDoc
	if err := unmarshalJSON(body, &doc); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if doc.ID == "" {
		return "", fmt.Errorf("created session has no ID")
	}

	return doc.ID, nil
}

// postCamera reports a healthy camera check.
func postCamera(ctx context.Context, client *HTTPClient, baseURL, sessionID string) error {
	url := fmt.Sprintf("%s/sessions/%s/camera", baseURL, sessionID)
	return postExpecting(ctx, client, url, cameraRequest{Degraded: false}, StatusOK)
}

// postLifecycle applies one lifecycle step (acknowledge, start, cancel).
func postLifecycle(ctx context.Context, client *HTTPClient, baseURL, sessionID, step string) error {
	url := fmt.Sprintf("%s/sessions/%s/%s", baseURL, sessionID, step)
	return postExpecting(ctx, client, url, nil, StatusOK)
}

// postTrigger reports one anti-cheat trigger.
func postTrigger(ctx context.Context, client *HTTPClient, baseURL, sessionID string, trig triggerRequest) error {
	url := fmt.Sprintf("%s/sessions/%s/triggers", baseURL, sessionID)
	return postExpecting(ctx, client, url, trig, StatusAccepted)
}

// postSample pushes one camera detection sample.
func postSample(ctx context.Context, client *HTTPClient, baseURL, sessionID string, sample sampleRequest) error {
	url := fmt.Sprintf("%s/sessions/%s/samples", baseURL, sessionID)
	return postExpecting(ctx, client, url, sample, StatusAccepted)
}

// postSubmit submits the exam. A 202 means another trigger's terminal
// write was already in flight, which is success for the cohort.
func postSubmit(ctx context.Context, client *HTTPClient, baseURL, sessionID string) error {
	url := fmt.Sprintf("%s/sessions/%s/submit", baseURL, sessionID)

	resp, err := client.Post(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case StatusOK, StatusAccepted:
		return nil
	default:
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
}

// postExpecting posts a body and requires a single status code back.
func postExpecting(ctx context.Context, client *HTTPClient, url string, body interface{}, want int) error {
	resp, err := client.Post(ctx, url, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	respBody, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
