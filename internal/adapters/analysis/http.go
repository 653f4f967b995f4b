package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"

	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

const (
	// defaultRequestTimeout bounds a single request to the service.
	defaultRequestTimeout = 5 * time.Second
	// defaultAttempts is how many times a failed request is tried.
	defaultAttempts = 3
	// defaultRetryDelay is the base delay between attempts.
	defaultRetryDelay = 200 * time.Millisecond
	// breakerFailureLimit is how many consecutive failures open the circuit.
	breakerFailureLimit = 5
	// breakerRecoveryTimeout is how long the circuit stays open before a probe.
	breakerRecoveryTimeout = 30 * time.Second
)

// HTTPAnalyzer calls an external document-analysis service. Requests are
// retried with linear backoff and guarded by a circuit breaker, so a dead
// service degrades to ErrUnavailable instead of a retry storm.
type HTTPAnalyzer struct {
	url        string
	client     *http.Client
	cb         *gobreaker.CircuitBreaker
	timeout    time.Duration
	attempts   uint
	retryDelay time.Duration
	logger     logger.Logger
}

// NewHTTPAnalyzer creates an analyzer backed by the service at url.
func NewHTTPAnalyzer(url string, opts ...Option) *HTTPAnalyzer {
	a := &HTTPAnalyzer{
		url:        strings.TrimRight(url, "/"),
		client:     http.DefaultClient,
		timeout:    defaultRequestTimeout,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		logger:     logger.Get().Named("analysis"),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "analysis",
		MaxRequests: 1,
		Timeout:     breakerRecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureLimit
		},
	})

	return a
}

// Analyze implements Analyzer.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, sessionID string, document []byte) (*Result, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordAnalysisLatency(float64(latency))
	}()

	out, err := a.cb.Execute(func() (interface{}, error) {
		var result *Result

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(a.attempts),
			retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
				// Linear backoff: delay, 2*delay, 3*delay, ...
				return a.retryDelay * time.Duration(n+1)
			}),
		)

		retryErr := r.Do(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			var callErr error
			result, callErr = a.analyzeOnce(reqCtx, sessionID, document)
			return callErr
		})

		return result, retryErr
	})
	if err != nil {
		reason := "request_failed"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "circuit_open"
		}
		metrics.RecordAnalysisRequest("error")
		metrics.RecordErrorByComponent("analysis", reason)
		a.logger.Error(ctx, "document analysis failed",
			logger.String("session_id", sessionID),
			logger.Error(err))
		if reason == "circuit_open" {
			return nil, fmt.Errorf("analysis circuit open: %w", ErrUnavailable)
		}
		return nil, fmt.Errorf("analyze document: %w", err)
	}

	metrics.RecordAnalysisRequest("success")
	return out.(*Result), nil
}

// analyzeOnce performs a single request against the service.
func (a *HTTPAnalyzer) analyzeOnce(ctx context.Context, sessionID string, document []byte) (*Result, error) {
	// The document lands as base64, courtesy of encoding/json.
	payload, err := json.Marshal(map[string]any{
		"session_id": sessionID,
		"document":   document,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("analysis service status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var decoded struct {
		Text         string  `json:"text"`
		AIConfidence float64 `json:"ai_confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Result{Text: decoded.Text, AIConfidence: decoded.AIConfidence}, nil
}
