// Package analysis provides the post-submission document analysis client.
//
// Upload-mode sessions have their answer document analyzed after the
// terminal write: the service extracts the document text and estimates
// how likely it is to be AI-generated. Analysis runs asynchronously and
// never blocks or fails the submission itself.
package analysis

import (
	"context"
	"strings"
)

// Result carries what the analysis service extracted from a submitted
// document.
type Result struct {
	Text         string  // extracted document text
	AIConfidence float64 // likelihood the text is AI-generated, 0..1
}

// Analyzer extracts text and an AI-likelihood estimate from a submitted
// answer document.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID string, document []byte) (*Result, error)
}

// NoopAnalyzer stands in when no analysis endpoint is configured. Every
// call reports ErrUnavailable so callers skip the attach step.
type NoopAnalyzer struct{}

// Analyze implements Analyzer.
func (NoopAnalyzer) Analyze(_ context.Context, _ string, _ []byte) (*Result, error) {
	return nil, ErrUnavailable
}

// New selects an implementation from the configured endpoint. An empty
// URL yields the no-op analyzer.
func New(url string, opts ...Option) Analyzer {
	if strings.TrimSpace(url) == "" {
		return NoopAnalyzer{}
	}
	return NewHTTPAnalyzer(url, opts...)
}
