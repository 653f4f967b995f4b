package analysis_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	analysis "github.com/BakulBd/GreenGuardian-sub000/internal/adapters/analysis"
	logging "github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// fakeService is a scriptable stand-in for the analysis endpoint.
type fakeService struct {
	mu       sync.Mutex
	requests int
	failures int // first N requests answer 500
	text     string
	aiScore  float64
	lastBody map[string]any
}

func (fs *fakeService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.requests++

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.lastBody = body

		if fs.failures > 0 {
			fs.failures--
			http.Error(w, "temporarily unavailable", http.StatusInternalServerError)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":          fs.text,
			"ai_confidence": fs.aiScore,
		})
	}
}

func (fs *fakeService) requestCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests
}

func (fs *fakeService) lastRequest() map[string]any {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.lastBody
}

func TestHTTPAnalyzer(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given an analyzer backed by a healthy service", t, func() {
		svc := &fakeService{text: "extracted answer text", aiScore: 0.42}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		analyzer := analysis.NewHTTPAnalyzer(server.URL,
			analysis.WithHTTPClient(server.Client()),
			analysis.WithRetryDelay(5*time.Millisecond))

		convey.Convey("When a document is analyzed", func() {
			result, err := analyzer.Analyze(context.Background(), "sess-1", []byte("answer scan"))

			convey.Convey("Then the extracted text and confidence come back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result, convey.ShouldNotBeNil)
				convey.So(result.Text, convey.ShouldEqual, "extracted answer text")
				convey.So(result.AIConfidence, convey.ShouldAlmostEqual, 0.42)
				convey.So(svc.requestCount(), convey.ShouldEqual, 1)
			})

			convey.Convey("And the request carried the session and document", func() {
				body := svc.lastRequest()
				convey.So(body["session_id"], convey.ShouldEqual, "sess-1")

				// []byte round-trips through JSON as base64.
				encoded, ok := body["document"].(string)
				convey.So(ok, convey.ShouldBeTrue)
				doc, decodeErr := base64.StdEncoding.DecodeString(encoded)
				convey.So(decodeErr, convey.ShouldBeNil)
				convey.So(string(doc), convey.ShouldEqual, "answer scan")
			})
		})
	})

	convey.Convey("Given a service that fails twice before recovering", t, func() {
		svc := &fakeService{text: "recovered", aiScore: 0.1, failures: 2}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		analyzer := analysis.NewHTTPAnalyzer(server.URL,
			analysis.WithHTTPClient(server.Client()),
			analysis.WithRetryDelay(5*time.Millisecond))

		convey.Convey("When a document is analyzed", func() {
			result, err := analyzer.Analyze(context.Background(), "sess-2", []byte("doc"))

			convey.Convey("Then retries absorb the transient failures", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.Text, convey.ShouldEqual, "recovered")
				convey.So(svc.requestCount(), convey.ShouldEqual, 3)
			})
		})
	})

	convey.Convey("Given a service that keeps failing", t, func() {
		svc := &fakeService{failures: 10}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		analyzer := analysis.NewHTTPAnalyzer(server.URL,
			analysis.WithHTTPClient(server.Client()),
			analysis.WithAttempts(2),
			analysis.WithRetryDelay(5*time.Millisecond))

		convey.Convey("When a document is analyzed", func() {
			result, err := analyzer.Analyze(context.Background(), "sess-3", []byte("doc"))

			convey.Convey("Then the error surfaces after the configured attempts", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(result, convey.ShouldBeNil)
				convey.So(svc.requestCount(), convey.ShouldEqual, 2)
				convey.So(errors.Is(err, analysis.ErrUnavailable), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a slow service and a short timeout", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		analyzer := analysis.NewHTTPAnalyzer(server.URL,
			analysis.WithHTTPClient(server.Client()),
			analysis.WithTimeout(5*time.Millisecond),
			analysis.WithAttempts(1))

		convey.Convey("When a document is analyzed", func() {
			result, err := analyzer.Analyze(context.Background(), "sess-4", []byte("doc"))

			convey.Convey("Then the request times out", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(result, convey.ShouldBeNil)
			})
		})
	})
}

func TestHTTPAnalyzerCircuitBreaker(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given a service that always fails", t, func() {
		svc := &fakeService{failures: 100}
		server := httptest.NewServer(svc.handler())
		defer server.Close()

		analyzer := analysis.NewHTTPAnalyzer(server.URL,
			analysis.WithHTTPClient(server.Client()),
			analysis.WithAttempts(1),
			analysis.WithRetryDelay(time.Millisecond))

		convey.Convey("When failures pile up past the breaker limit", func() {
			for i := 0; i < 5; i++ {
				_, err := analyzer.Analyze(context.Background(), "sess-1", []byte("doc"))
				convey.So(err, convey.ShouldNotBeNil)
			}
			requestsBefore := svc.requestCount()

			convey.Convey("Then the circuit opens and calls stop reaching the service", func() {
				result, err := analyzer.Analyze(context.Background(), "sess-1", []byte("doc"))
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, analysis.ErrUnavailable), convey.ShouldBeTrue)
				convey.So(result, convey.ShouldBeNil)
				convey.So(svc.requestCount(), convey.ShouldEqual, requestsBefore)
			})
		})
	})
}

func TestAnalyzerSelection(t *testing.T) {
	_ = logging.Init()

	convey.Convey("Given no configured endpoint", t, func() {
		analyzer := analysis.New("")

		convey.Convey("Then the no-op analyzer reports unavailable", func() {
			result, err := analyzer.Analyze(context.Background(), "sess-1", nil)
			convey.So(result, convey.ShouldBeNil)
			convey.So(errors.Is(err, analysis.ErrUnavailable), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a configured endpoint", t, func() {
		analyzer := analysis.New("http://localhost:9999/analyze")

		convey.Convey("Then the HTTP implementation is selected", func() {
			_, ok := analyzer.(*analysis.HTTPAnalyzer)
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}
