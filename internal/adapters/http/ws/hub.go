// Package ws streams live proctoring views to observer dashboards over
// websockets. A hub fans notifications out to the watchers of each exam
// and pushes periodic view snapshots so a dashboard converges even when
// frames are lost.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/logger"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultSnapshotInterval = 2 * time.Second
	defaultSendBuffer       = 32
	defaultPingInterval     = 20 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultReadLimit        = 512
)

// Frame types pushed to observer clients.
const (
	FrameSnapshot     = "snapshot"
	FrameNotification = "notification"
)

// Frame is one message on the observer socket.
type Frame struct {
	Type         string              `json:"type"`
	View         *model.ExamLiveView `json:"view,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// LiveViewer builds the aggregated live view of one exam.
type LiveViewer interface {
	LiveView(ctx context.Context, examID string) (model.ExamLiveView, error)
}

// Hub tracks observer connections per exam and feeds them frames.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*client]struct{}

	viewer        LiveViewer
	notifications <-chan model.Notification

	snapshotInterval time.Duration
	sendBuffer       int
	pingInterval     time.Duration
	writeTimeout     time.Duration
	readLimit        int64

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSnapshotInterval sets the cadence of periodic view snapshots.
func WithSnapshotInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.snapshotInterval = d
		}
	}
}

// WithSendBuffer sets the per-client outbound frame buffer.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithPingInterval sets how often idle connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithWriteTimeout bounds a single frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithReadLimit caps inbound message size in bytes.
func WithReadLimit(n int64) Option {
	return func(h *Hub) {
		if n > 0 {
			h.readLimit = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(logger logger.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a hub serving views from viewer and relaying
// notifications until the channel closes.
func NewHub(viewer LiveViewer, notifications <-chan model.Notification, opts ...Option) *Hub {
	h := &Hub{
		watchers:         make(map[string]map[*client]struct{}),
		viewer:           viewer,
		notifications:    notifications,
		snapshotInterval: defaultSnapshotInterval,
		sendBuffer:       defaultSendBuffer,
		pingInterval:     defaultPingInterval,
		writeTimeout:     defaultWriteTimeout,
		readLimit:        defaultReadLimit,
		stopCh:           make(chan struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Start launches the snapshot and notification loops.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return
	}

	// Restarting after Stop needs a fresh stop channel
	select {
	case <-h.stopCh:
		h.stopCh = make(chan struct{})
	default:
	}

	if h.logger == nil {
		h.logger = logger.Get().Named("ws")
	}

	h.wg.Add(2)
	go h.relayNotifications(ctx)
	go h.snapshotLoop(ctx)

	h.started = true
	h.logger.Info(ctx, "observer websocket hub started",
		logger.Duration("snapshotInterval", h.snapshotInterval),
	)
}

// Stop disconnects every client and waits for the hub loops.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false

	var clients []*client
	for _, set := range h.watchers {
		for c := range set {
			clients = append(clients, c)
		}
	}

	select {
	case <-h.stopCh:
		// Channel already closed
	default:
		close(h.stopCh)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
	h.wg.Wait()

	h.logger.Info(context.Background(), "observer websocket hub stopped")
}

// relayNotifications forwards queued notifications to the watchers of
// the affected exam. Exams nobody watches are skipped without decoding
// cost.
func (h *Hub) relayNotifications(ctx context.Context) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case n, ok := <-h.notifications:
			if !ok {
				return
			}
			if !h.watched(n.ExamID) {
				continue
			}
			payload, err := json.Marshal(Frame{Type: FrameNotification, Notification: &n})
			if err != nil {
				continue
			}
			h.broadcast(n.ExamID, payload)
		}
	}
}

// snapshotLoop pushes a fresh live view to every watched exam each
// tick. Snapshots are the source of truth; dropped notification frames
// heal on the next one.
func (h *Hub) snapshotLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case <-ticker.C:
			for _, examID := range h.watchedExams() {
				h.pushSnapshot(ctx, examID)
			}
		}
	}
}

func (h *Hub) pushSnapshot(ctx context.Context, examID string) {
	view, err := h.viewer.LiveView(ctx, examID)
	if err != nil {
		h.logger.Debug(ctx, "live view unavailable for snapshot",
			logger.String("exam_id", examID),
			logger.Error(err),
		)
		return
	}
	payload, err := json.Marshal(Frame{Type: FrameSnapshot, View: &view})
	if err != nil {
		return
	}
	h.broadcast(examID, payload)
}

// register adds a client; it reports false when the hub is not running.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return false
	}
	set := h.watchers[c.examID]
	if set == nil {
		set = make(map[*client]struct{})
		h.watchers[c.examID] = set
	}
	set[c] = struct{}{}
	count := h.clientCountLocked()
	h.mu.Unlock()

	metrics.UpdateWSClients(count)
	return true
}

// unregister removes a client and closes its outbound channel exactly
// once; membership in the watcher set is the guard.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.watchers[c.examID]; ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.watchers, c.examID)
			}
		}
	}
	count := h.clientCountLocked()
	h.mu.Unlock()

	metrics.UpdateWSClients(count)
}

func (h *Hub) clientCountLocked() int {
	count := 0
	for _, set := range h.watchers {
		count += len(set)
	}
	return count
}

func (h *Hub) watched(examID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[examID]) > 0
}

func (h *Hub) watchedExams() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	exams := make([]string, 0, len(h.watchers))
	for examID := range h.watchers {
		exams = append(exams, examID)
	}
	return exams
}

// broadcast hands payload to every watcher of examID. A client whose
// buffer is full loses the frame; the periodic snapshot resynchronizes
// it.
func (h *Hub) broadcast(examID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.watchers[examID] {
		select {
		case c.send <- payload:
		default:
		}
	}
}
