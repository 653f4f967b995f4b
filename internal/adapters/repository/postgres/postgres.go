// Package postgres implements the session store on PostgreSQL.
//
// Schema management is goose-embedded migrations applied at open. Partial
// updates build their SET list dynamically, and append-only event rows
// keep insertion order through a sequence column. Terminal-state guards
// live in the WHERE clauses, so the exactly-once finalize holds across
// concurrent writers without application locks.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	"github.com/pressly/goose/v3"

	"github.com/BakulBd/GreenGuardian-sub000/internal/adapters/repository"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	maxOpenConns    = 25
	maxIdleConns    = 25
	connMaxLifetime = 5 * time.Minute

	// defaultMetricsUpdateInterval is how often the background goroutine
	// refreshes the session gauges.
	defaultMetricsUpdateInterval = 5 * time.Second
)

// notTerminal excludes sessions already past their terminal write.
var notTerminal = fmt.Sprintf("state NOT IN ('%s', '%s', '%s')",
	model.StateSubmitted, model.StateAutoSubmitted, model.StateCancelled)

const selectSession = `SELECT id, exam_id, candidate_id, state, upload_mode, duration_ns,
	created_at, started_at, warning_count, counts, score, camera_degraded,
	submit_reason, flagged_for_review, terminal_at, updated_at, frame_ref, analysis
FROM exam_sessions`

// Store is the PostgreSQL-backed session store.
type Store struct {
	db *sql.DB

	metricsUpdateInterval time.Duration

	// Background metrics management
	wg       sync.WaitGroup
	stopChan chan struct{}
}

var _ repository.Store = (*Store)(nil)

// Open connects to PostgreSQL, applies pending migrations and returns a
// ready store.
func Open(ctx context.Context, connString string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: apply migrations: %w", err)
	}

	s := &Store{
		db:                    db,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)

	return s, nil
}

// Close stops the background metrics goroutine and closes the pool.
func (s *Store) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return s.db.Close()
}

// CreateSession implements repository.Store.
func (s *Store) CreateSession(ctx context.Context, session *model.ExamSession) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	counts := session.Counts
	if counts == nil {
		counts = map[model.Kind]int{}
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("postgres: marshal counts: %w", err)
	}

	var analysisJSON []byte
	if session.Analysis != nil {
		analysisJSON, err = json.Marshal(session.Analysis)
		if err != nil {
			return fmt.Errorf("postgres: marshal analysis: %w", err)
		}
	}

	query := `INSERT INTO exam_sessions (
		id, exam_id, candidate_id, state, upload_mode, duration_ns,
		created_at, started_at, warning_count, counts, score, camera_degraded,
		submit_reason, flagged_for_review, terminal_at, updated_at, frame_ref, analysis
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	ON CONFLICT (id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query,
		session.ID, session.ExamID, session.CandidateID, string(session.State),
		session.UploadMode, int64(session.Duration),
		session.CreatedAt, nullTime(session.StartedAt), session.WarningCount,
		countsJSON, session.Score, session.CameraDegraded,
		session.SubmitReason, session.FlaggedForReview, nullTime(session.TerminalAt),
		session.UpdatedAt, session.FrameRef, analysisJSON)
	if err != nil {
		metrics.RecordStoreError("create")
		return fmt.Errorf("postgres: create session: %w", err)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		metrics.RecordStoreError("create")
		return repository.ErrDuplicateID
	}
	return nil
}

// UpdateProgress implements repository.Store.
func (s *Store) UpdateProgress(ctx context.Context, sessionID string, update repository.ProgressUpdate) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	// Terminal states only ever land through FinalizeSession.
	if update.State != nil && update.State.Terminal() {
		metrics.RecordStoreError("update")
		return repository.ErrInvalidState
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.State != nil {
		add("state", string(*update.State))
	}
	if update.StartedAt != nil {
		add("started_at", *update.StartedAt)
	}
	if update.WarningCount != nil {
		add("warning_count", *update.WarningCount)
	}
	if update.Counts != nil {
		countsJSON, err := json.Marshal(update.Counts)
		if err != nil {
			return fmt.Errorf("postgres: marshal counts: %w", err)
		}
		add("counts", countsJSON)
	}
	if update.Score != nil {
		add("score", *update.Score)
	}
	if update.CameraDegraded != nil {
		add("camera_degraded", *update.CameraDegraded)
	}
	if !update.At.IsZero() {
		add("updated_at", update.At)
	}
	if len(sets) == 0 {
		// Nothing to write; still report unknown or finalized sessions.
		if err := s.writableCheck(ctx, sessionID); err != nil {
			metrics.RecordStoreError("update")
			return err
		}
		return nil
	}

	args = append(args, sessionID)
	query := fmt.Sprintf(`UPDATE exam_sessions SET %s WHERE id = $%d AND %s`,
		strings.Join(sets, ", "), len(args), notTerminal)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		metrics.RecordStoreError("update")
		return fmt.Errorf("postgres: update session: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		metrics.RecordStoreError("update")
		if err := s.writableCheck(ctx, sessionID); err != nil {
			return err
		}
		return repository.ErrSessionFinalized
	}
	return nil
}

// FinalizeSession implements repository.Store.
func (s *Store) FinalizeSession(ctx context.Context, sessionID string, final repository.FinalUpdate) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	if !final.State.Terminal() {
		metrics.RecordStoreError("finalize")
		return repository.ErrInvalidState
	}

	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	add("state", string(final.State))
	add("submit_reason", final.Reason)
	if final.Score != nil {
		add("score", *final.Score)
	}
	if final.Flagged != nil {
		add("flagged_for_review", *final.Flagged)
	}
	add("terminal_at", nullTime(final.At))
	if !final.At.IsZero() {
		add("updated_at", final.At)
	}

	args = append(args, sessionID)
	query := fmt.Sprintf(`UPDATE exam_sessions SET %s WHERE id = $%d AND %s`,
		strings.Join(sets, ", "), len(args), notTerminal)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		metrics.RecordStoreError("finalize")
		return fmt.Errorf("postgres: finalize session: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		metrics.RecordStoreError("finalize")
		if err := s.writableCheck(ctx, sessionID); err != nil {
			return err
		}
		return repository.ErrSessionFinalized
	}
	return nil
}

// AppendEvent implements repository.Store.
//
// Logs stay open past the terminal write: async writers may land an
// event that was emitted just before submission.
func (s *Store) AppendEvent(ctx context.Context, event model.ViolationEvent) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	query := `INSERT INTO violation_events (id, session_id, exam_id, kind, severity, penalty, message, occurred_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8
	WHERE EXISTS (SELECT 1 FROM exam_sessions WHERE id = $2)`

	result, err := s.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.ExamID, string(event.Kind),
		string(event.Severity), event.Penalty, event.Message, event.OccurredAt)
	if err != nil {
		metrics.RecordStoreError("append_event")
		return fmt.Errorf("postgres: append event: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		metrics.RecordStoreError("append_event")
		return repository.ErrNotFound
	}
	return nil
}

// SaveThumbnail implements repository.Store.
func (s *Store) SaveThumbnail(ctx context.Context, sessionID string, frameRef string) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	result, err := s.db.ExecContext(ctx,
		`UPDATE exam_sessions SET frame_ref = $1 WHERE id = $2`, frameRef, sessionID)
	if err != nil {
		metrics.RecordStoreError("thumbnail")
		return fmt.Errorf("postgres: save thumbnail: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		metrics.RecordStoreError("thumbnail")
		return repository.ErrNotFound
	}
	return nil
}

// AttachAnalysis implements repository.Store. Reports arrive after the
// terminal write, so finalized sessions accept them.
func (s *Store) AttachAnalysis(ctx context.Context, report model.AnalysisReport) error {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreWriteLatency(float64(latency))
	}()

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("postgres: marshal analysis: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE exam_sessions SET analysis = $1 WHERE id = $2`, reportJSON, report.SessionID)
	if err != nil {
		metrics.RecordStoreError("analysis")
		return fmt.Errorf("postgres: attach analysis: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		metrics.RecordStoreError("analysis")
		return repository.ErrNotFound
	}
	return nil
}

// Session implements repository.Store.
func (s *Store) Session(ctx context.Context, sessionID string) (*model.ExamSession, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreQueryLatency(float64(latency))
	}()

	row := s.db.QueryRowContext(ctx, selectSession+` WHERE id = $1`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreError("session")
		return nil, repository.ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreError("session")
		return nil, fmt.Errorf("postgres: load session: %w", err)
	}
	return sess, nil
}

// EventsBySession implements repository.Store.
func (s *Store) EventsBySession(ctx context.Context, sessionID string) ([]model.ViolationEvent, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreQueryLatency(float64(latency))
	}()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		metrics.RecordStoreError("events")
		return nil, fmt.Errorf("postgres: lookup session: %w", err)
	}
	if !exists {
		metrics.RecordStoreError("events")
		return nil, repository.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, exam_id, kind, severity, penalty, message, occurred_at
		FROM violation_events WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		metrics.RecordStoreError("events")
		return nil, fmt.Errorf("postgres: load events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out := make([]model.ViolationEvent, 0)
	for rows.Next() {
		var (
			event    model.ViolationEvent
			kind     string
			severity string
		)
		if err := rows.Scan(&event.ID, &event.SessionID, &event.ExamID, &kind,
			&severity, &event.Penalty, &event.Message, &event.OccurredAt); err != nil {
			metrics.RecordStoreError("events")
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		event.Kind = model.Kind(kind)
		event.Severity = model.Severity(severity)
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("events")
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return out, nil
}

// ActiveSessionsByExam implements repository.Store. Results are sorted
// by session id for deterministic output.
func (s *Store) ActiveSessionsByExam(ctx context.Context, examID string) ([]*model.ExamSession, error) {
	start := time.Now()
	defer func() {
		latency := time.Since(start).Milliseconds()
		metrics.RecordStoreQueryLatency(float64(latency))
	}()

	rows, err := s.db.QueryContext(ctx,
		selectSession+` WHERE exam_id = $1 AND state IN ($2, $3) ORDER BY id`,
		examID, string(model.StateInProgress), string(model.StateSubmitting))
	if err != nil {
		metrics.RecordStoreError("active_sessions")
		return nil, fmt.Errorf("postgres: load active sessions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out := make([]*model.ExamSession, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			metrics.RecordStoreError("active_sessions")
			return nil, fmt.Errorf("postgres: scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError("active_sessions")
		return nil, fmt.Errorf("postgres: iterate sessions: %w", err)
	}
	return out, nil
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exam_sessions`).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0
	}
	return n
}

// writableCheck resolves a zero-row write: the session is either unknown
// or already finalized.
func (s *Store) writableCheck(ctx context.Context, sessionID string) error {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM exam_sessions WHERE id = $1`, sessionID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: lookup session: %w", err)
	}
	if model.State(state).Terminal() {
		return repository.ErrSessionFinalized
	}
	return nil
}

// rowScanner is satisfied by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSession maps one exam_sessions row into the domain model.
func scanSession(row rowScanner) (*model.ExamSession, error) {
	var (
		sess       model.ExamSession
		state      string
		durationNS int64
		startedAt  sql.NullTime
		terminalAt sql.NullTime
		counts     []byte
		analysis   []byte
	)
	err := row.Scan(&sess.ID, &sess.ExamID, &sess.CandidateID, &state, &sess.UploadMode,
		&durationNS, &sess.CreatedAt, &startedAt, &sess.WarningCount, &counts, &sess.Score,
		&sess.CameraDegraded, &sess.SubmitReason, &sess.FlaggedForReview, &terminalAt,
		&sess.UpdatedAt, &sess.FrameRef, &analysis)
	if err != nil {
		return nil, err
	}

	sess.State = model.State(state)
	sess.Duration = time.Duration(durationNS)
	if startedAt.Valid {
		sess.StartedAt = startedAt.Time
	}
	if terminalAt.Valid {
		sess.TerminalAt = terminalAt.Time
	}
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &sess.Counts); err != nil {
			return nil, fmt.Errorf("unmarshal counts: %w", err)
		}
	}
	if sess.Counts == nil {
		sess.Counts = make(map[model.Kind]int)
	}
	if len(analysis) > 0 {
		var report model.AnalysisReport
		if err := json.Unmarshal(analysis, &report); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		sess.Analysis = &report
	}
	return &sess, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// startMetricsUpdater starts a background goroutine that refreshes the
// session gauges.
func (s *Store) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

// updateMetrics refreshes the active-session and watched-exam gauges.
func (s *Store) updateMetrics(ctx context.Context) {
	var active, exams int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT exam_id) FROM exam_sessions WHERE state IN ($1, $2)`,
		string(model.StateInProgress), string(model.StateSubmitting)).Scan(&active, &exams)
	if err != nil {
		return
	}

	metrics.UpdateActiveSessions(active)
	metrics.UpdateWatchedExams(exams)
}
