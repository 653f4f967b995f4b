// Package repository defines the session store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// ProgressUpdate is a partial update of the mutable session document.
// Nil fields keep their stored values, so a writer never clobbers a
// field it does not own. Terminal states are not accepted here; they
// go through FinalizeSession.
type ProgressUpdate struct {
	State          *model.State
	StartedAt      *time.Time
	WarningCount   *int
	Counts         map[model.Kind]int
	Score          *int
	CameraDegraded *bool

	// At stamps UpdatedAt on the document. The engine owns the clock;
	// zero leaves UpdatedAt untouched.
	At time.Time
}

// FinalUpdate is the exactly-once terminal write for a session.
type FinalUpdate struct {
	// State must be one of the terminal states.
	State  model.State
	Reason string

	// Score and Flagged are set by the submission paths and left nil
	// by cancellation.
	Score   *int
	Flagged *bool

	At time.Time
}

// Store provides access to session documents and their violation logs.
//
// Session documents are mutable up to the terminal write; violation
// events are append-only and never updated.
type Store interface {
	// CreateSession persists a new session document.
	// Returns ErrDuplicateID if the id is already tracked.
	CreateSession(ctx context.Context, session *model.ExamSession) error

	// UpdateProgress applies a partial update to a session document.
	// Returns ErrSessionFinalized once the session is terminal.
	UpdateProgress(ctx context.Context, sessionID string, update ProgressUpdate) error

	// FinalizeSession writes the terminal state for a session exactly
	// once. A repeated finalize returns ErrSessionFinalized.
	FinalizeSession(ctx context.Context, sessionID string, final FinalUpdate) error

	// AppendEvent appends one violation event to its session's log.
	AppendEvent(ctx context.Context, event model.ViolationEvent) error

	// SaveThumbnail records the newest observer thumbnail reference on
	// the session document. Callers treat failures as best-effort.
	SaveThumbnail(ctx context.Context, sessionID string, frameRef string) error

	// AttachAnalysis stores a post-submission analysis report on the
	// session document.
	AttachAnalysis(ctx context.Context, report model.AnalysisReport) error

	// Session returns a copy of one session document.
	// Returns ErrNotFound if the session is unknown.
	Session(ctx context.Context, sessionID string) (*model.ExamSession, error)

	// EventsBySession returns a session's violation events in append
	// order, oldest first.
	EventsBySession(ctx context.Context, sessionID string) ([]model.ViolationEvent, error)

	// ActiveSessionsByExam returns copies of the exam's sessions that
	// are still taking the exam (in-progress or submitting).
	ActiveSessionsByExam(ctx context.Context, examID string) ([]*model.ExamSession, error)

	// Count returns the number of sessions tracked.
	Count(ctx context.Context) int

	// Close releases store resources.
	Close() error
}
