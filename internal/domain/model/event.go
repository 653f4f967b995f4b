// Package model contains domain models passed between layers.
package model

import "time"

// Kind identifies a canonical violation category. The set is closed;
// anything else classifies as KindUnknown and never affects scoring.
type Kind string

// Canonical violation kinds.
const (
	KindTabSwitch          Kind = "tab-switch"
	KindFullscreenExit     Kind = "fullscreen-exit"
	KindNoFace             Kind = "no-face"
	KindMultipleFaces      Kind = "multiple-faces"
	KindLookingAway        Kind = "looking-away"
	KindCopyAttempt        Kind = "copy-attempt"
	KindPasteAttempt       Kind = "paste-attempt"
	KindRightClick         Kind = "right-click"
	KindSuspiciousKeyboard Kind = "suspicious-keyboard"
	KindWindowBlur         Kind = "window-blur"
	KindMultipleWindows    Kind = "multiple-windows"
	KindMobilePhone        Kind = "mobile-phone"
	KindBookMaterial       Kind = "book-or-material"
	KindAdditionalDevice   Kind = "additional-device"
	KindSecondPerson       Kind = "second-person"

	// KindUnknown marks triggers that matched no classification rule.
	KindUnknown Kind = "unknown"
)

// Kinds lists every canonical kind, excluding KindUnknown.
func Kinds() []Kind {
	return []Kind{
		KindTabSwitch,
		KindFullscreenExit,
		KindNoFace,
		KindMultipleFaces,
		KindLookingAway,
		KindCopyAttempt,
		KindPasteAttempt,
		KindRightClick,
		KindSuspiciousKeyboard,
		KindWindowBlur,
		KindMultipleWindows,
		KindMobilePhone,
		KindBookMaterial,
		KindAdditionalDevice,
		KindSecondPerson,
	}
}

// Known reports whether k is a member of the canonical set.
func (k Kind) Known() bool {
	switch k {
	case KindTabSwitch, KindFullscreenExit, KindNoFace, KindMultipleFaces,
		KindLookingAway, KindCopyAttempt, KindPasteAttempt, KindRightClick,
		KindSuspiciousKeyboard, KindWindowBlur, KindMultipleWindows,
		KindMobilePhone, KindBookMaterial, KindAdditionalDevice, KindSecondPerson:
		return true
	case KindUnknown:
		return false
	}
	return false
}

// Severity grades a violation for observers. It never feeds the score.
type Severity string

// Severity grades, mildest first.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ViolationEvent is an immutable, append-only record of one confirmed
// violation. Events are written once and never updated.
type ViolationEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	ExamID     string    `json:"exam_id"`
	Kind       Kind      `json:"kind"`
	Severity   Severity  `json:"severity"`
	Penalty    float64   `json:"penalty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
