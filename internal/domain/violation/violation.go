// Package violation owns the canonical violation vocabulary: per-kind
// severity, base penalty and observer message, plus the rule-based
// classifier that maps raw anti-cheat triggers onto kinds.
package violation

import (
	model "github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// severities grades each kind for observers.
var severities = map[model.Kind]model.Severity{
	model.KindTabSwitch:          model.SeverityMedium,
	model.KindFullscreenExit:     model.SeverityMedium,
	model.KindNoFace:             model.SeverityHigh,
	model.KindMultipleFaces:      model.SeverityCritical,
	model.KindLookingAway:        model.SeverityLow,
	model.KindCopyAttempt:        model.SeverityMedium,
	model.KindPasteAttempt:       model.SeverityHigh,
	model.KindRightClick:         model.SeverityLow,
	model.KindSuspiciousKeyboard: model.SeverityMedium,
	model.KindWindowBlur:         model.SeverityLow,
	model.KindMultipleWindows:    model.SeverityHigh,
	model.KindMobilePhone:        model.SeverityCritical,
	model.KindBookMaterial:       model.SeverityHigh,
	model.KindAdditionalDevice:   model.SeverityCritical,
	model.KindSecondPerson:       model.SeverityCritical,
}

// basePenalties holds the default first-occurrence penalty per kind.
// Values can be overridden per deployment through configuration; the
// scoring engine takes the effective table at construction.
var basePenalties = map[model.Kind]float64{
	model.KindTabSwitch:          3,
	model.KindFullscreenExit:     5,
	model.KindNoFace:             5,
	model.KindMultipleFaces:      10,
	model.KindLookingAway:        2,
	model.KindCopyAttempt:        5,
	model.KindPasteAttempt:       8,
	model.KindRightClick:         0,
	model.KindSuspiciousKeyboard: 4,
	model.KindWindowBlur:         2,
	model.KindMultipleWindows:    8,
	model.KindMobilePhone:        15,
	model.KindBookMaterial:       10,
	model.KindAdditionalDevice:   12,
	model.KindSecondPerson:       12,
}

// messages holds the observer-facing description per kind.
var messages = map[model.Kind]string{
	model.KindTabSwitch:          "Tab switch detected",
	model.KindFullscreenExit:     "Exited fullscreen mode",
	model.KindNoFace:             "Face not visible in camera",
	model.KindMultipleFaces:      "Multiple faces detected",
	model.KindLookingAway:        "Candidate looking away from screen",
	model.KindCopyAttempt:        "Copy attempt blocked",
	model.KindPasteAttempt:       "Paste attempt blocked",
	model.KindRightClick:         "Right-click menu blocked",
	model.KindSuspiciousKeyboard: "Suspicious keyboard activity",
	model.KindWindowBlur:         "Exam window lost focus",
	model.KindMultipleWindows:    "Multiple windows detected",
	model.KindMobilePhone:        "Mobile phone detected",
	model.KindBookMaterial:       "Book or study material detected",
	model.KindAdditionalDevice:   "Additional device detected",
	model.KindSecondPerson:       "Second person detected",
}

// SeverityOf returns the severity grade for a kind. Unknown kinds grade
// low; they are audit-only and never scored anyway.
func SeverityOf(k model.Kind) model.Severity {
	if s, ok := severities[k]; ok {
		return s
	}
	return model.SeverityLow
}

// BasePenalty returns the default first-occurrence penalty for a kind.
// Unknown kinds cost nothing.
func BasePenalty(k model.Kind) float64 {
	return basePenalties[k]
}

// MessageOf returns the observer-facing description for a kind.
func MessageOf(k model.Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return "Unrecognized activity"
}

// DefaultPenalties returns a copy of the built-in penalty table, ready
// to be overlaid with per-deployment overrides.
func DefaultPenalties() map[model.Kind]float64 {
	out := make(map[model.Kind]float64, len(basePenalties))
	for k, v := range basePenalties {
		out[k] = v
	}
	return out
}
