// Package debounce smooths raw detection samples into confirmed
// violation candidates.
//
// A Context keeps one consecutive-match streak per condition. A
// condition confirms when its streak reaches the configured threshold
// and the condition is outside its cooldown window; within a window at
// most one confirmation per condition is emitted regardless of sample
// rate. Each session owns exactly one Context.
package debounce

import (
	"strings"
	"time"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Default debounce configuration constants.
const (
	defaultThreshold      = 3
	defaultNoFaceGrace    = 3
	defaultCooldown       = 30 * time.Second
	defaultMinObjectScore = 0.5
)

// Condition identifies one camera-observable violation condition
// tracked by the debouncer.
type Condition string

// Tracked conditions. The face group derives from face count and gaze;
// the object group derives from prohibited-object detections.
const (
	ConditionNoFace           Condition = "no-face"
	ConditionMultipleFaces    Condition = "multiple-faces"
	ConditionLookingAway      Condition = "looking-away"
	ConditionMobilePhone      Condition = "mobile-phone"
	ConditionBookOrMaterial   Condition = "book-or-material"
	ConditionAdditionalDevice Condition = "additional-device"
	ConditionSecondPerson     Condition = "second-person"
)

// Conditions lists every tracked condition in evaluation order.
func Conditions() []Condition {
	return []Condition{
		ConditionNoFace,
		ConditionMultipleFaces,
		ConditionLookingAway,
		ConditionMobilePhone,
		ConditionBookOrMaterial,
		ConditionAdditionalDevice,
		ConditionSecondPerson,
	}
}

// Kind maps the condition onto its canonical violation kind.
func (c Condition) Kind() model.Kind {
	switch c {
	case ConditionNoFace:
		return model.KindNoFace
	case ConditionMultipleFaces:
		return model.KindMultipleFaces
	case ConditionLookingAway:
		return model.KindLookingAway
	case ConditionMobilePhone:
		return model.KindMobilePhone
	case ConditionBookOrMaterial:
		return model.KindBookMaterial
	case ConditionAdditionalDevice:
		return model.KindAdditionalDevice
	case ConditionSecondPerson:
		return model.KindSecondPerson
	}
	return model.KindUnknown
}

// Modality identifies an inference model family feeding the debouncer.
// A modality whose model failed to initialize is disabled for the
// session; its conditions silently yield nothing.
type Modality string

// Modalities.
const (
	ModalityFace    Modality = "face"
	ModalityObjects Modality = "objects"
)

func (c Condition) modality() Modality {
	switch c {
	case ConditionNoFace, ConditionMultipleFaces, ConditionLookingAway:
		return ModalityFace
	default:
		return ModalityObjects
	}
}

// defaultCooldowns holds per-condition overrides; conditions not listed
// use the default cooldown.
var defaultCooldowns = map[Condition]time.Duration{
	ConditionLookingAway:   15 * time.Second,
	ConditionNoFace:        20 * time.Second,
	ConditionMultipleFaces: 30 * time.Second,
}

// objectConditions maps normalized provider object classes onto
// conditions. The vocabulary follows common detector label sets
// ("cell phone", "book", "laptop", "person").
var objectConditions = map[string]Condition{
	"cell phone":   ConditionMobilePhone,
	"mobile phone": ConditionMobilePhone,
	"phone":        ConditionMobilePhone,
	"book":         ConditionBookOrMaterial,
	"notebook":     ConditionBookOrMaterial,
	"laptop":       ConditionAdditionalDevice,
	"tablet":       ConditionAdditionalDevice,
	"tv":           ConditionAdditionalDevice,
	"monitor":      ConditionAdditionalDevice,
	"person":       ConditionSecondPerson,
}

// SuppressReason distinguishes sub-threshold streaks from cooldown holds.
type SuppressReason string

// Suppression reasons.
const (
	SuppressBelowThreshold SuppressReason = "below-threshold"
	SuppressCooldown       SuppressReason = "cooldown"
)

// Confirmation is one debounced violation candidate ready for
// classification and scoring.
type Confirmation struct {
	Condition Condition
	Kind      model.Kind
	// Streak is the consecutive-match count at confirmation time. It
	// exceeds the threshold when a condition persisted through a
	// cooldown window.
	Streak int
	At     time.Time
}

// Suppression explains why a matching condition did not confirm.
type Suppression struct {
	Condition Condition
	Reason    SuppressReason
	Streak    int
}

// Report carries the outcome of observing one sample.
type Report struct {
	Confirmed  []Confirmation
	Suppressed []Suppression
}

// Context holds the per-session debounce state: one streak counter and
// one last-confirmation mark per condition. It is owned by a single
// session runtime and is not safe for concurrent use.
type Context struct {
	threshold       int
	noFaceGrace     int
	cooldowns       map[Condition]time.Duration
	defaultCooldown time.Duration
	minObjectScore  float64
	now             func() time.Time

	streaks       map[Condition]int
	lastConfirmed map[Condition]time.Time
	disabled      map[Modality]bool
}

// NewContext creates a detection context with default thresholds and
// cooldowns.
func NewContext(opts ...Option) *Context {
	c := &Context{
		threshold:       defaultThreshold,
		noFaceGrace:     defaultNoFaceGrace,
		cooldowns:       make(map[Condition]time.Duration, len(defaultCooldowns)),
		defaultCooldown: defaultCooldown,
		minObjectScore:  defaultMinObjectScore,
		now:             time.Now,
		streaks:         make(map[Condition]int),
		lastConfirmed:   make(map[Condition]time.Time),
		disabled:        make(map[Modality]bool),
	}
	for cond, d := range defaultCooldowns {
		c.cooldowns[cond] = d
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Disable marks a modality permanently absent for this context. Its
// conditions stop matching; in-flight streaks are dropped.
func (c *Context) Disable(m Modality) {
	c.disabled[m] = true
	for _, cond := range Conditions() {
		if cond.modality() == m {
			delete(c.streaks, cond)
		}
	}
}

// Degraded reports whether any modality has been disabled.
func (c *Context) Degraded() bool {
	return len(c.disabled) > 0
}

// Observe evaluates one sample against every tracked condition.
// Matching conditions advance their streaks; non-matching conditions
// reset to zero. A condition whose streak reaches its threshold
// confirms unless it is inside its cooldown window, in which case the
// streak saturates and the condition re-confirms on the first matching
// sample after the window expires.
func (c *Context) Observe(sample model.DetectionSample) Report {
	now := c.now()
	matched := c.match(sample)

	var rep Report
	for _, cond := range Conditions() {
		if c.disabled[cond.modality()] {
			continue
		}
		if !matched[cond] {
			c.streaks[cond] = 0
			continue
		}

		c.streaks[cond]++
		streak := c.streaks[cond]
		if streak < c.thresholdFor(cond) {
			rep.Suppressed = append(rep.Suppressed, Suppression{
				Condition: cond,
				Reason:    SuppressBelowThreshold,
				Streak:    streak,
			})
			continue
		}
		if last, ok := c.lastConfirmed[cond]; ok && now.Sub(last) < c.cooldownFor(cond) {
			rep.Suppressed = append(rep.Suppressed, Suppression{
				Condition: cond,
				Reason:    SuppressCooldown,
				Streak:    streak,
			})
			continue
		}

		c.streaks[cond] = 0
		c.lastConfirmed[cond] = now
		rep.Confirmed = append(rep.Confirmed, Confirmation{
			Condition: cond,
			Kind:      cond.Kind(),
			Streak:    streak,
			At:        now,
		})
	}

	return rep
}

// Reset clears all streaks and cooldown marks. Disabled modalities stay
// disabled; model availability does not change within a session.
func (c *Context) Reset() {
	clear(c.streaks)
	clear(c.lastConfirmed)
}

func (c *Context) thresholdFor(cond Condition) int {
	// Extra grace for no-face tolerates brief repositioning without
	// penalizing the candidate.
	if cond == ConditionNoFace {
		return c.threshold + c.noFaceGrace
	}
	return c.threshold
}

func (c *Context) cooldownFor(cond Condition) time.Duration {
	if d, ok := c.cooldowns[cond]; ok {
		return d
	}
	return c.defaultCooldown
}

func (c *Context) match(sample model.DetectionSample) map[Condition]bool {
	m := make(map[Condition]bool)

	if !c.disabled[ModalityFace] {
		switch {
		case sample.FaceCount == 0:
			m[ConditionNoFace] = true
		case sample.FaceCount > 1:
			m[ConditionMultipleFaces] = true
		}
		// Gaze is only meaningful when a face is in frame.
		if sample.GazeAway && sample.FaceCount > 0 {
			m[ConditionLookingAway] = true
		}
	}

	if !c.disabled[ModalityObjects] {
		persons := 0
		for _, obj := range sample.Objects {
			if obj.Score < c.minObjectScore {
				continue
			}
			cond, ok := objectConditions[normalizeClass(obj.Class)]
			if !ok {
				continue
			}
			// The candidate is a person; only a second body counts.
			if cond == ConditionSecondPerson {
				persons++
				continue
			}
			m[cond] = true
		}
		if persons > 1 {
			m[ConditionSecondPerson] = true
		}
	}

	return m
}

func normalizeClass(class string) string {
	class = strings.ToLower(strings.TrimSpace(class))
	class = strings.ReplaceAll(class, "_", " ")
	class = strings.ReplaceAll(class, "-", " ")
	return class
}
