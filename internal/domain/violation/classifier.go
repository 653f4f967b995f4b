package violation

import (
	"strings"

	model "github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Rule maps trigger text onto a kind. Rules are evaluated in order and
// the first match wins; ordering is part of the classification contract.
type Rule struct {
	Kind model.Kind

	// aliases match the normalized trigger exactly.
	aliases []string

	// hints match as substrings of the normalized trigger.
	hints []string
}

func (r Rule) matchesAlias(value string) bool {
	for _, a := range r.aliases {
		if value == a {
			return true
		}
	}
	return false
}

func (r Rule) matchesHint(value string) bool {
	for _, h := range r.hints {
		if strings.Contains(value, h) {
			return true
		}
	}
	return false
}

// DefaultRules returns the built-in ordered rule list. The order follows
// the canonical kind enumeration so that ambiguous trigger text resolves
// the same way on every node.
func DefaultRules() []Rule {
	return []Rule{
		{Kind: model.KindTabSwitch, aliases: []string{"tab-switch", "tabswitch", "visibilitychange", "visibility-change", "tab-hidden"}, hints: []string{"tab"}},
		{Kind: model.KindFullscreenExit, aliases: []string{"fullscreen-exit", "fullscreenchange", "fullscreen-change", "exit-fullscreen"}, hints: []string{"fullscreen"}},
		{Kind: model.KindNoFace, aliases: []string{"no-face", "noface", "face-missing"}, hints: []string{"no face", "face not"}},
		{Kind: model.KindMultipleFaces, aliases: []string{"multiple-faces", "multi-face", "multiface"}, hints: []string{"multiple face"}},
		{Kind: model.KindLookingAway, aliases: []string{"looking-away", "gaze-away", "gazeaway"}, hints: []string{"looking away", "gaze"}},
		{Kind: model.KindCopyAttempt, aliases: []string{"copy", "copy-attempt", "clipboard-copy"}, hints: []string{"copy"}},
		{Kind: model.KindPasteAttempt, aliases: []string{"paste", "paste-attempt", "clipboard-paste"}, hints: []string{"paste"}},
		{Kind: model.KindRightClick, aliases: []string{"right-click", "rightclick", "contextmenu", "context-menu"}, hints: []string{"right click", "context menu"}},
		{Kind: model.KindSuspiciousKeyboard, aliases: []string{"suspicious-keyboard", "keyboard-shortcut", "key-combo", "keydown", "hotkey", "devtools", "printscreen", "print-screen"}, hints: []string{"keyboard", "shortcut", "devtools"}},
		{Kind: model.KindWindowBlur, aliases: []string{"window-blur", "blur", "focus-lost", "focus-loss"}, hints: []string{"blur", "lost focus"}},
		{Kind: model.KindMultipleWindows, aliases: []string{"multiple-windows", "multi-window", "multiwindow", "window-count", "split-screen"}, hints: []string{"multiple window", "split screen"}},
		{Kind: model.KindMobilePhone, aliases: []string{"mobile-phone", "cell-phone", "cellphone", "phone"}, hints: []string{"phone"}},
		{Kind: model.KindBookMaterial, aliases: []string{"book-or-material", "book", "notes", "material"}, hints: []string{"book", "notes", "material"}},
		{Kind: model.KindAdditionalDevice, aliases: []string{"additional-device", "second-device", "laptop", "tablet", "smartwatch"}, hints: []string{"device", "laptop", "tablet"}},
		{Kind: model.KindSecondPerson, aliases: []string{"second-person", "another-person", "extra-person"}, hints: []string{"person"}},
	}
}

// Classifier resolves raw trigger text to a canonical kind. It carries
// no mutable state; classification is a pure function of its rule list.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier with the default rule list unless
// overridden by options.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		rules: DefaultRules(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps a trigger and its free-form detail onto a kind. The
// trigger tag is consulted first across all rules; the detail text is a
// fallback for generic tags. Anything unmatched is KindUnknown, which
// callers log for audit but must never score.
func (c *Classifier) Classify(trigger, detail string) model.Kind {
	if k := c.classifyValue(normalize(trigger)); k != model.KindUnknown {
		return k
	}
	return c.classifyValue(normalize(detail))
}

// classifyValue runs two ordered passes: exact aliases first, substring
// hints second. An exact match on a late rule must beat a fuzzy match on
// an early one ("tablet" is a device, not a tab switch).
func (c *Classifier) classifyValue(value string) model.Kind {
	if value == "" {
		return model.KindUnknown
	}
	for _, r := range c.rules {
		if r.matchesAlias(value) {
			return r.Kind
		}
	}
	for _, r := range c.rules {
		if r.matchesHint(value) {
			return r.Kind
		}
	}
	return model.KindUnknown
}

// normalize lowercases and collapses separator noise so rule text only
// has to deal with one spelling.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return s
}
