package violation

import (
	model "github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
)

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithRules replaces the default rule list. Order is significant:
// earlier rules win ties.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		if len(rules) > 0 {
			c.rules = rules
		}
	}
}

// WithExtraRules appends rules after the default list, letting a
// deployment recognize site-specific trigger tags without losing the
// canonical ordering.
func WithExtraRules(rules ...Rule) Option {
	return func(c *Classifier) {
		c.rules = append(c.rules, rules...)
	}
}

// NewRule builds a rule for custom trigger vocabularies. Aliases match
// the normalized trigger exactly; hints match as substrings.
func NewRule(kind model.Kind, aliases, hints []string) Rule {
	return Rule{Kind: kind, aliases: aliases, hints: hints}
}
