package scoring

import (
	"math"
	"time"

	"github.com/okian/proctor/internal/domain/model"
)

const defaultWarningAlertEvery = 2

// Rule holds the per-source score adjustments. A penalty is subtracted and
// the result held at or above the floor; a bonus is added and capped at 100.
type Rule struct {
	HighPenalty    int
	HighFloor      int
	WarningPenalty int
	WarningFloor   int
	NormalBonus    int
}

// DefaultRules returns the rule table for the built-in sources.
func DefaultRules() map[model.Source]Rule {
	return map[model.Source]Rule{
		model.SourceFace:     {HighPenalty: 15, HighFloor: 20, WarningPenalty: 8, WarningFloor: 30, NormalBonus: 2},
		model.SourceGesture:  {HighPenalty: 20, HighFloor: 15, WarningPenalty: 10, WarningFloor: 25, NormalBonus: 3},
		model.SourceInjector: adHocRule,
		model.SourceAPI:      adHocRule,
	}
}

var adHocRule = Rule{HighPenalty: 10, HighFloor: 0, WarningPenalty: 5, WarningFloor: 0, NormalBonus: 0}

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithWarningAlertEvery sets how many warning classifications raise one alert.
// Values below 1 are ignored.
func WithWarningAlertEvery(n int) Option {
	return func(p *Policy) {
		if n >= 1 {
			p.warningAlertEvery = n
		}
	}
}

// WithRule overrides the rule for a single source.
func WithRule(source model.Source, r Rule) Option {
	return func(p *Policy) {
		p.rules[source] = r
	}
}

// Policy is the deterministic state-transition function applied to a
// subject for each classified event. It holds no mutable state and is safe
// for concurrent use.
type Policy struct {
	rules             map[model.Source]Rule
	fallback          Rule
	warningAlertEvery int
}

// NewPolicy creates a policy with the default rule table.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		rules:             DefaultRules(),
		fallback:          adHocRule,
		warningAlertEvery: defaultWarningAlertEvery,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WarningAlertEvery reports the configured warning alert cadence.
func (p *Policy) WarningAlertEvery() int { return p.warningAlertEvery }

// RuleFor returns the rule for source, falling back to the ad-hoc rule.
func (p *Policy) RuleFor(source model.Source) Rule {
	if r, ok := p.rules[source]; ok {
		return r
	}
	return p.fallback
}

// Apply returns the subject after one event of the given priority.
// confidence is the observation confidence, nil for ad-hoc events.
func (p *Policy) Apply(s model.Subject, source model.Source, priority model.Priority, confidence *int, now time.Time) model.Subject {
	r := p.RuleFor(source)

	switch priority {
	case model.PriorityHigh:
		s.Status = model.StatusFlagged
		s.BehaviorScore = max(r.HighFloor, s.BehaviorScore-r.HighPenalty)
		s.AlertCount++
	case model.PriorityWarning:
		if s.Status == model.StatusNormal {
			s.Status = model.StatusWarning
		}
		s.BehaviorScore = max(r.WarningFloor, s.BehaviorScore-r.WarningPenalty)
		s.WarningCount++
		if s.WarningCount%p.warningAlertEvery == 0 {
			s.AlertCount++
		}
	default:
		s.BehaviorScore = min(model.MaxScore, s.BehaviorScore+r.NormalBonus)
	}

	if confidence != nil {
		s.AIConfidence = blend(s.AIConfidence, *confidence)
	}
	s.LastActivityAt = now
	s.Clamp()
	return s
}

func blend(old, sample int) int {
	return int(math.Round(float64(old+sample) / 2))
}
