package feedwatch

import (
	"encoding/json"
	"fmt"
)

// Frame kinds on the live channel.
const (
	KindEvent         = "event"
	KindSubjectUpdate = "subject_update"
	KindStatsUpdate   = "stats_update"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type subjectRef struct {
	ID string `json:"studentId"`
}

// Tracker checks per-subject ordering. For a known subject the frames must
// alternate event, subject_update. A subject's first frame may be an update
// whose event was sent before the probe connected.
type Tracker struct {
	known   map[string]bool
	pending map[string]bool
	seen    map[string]bool
	stats   *Stats
	faults  []string
}

// NewTracker tracks the given subject ids and counts into stats.
func NewTracker(subjects []Subject, stats *Stats) *Tracker {
	t := &Tracker{
		known:   make(map[string]bool, len(subjects)),
		pending: make(map[string]bool),
		seen:    make(map[string]bool),
		stats:   stats,
	}
	for _, s := range subjects {
		t.known[s.ID] = true
	}
	return t
}

// Observe consumes one raw frame.
func (t *Tracker) Observe(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	t.stats.Frames++

	switch env.Type {
	case KindStatsUpdate:
		t.stats.StatsUpdates++
		return nil
	case KindEvent, KindSubjectUpdate:
	default:
		return fmt.Errorf("unknown frame type %q", env.Type)
	}

	var ref subjectRef
	if err := json.Unmarshal(env.Data, &ref); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	first := !t.seen[ref.ID]
	t.seen[ref.ID] = true

	if env.Type == KindEvent {
		t.stats.Events++
		if !t.known[ref.ID] {
			return nil
		}
		if t.pending[ref.ID] {
			t.fault("%s: event without subject_update", ref.ID)
		}
		t.pending[ref.ID] = true
		return nil
	}

	t.stats.SubjectUpdates++
	if !t.pending[ref.ID] && !first {
		t.fault("%s: subject_update without event", ref.ID)
	}
	t.pending[ref.ID] = false
	return nil
}

func (t *Tracker) fault(format string, args ...any) {
	t.stats.Violations++
	t.faults = append(t.faults, fmt.Sprintf(format, args...))
}

// Faults lists the ordering violations seen so far.
func (t *Tracker) Faults() []string {
	return t.faults
}
