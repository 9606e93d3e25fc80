// Package memory provides an in-process repository.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/metrics"
)

// eventRecord pairs an event with its insertion sequence so ties on
// timestamp resolve newest first.
type eventRecord struct {
	seq   uint64
	event model.Event
}

// Store keeps subjects in a map and events in a bounded ring buffer.
type Store struct {
	opts repository.Options

	mu       sync.RWMutex
	subjects map[string]model.Subject
	order    []string

	events   []eventRecord // ring when retention > 0
	head     int           // next write position in the ring
	count    int
	seq      uint64
	byID     map[string]uint64
	closed   bool
	started  time.Time
	wg       sync.WaitGroup
	stopChan chan struct{}
}

var _ repository.Store = (*Store)(nil)

// New constructs an empty memory store and starts its gauge updater.
func New(ctx context.Context, opts ...repository.Option) *Store {
	o := repository.BuildOptions(opts...)
	s := &Store{
		opts:     o,
		subjects: make(map[string]model.Subject),
		byID:     make(map[string]uint64),
		started:  o.Clock(),
		stopChan: make(chan struct{}),
	}
	if o.EventRetention > 0 {
		s.events = make([]eventRecord, o.EventRetention)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreOperation(op, float64(time.Since(start).Milliseconds()))
}

func (s *Store) ListActiveSubjects(ctx context.Context) ([]model.Subject, error) {
	defer observe("list_active_subjects", time.Now())
	return s.list(ctx, true)
}

func (s *Store) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	defer observe("list_subjects", time.Now())
	return s.list(ctx, false)
}

func (s *Store) list(ctx context.Context, activeOnly bool) ([]model.Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	out := make([]model.Subject, 0, len(s.order))
	for _, id := range s.order {
		subj := s.subjects[id]
		if activeOnly && !subj.Active {
			continue
		}
		out = append(out, subj)
	}
	return out, nil
}

func (s *Store) GetSubject(ctx context.Context, id string) (model.Subject, error) {
	defer observe("get_subject", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Subject{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Subject{}, repository.ErrClosed
	}
	subj, ok := s.subjects[id]
	if !ok {
		metrics.RecordStoreError("get_subject")
		return model.Subject{}, fmt.Errorf("subject %s: %w", id, repository.ErrNotFound)
	}
	return subj, nil
}

func (s *Store) CreateSubject(ctx context.Context, subj model.Subject) (model.Subject, error) {
	defer observe("create_subject", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Subject{}, err
	}
	if subj.ID == "" {
		return model.Subject{}, fmt.Errorf("subject id is required")
	}
	if subj.LastActivityAt.IsZero() {
		subj.LastActivityAt = s.opts.Clock()
	}
	subj.Clamp()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Subject{}, repository.ErrClosed
	}
	if _, ok := s.subjects[subj.ID]; ok {
		metrics.RecordStoreError("create_subject")
		return model.Subject{}, fmt.Errorf("subject %s: %w", subj.ID, repository.ErrAlreadyExists)
	}
	s.subjects[subj.ID] = subj
	s.order = append(s.order, subj.ID)
	return subj, nil
}

func (s *Store) UpdateSubject(ctx context.Context, id string, fn repository.Mutation) (model.Subject, error) {
	defer observe("update_subject", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Subject{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Subject{}, repository.ErrClosed
	}
	cur, ok := s.subjects[id]
	if !ok {
		metrics.RecordStoreError("update_subject")
		return model.Subject{}, fmt.Errorf("subject %s: %w", id, repository.ErrNotFound)
	}
	next, err := fn(cur)
	if err != nil {
		return model.Subject{}, err
	}
	next.ID = cur.ID
	next.Clamp()
	s.subjects[id] = next
	return next, nil
}

func (s *Store) DeactivateSubject(ctx context.Context, id string) error {
	_, err := s.UpdateSubject(ctx, id, func(cur model.Subject) (model.Subject, error) {
		cur.Active = false
		return cur, nil
	})
	return err
}

func (s *Store) CreateEvent(ctx context.Context, e model.Event) (model.Event, error) {
	defer observe("create_event", time.Now())
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	if e.ID == "" {
		e.ID = s.opts.NewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.opts.Clock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Event{}, repository.ErrClosed
	}
	if _, ok := s.byID[e.ID]; ok {
		metrics.RecordStoreError("create_event")
		return model.Event{}, fmt.Errorf("event %s: %w", e.ID, repository.ErrAlreadyExists)
	}
	s.seq++
	rec := eventRecord{seq: s.seq, event: e}
	if s.opts.EventRetention <= 0 {
		s.events = append(s.events, rec)
		s.count++
	} else {
		if s.count == len(s.events) {
			s.dropLocked(s.events[s.head])
		} else {
			s.count++
		}
		s.events[s.head] = rec
		s.head = (s.head + 1) % len(s.events)
	}
	s.byID[e.ID] = rec.seq
	return e, nil
}

// snapshot returns live events in insertion order. Caller holds the lock.
func (s *Store) snapshot(filter func(model.Event) bool) []eventRecord {
	out := make([]eventRecord, 0, s.count)
	emit := func(rec eventRecord) {
		if rec.event.ID == "" {
			return
		}
		if !s.liveLocked(rec) {
			return
		}
		if filter == nil || filter(rec.event) {
			out = append(out, rec)
		}
	}
	if s.opts.EventRetention <= 0 {
		for _, rec := range s.events {
			emit(rec)
		}
		return out
	}
	start := 0
	if s.count == len(s.events) {
		start = s.head
	}
	for i := 0; i < s.count; i++ {
		emit(s.events[(start+i)%len(s.events)])
	}
	return out
}

func newestFirst(recs []eventRecord, limit int) []model.Event {
	sort.Slice(recs, func(i, j int) bool {
		ti, tj := recs[i].event.Timestamp, recs[j].event.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return recs[i].seq > recs[j].seq
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]model.Event, len(recs))
	for i, r := range recs {
		out[i] = r.event
	}
	return out
}

func (s *Store) ListRecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	defer observe("list_recent_events", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.ValidLimit(limit); err != nil {
		metrics.RecordStoreError("list_recent_events")
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	return newestFirst(s.snapshot(nil), limit), nil
}

func (s *Store) ListEventsBySubject(ctx context.Context, id string, limit int) ([]model.Event, error) {
	defer observe("list_events_by_subject", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := repository.ValidLimit(limit); err != nil {
		metrics.RecordStoreError("list_events_by_subject")
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, repository.ErrClosed
	}
	recs := s.snapshot(func(e model.Event) bool { return e.SubjectID == id })
	return newestFirst(recs, limit), nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	defer observe("delete_event", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repository.ErrClosed
	}
	seq, ok := s.byID[id]
	if !ok {
		metrics.RecordStoreError("delete_event")
		return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	delete(s.byID, id)
	if s.opts.EventRetention <= 0 {
		// unbounded mode compacts; a ring slot stays until overwritten
		i := sort.Search(len(s.events), func(i int) bool { return s.events[i].seq >= seq })
		if i < len(s.events) && s.events[i].seq == seq {
			s.events = append(s.events[:i], s.events[i+1:]...)
			s.count--
		}
	}
	return nil
}

// liveLocked reports whether rec is the current record for its id.
func (s *Store) liveLocked(rec eventRecord) bool {
	seq, ok := s.byID[rec.event.ID]
	return ok && seq == rec.seq
}

// dropLocked forgets rec's id unless the id now belongs to a newer record.
func (s *Store) dropLocked(rec eventRecord) {
	if s.liveLocked(rec) {
		delete(s.byID, rec.event.ID)
	}
}

func (s *Store) DeleteAllEvents(ctx context.Context) (int, error) {
	defer observe("delete_all_events", time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, repository.ErrClosed
	}
	n := len(s.byID)
	s.byID = make(map[string]uint64)
	if s.opts.EventRetention > 0 {
		s.events = make([]eventRecord, s.opts.EventRetention)
	} else {
		s.events = nil
	}
	s.head, s.count = 0, 0
	return n, nil
}

func (s *Store) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	subjects, err := s.ListActiveSubjects(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	return model.ComputeStats(subjects, s.started, s.opts.Clock()), nil
}

// Close stops the background gauge updater.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopChan)
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *Store) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.MetricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *Store) updateMetrics() {
	s.mu.RLock()
	active, flagged := 0, 0
	for _, subj := range s.subjects {
		if !subj.Active {
			continue
		}
		active++
		if subj.Status == model.StatusFlagged {
			flagged++
		}
	}
	s.mu.RUnlock()
	metrics.UpdateSubjectGauges(active, flagged)
}
