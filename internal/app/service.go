// Package service provides the aggregation manager that owns the store, the
// detector units and the broadcast hub and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/okian/proctor/internal/adapters/broadcast"
	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/adapters/repository/memory"
	"github.com/okian/proctor/internal/adapters/schedule"
	"github.com/okian/proctor/internal/detector"
	"github.com/okian/proctor/internal/domain/dedupe"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/internal/domain/scoring"
	"github.com/okian/proctor/internal/domain/types"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// Service implements the API dependencies for the monitoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	hub       broadcast.Broadcaster
	deduper   dedupe.Deduper
	processor *Processor
	face      detector.Detector
	gesture   detector.Detector
	rnd       *detector.Random

	// Configuration
	faceInterval      time.Duration
	gestureInterval   time.Duration
	statsInterval     time.Duration
	injectorEnabled   bool
	injectorInterval  time.Duration
	warningAlertEvery int
	recentAlertWindow int
	maxEventLimit     int
	dedupeSize        int
	seed              int64
	autostart         bool
	roster            []model.SubjectSeed

	// State
	started    bool
	runCtx     context.Context
	cancel     context.CancelFunc
	stats      *schedule.Periodic
	monitoring *schedule.Group

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		faceInterval:      3 * time.Second,
		gestureInterval:   4 * time.Second,
		statsInterval:     5 * time.Second,
		injectorInterval:  2 * time.Second,
		warningAlertEvery: 2,
		recentAlertWindow: 20,
		maxEventLimit:     500,
		dedupeSize:        10000,
		autostart:         true,
		roster:            model.DefaultRoster(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start seeds the roster, starts the stats broadcaster and, unless disabled,
// the detector units.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting monitoring service...")

	if s.store == nil {
		s.store = memory.New(ctx)
		s.logger.Info(ctx, "using memory store")
	}
	if s.hub == nil {
		s.hub = broadcast.NewHub(broadcast.WithLogger(s.logger))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.processor = NewProcessor(s.store, s.hub,
		scoring.NewPolicy(scoring.WithWarningAlertEvery(s.warningAlertEvery)), s.logger)
	s.rnd = detector.NewRandom(s.seed)
	if s.face == nil {
		s.face = detector.NewFace(s.rnd)
	}
	if s.gesture == nil {
		s.gesture = detector.NewGesture(s.rnd)
	}

	if err := s.seedRoster(ctx); err != nil {
		s.mu.Unlock()
		return err
	}

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.stats = schedule.NewPeriodic(s.statsInterval, s.broadcastStats,
		schedule.WithName("stats"), schedule.WithLogger(s.logger))
	go s.stats.Run(s.runCtx)

	s.started = true
	autostart := s.autostart
	s.mu.Unlock()

	s.logger.Info(ctx, "monitoring service started",
		logger.Int("subjects", len(s.roster)),
		logger.Duration("faceInterval", s.faceInterval),
		logger.Duration("gestureInterval", s.gestureInterval),
		logger.Bool("injector", s.injectorEnabled),
	)
	if autostart {
		return s.StartMonitoring(ctx)
	}
	return nil
}

func (s *Service) seedRoster(ctx context.Context) error {
	now := time.Now()
	for _, seed := range s.roster {
		_, err := s.store.CreateSubject(ctx, seed.Subject(now))
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrAlreadyExists):
			s.logger.Debug(ctx, "subject already present", logger.String("subject", seed.ID))
		default:
			return fmt.Errorf("seed subject %s: %w", seed.ID, err)
		}
	}
	return nil
}

// Stop gracefully shuts down the service and closes what it owns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping monitoring service...")

	if s.monitoring != nil {
		_ = s.monitoring.Shutdown(ctx)
		s.monitoring = nil
		metrics.UpdateMonitoringActive(false)
	}
	if s.stats != nil {
		_ = s.stats.Shutdown(ctx)
	}
	s.cancel()

	if closer, ok := s.hub.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "monitoring service stopped")
}

// StartMonitoring starts the detector units. It is a no-op when they are
// already running.
func (s *Service) StartMonitoring(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	if s.monitoring != nil {
		return nil
	}

	tasks := []schedule.Task{
		detector.NewUnit(s.face, s.store, s.processor, s.faceInterval,
			detector.WithUnitLogger(s.logger)).Task(),
		detector.NewUnit(s.gesture, s.store, s.processor, s.gestureInterval,
			detector.WithOffset(s.gestureInterval/2), detector.WithUnitLogger(s.logger)).Task(),
	}
	if s.injectorEnabled {
		tasks = append(tasks, detector.NewInjector(s.rnd, s.store, s.processor, s.injectorInterval).Task())
	}
	s.monitoring = schedule.NewGroup(tasks...)
	s.monitoring.Start(s.runCtx)
	metrics.UpdateMonitoringActive(true)
	s.logger.Info(ctx, "monitoring started", logger.Int("units", len(tasks)))
	return nil
}

// StopMonitoring stops the detector units between ticks without waiting
// for an in-flight tick.
func (s *Service) StopMonitoring(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitoring == nil {
		return
	}
	s.monitoring.Stop()
	s.monitoring = nil
	metrics.UpdateMonitoringActive(false)
	s.logger.Info(ctx, "monitoring stopped")
}

// ready reports ErrNotStarted until Start has completed.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// IsMonitoring reports whether the detector units are running.
func (s *Service) IsMonitoring() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitoring != nil
}

// Analysis runs both detectors on demand for one subject.
func (s *Service) Analysis(ctx context.Context, subjectID string) (types.Analysis, error) {
	if !s.IsMonitoring() {
		return types.Analysis{}, ErrNotInitialized
	}
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		return types.Analysis{}, err
	}

	faceObs, err := s.face.Analyze(ctx, subjectID)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("face analysis: %w", err)
	}
	gestureObs, err := s.gesture.Analyze(ctx, subjectID)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("gesture analysis: %w", err)
	}
	face, err := asFace(faceObs)
	if err != nil {
		return types.Analysis{}, err
	}
	gesture, err := asGesture(gestureObs)
	if err != nil {
		return types.Analysis{}, err
	}

	risk := scoring.OverallRisk(face, gesture)
	return types.Analysis{
		SubjectID:      subjectID,
		Face:           face,
		Gesture:        gesture,
		OverallRisk:    risk,
		Recommendation: scoring.Recommendation(risk),
	}, nil
}

func asFace(obs model.Observation) (model.FaceObservation, error) {
	switch o := obs.(type) {
	case model.FaceObservation:
		return o, nil
	case *model.FaceObservation:
		if o != nil {
			return *o, nil
		}
	}
	return model.FaceObservation{}, fmt.Errorf("face analysis: unsupported observation %T", obs)
}

func asGesture(obs model.Observation) (model.GestureObservation, error) {
	switch o := obs.(type) {
	case model.GestureObservation:
		return o, nil
	case *model.GestureObservation:
		if o != nil {
			return *o, nil
		}
	}
	return model.GestureObservation{}, fmt.Errorf("gesture analysis: unsupported observation %T", obs)
}

// Analyze is the command form of Analysis.
func (s *Service) Analyze(ctx context.Context, subjectID string) (types.Analysis, error) {
	return s.Analysis(ctx, subjectID)
}

// Status summarizes monitoring state over the active subjects.
func (s *Service) Status(ctx context.Context) (types.SystemStatus, error) {
	if err := s.ready(); err != nil {
		return types.SystemStatus{}, err
	}
	all, err := s.store.ListSubjects(ctx)
	if err != nil {
		return types.SystemStatus{}, err
	}
	recent, err := s.store.ListRecentEvents(ctx, s.recentAlertWindow)
	if err != nil {
		return types.SystemStatus{}, err
	}

	st := types.SystemStatus{IsMonitoring: s.IsMonitoring(), TotalStudents: len(all)}
	var scoreSum, confSum int
	for _, subj := range all {
		if !subj.Active {
			continue
		}
		st.ActiveStudents++
		scoreSum += subj.BehaviorScore
		confSum += subj.AIConfidence
		switch subj.Status {
		case model.StatusFlagged:
			st.FlaggedStudents++
		case model.StatusWarning:
			st.WarningStudents++
		}
	}
	if st.ActiveStudents > 0 {
		st.AverageBehaviorScore = int(math.Round(float64(scoreSum) / float64(st.ActiveStudents)))
		st.AverageConfidence = int(math.Round(float64(confSum) / float64(st.ActiveStudents)))
	}
	for _, e := range recent {
		switch e.Priority {
		case model.PriorityHigh:
			st.RecentHighAlerts++
		case model.PriorityWarning:
			st.RecentWarningAlerts++
		}
	}
	return st, nil
}

// Subjects returns the active subjects.
func (s *Service) Subjects(ctx context.Context) ([]model.Subject, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListActiveSubjects(ctx)
}

// Events returns recent events, optionally for one subject. A non-positive
// limit is rejected; a limit above the configured maximum is capped.
func (s *Service) Events(ctx context.Context, subjectID string, limit int) ([]model.Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := repository.ValidLimit(limit); err != nil {
		return nil, err
	}
	limit = min(limit, s.maxEventLimit)
	if subjectID != "" {
		return s.store.ListEventsBySubject(ctx, subjectID, limit)
	}
	return s.store.ListRecentEvents(ctx, limit)
}

// Stats returns dashboard statistics.
func (s *Service) Stats(ctx context.Context) (model.DashboardStats, error) {
	if err := s.ready(); err != nil {
		return model.DashboardStats{}, err
	}
	return s.store.DashboardStats(ctx)
}

// SubmitEvent validates and applies an ad-hoc event. A repeated non-empty
// id is rejected with ErrDuplicateEvent and has no effect.
func (s *Service) SubmitEvent(ctx context.Context, e model.Event) (model.Event, error) {
	if err := s.ready(); err != nil {
		return model.Event{}, err
	}
	e.ID = strings.TrimSpace(e.ID)
	if e.Source == "" {
		e.Source = model.SourceAPI
	}
	if e.Priority == "" {
		e.Priority = model.PriorityNormal
	}
	e.Timestamp = time.Time{}
	if err := e.Validate(); err != nil {
		return model.Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	if e.ID != "" && s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission skipped", logger.String("eventId", e.ID))
		return model.Event{}, ErrDuplicateEvent
	}

	stored, _, err := s.processor.apply(ctx, e, nil)
	if err != nil {
		if e.ID != "" {
			s.deduper.Unrecord(ctx, e.ID)
		}
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Event{}, ErrDuplicateEvent
		}
		return model.Event{}, err
	}
	return stored, nil
}

// DeactivateSubject soft-deletes a subject.
func (s *Service) DeactivateSubject(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.DeactivateSubject(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "subject deactivated", logger.String("subject", id))
	return nil
}

// ResetSubject returns a subject to normal with a full score. Alerts are
// kept since the alert count never decreases.
func (s *Service) ResetSubject(ctx context.Context, id string) (model.Subject, error) {
	if err := s.ready(); err != nil {
		return model.Subject{}, err
	}
	unlock := s.processor.locks.Lock(id)
	defer unlock()

	var before model.Status
	subj, err := s.store.UpdateSubject(ctx, id, func(cur model.Subject) (model.Subject, error) {
		before = cur.Status
		cur.Status = model.StatusNormal
		cur.BehaviorScore = model.MaxScore
		cur.WarningCount = 0
		cur.LastActivityAt = time.Now()
		return cur, nil
	})
	if err != nil {
		return model.Subject{}, err
	}
	if before != subj.Status {
		metrics.RecordSubjectTransition(string(before), string(subj.Status))
	}
	s.logger.Info(ctx, "subject reset", logger.String("subject", id))
	return subj, nil
}

// DeleteEvent hard-deletes one event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.store.DeleteEvent(ctx, id)
}

// DeleteAllEvents removes every event.
func (s *Service) DeleteAllEvents(ctx context.Context) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteAllEvents(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "events cleared", logger.Int("removed", n))
	return n, nil
}

func (s *Service) broadcastStats(ctx context.Context) error {
	st, err := s.store.DashboardStats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	return s.hub.Broadcast(ctx, broadcast.StatsNotification(st))
}

// GetStats returns service internals for the health endpoint.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]any{
		"started":    s.started,
		"monitoring": s.monitoring != nil,
	}
	if s.deduper != nil {
		stats["dedupeSize"] = s.deduper.Size()
	}
	if h, ok := s.hub.(interface{ Len() int }); ok {
		stats["observers"] = h.Len()
	}
	return stats
}
