// Package sqlite provides a SQLite-backed repository.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/proctor/internal/adapters/repository"
	"github.com/okian/proctor/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/metrics"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists subjects and events in SQLite. A single connection is
// used so every transaction is serialized.
type Store struct {
	db      *sql.DB
	opts    repository.Options
	started time.Time
}

var _ repository.Store = (*Store)(nil)

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(v int64) time.Time { return time.Unix(0, v).UTC() }

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string, opts ...repository.Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	o := repository.BuildOptions(opts...)
	return &Store{db: db, opts: o, started: o.Clock()}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func observe(op string, start time.Time, err *error) {
	metrics.RecordStoreOperation(op, float64(time.Since(start).Milliseconds()))
	if err != nil && *err != nil {
		metrics.RecordStoreError(op)
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

const subjectColumns = `id, name, behavior_score, status, alert_count, warning_count, last_activity_at, ai_confidence, active`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubject(row scanner) (model.Subject, error) {
	var (
		subj   model.Subject
		status string
		last   int64
		active int
	)
	if err := row.Scan(&subj.ID, &subj.Name, &subj.BehaviorScore, &status, &subj.AlertCount,
		&subj.WarningCount, &last, &subj.AIConfidence, &active); err != nil {
		return model.Subject{}, err
	}
	subj.Status = model.Status(status)
	subj.LastActivityAt = fromNanos(last)
	subj.Active = active != 0
	return subj, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) ListActiveSubjects(ctx context.Context) (out []model.Subject, err error) {
	defer observe("list_active_subjects", time.Now(), &err)
	return s.querySubjects(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE active = 1 ORDER BY created_seq`)
}

func (s *Store) ListSubjects(ctx context.Context) (out []model.Subject, err error) {
	defer observe("list_subjects", time.Now(), &err)
	return s.querySubjects(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY created_seq`)
}

func (s *Store) querySubjects(ctx context.Context, query string, args ...any) ([]model.Subject, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	out := make([]model.Subject, 0)
	for rows.Next() {
		subj, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		out = append(out, subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func (s *Store) GetSubject(ctx context.Context, id string) (subj model.Subject, err error) {
	defer observe("get_subject", time.Now(), &err)
	return getSubject(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSubject(ctx context.Context, q queryRower, id string) (model.Subject, error) {
	row := q.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id)
	subj, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subject{}, fmt.Errorf("subject %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return model.Subject{}, fmt.Errorf("get subject %s: %w", id, err)
	}
	return subj, nil
}

func (s *Store) CreateSubject(ctx context.Context, subj model.Subject) (_ model.Subject, err error) {
	defer observe("create_subject", time.Now(), &err)
	if strings.TrimSpace(subj.ID) == "" {
		return model.Subject{}, fmt.Errorf("subject id is required")
	}
	if subj.LastActivityAt.IsZero() {
		subj.LastActivityAt = s.opts.Clock()
	}
	subj.Clamp()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subjects (`+subjectColumns+`, created_seq)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM subjects))`,
		subj.ID, subj.Name, subj.BehaviorScore, string(subj.Status), subj.AlertCount,
		subj.WarningCount, toNanos(subj.LastActivityAt), subj.AIConfidence, boolInt(subj.Active),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Subject{}, fmt.Errorf("subject %s: %w", subj.ID, repository.ErrAlreadyExists)
		}
		return model.Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	return subj, nil
}

func (s *Store) UpdateSubject(ctx context.Context, id string, fn repository.Mutation) (_ model.Subject, err error) {
	defer observe("update_subject", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Subject{}, fmt.Errorf("begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cur, err := getSubject(ctx, tx, id)
	if err != nil {
		return model.Subject{}, err
	}
	next, err := fn(cur)
	if err != nil {
		return model.Subject{}, err
	}
	next.ID = cur.ID
	next.Clamp()

	if _, err = tx.ExecContext(ctx,
		`UPDATE subjects SET name = ?, behavior_score = ?, status = ?, alert_count = ?, warning_count = ?,
		   last_activity_at = ?, ai_confidence = ?, active = ?
		 WHERE id = ?`,
		next.Name, next.BehaviorScore, string(next.Status), next.AlertCount, next.WarningCount,
		toNanos(next.LastActivityAt), next.AIConfidence, boolInt(next.Active), id,
	); err != nil {
		return model.Subject{}, fmt.Errorf("update subject %s: %w", id, err)
	}
	if err = tx.Commit(); err != nil {
		return model.Subject{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

func (s *Store) DeactivateSubject(ctx context.Context, id string) error {
	_, err := s.UpdateSubject(ctx, id, func(cur model.Subject) (model.Subject, error) {
		cur.Active = false
		return cur, nil
	})
	return err
}

func (s *Store) CreateEvent(ctx context.Context, e model.Event) (_ model.Event, err error) {
	defer observe("create_event", time.Now(), &err)
	if e.ID == "" {
		e.ID = s.opts.NewID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.opts.Clock()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("begin create event: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (id, subject_id, kind, description, score, source, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubjectID, e.Kind, e.Description, e.Score, string(e.Source), string(e.Priority), toNanos(e.Timestamp),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Event{}, fmt.Errorf("event %s: %w", e.ID, repository.ErrAlreadyExists)
		}
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	if s.opts.EventRetention > 0 {
		seq, err := res.LastInsertId()
		if err != nil {
			return model.Event{}, fmt.Errorf("event seq: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE seq <= ?`, seq-int64(s.opts.EventRetention)); err != nil {
			return model.Event{}, fmt.Errorf("trim events: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return model.Event{}, fmt.Errorf("commit event: %w", err)
	}
	return e, nil
}

const eventColumns = `id, subject_id, kind, description, score, source, priority, created_at`

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		var (
			e                model.Event
			source, priority string
			createdAt        int64
		)
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Kind, &e.Description, &e.Score, &source, &priority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Source = model.Source(source)
		e.Priority = model.Priority(priority)
		e.Timestamp = fromNanos(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Store) ListRecentEvents(ctx context.Context, limit int) (out []model.Event, err error) {
	defer observe("list_recent_events", time.Now(), &err)
	if err = repository.ValidLimit(limit); err != nil {
		return nil, err
	}
	return s.queryEvents(ctx, `SELECT `+eventColumns+` FROM events ORDER BY created_at DESC, seq DESC LIMIT ?`, limit)
}

func (s *Store) ListEventsBySubject(ctx context.Context, id string, limit int) (out []model.Event, err error) {
	defer observe("list_events_by_subject", time.Now(), &err)
	if err = repository.ValidLimit(limit); err != nil {
		return nil, err
	}
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE subject_id = ? ORDER BY created_at DESC, seq DESC LIMIT ?`,
		id, limit)
}

func (s *Store) DeleteEvent(ctx context.Context, id string) (err error) {
	defer observe("delete_event", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteAllEvents(ctx context.Context) (_ int, err error) {
	defer observe("delete_all_events", time.Now(), &err)
	res, err := s.db.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return int(n), nil
}

func (s *Store) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	subjects, err := s.ListActiveSubjects(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	return model.ComputeStats(subjects, s.started, s.opts.Clock()), nil
}
