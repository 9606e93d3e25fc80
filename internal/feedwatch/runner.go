package feedwatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/proctor/pkg/logger"
)

// ErrOrderingViolation reports that a subject update arrived out of order.
var ErrOrderingViolation = errors.New("ordering violation")

// Run executes one probe and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("feedwatch")

	log.Info(ctx, "starting feed probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Duration("duration", cfg.Duration),
		logger.Int("submit", cfg.Submit))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subjects, err := fetchSubjects(ctx, client, cfg.BaseURL)
	if err != nil {
		return stats, err
	}
	stats.Subjects = len(subjects)
	log.Info(ctx, "bootstrapped roster", logger.Int("subjects", len(subjects)))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, liveURL(cfg.BaseURL), nil)
	if err != nil {
		return stats, fmt.Errorf("failed to connect live channel: %w", err)
	}
	defer func() { _ = conn.Close() }()

	watchCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	// submissions wait for the first frame, which proves the observer is
	// registered and will see their broadcasts
	ready := make(chan struct{})
	var wg sync.WaitGroup
	if cfg.Submit > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ready:
				submitEvents(watchCtx, cfg, buildEvents(subjects, cfg.Submit), stats)
			case <-watchCtx.Done():
			}
		}()
	}

	tracker := NewTracker(subjects, stats)
	watchErr := watch(watchCtx, conn, tracker, ready, log, cfg.Verbose)
	wg.Wait()

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if watchErr != nil {
		return stats, watchErr
	}
	if faults := tracker.Faults(); len(faults) > 0 {
		for _, f := range faults {
			log.Warn(ctx, "ordering violation", logger.String("detail", f))
		}
		return stats, fmt.Errorf("%w: %d seen, first: %s", ErrOrderingViolation, len(faults), faults[0])
	}
	return stats, nil
}

// watch feeds frames to the tracker until ctx expires. ready is closed on
// the first frame.
func watch(ctx context.Context, conn *websocket.Conn, tracker *Tracker, ready chan struct{}, log logger.Logger, verbose bool) error {
	var once sync.Once
	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()
	// unblock the reader once the watch window ends
	defer func() { _ = conn.SetReadDeadline(time.Now()) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("live channel closed: %w", err)
		case raw := <-frames:
			once.Do(func() { close(ready) })
			if verbose {
				log.Debug(ctx, "frame", logger.String("raw", string(raw)))
			}
			if err := tracker.Observe(raw); err != nil {
				log.Warn(ctx, "unreadable frame", logger.Error(err))
			}
		}
	}
}

func liveURL(baseURL string) string {
	return "ws" + strings.TrimPrefix(strings.TrimSuffix(baseURL, "/"), "http") + "/ws"
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	resp, err := client.Get(ctx, baseURL+"/api/health")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("subjects", stats.Subjects),
		logger.Int("frames", stats.Frames),
		logger.Int("events", stats.Events),
		logger.Int("subjectUpdates", stats.SubjectUpdates),
		logger.Int("statsUpdates", stats.StatsUpdates),
		logger.Int("violations", stats.Violations),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsCreated", stats.EventsCreated),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.String("duration", stats.Duration.String()))
}
