package feedwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/proctor/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// fetchSubjects reads the active roster.
func fetchSubjects(ctx context.Context, client *HTTPClient, baseURL string) ([]Subject, error) {
	resp, err := client.Get(ctx, baseURL+"/api/students")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subjects: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subjects request failed with status: %d", resp.StatusCode)
	}
	var subjects []Subject
	if err := json.NewDecoder(resp.Body).Decode(&subjects); err != nil {
		return nil, fmt.Errorf("failed to decode subjects: %w", err)
	}
	return subjects, nil
}

// buildEvents creates n ad-hoc events spread over subjects. The last one
// reuses the first id so the duplicate path is exercised.
func buildEvents(subjects []Subject, n int) []Event {
	if len(subjects) == 0 || n <= 0 {
		return nil
	}
	priorities := []string{"normal", "warning", "high"}
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, Event{
			EventID:     uuid.NewString(),
			SubjectID:   subjects[i%len(subjects)].ID,
			Kind:        "probe_check",
			Description: "Probe event",
			Score:       50,
			Priority:    priorities[i%len(priorities)],
		})
	}
	if n > 1 {
		events[n-1].EventID = events[0].EventID
		events[n-1].SubjectID = events[0].SubjectID
	}
	return events
}

// submitEvents posts events concurrently using a worker pool. The first
// event is posted alone so a later duplicate of it cannot overtake it.
func submitEvents(ctx context.Context, cfg *Config, events []Event, stats *Stats) {
	if len(events) == 0 {
		return
	}
	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/api/events"
	workers := max(cfg.Workers, 1)

	var created, duplicate, failed int64
	record := func(result string) {
		switch result {
		case "created":
			atomic.AddInt64(&created, 1)
		case "duplicate":
			atomic.AddInt64(&duplicate, 1)
		default:
			atomic.AddInt64(&failed, 1)
		}
	}
	record(submitSingleEvent(ctx, client, url, events[0]))

	eventChan := make(chan Event, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				record(submitSingleEvent(ctx, client, url, event))
			}
		}()
	}

	sent := 1
feed:
	for _, event := range events[1:] {
		select {
		case <-ctx.Done():
			break feed
		case eventChan <- event:
			sent++
		}
	}
	close(eventChan)
	wg.Wait()

	stats.EventsSubmitted = sent
	stats.EventsCreated = int(created)
	stats.EventsDuplicate = int(duplicate)
	stats.EventsFailed = int(failed)
	logger.Get().Info(ctx, "event submission completed",
		logger.Int("created", stats.EventsCreated),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("failed", stats.EventsFailed))
}

// submitSingleEvent submits a single event and returns the result
func submitSingleEvent(ctx context.Context, client *HTTPClient, url string, event Event) string {
	resp, err := client.Post(ctx, url, event)
	if err != nil {
		return "failed"
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		return "created"
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "failed"
	default:
		return "failed"
	}
}
