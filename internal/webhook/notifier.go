package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/tendril/internal/model"
)

// ErrCircuitOpen is returned while the breaker rejects deliveries
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures completion notifications
type Config struct {
	URL     string
	Timeout time.Duration
	Retry   RetryPolicy
	// BreakerThreshold is the number of failed notifications that opens the breaker
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Payload is the JSON body posted for every finished job
type Payload struct {
	Event      string                 `json:"event"`
	Text       string                 `json:"text"`
	Generation model.GenerationRecord `json:"generation"`
	SentAt     string                 `json:"sent_at"`
}

// Notifier posts job outcomes to a webhook with retry logic
type Notifier struct {
	url        string
	httpClient *http.Client
	retry      RetryPolicy
	breaker    *Breaker
}

// NewNotifier creates a new completion notifier
func NewNotifier(cfg Config) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry:   cfg.Retry.withDefaults(),
		breaker: NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
	}
}

// BreakerState returns the breaker state name
func (n *Notifier) BreakerState() string {
	return n.breaker.State().String()
}

// Notify delivers the outcome of one job
func (n *Notifier) Notify(ctx context.Context, record *model.GenerationRecord) error {
	if !n.breaker.Allow() {
		slog.Warn("Circuit breaker is open, skipping completion webhook",
			"job_id", record.JobID,
			"circuit_state", n.BreakerState(),
		)
		return ErrCircuitOpen
	}

	body, err := json.Marshal(newPayload(record))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 1; attempt <= n.retry.MaxAttempts; attempt++ {
		statusCode, err := n.deliver(ctx, body)
		if err == nil {
			slog.Info("Completion webhook delivered",
				"job_id", record.JobID,
				"attempt", attempt,
				"status_code", statusCode,
			)
			n.breaker.Success()
			return nil
		}

		if !n.retry.ShouldRetry(attempt, statusCode, err) {
			n.breaker.Failure()
			return fmt.Errorf("webhook delivery failed after %d attempts: %w", attempt, err)
		}

		delay := n.retry.Delay(attempt)
		slog.Warn("Completion webhook failed, retrying",
			"job_id", record.JobID,
			"attempt", attempt,
			"next_retry_ms", delay.Milliseconds(),
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			n.breaker.Failure()
			return ctx.Err()
		}
	}

	n.breaker.Failure()
	return fmt.Errorf("webhook delivery failed after %d attempts", n.retry.MaxAttempts)
}

// deliver performs a single delivery attempt
func (n *Notifier) deliver(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// drain a bounded amount so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func newPayload(record *model.GenerationRecord) Payload {
	event := "generation." + record.Status

	var text string
	if record.Status == model.GenerationAbandoned {
		text = fmt.Sprintf("%s generation %s abandoned at step %d/%d: %s",
			record.Kind, record.JobID, record.Steps, record.TotalSteps, record.Error)
	} else {
		text = fmt.Sprintf("%s generation %s completed %d steps in %dms",
			record.Kind, record.JobID, record.TotalSteps, record.DurationMs)
	}

	return Payload{
		Event:      event,
		Text:       text,
		Generation: *record,
		SentAt:     time.Now().UTC().Format(time.RFC3339),
	}
}
