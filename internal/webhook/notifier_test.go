package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dandantas/tendril/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *model.GenerationRecord {
	return &model.GenerationRecord{
		JobID:      "rose_abc",
		Kind:       "rose",
		Status:     model.GenerationCompleted,
		Steps:      500,
		TotalSteps: 500,
		DurationMs: 42,
	}
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestNotifyPostsPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(Config{URL: srv.URL, Retry: fastRetry(3)})
	require.NoError(t, n.Notify(context.Background(), testRecord()))

	assert.Equal(t, "generation.completed", got.Event)
	assert.Equal(t, "rose_abc", got.Generation.JobID)
	assert.Contains(t, got.Text, "completed 500 steps")
	assert.NotEmpty(t, got.SentAt)
	assert.Equal(t, "closed", n.BreakerState())
}

func TestNotifyRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(Config{URL: srv.URL, Retry: fastRetry(3)})
	require.NoError(t, n.Notify(context.Background(), testRecord()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotifyDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewNotifier(Config{URL: srv.URL, Retry: fastRetry(5)})
	err := n.Notify(context.Background(), testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestNotifyOpensBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(Config{URL: srv.URL, Retry: fastRetry(2), BreakerThreshold: 2, BreakerCooldown: time.Hour})
	for i := 0; i < 2; i++ {
		assert.Error(t, n.Notify(context.Background(), testRecord()))
	}
	assert.Equal(t, "open", n.BreakerState())
	assert.Equal(t, int32(4), calls.Load())

	assert.ErrorIs(t, n.Notify(context.Background(), testRecord()), ErrCircuitOpen)
	assert.Equal(t, int32(4), calls.Load(), "open breaker skips delivery")
}

func TestNotifyStopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewNotifier(Config{URL: srv.URL, Retry: RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour}})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, n.Notify(ctx, testRecord()), context.DeadlineExceeded)
}

func TestAbandonedPayload(t *testing.T) {
	rec := testRecord()
	rec.Status = model.GenerationAbandoned
	rec.Steps = 12
	rec.Error = "degenerate step"

	p := newPayload(rec)
	assert.Equal(t, "generation.abandoned", p.Event)
	assert.Equal(t, "rose generation rose_abc abandoned at step 12/500: degenerate step", p.Text)
}
