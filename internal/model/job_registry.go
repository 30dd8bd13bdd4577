package model

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dandantas/tendril/internal/fractal"
	"github.com/godruoyi/go-snowflake"
	"github.com/patrickmn/go-cache"
)

var (
	// ErrUnknownJob is returned for ids that were never created or have expired
	ErrUnknownJob = errors.New("job not found")

	// ErrStaleUpdate is returned when a publish would move a job backwards
	ErrStaleUpdate = errors.New("stale job update")
)

// JobState is the latest published progress of a generation job.
//
// Image holds encoded bytes and is never modified after publication.
type JobState struct {
	ID        string       `json:"job_id"`
	Kind      fractal.Kind `json:"kind"`
	Image     []byte       `json:"-"`
	Step      int          `json:"iteration"`
	Total     int          `json:"max_iterations"`
	Done      bool         `json:"complete"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Percentage returns 100·Step/Total, 0 when Total is 0
func (s JobState) Percentage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Step) / float64(s.Total) * 100
}

// JobRegistry is the process-wide store of job states.
//
// States are stored as values, so every publish replaces the whole state and
// readers never observe a partial update.
type JobRegistry struct {
	items     *cache.Cache
	retention time.Duration

	// serializes the read-check-write of Publish
	publishMu sync.Mutex

	newID func(kind fractal.Kind) string
}

// NewJobRegistry creates a registry. A zero retention keeps every job for the
// process lifetime; a positive one lets a job expire that long after its last
// publish, once Sweep runs.
func NewJobRegistry(retention time.Duration) *JobRegistry {
	return &JobRegistry{
		// no background janitor; expiry is driven by Sweep
		items:     cache.New(cache.NoExpiration, 0),
		retention: retention,
		newID:     newJobID,
	}
}

// newJobID combines the kind tag with a time-ordered snowflake id
func newJobID(kind fractal.Kind) string {
	return string(kind) + "_" + strconv.FormatUint(snowflake.ID(), 36)
}

func (r *JobRegistry) expiry() time.Duration {
	if r.retention <= 0 {
		return cache.NoExpiration
	}
	return r.retention
}

// Create registers a new job with zero progress
func (r *JobRegistry) Create(kind fractal.Kind, total int) (JobState, error) {
	now := time.Now().UTC()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		state := JobState{
			ID:        r.newID(kind),
			Kind:      kind,
			Total:     total,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.items.Add(state.ID, state, r.expiry()); err != nil {
			lastErr = err
			continue
		}
		return state, nil
	}

	return JobState{}, fmt.Errorf("failed to mint job id: %w", lastErr)
}

// Publish replaces the stored state of a job
func (r *JobRegistry) Publish(state JobState) error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	current, err := r.Get(state.ID)
	if err != nil {
		return err
	}

	switch {
	case state.Step < current.Step:
		return fmt.Errorf("%w: job %s step %d < %d", ErrStaleUpdate, state.ID, state.Step, current.Step)
	case current.Done && !state.Done:
		return fmt.Errorf("%w: job %s already complete", ErrStaleUpdate, state.ID)
	case state.Total != current.Total:
		return fmt.Errorf("%w: job %s total changed %d -> %d", ErrStaleUpdate, state.ID, current.Total, state.Total)
	}

	state.Kind = current.Kind
	state.CreatedAt = current.CreatedAt
	state.UpdatedAt = time.Now().UTC()

	r.items.Set(state.ID, state, r.expiry())
	return nil
}

// Get returns a copy of the latest published state
func (r *JobRegistry) Get(id string) (JobState, error) {
	v, ok := r.items.Get(id)
	if !ok {
		return JobState{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	state, ok := v.(JobState)
	if !ok {
		return JobState{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return state, nil
}

// Delete drops a job
func (r *JobRegistry) Delete(id string) {
	r.items.Delete(id)
}

// Len returns the number of stored jobs, including expired ones not yet swept
func (r *JobRegistry) Len() int {
	return r.items.ItemCount()
}

// Sweep drops expired jobs and returns how many were removed
func (r *JobRegistry) Sweep() int {
	before := r.items.ItemCount()
	r.items.DeleteExpired()
	return max(before-r.items.ItemCount(), 0)
}
