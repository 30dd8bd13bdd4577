package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dandantas/tendril/internal/fractal"
	"github.com/dandantas/tendril/internal/model"
	"github.com/dandantas/tendril/internal/worker"
)

// Renderer turns a snapshot into an encoded image
type Renderer interface {
	Render(snap fractal.Snapshot) ([]byte, error)
	ContentType() string
}

// HistoryRecorder stores the audit record of a finished job
type HistoryRecorder interface {
	Record(ctx context.Context, record *model.GenerationRecord) error
}

// CompletionNotifier is told about every finished or abandoned job
type CompletionNotifier interface {
	Notify(ctx context.Context, record *model.GenerationRecord) error
}

// GeneratorConfig holds job defaults
type GeneratorConfig struct {
	TotalSteps    int
	MaxTotalSteps int
	// PacingDelay is waited after every publish, 0 disables pacing
	PacingDelay time.Duration
	Seed        uint64
}

// StartRequest describes a job to create
type StartRequest struct {
	Kind          string
	Params        map[string]any
	CorrelationID string
}

// Progress is the polled view of a job
type Progress struct {
	JobID         string       `json:"job_id"`
	Kind          fractal.Kind `json:"kind"`
	Iteration     int          `json:"iteration"`
	MaxIterations int          `json:"max_iterations"`
	Percentage    float64      `json:"percentage"`
	Image         *string      `json:"image"`
	Complete      bool         `json:"complete"`
	Running       bool         `json:"running"`
}

// Generator creates generation jobs and runs each one in its own task
type Generator struct {
	cfg        GeneratorConfig
	registry   *model.JobRegistry
	supervisor *worker.Supervisor
	renderer   Renderer
	history    HistoryRecorder
	notifier   CompletionNotifier
}

// NewGenerator creates a new generator. renderer may be nil, in which case
// jobs publish progress without images.
func NewGenerator(cfg GeneratorConfig, registry *model.JobRegistry, supervisor *worker.Supervisor, renderer Renderer) *Generator {
	if cfg.TotalSteps <= 0 {
		cfg.TotalSteps = fractal.DefaultTotalSteps
	}

	return &Generator{
		cfg:        cfg,
		registry:   registry,
		supervisor: supervisor,
		renderer:   renderer,
	}
}

// SetHistory enables history recording
func (g *Generator) SetHistory(history HistoryRecorder) {
	g.history = history
}

// SetNotifier enables completion notifications
func (g *Generator) SetNotifier(notifier CompletionNotifier) {
	g.notifier = notifier
}

// Defaults returns the options a job starts from before request parameters
func (g *Generator) Defaults() fractal.Options {
	opts := fractal.DefaultOptions()
	opts.TotalSteps = g.cfg.TotalSteps
	opts.Seed = g.cfg.Seed
	return opts
}

// job is everything one run owns
type job struct {
	state         model.JobState
	rule          fractal.Rule
	policy        fractal.Policy
	buffer        *fractal.Buffer
	correlationID string
}

// Start validates the request, registers a job and launches its run
func (g *Generator) Start(ctx context.Context, req StartRequest) (model.JobState, error) {
	kind, err := fractal.ParseKind(req.Kind)
	if err != nil {
		return model.JobState{}, err
	}

	opts, err := ApplyParams(g.Defaults(), req.Params, g.cfg.MaxTotalSteps)
	if err != nil {
		return model.JobState{}, err
	}

	rule, err := fractal.NewRule(kind, opts)
	if err != nil {
		return model.JobState{}, err
	}
	policy, err := fractal.PolicyFor(kind)
	if err != nil {
		return model.JobState{}, err
	}

	state, err := g.registry.Create(kind, opts.TotalSteps)
	if err != nil {
		return model.JobState{}, err
	}

	j := &job{
		state:         state,
		rule:          rule,
		policy:        policy,
		buffer:        fractal.NewBuffer(opts.TotalSteps),
		correlationID: req.CorrelationID,
	}

	if _, err := g.supervisor.Go(state.ID, func(ctx context.Context) error {
		return g.run(ctx, j)
	}); err != nil {
		g.registry.Delete(state.ID)
		return model.JobState{}, fmt.Errorf("failed to launch job %s: %w", state.ID, err)
	}

	slog.Info("Generation started",
		"job_id", state.ID,
		"kind", kind,
		"total_steps", opts.TotalSteps,
		"correlation_id", req.CorrelationID,
	)

	return state, nil
}

// Progress returns the latest published progress of a job
func (g *Generator) Progress(id string) (*Progress, error) {
	state, err := g.registry.Get(id)
	if err != nil {
		return nil, err
	}

	p := &Progress{
		JobID:         state.ID,
		Kind:          state.Kind,
		Iteration:     state.Step,
		MaxIterations: state.Total,
		Percentage:    state.Percentage(),
		Complete:      state.Done,
	}
	if _, ok := g.supervisor.Lookup(id); ok {
		p.Running = true
	}
	if state.Image != nil {
		url := g.dataURL(state.Image)
		p.Image = &url
	}

	return p, nil
}

// Wait blocks until the run of id returns. Jobs that are not running return
// immediately.
func (g *Generator) Wait(ctx context.Context, id string) error {
	task, ok := g.supervisor.Lookup(id)
	if !ok {
		return nil
	}
	return task.Wait(ctx)
}

// Jobs returns the number of registered jobs
func (g *Generator) Jobs() int {
	return g.registry.Len()
}

// ActiveJobs returns the number of jobs still running
func (g *Generator) ActiveJobs() int {
	return g.supervisor.Active()
}

func (g *Generator) dataURL(image []byte) string {
	contentType := "image/png"
	if g.renderer != nil {
		contentType = g.renderer.ContentType()
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// run iterates the rule to completion, publishing at every checkpoint
func (g *Generator) run(ctx context.Context, j *job) (err error) {
	startedAt := time.Now().UTC()
	record := &model.GenerationRecord{
		JobID:         j.state.ID,
		Kind:          string(j.state.Kind),
		CorrelationID: j.correlationID,
		TotalSteps:    j.state.Total,
		StartedAt:     startedAt,
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
		g.finish(ctx, j, record, err)
	}()

	state := j.state
	total := state.Total

	for i := 0; i < total; i++ {
		pt, err := fractal.StepChecked(j.rule, i)
		if err != nil {
			return err
		}
		j.buffer.Append(pt)

		if !j.policy.ShouldCheckpoint(i, total) {
			continue
		}

		snap := fractal.NewSnapshot(state.Kind, j.policy, j.buffer, i+1, total)
		record.Checkpoints++

		if g.renderer != nil {
			image, err := g.renderer.Render(snap)
			if err != nil {
				record.RenderFailures++
				slog.Warn("Render failed, keeping previous image",
					"job_id", state.ID,
					"step", snap.Step,
					"error", err,
				)
			} else {
				state.Image = image
			}
		}

		state.Step = snap.Step
		state.Done = snap.Done
		if err := g.registry.Publish(state); err != nil {
			return fmt.Errorf("failed to publish step %d: %w", snap.Step, err)
		}

		if state.Done {
			break
		}
		if err := g.pace(ctx); err != nil {
			return err
		}
	}

	return nil
}

// pace waits the configured delay or until ctx ends
func (g *Generator) pace(ctx context.Context) error {
	if g.cfg.PacingDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(g.cfg.PacingDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// finish logs the outcome and hands the record to history and the notifier
func (g *Generator) finish(ctx context.Context, j *job, record *model.GenerationRecord, runErr error) {
	completedAt := time.Now().UTC()
	bounds := j.buffer.Bounds()

	record.Steps = j.buffer.Len()
	record.MaxRadius = j.buffer.MaxRadius()
	record.Bounds = model.Bounds{MinX: bounds.X0, MinY: bounds.Y0, MaxX: bounds.X1, MaxY: bounds.Y1}
	record.CompletedAt = completedAt
	record.DurationMs = completedAt.Sub(record.StartedAt).Milliseconds()
	record.Status = model.GenerationCompleted

	if runErr != nil {
		record.Status = model.GenerationAbandoned
		record.Error = runErr.Error()

		level := slog.LevelError
		if errors.Is(runErr, context.Canceled) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Generation abandoned",
			"job_id", record.JobID,
			"kind", record.Kind,
			"step", record.Steps,
			"correlation_id", record.CorrelationID,
			"error", runErr,
		)
	} else {
		slog.Info("Generation completed",
			"job_id", record.JobID,
			"kind", record.Kind,
			"total_steps", record.TotalSteps,
			"checkpoints", record.Checkpoints,
			"render_failures", record.RenderFailures,
			"duration_ms", record.DurationMs,
		)
	}

	// the run context is canceled on shutdown; the record should still land
	ctx = context.WithoutCancel(ctx)

	if g.history != nil {
		if err := g.history.Record(ctx, record); err != nil {
			slog.Error("Failed to record generation history",
				"job_id", record.JobID,
				"error", err,
			)
		}
	}
	if g.notifier != nil {
		if err := g.notifier.Notify(ctx, record); err != nil {
			slog.Warn("Completion notification failed",
				"job_id", record.JobID,
				"error", err,
			)
		}
	}
}
