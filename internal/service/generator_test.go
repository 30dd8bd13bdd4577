package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dandantas/tendril/internal/fractal"
	"github.com/dandantas/tendril/internal/model"
	"github.com/dandantas/tendril/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"
)

type fakeRenderer struct {
	mu     sync.Mutex
	snaps  map[string][]fractal.Snapshot
	failAt map[int]bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{snaps: make(map[string][]fractal.Snapshot), failAt: make(map[int]bool)}
}

func (f *fakeRenderer) Render(snap fractal.Snapshot) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(snap.Kind)
	f.snaps[key] = append(f.snaps[key], snap)
	if f.failAt[snap.Step] {
		return nil, errors.New("canvas exploded")
	}
	return []byte(fmt.Sprint(snap.Step)), nil
}

func (f *fakeRenderer) ContentType() string {
	return "image/png"
}

func (f *fakeRenderer) snapshots(kind fractal.Kind) []fractal.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fractal.Snapshot(nil), f.snaps[string(kind)]...)
}

type recordSink struct {
	mu      sync.Mutex
	records []model.GenerationRecord
}

func (s *recordSink) Record(_ context.Context, rec *model.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *rec)
	return nil
}

func (s *recordSink) Notify(ctx context.Context, rec *model.GenerationRecord) error {
	return s.Record(ctx, rec)
}

func (s *recordSink) all() []model.GenerationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.GenerationRecord(nil), s.records...)
}

func newTestGenerator(t *testing.T, cfg GeneratorConfig, r Renderer) (*Generator, *worker.Supervisor) {
	t.Helper()
	sup := worker.NewSupervisor()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
	})
	return NewGenerator(cfg, model.NewJobRegistry(0), sup, r), sup
}

func waitJob(t *testing.T, g *Generator, id string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx, id))
}

func dataURL(s string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(s))
}

func TestGeneratorRunsEveryKindToCompletion(t *testing.T) {
	const total = 450
	r := newFakeRenderer()
	g, _ := newTestGenerator(t, GeneratorConfig{TotalSteps: total, Seed: 7}, r)

	ids := make(map[fractal.Kind]string)
	for _, k := range fractal.Kinds() {
		state, err := g.Start(context.Background(), StartRequest{Kind: string(k)})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(state.ID, string(k)+"_"))
		assert.Equal(t, total, state.Total)
		ids[k] = state.ID
	}

	for k, id := range ids {
		waitJob(t, g, id)

		p, err := g.Progress(id)
		require.NoError(t, err)
		assert.True(t, p.Complete, "kind %s", k)
		assert.False(t, p.Running)
		assert.Equal(t, total, p.Iteration)
		assert.Equal(t, total, p.MaxIterations)
		assert.Equal(t, 100.0, p.Percentage)
		require.NotNil(t, p.Image)
		assert.Equal(t, dataURL(fmt.Sprint(total)), *p.Image)

		snaps := r.snapshots(k)
		require.NotEmpty(t, snaps)
		assert.Equal(t, 1, snaps[0].Step, "step 0 is a checkpoint")
		last := 0
		for i, s := range snaps {
			assert.Len(t, s.Points, s.Step)
			assert.Greater(t, s.Step, last)
			assert.Equal(t, i == len(snaps)-1, s.Done)
			last = s.Step
		}
	}
}

func TestPollersSeeMonotonicProgress(t *testing.T) {
	g, _ := newTestGenerator(t, GeneratorConfig{TotalSteps: 20000, Seed: 1}, newFakeRenderer())

	state, err := g.Start(context.Background(), StartRequest{Kind: "dragon"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			doneSeen := false
			for {
				p, err := g.Progress(state.ID)
				if !assert.NoError(t, err) {
					return
				}
				assert.GreaterOrEqual(t, p.Iteration, last)
				if doneSeen {
					assert.True(t, p.Complete, "complete never reverts")
				}
				last = p.Iteration
				if p.Complete {
					assert.Equal(t, p.MaxIterations, p.Iteration)
					if doneSeen {
						return
					}
					doneSeen = true
				}
			}
		}()
	}
	wg.Wait()
	waitJob(t, g, state.ID)
}

func TestStartRejectsInvalidKind(t *testing.T) {
	g, sup := newTestGenerator(t, GeneratorConfig{}, nil)

	_, err := g.Start(context.Background(), StartRequest{Kind: "hexagon"})
	assert.ErrorIs(t, err, fractal.ErrInvalidKind)
	assert.Equal(t, 0, g.registry.Len())
	assert.Equal(t, 0, sup.Active())
}

func TestStartRejectsInvalidParams(t *testing.T) {
	g, _ := newTestGenerator(t, GeneratorConfig{TotalSteps: 100, MaxTotalSteps: 1000}, nil)

	cases := []map[string]any{
		{"total_steps": 5000},
		{"total_steps": 0},
		{"total_steps": "many"},
		{"depth": 99},
		{"n": -1},
		{"colour": "red"},
	}
	for _, params := range cases {
		_, err := g.Start(context.Background(), StartRequest{Kind: "rose", Params: params})
		assert.ErrorIs(t, err, fractal.ErrInvalidOptions, "params %v", params)
	}
	assert.Equal(t, 0, g.registry.Len())
}

func TestStartAcceptsLooseParams(t *testing.T) {
	g, _ := newTestGenerator(t, GeneratorConfig{TotalSteps: 100, MaxTotalSteps: 1000}, nil)

	state, err := g.Start(context.Background(), StartRequest{
		Kind:   " Rose ",
		Params: map[string]any{"total_steps": "300", "n": 7.0, "d": "2", "a": "1.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, fractal.KindRose, state.Kind)
	assert.Equal(t, 300, state.Total)

	waitJob(t, g, state.ID)
	p, err := g.Progress(state.ID)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.Nil(t, p.Image, "no renderer, no image")
}

func TestRenderFailureKeepsPreviousImage(t *testing.T) {
	r := newFakeRenderer()
	r.failAt[300] = true
	g, _ := newTestGenerator(t, GeneratorConfig{TotalSteps: 300, Seed: 3}, r)
	sink := &recordSink{}
	g.SetHistory(sink)

	state, err := g.Start(context.Background(), StartRequest{Kind: "triangle"})
	require.NoError(t, err)
	waitJob(t, g, state.ID)

	p, err := g.Progress(state.ID)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.Equal(t, 300, p.Iteration)
	require.NotNil(t, p.Image)
	assert.Equal(t, dataURL("201"), *p.Image)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, model.GenerationCompleted, records[0].Status)
	assert.Equal(t, 4, records[0].Checkpoints)
	assert.Equal(t, 1, records[0].RenderFailures)
	assert.Equal(t, 300, records[0].Steps)
}

func TestHistoryAndNotifierReceiveCompletion(t *testing.T) {
	g, _ := newTestGenerator(t, GeneratorConfig{TotalSteps: 250}, nil)
	history, notifier := &recordSink{}, &recordSink{}
	g.SetHistory(history)
	g.SetNotifier(notifier)

	state, err := g.Start(context.Background(), StartRequest{Kind: "archimedean", CorrelationID: "corr-1"})
	require.NoError(t, err)
	waitJob(t, g, state.ID)

	for _, sink := range []*recordSink{history, notifier} {
		records := sink.all()
		require.Len(t, records, 1)
		rec := records[0]
		assert.Equal(t, state.ID, rec.JobID)
		assert.Equal(t, "archimedean", rec.Kind)
		assert.Equal(t, "corr-1", rec.CorrelationID)
		assert.Equal(t, model.GenerationCompleted, rec.Status)
		assert.Equal(t, 250, rec.TotalSteps)
		assert.Greater(t, rec.MaxRadius, 0.0)
		assert.False(t, rec.CompletedAt.Before(rec.StartedAt))
	}
}

func TestProgressUnknownJob(t *testing.T) {
	g, _ := newTestGenerator(t, GeneratorConfig{}, nil)

	_, err := g.Progress("circle_missing")
	assert.ErrorIs(t, err, model.ErrUnknownJob)
	assert.NoError(t, g.Wait(context.Background(), "circle_missing"))
}

type brokenRule struct {
	at    int
	panic bool
}

func (r brokenRule) Kind() fractal.Kind { return fractal.KindCircle }

func (r brokenRule) Step(i int) fractal.Point {
	if i == r.at {
		if r.panic {
			panic("bad step")
		}
		return fractal.Point{Point: curve.Pt(math.NaN(), 0)}
	}
	return fractal.Point{Point: curve.Pt(float64(i), 0)}
}

func runBroken(t *testing.T, rule fractal.Rule) (*Generator, model.JobState, error, []model.GenerationRecord) {
	t.Helper()
	g, _ := newTestGenerator(t, GeneratorConfig{}, newFakeRenderer())
	sink := &recordSink{}
	g.SetHistory(sink)

	state, err := g.registry.Create(rule.Kind(), 1000)
	require.NoError(t, err)
	policy, err := fractal.PolicyFor(rule.Kind())
	require.NoError(t, err)

	runErr := g.run(context.Background(), &job{
		state:  state,
		rule:   rule,
		policy: policy,
		buffer: fractal.NewBuffer(1000),
	})
	return g, state, runErr, sink.all()
}

func TestDegenerateStepAbandonsJob(t *testing.T) {
	g, state, err, records := runBroken(t, brokenRule{at: 3})
	assert.ErrorIs(t, err, fractal.ErrDegenerateStep)

	got, gerr := g.registry.Get(state.ID)
	require.NoError(t, gerr)
	assert.Equal(t, 1, got.Step, "only the step 0 checkpoint was published")
	assert.False(t, got.Done)

	require.Len(t, records, 1)
	assert.Equal(t, model.GenerationAbandoned, records[0].Status)
	assert.Equal(t, 3, records[0].Steps)
	assert.NotEmpty(t, records[0].Error)
}

func TestPanicAbandonsJob(t *testing.T) {
	_, _, err, records := runBroken(t, brokenRule{at: 2, panic: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad step")

	require.Len(t, records, 1)
	assert.Equal(t, model.GenerationAbandoned, records[0].Status)
	assert.Equal(t, 2, records[0].Steps)
}

func TestShutdownStopsPacedJob(t *testing.T) {
	g, sup := newTestGenerator(t, GeneratorConfig{TotalSteps: 10000, PacingDelay: time.Hour}, nil)
	sink := &recordSink{}
	g.SetHistory(sink)

	state, err := g.Start(context.Background(), StartRequest{Kind: "square"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, err := g.Progress(state.ID)
		return err == nil && p.Iteration == 1
	}, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sup.Stop(ctx))

	p, err := g.Progress(state.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Iteration)
	assert.False(t, p.Complete)
	assert.False(t, p.Running)

	records := sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, model.GenerationAbandoned, records[0].Status)

	_, err = g.Start(context.Background(), StartRequest{Kind: "square"})
	assert.ErrorIs(t, err, worker.ErrStopped)
}

func TestStartAfterShutdownAllocatesNothing(t *testing.T) {
	g, sup := newTestGenerator(t, GeneratorConfig{TotalSteps: 10}, nil)
	require.NoError(t, sup.Stop(context.Background()))

	_, err := g.Start(context.Background(), StartRequest{Kind: "fibonacci"})
	assert.ErrorIs(t, err, worker.ErrStopped)
	assert.Equal(t, 0, g.registry.Len())
}
