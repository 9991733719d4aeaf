package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobharvest/internal/model"
	"github.com/amishk599/jobharvest/internal/output"
)

// --- Mock implementations ---

// fakeSource returns canned records after an optional delay and tracks
// concurrency through a shared gauge.
type fakeSource struct {
	name   string
	ids    []string
	delay  time.Duration
	reason model.StopReason
	err    error
	runErr error
	calls  atomic.Int32
	gauge  *gauge
}

type gauge struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (g *gauge) enter() {
	g.mu.Lock()
	g.current++
	g.peak = max(g.peak, g.current)
	g.mu.Unlock()
}

func (g *gauge) leave() {
	g.mu.Lock()
	g.current--
	g.mu.Unlock()
}

func (f *fakeSource) Collect(ctx context.Context) (model.SiteResult, error) {
	f.calls.Add(1)
	if f.gauge != nil {
		f.gauge.enter()
		defer f.gauge.leave()
	}
	select {
	case <-ctx.Done():
	case <-time.After(f.delay):
	}
	res := model.SiteResult{Site: f.name, Reason: f.reason, Err: f.err}
	for _, id := range f.ids {
		res.Records = append(res.Records, model.NewRecord(model.OutputSchema, map[string]string{
			model.FieldSourceSite: f.name,
			model.FieldJobID:      id,
			model.FieldTitle:      "Puesto " + id,
		}))
	}
	return res, f.runErr
}

type recordingRecorder struct {
	runs []model.RunRecord
}

func (r *recordingRecorder) RecordRun(run model.RunRecord) error {
	r.runs = append(r.runs, run)
	return nil
}

type countingCleaner struct {
	calls atomic.Int32
}

func (c *countingCleaner) Cleanup(_ time.Duration) error {
	c.calls.Add(1)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestRunOnce_MergesInConfiguredOrder(t *testing.T) {
	dir := t.TempDir()
	// The first site finishes last; its records must still come first.
	sources := []model.RecordSource{
		&fakeSource{name: "elempleo", ids: []string{"e1", "e2"}, delay: 80 * time.Millisecond},
		&fakeSource{name: "computrabajo", ids: []string{"c1"}},
		&fakeSource{name: "indeed", ids: []string{"i1"}, delay: 20 * time.Millisecond},
	}
	recorder := &recordingRecorder{}
	cleaner := &countingCleaner{}
	s := NewScheduler(sources, Config{
		Concurrency: 3,
		OutputPath:  filepath.Join(dir, "costarica_jobs_{timestamp}.csv"),
		Retention:   time.Hour,
	}, recorder, cleaner, discardLogger())
	s.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	want := filepath.Join(dir, "costarica_jobs_20261016_080000.csv")
	assert.Equal(t, want, report.Run.OutputPath)
	assert.Equal(t, 4, report.Run.Records)
	assert.Equal(t, 0, report.Run.Failed)
	assert.NotEmpty(t, report.Run.ID)

	_, rows, err := output.ReadFile(want)
	require.NoError(t, err)
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.Get(model.FieldJobID))
	}
	assert.Equal(t, []string{"e1", "e2", "c1", "i1"}, ids)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, report.Run.ID, recorder.runs[0].ID)
	assert.EqualValues(t, 1, cleaner.calls.Load())
	assert.Equal(t, 4, report.Coverage.Total)
}

func TestRunOnce_RespectsConcurrencyLimit(t *testing.T) {
	g := &gauge{}
	var sources []model.RecordSource
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		sources = append(sources, &fakeSource{name: name, delay: 30 * time.Millisecond, gauge: g})
	}
	s := NewScheduler(sources, Config{Concurrency: 2}, nil, nil, discardLogger())

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, g.peak, 2)
	assert.Equal(t, 2, g.peak)
}

func TestRunOnce_FailingSiteDoesNotStopOthers(t *testing.T) {
	dir := t.TempDir()
	failing := &fakeSource{name: "indeed", reason: model.StopNavigationFailed, err: errors.New("HTTP 403")}
	partial := &fakeSource{name: "jooble", ids: []string{"j1"}, reason: model.StopStepFailed}
	broken := &fakeSource{name: "elempleo", ids: []string{"e1"}, runErr: errors.New("store locked")}
	healthy := &fakeSource{name: "computrabajo", ids: []string{"c1", "c2"}}

	s := NewScheduler([]model.RecordSource{failing, partial, broken, healthy},
		Config{Concurrency: 1, OutputPath: filepath.Join(dir, "out.csv")}, nil, nil, discardLogger())

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Run.Failed)
	assert.Equal(t, 4, report.Run.Records)
	assert.EqualValues(t, 1, healthy.calls.Load())
}

func TestRunOnce_WriteErrorIsReturned(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, writeFile(blocker))

	s := NewScheduler([]model.RecordSource{&fakeSource{name: "a", ids: []string{"1"}}},
		Config{OutputPath: filepath.Join(blocker, "out.csv")}, nil, nil, discardLogger())

	report, err := s.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Empty(t, report.Run.OutputPath)
}

func TestRun_CancelReturnsPromptly(t *testing.T) {
	src := &fakeSource{name: "a"}
	s := NewScheduler([]model.RecordSource{src}, Config{Interval: time.Hour}, nil, nil, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
}

func TestRun_RepeatsOnInterval(t *testing.T) {
	src := &fakeSource{name: "a"}
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler([]model.RecordSource{src}, Config{Interval: 100 * time.Millisecond}, nil, nil, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	// Allow time for at least two full passes (run → wait interval → run).
	time.Sleep(250 * time.Millisecond)
	cancel()
	<-done

	if got := src.calls.Load(); got < 2 {
		t.Errorf("source calls = %d, want >= 2", got)
	}
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}
