package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type cycleRunnerStub struct {
	called  bool
	today   time.Time
	summary *CycleSummary
	err     error
}

func (s *cycleRunnerStub) RunDailyCycle(ctx context.Context, today time.Time) (*CycleSummary, error) {
	s.called = true
	s.today = today
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func newTestJobs(engine CycleRunner) *Jobs {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(engine, logger, time.UTC)
}

func TestRunDailyCycle_InvokesEngine(t *testing.T) {
	runner := &cycleRunnerStub{summary: &CycleSummary{Generated: 2, NotificationsSent: 2}}
	jobs := newTestJobs(runner)

	jobs.RunDailyCycle()

	if !runner.called {
		t.Fatal("expected the job to invoke the engine")
	}
	if runner.today.IsZero() {
		t.Fatal("expected the job to pass the current date")
	}
}

func TestRunDailyCycle_SurvivesEngineFailure(t *testing.T) {
	runner := &cycleRunnerStub{err: errors.New("db unavailable")}
	jobs := newTestJobs(runner)

	// Must not panic; the failure is logged and the next run retries.
	jobs.RunDailyCycle()

	if !runner.called {
		t.Fatal("expected the job to invoke the engine")
	}
}

func TestRunDailyCycle_ReportsPartialFailures(t *testing.T) {
	runner := &cycleRunnerStub{summary: &CycleSummary{
		Generated: 1,
		Errors:    []string{"lease l2: store unavailable"},
	}}
	jobs := newTestJobs(runner)

	jobs.RunDailyCycle()

	if !runner.called {
		t.Fatal("expected the job to invoke the engine")
	}
}
