package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestCronSchedulerRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("every hour please")
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestCronSchedulerRunOnStart(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Geneva")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	triggered := make(chan time.Time, 1)
	s := NewCronScheduler("0 * * * *", WithLocation(loc), WithRunOnStart(true))
	if err := s.Start(context.Background(), func(at time.Time) { triggered <- at }); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	select {
	case at := <-triggered:
		if at.Location() != loc {
			t.Fatalf("expected trigger in %s, got %s", loc, at.Location())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewCronScheduler("@every 1h")
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		stopped := s.cron == nil
		s.mu.Unlock()
		if stopped {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduler still running after context cancel")
}

func TestSlogAdapterLogsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := slogAdapter{logger: slog.New(slog.NewTextHandler(&buf, nil))}
	adapter.Error(errors.New("panic"), "job failed", "entry", 1)

	if !bytes.Contains(buf.Bytes(), []byte("cron: job failed")) || !bytes.Contains(buf.Bytes(), []byte("error=panic")) {
		t.Fatalf("unexpected log output: %s", buf.String())
	}
}

func TestCronSchedulerSkipsTicksDuringStartupRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	release := make(chan struct{})
	s := NewCronScheduler("@every 1s", WithRunOnStart(true))
	err := s.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		<-release
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// At least two ticks fire while the start-up run is blocked.
	time.Sleep(2200 * time.Millisecond)
	got := runs.Load()
	close(release)
	_ = s.Stop(context.Background())

	if got != 1 {
		t.Fatalf("expected only the start-up run while it is busy, got %d runs", got)
	}
}
