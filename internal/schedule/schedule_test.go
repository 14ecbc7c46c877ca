package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "default", spec: ""},
		{name: "descriptor", spec: "@daily"},
		{name: "every", spec: "@every 6h"},
		{name: "five fields", spec: "0 6 * * *"},
		{name: "garbage", spec: "every morning", wantErr: true},
		{name: "six fields", spec: "0 0 6 * * *", wantErr: true},
	}

	noop := func(context.Context) error { return nil }
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, noop, false)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestScheduler_Next(t *testing.T) {
	s, err := New("@daily", func(context.Context) error { return nil }, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	from := time.Date(2025, 8, 13, 6, 30, 0, 0, time.UTC)
	want := time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("Next() = %v, want %v", got, want)
	}
}

func TestScheduler_RunAtStart(t *testing.T) {
	var runs int32
	done := make(chan struct{}, 1)
	s, err := New("@yearly", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		done <- struct{}{}
		return errors.New("source unavailable")
	}, true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run at start never happened")
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	var runs int32
	release := make(chan struct{})
	started := make(chan struct{}, 10)

	s, err := New("@every 1s", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		started <- struct{}{}
		<-release
		return nil
	}, true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	<-started
	// Let at least two ticks pass while the first run is blocked
	time.Sleep(2500 * time.Millisecond)
	if n := atomic.LoadInt32(&runs); n != 1 {
		t.Errorf("runs while blocked = %d, want 1", n)
	}

	cancel()
	close(release)
	if err := <-errCh; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestScheduler_StopWaitsForRunningJob(t *testing.T) {
	var finished int32
	started := make(chan struct{})

	s, err := New("@yearly", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return ctx.Err()
	}, true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	<-started
	cancel()
	<-errCh

	if atomic.LoadInt32(&finished) != 1 {
		t.Error("Run() returned before the running job finished")
	}
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"entry", 1, "now", "t", "dangling"})
	if len(f) != 2 || f["entry"] != 1 || f["now"] != "t" {
		t.Errorf("fields() = %v", f)
	}
}
