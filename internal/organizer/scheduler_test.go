package organizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediasort/internal/logging"
)

type processorFunc func(ctx context.Context, path string) Outcome

func (f processorFunc) Process(ctx context.Context, path string) Outcome {
	return f(ctx, path)
}

type recordingObserver struct {
	mu         sync.Mutex
	dispatched []int
	settled    map[int]int
}

func (r *recordingObserver) OnDispatch(index int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatched = append(r.dispatched, index)
}

func (r *recordingObserver) OnSettle(index int, _ Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled == nil {
		r.settled = make(map[int]int)
	}
	r.settled[index]++
}

func fileList(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("/in/IMG_%04d.JPG", i)
	}
	return files
}

func classify(path string) Outcome {
	return Outcome{Kind: OutcomeClassified, Source: path, Bucket: Bucket{2021, 7}}
}

func TestSchedulerBoundsConcurrency(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32
	processor := processorFunc(func(_ context.Context, path string) Outcome {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return classify(path)
	})

	var ticks atomic.Int32
	scheduler := NewScheduler(processor, Options{Concurrency: limit}, ProgressFunc(func() { ticks.Add(1) }), logging.NewNop())
	summary := scheduler.Run(context.Background(), fileList(20))

	if got := peak.Load(); got > limit || got < 1 {
		t.Fatalf("peak concurrency %d outside [1, %d]", got, limit)
	}
	if summary.Classified != 20 || summary.Total != 20 || summary.Settled() != 20 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if ticks.Load() != 20 {
		t.Fatalf("expected 20 progress ticks, got %d", ticks.Load())
	}
}

func TestSchedulerSettlesEveryFileOnceInDispatchOrder(t *testing.T) {
	files := fileList(25)
	processor := processorFunc(func(_ context.Context, path string) Outcome {
		switch path[len(path)-5] {
		case '3':
			return Outcome{Kind: OutcomeQuarantined, Source: path, Reason: ReasonClassificationFailed, Renamed: true}
		case '7':
			return Outcome{Kind: OutcomeFatal, Source: path, Err: errors.New("eio")}
		default:
			return classify(path)
		}
	})
	observer := &recordingObserver{}
	scheduler := NewScheduler(processor, Options{Concurrency: 4, FatalPolicy: "continue"}, nil, logging.NewNop(), observer)

	summary := scheduler.Run(context.Background(), files)

	for i, index := range observer.dispatched {
		if index != i {
			t.Fatalf("dispatch order %v is not input order", observer.dispatched)
		}
	}
	if len(observer.dispatched) != len(files) {
		t.Fatalf("dispatched %d of %d files", len(observer.dispatched), len(files))
	}
	for i := range files {
		if observer.settled[i] != 1 {
			t.Fatalf("file %d settled %d times", i, observer.settled[i])
		}
		if summary.Outcomes[i].Source != files[i] {
			t.Fatalf("outcome %d belongs to %s", i, summary.Outcomes[i].Source)
		}
	}
	// Among 0..24, indices 3, 13 and 23 quarantine; 7 and 17 are fatal.
	if summary.Quarantined != 3 || summary.Fatal != 2 || summary.Classified != 20 || summary.Renamed != 3 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.Aborted || summary.Canceled {
		t.Fatal("continue policy must not stop the run")
	}
	if len(summary.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", summary.Errors())
	}
}

func TestSchedulerAbortPolicy(t *testing.T) {
	files := fileList(6)
	var calls atomic.Int32
	processor := processorFunc(func(_ context.Context, path string) Outcome {
		calls.Add(1)
		if path == files[1] {
			return Outcome{Kind: OutcomeFatal, Source: path, Err: errors.New("read-only file system")}
		}
		return classify(path)
	})

	var ticks atomic.Int32
	scheduler := NewScheduler(processor, Options{Concurrency: 1, FatalPolicy: "abort"}, ProgressFunc(func() { ticks.Add(1) }), logging.NewNop())
	summary := scheduler.Run(context.Background(), files)

	if !summary.Aborted || summary.Canceled {
		t.Fatalf("expected aborted run, got %+v", summary)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected dispatch to stop after the fatal file, processed %d", calls.Load())
	}
	if summary.Classified != 1 || summary.Fatal != 1 || summary.Skipped != 4 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	for _, outcome := range summary.Outcomes[2:] {
		if outcome.Kind != OutcomeSkipped || !errors.Is(outcome.Err, errRunAborted) {
			t.Fatalf("expected aborted skip, got %+v", outcome)
		}
	}
	if ticks.Load() != 2 {
		t.Fatalf("skipped files must not tick progress, got %d ticks", ticks.Load())
	}
}

func TestSchedulerCancellationStopsDispatch(t *testing.T) {
	files := fileList(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := processorFunc(func(ctx context.Context, path string) Outcome {
		if path == files[2] {
			cancel()
		}
		return classify(path)
	})
	summary := NewScheduler(processor, Options{Concurrency: 1}, nil, logging.NewNop()).Run(ctx, files)

	if !summary.Canceled || summary.Aborted {
		t.Fatalf("expected canceled run, got %+v", summary)
	}
	if summary.Classified != 3 || summary.Skipped != 7 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	for i, outcome := range summary.Outcomes {
		if outcome.Source != files[i] {
			t.Fatalf("outcome %d has source %s", i, outcome.Source)
		}
	}
}

func TestSchedulerAlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := processorFunc(func(context.Context, string) Outcome {
		t.Fatal("processor must not run")
		return Outcome{}
	})
	summary := NewScheduler(processor, Options{Concurrency: 2}, nil, logging.NewNop()).Run(ctx, fileList(4))
	if summary.Skipped != 4 || !summary.Canceled {
		t.Fatalf("expected all files skipped, got %+v", summary)
	}
}

func TestSchedulerEmptyInput(t *testing.T) {
	summary := NewScheduler(processorFunc(func(context.Context, string) Outcome {
		t.Fatal("processor must not run")
		return Outcome{}
	}), Options{}, nil, logging.NewNop()).Run(context.Background(), nil)
	if summary.Total != 0 || summary.Settled() != 0 || summary.Canceled || summary.Aborted {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
