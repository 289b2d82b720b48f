package processing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoolRunsTasks(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan struct{}, 3)
	handler := asynq.HandlerFunc(func(_ context.Context, task *asynq.Task) error {
		mu.Lock()
		seen[task.Type()]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p := New(handler, 2, quietLogger())
	p.Start(ctx)

	for _, typ := range []string{"a", "b", "a"} {
		if err := p.Enqueue(ctx, asynq.NewTask(typ, nil)); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", typ, err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	cancel()
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if seen["a"] != 2 || seen["b"] != 1 {
		t.Errorf("seen = %v", seen)
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	p := New(asynq.HandlerFunc(func(context.Context, *asynq.Task) error { return nil }), 1, quietLogger())
	// not started, so nothing drains the buffer
	for i := 0; i < 4; i++ {
		if err := p.Enqueue(context.Background(), asynq.NewTask("fill", nil)); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	if err := p.Enqueue(context.Background(), asynq.NewTask("overflow", nil)); err == nil {
		t.Fatal("expected queue full error")
	}
}

func TestPoolSurvivesFailingAndPanickingHandlers(t *testing.T) {
	done := make(chan string, 3)
	handler := asynq.HandlerFunc(func(_ context.Context, task *asynq.Task) error {
		defer func() { done <- task.Type() }()
		switch task.Type() {
		case "fail":
			return errors.New("boom")
		case "panic":
			panic("boom")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	p := New(handler, 1, quietLogger())
	p.Start(ctx)
	for _, typ := range []string{"fail", "panic", "ok"} {
		if err := p.Enqueue(ctx, asynq.NewTask(typ, nil)); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", typ, err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after a failing task")
		}
	}
	cancel()
	p.Wait()
}
