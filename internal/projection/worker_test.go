package projection

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewProjectionWorker(t *testing.T) {
	ch := make(chan ProjectionOutput)
	pw := NewProjectionWorker(nil, ch, zerolog.Nop())
	if pw == nil {
		t.Fatal("NewProjectionWorker returned nil")
	}
	if pw.inputChan == nil {
		t.Error("input channel not wired")
	}
	if pw.lastSeq != 0 {
		t.Errorf("fresh worker last sequence = %d, want 0", pw.lastSeq)
	}
}

func TestRunReturnsOnClosedChannel(t *testing.T) {
	ch := make(chan ProjectionOutput)
	close(ch)

	pw := NewProjectionWorker(nil, ch, zerolog.Nop())
	if err := pw.Run(context.Background()); err != nil {
		t.Fatalf("Run on closed channel: %v", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	ch := make(chan ProjectionOutput)
	pw := NewProjectionWorker(nil, ch, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pw.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
