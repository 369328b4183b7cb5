package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinnerStop(t *testing.T) {
	s := newSpinner("Testing...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent

	// Stop cancels the spinner context.
	if !s.Cancelled() {
		t.Error("Cancelled() = false after Stop")
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerSetMessage(t *testing.T) {
	s := newSpinner("Populating...")
	s.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 20 {
			s.SetMessage("Populating... " + string(rune('a'+i)))
			time.Sleep(5 * time.Millisecond)
		}
	}()
	<-done
	s.StopWithSuccess("Populated")

	if s.message != "Populating... t" {
		t.Errorf("message = %q", s.message)
	}
}

func TestSpinnerStopWithError(t *testing.T) {
	s := newSpinner("Populating...")
	s.Start()
	s.StopWithError("Populate failed")
	s.StopWithError("Populate failed") // idempotent

	if !s.Cancelled() {
		t.Error("Cancelled() = false after StopWithError")
	}
}
