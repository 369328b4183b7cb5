package observability

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingLoadHooks struct {
	starts    atomic.Int32
	completes atomic.Int32
}

func (h *countingLoadHooks) OnLoadStart(context.Context, string) { h.starts.Add(1) }
func (h *countingLoadHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
	h.completes.Add(1)
}

func TestSetLoadHooks(t *testing.T) {
	defer Reset()

	h := &countingLoadHooks{}
	SetLoadHooks(h)

	Load().OnLoadStart(context.Background(), "http://x/")
	Load().OnLoadComplete(context.Background(), "http://x/", 10, time.Millisecond, nil)

	if h.starts.Load() != 1 || h.completes.Load() != 1 {
		t.Errorf("starts=%d completes=%d, want 1/1", h.starts.Load(), h.completes.Load())
	}
}

func TestSetNilKeepsDefault(t *testing.T) {
	defer Reset()

	SetPopulateHooks(nil)
	SetCacheHooks(nil)
	if _, ok := Populate().(NoopPopulateHooks); !ok {
		t.Error("nil populate hooks replaced the default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("nil cache hooks replaced the default")
	}
}

func TestReset(t *testing.T) {
	SetLoadHooks(&countingLoadHooks{})
	Reset()
	if _, ok := Load().(NoopLoadHooks); !ok {
		t.Error("Reset did not restore the no-op load hooks")
	}
}
