package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}

	t.Run("miss", func(t *testing.T) {
		_, hit, err := c.Get(ctx, "missing")
		if err != nil || hit {
			t.Errorf("Get() = %v, %v; want miss", hit, err)
		}
	})

	t.Run("setGet", func(t *testing.T) {
		if err := c.Set(ctx, "k", []byte("body{}"), time.Hour); err != nil {
			t.Fatalf("Set: %v", err)
		}
		data, hit, err := c.Get(ctx, "k")
		if err != nil || !hit || string(data) != "body{}" {
			t.Errorf("Get() = %q, %v, %v", data, hit, err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		if err := c.Set(ctx, "short", []byte("x"), time.Millisecond); err != nil {
			t.Fatalf("Set: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		if _, hit, _ := c.Get(ctx, "short"); hit {
			t.Error("expired entry returned as hit")
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		path := c.path("bad")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
			t.Errorf("corrupt entry: hit=%v err=%v", hit, err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		_ = c.Set(ctx, "a", []byte("1"), 0)
		_ = c.Set(ctx, "b", []byte("2"), 0)
		n, err := c.Clear()
		if err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if n < 2 {
			t.Errorf("Clear() removed %d entries, want at least 2", n)
		}
		if _, hit, _ := c.Get(ctx, "a"); hit {
			t.Error("entry survived Clear")
		}
	})
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	a := k.ResourceKey("http://x/a.css")
	if a != k.ResourceKey("http://x/a.css") {
		t.Error("ResourceKey should be deterministic")
	}
	if a == k.ResourceKey("http://x/b.css") {
		t.Error("different urls should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "site:1:")

	key := scoped.ResourceKey("http://x/a.css")
	if key != "site:1:"+inner.ResourceKey("http://x/a.css") {
		t.Errorf("ScopedKeyer ResourceKey unexpected: %s", key)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ResourceKey("u")
	if key != "prefix:"+NewDefaultKeyer().ResourceKey("u") {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}
