package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/assetgraph/pkg/cache"
	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.css")
	if err := os.WriteFile(path, []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	u, _ := urltools.FromPath(path)

	res, err := FileLoader{}.Load(context.Background(), u)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(res.Data) != "body{}" {
		t.Errorf("Data = %q", res.Data)
	}

	missing, _ := urltools.FromPath(filepath.Join(dir, "missing.css"))
	_, err = FileLoader{}.Load(context.Background(), missing)
	var le *agerrors.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("error = %v, want *LoadError", err)
	}

	dirURL, _ := urltools.FromPath(dir)
	if _, err := (FileLoader{}).Load(context.Background(), dirURL); err == nil {
		t.Error("loading a directory should fail")
	}
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		data    string
		ct      string
		charset string
	}{
		{"plain", "data:,hello%20world", "hello world", "text/plain", ""},
		{"typed", "data:text/css,body%7Bcolor:red%7D", "body{color:red}", "text/css", ""},
		{"base64", "data:image/svg+xml;base64,PHN2Zy8+", "<svg/>", "image/svg+xml", ""},
		{"charset", "data:text/html;charset=iso-8859-1,%E6", "\xe6", "text/html", "iso-8859-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseDataURL(tt.url)
			if err != nil {
				t.Fatalf("ParseDataURL() error: %v", err)
			}
			if string(res.Data) != tt.data || res.ContentType != tt.ct || res.Charset != tt.charset {
				t.Errorf("got %q %q %q", res.Data, res.ContentType, res.Charset)
			}
		})
	}

	if _, err := ParseDataURL("data:text/plain"); err == nil {
		t.Error("missing comma should fail")
	}
}

func TestDataURL(t *testing.T) {
	got := DataURL("text/plain", []byte("foo,bar quux,baz"))
	if got != "data:text/plain,foo,bar%20quux,baz" {
		t.Errorf("DataURL() = %q", got)
	}
	bin := DataURL("image/png", []byte{0x89, 'P', 'N', 'G'})
	res, err := ParseDataURL(bin)
	if err != nil || string(res.Data) != "\x89PNG" {
		t.Errorf("binary round trip = %q, %v", res.Data, err)
	}
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
			_, _ = w.Write([]byte("body{}"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.Client(), &HTTPOptions{Attempts: 1})
	res, err := l.Load(context.Background(), srv.URL+"/a.css")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(res.Data) != "body{}" || res.ContentType != "text/css" || res.Charset != "utf-8" {
		t.Errorf("got %q %q %q", res.Data, res.ContentType, res.Charset)
	}

	_, err = l.Load(context.Background(), srv.URL+"/missing.css")
	var le *agerrors.LoadError
	if !errors.As(err, &le) || le.Status != http.StatusNotFound {
		t.Errorf("error = %v, want LoadError with 404", err)
	}
}

func TestHTTPLoaderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.Client(), &HTTPOptions{Attempts: 3, Backoff: time.Millisecond})
	res, err := l.Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if string(res.Data) != "ok" || calls.Load() != 2 {
		t.Errorf("data=%q calls=%d", res.Data, calls.Load())
	}
}

func TestMuxUnsupportedScheme(t *testing.T) {
	m := NewMux()
	_, err := m.Load(context.Background(), "ftp://x/a")
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestCached(t *testing.T) {
	var calls atomic.Int32
	next := Func(func(ctx context.Context, url string) (*Resource, error) {
		calls.Add(1)
		return &Resource{Data: []byte("x"), ContentType: "text/plain"}, nil
	})
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	c, err := NewCached(next, backend, CacheOptions{Size: 4})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for range 3 {
		if _, err := c.Load(ctx, "http://x/a.txt"); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("next called %d times, want 1", calls.Load())
	}

	// A fresh memory tier still hits the persistent backend.
	c.Purge()
	res, err := c.Load(ctx, "http://x/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 || string(res.Data) != "x" || res.ContentType != "text/plain" {
		t.Errorf("calls=%d res=%+v", calls.Load(), res)
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil || calls != 1 {
		t.Errorf("non-retryable: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: ErrNetwork}
	})
	if !errors.Is(err, ErrNetwork) || calls != 3 {
		t.Errorf("retryable: err=%v calls=%d", err, calls)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err = Retry(cctx, 3, time.Second, func() error {
		return &RetryableError{Err: ErrNetwork}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: err=%v", err)
	}
}

func TestPrefetch(t *testing.T) {
	var inflight, peak atomic.Int32
	l := Func(func(ctx context.Context, url string) (*Resource, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if url == "http://x/bad" {
			return nil, &agerrors.LoadError{URL: url, Status: 404, Message: "Not Found"}
		}
		return &Resource{Data: []byte(url)}, nil
	})

	urls := []string{"http://x/a", "http://x/b", "http://x/bad", "http://x/c", "http://x/d"}
	n, err := Prefetch(context.Background(), l, urls, 2)
	if n != 4 {
		t.Errorf("loaded = %d, want 4", n)
	}
	var le *agerrors.LoadError
	if !errors.As(err, &le) || le.URL != "http://x/bad" {
		t.Errorf("error = %v, want the failed load", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", p)
	}
}

func TestPrefetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := Func(func(ctx context.Context, url string) (*Resource, error) {
		return nil, ctx.Err()
	})
	if _, err := Prefetch(ctx, l, []string{"http://x/a"}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
