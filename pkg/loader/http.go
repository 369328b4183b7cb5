package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
)

// ErrNetwork marks transport-level failures (connection errors, 5xx).
var ErrNetwork = errors.New("network error")

// HTTPOptions configures an [HTTPLoader].
type HTTPOptions struct {
	// Attempts is the number of tries for transient failures (default 3).
	Attempts int
	// Backoff is the initial retry delay, doubled after each attempt (default 1s).
	Backoff time.Duration
	// Headers are sent with every request.
	Headers map[string]string
	// MaxBytes caps the size of a response body (default 32 MiB).
	MaxBytes int64
}

// HTTPLoader loads http: and https: URLs.
type HTTPLoader struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPLoader creates an HTTPLoader. A nil client gets a 30 second timeout.
func NewHTTPLoader(client *http.Client, opts *HTTPOptions) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	o := HTTPOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 32 << 20
	}
	return &HTTPLoader{client: client, opts: o}
}

// Load performs a GET request, retrying transient failures.
func (l *HTTPLoader) Load(ctx context.Context, url string) (*Resource, error) {
	var res *Resource
	err := Retry(ctx, l.opts.Attempts, l.opts.Backoff, func() error {
		var err error
		res, err = l.do(ctx, url)
		return err
	})
	if err == nil {
		return res, nil
	}

	var le *agerrors.LoadError
	if errors.As(err, &le) {
		return nil, le
	}
	return nil, &agerrors.LoadError{URL: url, Message: "request failed", Cause: err}
}

func (l *HTTPLoader) do(ctx context.Context, url string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &agerrors.LoadError{URL: url, Message: "invalid request", Cause: err}
	}
	for k, v := range l.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: &agerrors.LoadError{URL: url, Message: "network error", Cause: fmt.Errorf("%w: %v", ErrNetwork, err)}}
	}
	defer resp.Body.Close()

	if err := checkStatus(url, resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.opts.MaxBytes+1))
	if err != nil {
		return nil, &RetryableError{Err: &agerrors.LoadError{URL: url, Message: "read body", Cause: err}}
	}
	if int64(len(data)) > l.opts.MaxBytes {
		return nil, &agerrors.LoadError{URL: url, Message: fmt.Sprintf("response exceeds %d bytes", l.opts.MaxBytes)}
	}

	res := &Resource{Data: data}
	if final := resp.Request.URL.String(); final != url {
		res.URL = final
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, params, err := mime.ParseMediaType(ct); err == nil {
			res.ContentType = mt
			res.Charset = params["charset"]
		}
	}
	return res, nil
}

func checkStatus(url string, resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500 || code == http.StatusTooManyRequests:
		return &RetryableError{Err: &agerrors.LoadError{URL: url, Status: code, Message: http.StatusText(code), Cause: ErrNetwork}}
	default:
		return &agerrors.LoadError{URL: url, Status: code, Message: http.StatusText(code)}
	}
}
