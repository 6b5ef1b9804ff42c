package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/hurricane-hunter/internal/observability"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 16 << 20

// FailureKind classifies a failed upstream fetch.
type FailureKind string

const (
	KindTransport   FailureKind = "transport"
	KindTimeout     FailureKind = "timeout"
	KindStatus      FailureKind = "status"
	KindDecode      FailureKind = "decode"
	KindShape       FailureKind = "shape"
	KindCircuitOpen FailureKind = "circuit_open"
	KindRateLimited FailureKind = "rate_limited"
)

// FetchError is the only error type returned by Fetcher.
type FetchError struct {
	Kind       FailureKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetcherConfig bundles the HTTP client and resilience settings of a Fetcher.
type FetcherConfig struct {
	// Source labels logs and metrics, e.g. "windborne".
	Source  string
	Client  *http.Client
	Timeout time.Duration
	// Headers are set on every request. A 403 is reported as a rejected
	// identification when any are configured.
	Headers map[string]string
	// Limiter is shared across sources; nil disables rate limiting.
	Limiter *rate.Limiter
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Fetcher performs single-attempt, time-bounded GETs of JSON documents.
// Every URL gets its own circuit breaker so a persistently failing endpoint
// is skipped quickly without affecting the others.
type Fetcher struct {
	source  string
	client  *http.Client
	timeout time.Duration
	headers map[string]string
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		source:   cfg.Source,
		client:   cfg.Client,
		timeout:  cfg.Timeout,
		headers:  cfg.Headers,
		limiter:  cfg.Limiter,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.metrics == nil {
		f.metrics = observability.NewMetricsForTesting()
	}
	return f
}

// FetchJSON GETs url and returns its body if it is well-formed JSON.
// Any failure is logged and returned as a *FetchError; nothing is retried.
func (f *Fetcher) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	start := time.Now()
	body, ferr := f.fetch(ctx, url)
	f.metrics.UpstreamDuration.WithLabelValues(f.source).Observe(time.Since(start).Seconds())

	if ferr != nil {
		f.metrics.UpstreamRequests.WithLabelValues(f.source, string(ferr.Kind)).Inc()
		f.logFailure(ferr)
		return nil, ferr
	}

	f.metrics.UpstreamRequests.WithLabelValues(f.source, "success").Inc()
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (json.RawMessage, *FetchError) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Kind: KindRateLimited, URL: url, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, URL: url, Err: err}
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	result, err := f.breaker(url).Execute(func() (interface{}, error) {
		resp, execErr := f.client.Do(req)
		if execErr != nil {
			return nil, transportError(url, execErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &FetchError{Kind: KindStatus, URL: url, StatusCode: resp.StatusCode}
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, transportError(url, readErr)
		}
		return body, nil
	})

	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &FetchError{Kind: KindCircuitOpen, URL: url, Err: err}
		}
		return nil, &FetchError{Kind: KindTransport, URL: url, Err: err}
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, &FetchError{Kind: KindTransport, URL: url, Err: errors.New("unexpected result type from circuit breaker")}
	}
	if !json.Valid(body) {
		return nil, &FetchError{Kind: KindDecode, URL: url, Err: errors.New("response body is not valid JSON")}
	}
	return body, nil
}

func (f *Fetcher) breaker(name string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[name]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
			OnStateChange: func(name string, from, to gobreaker.State) {
				f.logger.Info("circuit breaker state changed", "source", f.source, "url", name, "from", from.String(), "to", to.String())
			},
		})
		f.breakers[name] = cb
	}
	return cb
}

func (f *Fetcher) logFailure(e *FetchError) {
	switch {
	case e.Kind == KindStatus && e.StatusCode == http.StatusForbidden && len(f.headers) > 0:
		f.logger.Warn("upstream rejected request; check User-Agent header", "source", f.source, "url", e.URL, "status", e.StatusCode)
	case e.Kind == KindStatus:
		f.logger.Warn("upstream returned error status", "source", f.source, "url", e.URL, "status", e.StatusCode)
	default:
		f.logger.Warn("upstream fetch failed", "source", f.source, "url", e.URL, "kind", string(e.Kind), "error", e.Err)
	}
}

func transportError(url string, err error) *FetchError {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}
