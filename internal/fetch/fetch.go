// Package fetch provides the retrying HTTP executor shared by the metadata
// and backend clients. Each attempt races the request against a fixed
// timeout; failed attempts are retried with a linearly increasing delay.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Config holds configuration for a Fetcher.
type Config struct {
	// Timeout bounds each individual attempt, not the whole call.
	Timeout time.Duration
	// MaxRetries is the total number of attempts, not the number of
	// retries after the first.
	MaxRetries int
	// BaseDelay is multiplied by the attempt number to get the wait
	// before the next attempt.
	BaseDelay         time.Duration
	UserAgent         string
	AuthToken         string
	RequestsPerSecond float64
	Debug             bool
	Logger            *slog.Logger
}

// DefaultConfig returns the defaults used by the metadata client.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		UserAgent:  "showdeck/1.0",
	}
}

// Request describes one logical outbound call.
type Request struct {
	Method string
	URL    string
	Query  map[string]string
	Header map[string]string
	Body   any
	// Out, when non-nil, receives the JSON-decoded response body.
	Out any
}

// StatusError reports a non-2xx response after retries were exhausted.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s for %s", e.Code, http.StatusText(e.Code), e.URL)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Fetcher executes requests with bounded retries. Resty's built-in retry
// stays disabled; the loop lives here so the policy can be exercised in
// tests with a fake sleep.
type Fetcher struct {
	resty      *resty.Client
	maxRetries int
	baseDelay  time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher from cfg, filling in defaults for zero values.
func New(cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json")

	if cfg.AuthToken != "" {
		client.SetAuthToken(cfg.AuthToken)
	}

	f := &Fetcher{
		resty:      client,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		logger:     cfg.Logger,
		sleep:      sleepContext,
	}

	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	if cfg.Debug {
		client.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
			cfg.Logger.Debug("http response",
				"method", r.Request.Method,
				"url", r.Request.URL,
				"status", r.StatusCode(),
				"time", r.Time(),
			)
			return nil
		})
	}

	return f
}

// MaxRetries returns the configured attempt bound.
func (f *Fetcher) MaxRetries() int {
	return f.maxRetries
}

// SetSleep overrides the backoff sleeper. Intended for tests.
func (f *Fetcher) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	f.sleep = sleep
}

// GetJSON issues a GET for url and decodes the response into out.
func (f *Fetcher) GetJSON(ctx context.Context, url string, query map[string]string, out any) error {
	_, err := f.Do(ctx, Request{Method: http.MethodGet, URL: url, Query: query, Out: out})
	return err
}

// Do executes req with up to MaxRetries attempts. A transport error or a
// non-2xx status both count as failed attempts; the last failure is
// returned once the budget is spent. Context cancellation aborts the loop
// between attempts.
func (f *Fetcher) Do(ctx context.Context, req Request) (*resty.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := f.attempt(ctx, method, req)
		if err == nil {
			if req.Out != nil {
				if uErr := json.Unmarshal(resp.Body(), req.Out); uErr != nil {
					return resp, fmt.Errorf("failed to decode response from %s: %w", req.URL, uErr)
				}
			}
			return resp, nil
		}
		lastErr = err

		if attempt < f.maxRetries {
			delay := f.baseDelay * time.Duration(attempt)
			f.logger.Warn("request failed, retrying",
				"method", method,
				"url", req.URL,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
			if sErr := f.sleep(ctx, delay); sErr != nil {
				return nil, sErr
			}
		}
	}

	return nil, fmt.Errorf("%s %s failed after %d attempts: %w", method, req.URL, f.maxRetries, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, method string, req Request) (*resty.Response, error) {
	r := f.resty.R().SetContext(ctx)
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	for k, v := range req.Header {
		r.SetHeader(k, v)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(method, req.URL)
	if err != nil {
		return nil, fmt.Errorf("%s request failed for %s: %w", method, req.URL, err)
	}
	if !resp.IsSuccess() {
		return resp, &StatusError{Code: resp.StatusCode(), URL: req.URL}
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
