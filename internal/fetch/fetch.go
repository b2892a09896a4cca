// Copyright © 2026 PokeSearch Authors.
// SPDX-License-Identifier: Apache-2.0

// Package fetch issues rate-gated, retrying GETs against the upstream
// creature-data API and classifies failures into a small typed taxonomy.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/pokesearch/pokectl/internal/rategate"
	"github.com/pokesearch/pokectl/internal/version"
)

const (
	// DefaultRetries is the number of attempts before giving up.
	DefaultRetries = 5
	// DefaultBackoff is the base backoff; attempt i sleeps base<<i.
	DefaultBackoff = 300 * time.Millisecond
	// MaxBackoff caps a single backoff sleep.
	MaxBackoff = 5 * time.Second

	connectTimeout = 5 * time.Second
	readTimeout    = 30 * time.Second
)

// NetworkError means no usable response was received after all retries.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure for %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError means the upstream kept answering with an error status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Fetcher wraps an http.Client behind a rate gate. Construct with New and
// share one instance; the request counter and gate are per-instance.
type Fetcher struct {
	gate     *rategate.Gate
	client   *http.Client
	retries  int
	backoff  time.Duration
	requests atomic.Int64

	// sleep is swappable for tests.
	sleep func(context.Context, time.Duration) error
}

func New(gate *rategate.Gate) *Fetcher {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Fetcher{
		gate: gate,
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		retries: DefaultRetries,
		backoff: DefaultBackoff,
		sleep:   sleepCtx,
	}
}

// Requests returns a best-effort count of HTTP requests issued, retries
// included. Observability only; not part of any contract.
func (f *Fetcher) Requests() int64 {
	return f.requests.Load()
}

// Fetch GETs url and returns the body. Each network attempt is admitted
// through the rate gate first. Retryable failures (connection errors and
// 429/500/502/503/504) back off exponentially; exhaustion yields a
// *NetworkError or *StatusError, never a generic failure.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	var lastCode int

	for attempt := 0; attempt < f.retries; attempt++ {
		if attempt > 0 {
			wait := f.backoff << (attempt - 1)
			if wait > MaxBackoff {
				wait = MaxBackoff
			}
			log.Debugf("retry %d for %s in %s", attempt, url, wait)
			if err := f.sleep(ctx, wait); err != nil {
				return nil, &NetworkError{URL: url, Err: err}
			}
		}

		if err := f.gate.Admit(ctx); err != nil {
			return nil, &NetworkError{URL: url, Err: err}
		}

		body, code, err := f.once(ctx, url)
		if err != nil {
			lastErr, lastCode = err, 0
			log.Debugf("attempt %d failed: %v", attempt, err)
			continue
		}

		if code == http.StatusOK {
			return body, nil
		}

		lastErr, lastCode = nil, code
		if !retryableStatus(code) {
			break
		}
		log.Debugf("attempt %d got status %d", attempt, code)
	}

	if lastCode != 0 {
		return nil, &StatusError{URL: url, Code: lastCode}
	}
	return nil, &NetworkError{URL: url, Err: lastErr}
}

// once performs a single GET attempt.
func (f *Fetcher) once(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "pokectl/"+version.Version)

	f.requests.Add(1)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
