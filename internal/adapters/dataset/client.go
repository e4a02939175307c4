// Package dataset downloads the bulk sales CSV used as the external $/sqft
// prior.
package dataset

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"homesquare/internal/adapters/observability"
	"homesquare/internal/domain"
	"homesquare/internal/valuation"
)

const maxAttempts = 4

var ErrNotFound = fmt.Errorf("dataset: %w", domain.ErrNotFound)

type Client struct {
	hc *http.Client
	rl *rate.Limiter
}

func New(rps int) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		hc: &http.Client{Timeout: 2 * time.Minute},
		rl: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// LoadPrior downloads the CSV at rawURL and reduces it to per-ZIP medians.
func (c *Client) LoadPrior(ctx context.Context, rawURL string) (domain.PriorStats, error) {
	var out domain.PriorStats
	err := c.get(ctx, rawURL, func(r io.Reader) error {
		var err error
		out, err = valuation.LoadPrior(r)
		return err
	})
	return out, err
}

// get performs a GET with client-side rate limiting and retries on 429 and
// transient 5xx, honoring Retry-After. consume runs once on a 200 body.
func (c *Client) get(ctx context.Context, rawURL string, consume func(io.Reader) error) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	endpoint := host(rawURL)

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
		req.Header.Set("User-Agent", "homesquare/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("dataset", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("dataset", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := consume(resp.Body)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("dataset: remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("dataset: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	if lastErr == nil {
		lastErr = errors.New("dataset: no attempt succeeded")
	}
	return lastErr
}

func host(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

// Resolve loads the prior from a local CSV when path is set, otherwise
// downloads rawURL. With neither configured it returns an empty snapshot.
func (c *Client) Resolve(ctx context.Context, path, rawURL string) (domain.PriorStats, error) {
	switch {
	case path != "":
		return valuation.LoadPriorFile(path)
	case rawURL != "":
		return c.LoadPrior(ctx, rawURL)
	}
	return domain.PriorStats{}, nil
}
