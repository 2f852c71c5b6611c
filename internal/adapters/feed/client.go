package feed

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"fintech_reviews/internal/adapters/observability"
	"fintech_reviews/internal/domain"
)

// PageSize is the largest page the feed serves.
const PageSize = 200

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps float64) (*Client, error) {
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("feed base url: %w", err)
	}
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

type page struct {
	Reviews   []domain.RawRecord `json:"reviews"`
	NextToken string             `json:"next_token"`
}

// FetchReviews pages through the feed for src until count records are collected or
// the feed runs out. Records are returned as served, newest first.
func (c *Client) FetchReviews(ctx context.Context, src domain.Source, count int) ([]domain.RawRecord, error) {
	appID := src.AppID
	if appID == "" {
		return nil, fmt.Errorf("source %s has no app id", src.Name)
	}
	var out []domain.RawRecord
	token := ""
	for count <= 0 || len(out) < count {
		n := PageSize
		if count > 0 && count-len(out) < n {
			n = count - len(out)
		}
		q := url.Values{}
		q.Set("count", strconv.Itoa(n))
		q.Set("lang", "en")
		q.Set("sort", "newest")
		if token != "" {
			q.Set("token", token)
		}
		u := fmt.Sprintf("%s/apps/%s/reviews?%s", c.base, url.PathEscape(appID), q.Encode())

		var p page
		if err := c.get(ctx, u, &p); err != nil {
			return out, err
		}
		out = append(out, p.Reviews...)
		if p.NextToken == "" || len(p.Reviews) == 0 {
			break
		}
		token = p.NextToken
	}
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out, nil
}

var (
	ErrNotFound     = fmt.Errorf("feed: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("feed: unauthorized")
	ErrForbidden    = errors.New("feed: forbidden")
)

const maxAttempts = 4

// transientError marks a failure worth another attempt; wait is the server's Retry-After, if any.
type transientError struct {
	err  error
	wait time.Duration
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// get performs a rate-limited GET and decodes the JSON body into out.
// 429 and transient 5xx are retried, honoring Retry-After when the feed sends one.
func (c *Client) get(ctx context.Context, u string, out any) error {
	// one limiter token per logical request; retries are paced by backoff instead
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var te *transientError
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			observability.ObserveRetry("feed", "reviews")
			wait := te.wait
			if wait == 0 {
				wait = backoff(attempt - 1)
			}
			if !sleepCtx(ctx, wait) {
				return ctx.Err()
			}
		}

		err := c.try(ctx, u, out)
		if !errors.As(err, &te) {
			return err // nil, permanent, or cancelled
		}
		log.Debug().Err(te.err).Int("attempt", attempt+1).Str("url", u).Msg("feed request failed")
	}
	return fmt.Errorf("feed: giving up after %d attempts: %w", maxAttempts, te.err)
}

// try performs a single request. Retryable failures come back as *transientError.
func (c *Client) try(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fintech-reviews/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("feed", "reviews", 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("feed", "reviews", resp.StatusCode, time.Since(start))

	switch code := resp.StatusCode; code {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode feed page: %w", err)
		}
		return nil
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &transientError{err: fmt.Errorf("remote %d", code), wait: retryAfter(resp)}
	default:
		// keep a short body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("bad status %d: %s", code, strings.TrimSpace(string(b)))
	}
}

// sleepCtx waits for d or returns early if ctx is done.
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

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
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

// backoff: 200ms doubling per attempt plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
