package feed_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintech_reviews/internal/adapters/feed"
	"fintech_reviews/internal/domain"
)

var cbe = domain.Source{Name: "CBE", AppID: "com.cbe.mobilebanking"}

func TestClient_FetchReviews_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"reviews": []map[string]any{{"reviewId": "r1", "content": "fast and reliable", "score": 5.0}},
			})
		}
	}))
	defer ts.Close()

	cl, err := feed.New(ts.URL, "test-key", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.FetchReviews(ctx, cbe, 10)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0]["reviewId"] != "r1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestClient_FetchReviews_FollowsTokensUpToCount(t *testing.T) {
	var pages int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apps/com.cbe.mobilebanking/reviews" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		n, _ := strconv.Atoi(r.URL.Query().Get("count"))
		p := atomic.AddInt32(&pages, 1)
		if p > 1 && r.URL.Query().Get("token") != "t"+strconv.Itoa(int(p-1)) {
			t.Errorf("page %d: unexpected token %q", p, r.URL.Query().Get("token"))
		}
		var rs []map[string]any
		for i := 0; i < n; i++ {
			rs = append(rs, map[string]any{"reviewId": strconv.Itoa(int(p)) + "-" + strconv.Itoa(i)})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"reviews": rs, "next_token": "t" + strconv.Itoa(int(p))})
	}))
	defer ts.Close()

	cl, err := feed.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got, err := cl.FetchReviews(context.Background(), cbe, 450)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 450 {
		t.Fatalf("want 450 records, got %d", len(got))
	}
	if p := atomic.LoadInt32(&pages); p != 3 {
		t.Fatalf("want 3 pages (200+200+50), got %d", p)
	}
}

func TestClient_FetchReviews_StopsWhenFeedEnds(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"reviews": []map[string]any{{"reviewId": "only"}},
		})
	}))
	defer ts.Close()

	cl, _ := feed.New(ts.URL, "", 100)
	got, err := cl.FetchReviews(context.Background(), cbe, 400)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 record, got %d", len(got))
	}
}

func TestClient_FetchReviews_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl, err := feed.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = cl.FetchReviews(ctx, cbe, 5)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClient_FetchReviews_RequiresAppID(t *testing.T) {
	cl, _ := feed.New("http://127.0.0.1:1", "", 100)
	if _, err := cl.FetchReviews(context.Background(), domain.Source{Name: "X"}, 5); err == nil {
		t.Fatalf("expected error for source without app id")
	}
}

func TestClient_FetchReviews_GivesUpAfterRetries(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cl, _ := feed.New(ts.URL, "", 100)
	_, err := cl.FetchReviews(context.Background(), cbe, 5)
	if err == nil || !strings.Contains(err.Error(), "remote 503") {
		t.Fatalf("expected remote 503 error, got %v", err)
	}
	if h := atomic.LoadInt32(&hits); h != 4 {
		t.Fatalf("want 4 attempts, got %d", h)
	}
}

func TestClient_FetchReviews_DoesNotRetryAuthErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := feed.New(ts.URL, "bad", 100)
	_, err := cl.FetchReviews(context.Background(), cbe, 5)
	if !errors.Is(err, feed.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if h := atomic.LoadInt32(&hits); h != 1 {
		t.Fatalf("want 1 attempt, got %d", h)
	}
}
