package mesh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchPlanFromURL_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "application/json") {
			t.Errorf("expected Accept to include application/json, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoRoomPlanJSON))
	}))
	defer srv.Close()

	plan, err := FetchPlanFromURL(context.Background(), srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("FetchPlanFromURL() error: %v", err)
	}
	if plan == nil {
		t.Fatal("FetchPlanFromURL() returned nil plan")
		return
	}
	if len(plan.Rooms) != 2 {
		t.Errorf("Rooms = %d, want 2", len(plan.Rooms))
	}
}

func TestFetchPlanFromURL_Gzip(t *testing.T) {
	body := compressGzip(t, []byte(singleRoomJSON))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	plan, err := FetchPlanFromURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPlanFromURL() error: %v", err)
	}
	if plan.ID != "study" {
		t.Errorf("ID = %q, want study", plan.ID)
	}
}

func TestFetchPlanFromURL_EmptyURL(t *testing.T) {
	_, err := FetchPlanFromURL(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
	if !strings.Contains(err.Error(), "URL is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetchPlanFromURL_InvalidBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("not a plan"))
	}))
	defer srv.Close()

	_, err := FetchPlanFromURL(context.Background(), srv.URL,
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	if err == nil {
		t.Fatal("expected error for invalid body")
	}
	if calls.Load() != 1 {
		t.Errorf("decode errors must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchPlanFromURL_ServerError_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(twoRoomPlanJSON))
	}))
	defer srv.Close()

	plan, err := FetchPlanFromURL(context.Background(), srv.URL,
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("FetchPlanFromURL() error: %v", err)
	}
	if plan.ID != "house" {
		t.Errorf("ID = %q, want house", plan.ID)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestFetchPlanFromURL_AllRetriesFail(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := FetchPlanFromURL(context.Background(), srv.URL,
		WithMaxRetries(2),
		WithBaseBackoff(time.Millisecond),
	)
	if err == nil {
		t.Fatal("expected error when all retries fail")
	}
	if !strings.Contains(err.Error(), "all 2 attempts failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchPlanFromURL_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchPlanFromURL(ctx, srv.URL,
		WithMaxRetries(5),
		WithBaseBackoff(time.Second),
	)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestFetchPlanFromURL_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(twoRoomPlanJSON))
	}))
	defer srv.Close()

	_, err := FetchPlanFromURL(context.Background(), srv.URL,
		WithTimeout(20*time.Millisecond),
		WithMaxRetries(1),
	)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestFetchPlanFromURL_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := FetchPlanFromURL(context.Background(), srv.URL+"/plans/missing.json",
		WithMaxRetries(4),
		WithBaseBackoff(time.Millisecond),
	)
	var fetchErr *PlanFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected PlanFetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound || fetchErr.Temporary() {
		t.Errorf("status = %d temporary = %v, want permanent 404", fetchErr.StatusCode, fetchErr.Temporary())
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestFetchPlanFromURL_TooManyRequestsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(twoRoomPlanJSON))
	}))
	defer srv.Close()

	plan, err := FetchPlanFromURL(context.Background(), srv.URL,
		WithMaxRetries(2),
		WithBaseBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("FetchPlanFromURL() error: %v", err)
	}
	if len(plan.Rooms) != 2 || calls.Load() != 2 {
		t.Errorf("rooms = %d calls = %d, want 2 and 2", len(plan.Rooms), calls.Load())
	}
}

func TestFetchPlanFromURL_IDFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rooms":[{"id":"a","width":3,"length":3}]}`))
	}))
	defer srv.Close()

	plan, err := FetchPlanFromURL(context.Background(), srv.URL+"/plans/cabin.json")
	if err != nil {
		t.Fatalf("FetchPlanFromURL() error: %v", err)
	}
	if plan.ID != "cabin" {
		t.Errorf("ID = %q, want cabin", plan.ID)
	}
}

func TestFetchPlanFromURL_EmptyDocument(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := FetchPlanFromURL(context.Background(), srv.URL,
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	if err == nil || !strings.Contains(err.Error(), "empty document") {
		t.Errorf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		err     *PlanFetchError
		want    time.Duration
	}{
		{"first retry", 100 * time.Millisecond, 0, nil, 100 * time.Millisecond},
		{"doubles", 100 * time.Millisecond, 2, nil, 400 * time.Millisecond},
		{"capped", time.Second, 8, nil, maxFetchBackoff},
		{"retry-after wins", 100 * time.Millisecond, 0, &PlanFetchError{RetryAfter: 3 * time.Second}, 3 * time.Second},
		{"retry-after capped", 100 * time.Millisecond, 0, &PlanFetchError{RetryAfter: time.Hour}, maxFetchBackoff},
		{"shorter retry-after ignored", time.Second, 1, &PlanFetchError{RetryAfter: time.Second}, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.base, tt.attempt, tt.err); got != tt.want {
			t.Errorf("%s: retryDelay = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"-3", 0},
		{now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlanIDFromURL(t *testing.T) {
	tests := map[string]string{
		"https://host/plans/cabin.json":    "cabin",
		"https://host/plans/cabin.json.gz": "cabin",
		"https://host/plans/loft":          "loft",
		"https://host/":                    "plan",
		"https://host":                     "plan",
		"://bad":                           "plan",
	}
	for in, want := range tests {
		if got := PlanIDFromURL(in); got != want {
			t.Errorf("PlanIDFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
