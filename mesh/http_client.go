package mesh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single plan request
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of attempts
	DefaultMaxRetries = 3

	defaultBaseBackoff = 500 * time.Millisecond

	// maxFetchBackoff caps both the exponential delay and a server's Retry-After
	maxFetchBackoff = 10 * time.Second

	// MaxPlanDocumentBytes is the largest plan document accepted over HTTP
	MaxPlanDocumentBytes = 10 << 20
)

// ErrPlanTooLarge is returned when a plan document exceeds MaxPlanDocumentBytes
var ErrPlanTooLarge = errors.New("plan document too large")

// PlanFetchError is a plan URL answering with a status other than 200
type PlanFetchError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *PlanFetchError) Error() string {
	return fmt.Sprintf("HTTP GET %s: status %d", e.URL, e.StatusCode)
}

// Temporary reports whether another attempt may succeed: 5xx, 408 and 429
func (e *PlanFetchError) Temporary() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	}
	return false
}

// FetchOption configures FetchPlanFromURL behavior.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) { c.timeout = d }
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) FetchOption {
	return func(c *fetchConfig) { c.maxRetries = n }
}

// WithBaseBackoff sets the first delay between attempts; it doubles each time.
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) { c.baseBackoff = d }
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) { c.client = client }
}

// FetchPlanFromURL downloads a floor plan document in any format
// DecodePlanData accepts. Network failures, 5xx, 408 and 429 are retried
// with exponential backoff, honouring Retry-After. Other statuses, empty or
// oversized documents and decode errors fail at once. A plan without an id
// takes the last path segment of the URL, minus extensions.
func FetchPlanFromURL(ctx context.Context, planURL string, opts ...FetchOption) (*FloorPlan, error) {
	if planURL == "" {
		return nil, fmt.Errorf("fetch plan: URL is empty")
	}

	cfg := fetchConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	var delay time.Duration
	for attempt := range cfg.maxRetries {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch plan: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		body, err := doFetch(ctx, client, planURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("fetch plan: %w", ctx.Err())
			}
			var statusErr *PlanFetchError
			isStatus := errors.As(err, &statusErr)
			if errors.Is(err, ErrPlanTooLarge) || (isStatus && !statusErr.Temporary()) {
				return nil, fmt.Errorf("fetch plan: %w", err)
			}
			lastErr = err
			delay = retryDelay(cfg.baseBackoff, attempt, statusErr)
			if attempt+1 < cfg.maxRetries {
				log.Printf("Warning: plan fetch attempt %d/%d failed, retrying in %v: %v", attempt+1, cfg.maxRetries, delay, err)
			}
			continue
		}

		if len(bytes.TrimSpace(body)) == 0 {
			return nil, fmt.Errorf("fetch plan: %s returned an empty document", planURL)
		}
		plan, err := DecodePlanData(body)
		if err != nil {
			return nil, fmt.Errorf("fetch plan: %w", err)
		}
		if plan.ID == "" {
			plan.ID = PlanIDFromURL(planURL)
		}
		return plan, nil
	}

	return nil, fmt.Errorf("fetch plan: all %d attempts failed: %w", cfg.maxRetries, lastErr)
}

// retryDelay doubles base for each attempt made so far. A longer Retry-After
// from the server wins. Both are capped at maxFetchBackoff.
func retryDelay(base time.Duration, attempt int, statusErr *PlanFetchError) time.Duration {
	delay := base
	for i := 0; i < attempt && delay < maxFetchBackoff; i++ {
		delay *= 2
	}
	delay = min(delay, maxFetchBackoff)
	if statusErr != nil && statusErr.RetryAfter > delay {
		delay = min(statusErr.RetryAfter, maxFetchBackoff)
	}
	return delay
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// PlanIDFromURL names a plan after the last path segment of its URL with
// extensions removed, e.g. https://host/plans/cabin.json.gz gives "cabin"
func PlanIDFromURL(planURL string) string {
	u, err := url.Parse(planURL)
	if err != nil {
		return "plan"
	}
	base := path.Base(u.Path)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" {
		return "plan"
	}
	return base
}

// doFetch performs a single GET and returns the body
func doFetch(ctx context.Context, client *http.Client, planURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, planURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/gzip, image/png, application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", planURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &PlanFetchError{
			URL:        planURL,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPlanDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", planURL, err)
	}
	if len(body) > MaxPlanDocumentBytes {
		return nil, fmt.Errorf("%s: %w (limit %d bytes)", planURL, ErrPlanTooLarge, MaxPlanDocumentBytes)
	}
	return body, nil
}
