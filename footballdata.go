package football

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIBaseURL        = "https://api.football-data.org/v4"
	DefaultMaxAttempts       = 3
	DefaultRequestsPerMinute = 10 // free tier quota
)

var (
	ErrRetriesExhausted = errors.New("no data after repeated attempts")
	ErrNoAPIKey         = errors.New("football-data API key is not set")
)

// StatusError is returned for any non-200, non-429 response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("football-data API error: %d (%s)", e.StatusCode, e.URL)
}

// Unauthorized reports whether retrying can never succeed without a new key.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// APIClientConfig configures an APIClient. Zero values fall back to defaults.
type APIClientConfig struct {
	HTTPClient        *http.Client
	BaseURL           string
	APIKey            string
	MaxAttempts       int
	RequestsPerMinute int
	RateLimitWait     time.Duration
	TimeoutWait       time.Duration
	ConnectionWait    time.Duration
	Logger            *slog.Logger
}

// APIClient fetches competition data from football-data.org.
type APIClient struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxAttempts    int
	limiter        *rate.Limiter
	rateLimitWait  time.Duration
	timeoutWait    time.Duration
	connectionWait time.Duration
	logger         *slog.Logger
}

func NewAPIClient(cfg APIClientConfig) *APIClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	// Negative disables client-side limiting, which tests rely on
	limit := rate.Inf
	burst := 1
	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = DefaultRequestsPerMinute
	}
	if rpm > 0 {
		limit = rate.Every(time.Minute / time.Duration(rpm))
		burst = 2
	}

	return &APIClient{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxAttempts:    maxAttempts,
		limiter:        rate.NewLimiter(limit, burst),
		rateLimitWait:  durationOr(cfg.RateLimitWait, 60*time.Second),
		timeoutWait:    durationOr(cfg.TimeoutWait, 2*time.Second),
		connectionWait: durationOr(cfg.ConnectionWait, 5*time.Second),
		logger:         logger,
	}
}

// Matches fetches every match of a competition's current season.
func (c *APIClient) Matches(ctx context.Context, competition string) (*MatchesResponse, error) {
	var resp MatchesResponse
	if err := c.getJSON(ctx, competitionPath(competition, "matches"), &resp); err != nil {
		return nil, fmt.Errorf("fetch matches for %s: %w", competition, err)
	}
	return &resp, nil
}

// Standings fetches the competition's league tables.
func (c *APIClient) Standings(ctx context.Context, competition string) (*StandingsResponse, error) {
	var resp StandingsResponse
	if err := c.getJSON(ctx, competitionPath(competition, "standings"), &resp); err != nil {
		return nil, fmt.Errorf("fetch standings for %s: %w", competition, err)
	}
	return &resp, nil
}

func competitionPath(competition, resource string) string {
	return "/competitions/" + url.PathEscape(strings.ToUpper(competition)) + "/" + resource
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	endpoint := c.baseURL + path

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		body, wait, err := c.do(ctx, endpoint)
		if err == nil {
			if decodeErr := json.Unmarshal(body, out); decodeErr != nil {
				return fmt.Errorf("failed to decode response: %w", decodeErr)
			}
			return nil
		}
		if wait == 0 {
			return err
		}

		c.logger.Warn("football-data request failed, retrying",
			"url", endpoint, "attempt", attempt, "maxAttempts", c.maxAttempts, "wait", wait, "error", err)
		if attempt == c.maxAttempts {
			break
		}
		if err := sleepContext(ctx, wait); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: %w", endpoint, ErrRetriesExhausted)
}

// do performs one attempt. A non-zero wait means the failure is retryable.
func (c *APIClient) do(ctx context.Context, endpoint string) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, c.timeoutWait, fmt.Errorf("request timed out: %w", err)
		}
		return nil, c.connectionWait, fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, c.connectionWait, fmt.Errorf("failed to read response body: %w", err)
		}
		return body, 0, nil
	case http.StatusTooManyRequests:
		return nil, c.resetWait(resp.Header), &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	default:
		return nil, 0, &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}
}

// resetWait honours X-RequestCounter-Reset, never waiting longer than rateLimitWait.
func (c *APIClient) resetWait(h http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h.Get("X-RequestCounter-Reset")))
	if err != nil || secs <= 0 {
		return c.rateLimitWait
	}
	wait := time.Duration(secs) * time.Second
	if wait > c.rateLimitWait {
		return c.rateLimitWait
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
