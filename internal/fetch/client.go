// Package fetch retrieves remote bookmark exports, trying hosting-aware
// candidate URLs and proxies under a single time budget.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/occva/X-Bookmarks/internal/config"
	"github.com/occva/X-Bookmarks/internal/domain"
	"github.com/occva/X-Bookmarks/internal/metrics"
)

var errBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Retryable reports whether the status is worth another attempt on the same URL.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client fetches export bodies over HTTP.
type Client struct {
	http    *http.Client
	cfg     config.FetchConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a Client. Per-attempt timeouts come from the request
// context, so the underlying http.Client has no overall timeout.
func NewClient(cfg config.FetchConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// Fetch returns the body of the first candidate for rawURL that answers with
// a 2xx status. The whole search is bounded by the configured fetch timeout;
// running out of it yields domain.ErrFetchTimeout. When every candidate fails
// the error wraps domain.ErrFetchFailed and each candidate's cause.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	budgetCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	candidates := Candidates(rawURL, c.cfg.Proxies)
	var causes []error

	for _, cand := range candidates {
		if budgetCtx.Err() != nil {
			break
		}

		body, err := c.fetchCandidate(budgetCtx, cand)
		if err == nil && cand.Kind == KindAPI {
			body, err = unwrapGist(body)
		}
		if err == nil {
			c.logger.Debug("fetched source",
				"url", rawURL,
				"candidate", cand.URL,
				"kind", cand.Kind,
				"bytes", len(body),
			)
			return body, nil
		}

		if errors.Is(err, domain.ErrFetchTimeout) {
			causes = append(causes, err)
			break
		}

		c.logger.Debug("candidate failed",
			"url", rawURL,
			"candidate", cand.URL,
			"kind", cand.Kind,
			"error", err,
		)
		causes = append(causes, fmt.Errorf("%s %s: %w", cand.Kind, cand.URL, err))
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if budgetCtx.Err() != nil || lastIsTimeout(causes) {
		return nil, fmt.Errorf("%w after %s", domain.ErrFetchTimeout, c.cfg.Timeout)
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrFetchFailed, errors.Join(causes...))
}

func (c *Client) fetchCandidate(ctx context.Context, cand Candidate) ([]byte, error) {
	return RetryWithCheck(ctx, c.retryConfig(), func(attempt int) ([]byte, error) {
		body, err := c.attempt(ctx, cand.URL)
		metrics.IncFetchAttempt(string(cand.Kind), outcome(err))
		if err != nil && attempt > 0 {
			c.logger.Debug("retry failed", "candidate", cand.URL, "attempt", attempt+1, "error", err)
		}
		return body, err
	}, func(err error) bool {
		return ctx.Err() == nil && isRetryable(err)
	})
}

// retryConfig applies the configured retry count and delay to
// DefaultRetryConfig.
func (c *Client) retryConfig() RetryConfig {
	rc := DefaultRetryConfig()
	if c.cfg.Retries >= 0 {
		rc.MaxAttempts = c.cfg.Retries + 1
	}
	if c.cfg.RetryDelay > 0 {
		rc.InitialDelay = c.cfg.RetryDelay
	}
	return rc
}

func (c *Client) attempt(ctx context.Context, target string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetchTimeout, err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	limit := c.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

// isRetryable: transport failures, 429 and 5xx. Other statuses, oversize
// bodies and budget exhaustion are final for the candidate.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, errBodyTooLarge) || errors.Is(err, domain.ErrFetchTimeout) {
		return false
	}
	return true
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Code >= 500 {
			return "status_5xx"
		}
		return "status_4xx"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

func lastIsTimeout(causes []error) bool {
	return len(causes) > 0 && errors.Is(causes[len(causes)-1], domain.ErrFetchTimeout)
}

func validateURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidURL, rawURL)
	}
	return nil
}

type gistResponse struct {
	Files map[string]struct {
		Filename  string `json:"filename"`
		Content   string `json:"content"`
		Truncated bool   `json:"truncated"`
	} `json:"files"`
}

// unwrapGist extracts a file's content from a gist API response, preferring
// the first .json file by name.
func unwrapGist(body []byte) ([]byte, error) {
	var g gistResponse
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("decode gist response: %w", err)
	}
	if len(g.Files) == 0 {
		return nil, errors.New("gist has no files")
	}

	names := make([]string, 0, len(g.Files))
	for name := range g.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	pick := names[0]
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), ".json") {
			pick = name
			break
		}
	}

	f := g.Files[pick]
	if f.Truncated {
		return nil, fmt.Errorf("gist file %s is truncated", pick)
	}
	return []byte(f.Content), nil
}
