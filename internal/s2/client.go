package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/facultyindex/facultyindex/internal/pacer"
	"go.uber.org/zap"
)

const (
	// BaseURL is the Semantic Scholar Academic Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 45 * time.Second

	// UserAgent identifies the client to the API.
	UserAgent = "Mozilla/5.0 (compatible; facultyindex/1.0)"

	// AuthorSearchFields are the fields requested for author candidates.
	AuthorSearchFields = "authorId,name,affiliations,url,paperCount,citationCount"

	// PaperSearchFields are the fields requested for title cross-reference.
	PaperSearchFields = "paperId,title,authors"

	// AuthorPaperFields are the fields requested when fetching an author's papers.
	AuthorPaperFields = "paperId,title,year,publicationDate,citationCount,openAccessPdf,isOpenAccess,url,externalIds,venue,publicationTypes,authors"

	// Default limits for various search operations.
	DefaultAuthorSearchLimit = 5
	DefaultPaperSearchLimit  = 3
	DefaultAuthorPapersLimit = 120
)

// RetryPolicy bounds how long a single Get may keep retrying.
type RetryPolicy struct {
	MaxAttempts      int           // Total attempts per request
	RetryAfterCap    time.Duration // Hard cap on any 429 wait, including Retry-After hints
	RateLimitMinWait time.Duration // Wait after a 429 without a usable Retry-After
	ServerErrorStep  time.Duration // Per-attempt increment after 5xx/transport failures
	ServerErrorCap   time.Duration // Cap on the 5xx/transport wait
	OtherStatusWait  time.Duration // Wait after any other unexpected status
}

// DefaultRetryPolicy returns the retry policy used in production.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      10,
		RetryAfterCap:    2 * time.Second,
		RateLimitMinWait: 300 * time.Millisecond,
		ServerErrorStep:  800 * time.Millisecond,
		ServerErrorCap:   2 * time.Second,
		OtherStatusWait:  300 * time.Millisecond,
	}
}

func (p RetryPolicy) serverErrorWait(attempt int) time.Duration {
	d := p.ServerErrorStep * time.Duration(attempt)
	if d > p.ServerErrorCap {
		return p.ServerErrorCap
	}
	return d
}

// Client is a paced HTTP client for the Semantic Scholar API.
type Client struct {
	httpClient *http.Client
	pacer      *pacer.Adaptive
	retry      RetryPolicy
	apiKey     string
	baseURL    string
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithPacer injects the pacing gate. Clients sharing a gate share a quota.
func WithPacer(p *pacer.Adaptive) ClientOption {
	return func(c *Client) {
		c.pacer = p
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Semantic Scholar client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry:      DefaultRetryPolicy(),
		baseURL:    BaseURL,
		logger:     zap.NewNop(),
	}

	// Check for API key in environment
	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.pacer == nil {
		c.pacer = pacer.New(pacer.DefaultConfig(), pacer.WithLogger(c.logger))
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	return c
}

// Pacer returns the client's pacing gate.
func (c *Client) Pacer() *pacer.Adaptive {
	return c.pacer
}

// Get issues a paced GET against endpoint (e.g. "/author/search") and
// returns the response body of the first 200. Rate limiting, server
// errors and transport failures are retried within the policy's attempt
// budget; once it is spent the last failure is returned wrapped in
// ErrRetriesExhausted.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for pacer: %w", err)
		}

		resp, err := c.do(ctx, u)
		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", ErrNetworkError, err)
			wait = c.retry.serverErrorWait(attempt)

		case resp.status == http.StatusOK:
			c.pacer.Relax()
			return resp.body, nil

		case resp.status == http.StatusTooManyRequests:
			interval := c.pacer.Backoff()
			lastErr = fmt.Errorf("%w: status %d", ErrRateLimited, resp.status)
			wait = c.rateLimitWait(interval, resp.header)
			c.logger.Warn("rate limited",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("interval", interval),
				zap.Duration("wait", wait))

		case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status %d", ErrAuthError, resp.status)

		case resp.status == http.StatusNotFound:
			return nil, &APIError{StatusCode: resp.status, Code: "not_found", Message: "HTTP 404", Endpoint: endpoint}

		case isServerError(resp.status):
			lastErr = &APIError{StatusCode: resp.status, Code: "server_error", Message: fmt.Sprintf("HTTP %d", resp.status), Endpoint: endpoint}
			wait = c.retry.serverErrorWait(attempt)

		default:
			lastErr = &APIError{StatusCode: resp.status, Code: "api_error", Message: fmt.Sprintf("HTTP %d", resp.status), Endpoint: endpoint}
			wait = c.retry.OtherStatusWait
		}

		if attempt == c.retry.MaxAttempts {
			break
		}
		c.logger.Debug("retrying request",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retry.MaxAttempts),
			zap.Error(lastErr))
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	c.logger.Warn("giving up on request",
		zap.String("endpoint", endpoint),
		zap.Int("attempts", c.retry.MaxAttempts),
		zap.Error(lastErr))
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.retry.MaxAttempts, lastErr)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, u string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// rateLimitWait is max(interval, Retry-After or the minimum wait), capped.
func (c *Client) rateLimitWait(interval time.Duration, h http.Header) time.Duration {
	hint := parseRetryAfter(h.Get("Retry-After"), time.Now())
	if hint <= 0 {
		hint = c.retry.RateLimitMinWait
	}
	wait := interval
	if hint > wait {
		wait = hint
	}
	if wait > c.retry.RetryAfterCap {
		wait = c.retry.RetryAfterCap
	}
	return wait
}

// parseRetryAfter accepts delay-seconds (possibly fractional) or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func isServerError(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func decode(body []byte, v any, what string) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidResponse, what, err)
	}
	return nil
}

// SearchAuthors searches for authors by name and returns the raw candidate
// list. It never picks one.
func (c *Client) SearchAuthors(ctx context.Context, name string, limit int) ([]Author, error) {
	if limit <= 0 {
		limit = DefaultAuthorSearchLimit
	}
	params := url.Values{}
	params.Set("query", name)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", AuthorSearchFields)

	body, err := c.Get(ctx, "/author/search", params)
	if err != nil {
		return nil, err
	}
	var resp AuthorSearchResponse
	if err := decode(body, &resp, "author search"); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// SearchPapers searches for papers matching a title or keyword query.
func (c *Client) SearchPapers(ctx context.Context, query string, limit int) ([]Paper, error) {
	if limit <= 0 {
		limit = DefaultPaperSearchLimit
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", PaperSearchFields)

	body, err := c.Get(ctx, "/paper/search", params)
	if err != nil {
		return nil, err
	}
	var resp PaperSearchResponse
	if err := decode(body, &resp, "paper search"); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// BulkTitleQuery builds a disjunctive bulk-search query matching any of
// the given titles as a phrase.
func BulkTitleQuery(titles []string) string {
	parts := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(strings.ReplaceAll(t, `"`, " "))
		if t == "" {
			continue
		}
		parts = append(parts, `"`+t+`"`)
	}
	return strings.Join(parts, " | ")
}

// SearchPapersBulk submits several titles as one disjunctive bulk query.
func (c *Client) SearchPapersBulk(ctx context.Context, titles []string) ([]Paper, error) {
	query := BulkTitleQuery(titles)
	if query == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("fields", PaperSearchFields)

	body, err := c.Get(ctx, "/paper/search/bulk", params)
	if err != nil {
		return nil, err
	}
	var resp BulkSearchResponse
	if err := decode(body, &resp, "bulk paper search"); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AuthorPapers fetches an author's papers with the full metadata field set.
// Entries without a paper id are dropped.
func (c *Client) AuthorPapers(ctx context.Context, authorID string, limit int) ([]Paper, error) {
	if limit <= 0 {
		limit = DefaultAuthorPapersLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", AuthorPaperFields)

	body, err := c.Get(ctx, "/author/"+url.PathEscape(authorID)+"/papers", params)
	if err != nil {
		return nil, err
	}
	var resp AuthorPapersResponse
	if err := decode(body, &resp, "author papers"); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Data))
	for _, it := range resp.Data {
		if it.PaperID == "" {
			continue
		}
		papers = append(papers, it.Paper)
	}
	return papers, nil
}
