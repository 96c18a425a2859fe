package s2

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facultyindex/facultyindex/internal/pacer"
)

func fastPacer() *pacer.Adaptive {
	return pacer.New(pacer.Config{
		Floor:         5 * time.Millisecond,
		Ceiling:       40 * time.Millisecond,
		BackoffFactor: 2,
		RelaxFactor:   0.5,
		RelaxAfter:    1,
	})
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      5,
		RetryAfterCap:    50 * time.Millisecond,
		RateLimitMinWait: 5 * time.Millisecond,
		ServerErrorStep:  2 * time.Millisecond,
		ServerErrorCap:   10 * time.Millisecond,
		OtherStatusWait:  2 * time.Millisecond,
	}
}

func newTestClient(srv *httptest.Server, p *pacer.Adaptive) *Client {
	return NewClient(
		WithBaseURL(srv.URL),
		WithPacer(p),
		WithRetryPolicy(fastPolicy()),
		WithAPIKey("test-key"),
	)
}

func TestGet_RateLimitConvergence(t *testing.T) {
	const rejected = 3

	var (
		mu    sync.Mutex
		calls []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, time.Now())
		n := len(calls)
		mu.Unlock()
		if n <= rejected {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	p := fastPacer()
	c := newTestClient(srv, p)

	body, err := c.Get(context.Background(), "/author/search", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `{"data":[]}` {
		t.Errorf("body = %q", body)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != rejected+1 {
		t.Fatalf("calls = %d, want %d", len(calls), rejected+1)
	}

	// Three backoffs from 5ms by factor 2 cap at 40ms.
	backoffInterval := 40 * time.Millisecond
	gap := calls[rejected].Sub(calls[rejected-1])
	if gap < backoffInterval-5*time.Millisecond {
		t.Errorf("gap before successful call = %s, want >= %s", gap, backoffInterval)
	}
	// One relax step after the success.
	if got := p.Interval(); got != 20*time.Millisecond {
		t.Errorf("Interval() after success = %s, want 20ms", got)
	}
}

func TestGet_HonorsRetryAfterWithCap(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, time.Now())
		n := len(calls)
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "3600")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	start := time.Now()
	if _, err := c.Get(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Get() took %s; Retry-After should be capped at 50ms", elapsed)
	}
	mu.Lock()
	defer mu.Unlock()
	if gap := calls[1].Sub(calls[0]); gap < 40*time.Millisecond {
		t.Errorf("gap = %s, want about the 50ms cap", gap)
	}
}

func TestGet_ServerErrorsRetried(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	body, err := c.Get(context.Background(), "/x", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != "ok" || n.Load() != 3 {
		t.Errorf("body = %q after %d calls, want ok after 3", body, n.Load())
	}
}

func TestGet_RetriesExhausted(t *testing.T) {
	var n atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	_, err := c.Get(context.Background(), "/x", nil)
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Get() error = %v, want ErrRetriesExhausted", err)
	}
	if !IsRateLimited(err) {
		t.Errorf("IsRateLimited(%v) = false, want true", err)
	}
	if got := n.Load(); got != int32(fastPolicy().MaxAttempts) {
		t.Errorf("calls = %d, want %d", got, fastPolicy().MaxAttempts)
	}
}

func TestGet_NotFoundAndAuthAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, IsNotFound},
		{"unauthorized", http.StatusUnauthorized, IsAuthError},
		{"forbidden", http.StatusForbidden, IsAuthError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := newTestClient(srv, fastPacer())
			_, err := c.Get(context.Background(), "/x", nil)
			if !tt.check(err) {
				t.Errorf("Get() error = %v", err)
			}
			if n.Load() != 1 {
				t.Errorf("calls = %d, want 1", n.Load())
			}
		})
	}
}

func TestGet_ContextCanceledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	policy := fastPolicy()
	policy.RetryAfterCap = 5 * time.Second
	c := NewClient(WithBaseURL(srv.URL), WithPacer(fastPacer()), WithRetryPolicy(policy))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "/x", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want deadline exceeded", err)
	}
}

func TestGet_SendsHeadersAndParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if r.URL.Path != "/author/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "Jane Smith" || q.Get("limit") != "5" || q.Get("fields") != AuthorSearchFields {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"total":2,"data":[
			{"authorId":"1","name":"Jane Smith","paperCount":10,"citationCount":100,"affiliations":["UIUC"],"url":"https://s2/1"},
			{"authorId":"2","name":"J. Smith"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	authors, err := c.SearchAuthors(context.Background(), "Jane Smith", 0)
	if err != nil {
		t.Fatalf("SearchAuthors() error = %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("len(authors) = %d, want 2", len(authors))
	}
	if authors[0].PaperCount != 10 || authors[0].Affiliations[0] != "UIUC" {
		t.Errorf("authors[0] = %+v", authors[0])
	}
}

func TestSearchAuthors_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	_, err := c.SearchAuthors(context.Background(), "x", 1)
	if !errors.Is(err, ErrInvalidResponse) || !IsNoData(err) {
		t.Errorf("SearchAuthors() error = %v, want ErrInvalidResponse", err)
	}
}

func TestAuthorPapers_WrappedAndBareItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/author/42/papers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"paperId":"p1","title":"Bare","year":2020,"citationCount":0,"authors":[{"authorId":"42","name":"A"}]},
			{"paper":{"paperId":"p2","title":"Wrapped","year":null,"openAccessPdf":{"url":"https://x/p2.pdf"}}},
			{"title":"no id"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	papers, err := c.AuthorPapers(context.Background(), "42", 0)
	if err != nil {
		t.Fatalf("AuthorPapers() error = %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("len(papers) = %d, want 2", len(papers))
	}
	if papers[0].Title != "Bare" || papers[0].Year == nil || *papers[0].Year != 2020 {
		t.Errorf("papers[0] = %+v", papers[0])
	}
	if papers[0].CitationCount == nil || *papers[0].CitationCount != 0 {
		t.Errorf("papers[0].CitationCount should be a present zero")
	}
	if papers[1].Title != "Wrapped" || papers[1].Year != nil {
		t.Errorf("papers[1] = %+v", papers[1])
	}
	if papers[1].PDFURL() != "https://x/p2.pdf" {
		t.Errorf("PDFURL() = %q", papers[1].PDFURL())
	}
}

func TestSearchPapersBulk_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/paper/search/bulk" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("query"); q != `"First Title" | "Second Title"` {
			t.Errorf("query = %q", q)
		}
		w.Write([]byte(`{"total":1,"data":[{"paperId":"p","title":"First Title","authors":[]}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, fastPacer())
	papers, err := c.SearchPapersBulk(context.Background(), []string{"First Title", ` "Second Title" `, ""})
	if err != nil {
		t.Fatalf("SearchPapersBulk() error = %v", err)
	}
	if len(papers) != 1 {
		t.Errorf("len(papers) = %d, want 1", len(papers))
	}
}

func TestPaper_PDFURLFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		paper Paper
		want  string
	}{
		{"open access", Paper{OpenAccessPDF: &OpenAccessPDF{URL: "https://oa/x.pdf"}, ExternalIDs: &ExternalIDs{DOI: "10.1/x"}}, "https://oa/x.pdf"},
		{"arxiv", Paper{ExternalIDs: &ExternalIDs{ArXiv: "2101.00001", DOI: "10.1/x"}}, "https://arxiv.org/pdf/2101.00001.pdf"},
		{"doi", Paper{ExternalIDs: &ExternalIDs{DOI: "10.1/x"}}, "https://doi.org/10.1/x"},
		{"nothing", Paper{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.paper.PDFURL(); got != tt.want {
				t.Errorf("PDFURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"-1", 0},
		{"garbage", 0},
		{now.Add(3 * time.Second).Format(http.TimeFormat), 3 * time.Second},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in, now); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 500, Code: "server_error", Message: "HTTP 500", Endpoint: "/x"}
	if !strings.Contains(err.Error(), "endpoint: /x") {
		t.Errorf("Error() = %q", err.Error())
	}
}
