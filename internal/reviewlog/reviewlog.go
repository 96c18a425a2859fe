// Package reviewlog appends ambiguous identity resolutions to a plain-text
// log for later human review.
package reviewlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the timestamp prefix of each entry.
const TimeLayout = "2006-01-02 15:04:05"

// Candidate is one author the local name could refer to.
type Candidate struct {
	AuthorID      string
	Name          string
	Affiliations  []string
	PaperCount    int
	CitationCount int
	URL           string
}

// Entry is one ambiguous resolution.
type Entry struct {
	Name       string
	RunID      string
	Candidates []Candidate
}

// Log is an append-only review log file. The zero value is not usable;
// construct with New.
type Log struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// Option configures a Log.
type Option func(*Log)

// WithClock sets the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns a Log writing to path. The file is created on first append.
func New(path string, opts ...Option) *Log {
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes e to the end of the log, stamped with the current time.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating review log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening review log for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(Format(e, l.now())); err != nil {
		return fmt.Errorf("writing review log entry: %w", err)
	}
	return nil
}

// Format renders e as it appears in the log, terminated by a blank line.
func Format(e Entry, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - Multiple author candidates found for '%s':", at.Format(TimeLayout), e.Name)
	if e.RunID != "" {
		fmt.Fprintf(&b, " [run %s]", e.RunID)
	}
	b.WriteByte('\n')
	for _, c := range e.Candidates {
		aff := "-"
		if len(c.Affiliations) > 0 {
			aff = strings.Join(c.Affiliations, "; ")
		}
		fmt.Fprintf(&b, "- %s (%s), Affiliation: %s, Papers: %d, Citations: %d, URL: %s\n",
			c.Name, c.AuthorID, aff, c.PaperCount, c.CitationCount, c.URL)
	}
	b.WriteByte('\n')
	return b.String()
}
