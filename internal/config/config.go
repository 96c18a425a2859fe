// Package config handles the fidx configuration file and its defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the effective fidx configuration.
type Config struct {
	S2       S2Config       `yaml:"s2" json:"s2"`
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Pacer    PacerConfig    `yaml:"pacer" json:"pacer"`
	Retry    RetryConfig    `yaml:"retry" json:"retry"`
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`
	Indexer  IndexerConfig  `yaml:"indexer" json:"indexer"`
	LogLevel string         `yaml:"log_level" json:"log_level"`
}

// S2Config configures the Semantic Scholar client.
type S2Config struct {
	APIKey  string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// PathsConfig locates the data files. Relative paths are resolved
// against DataDir.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	Roster    string `yaml:"roster" json:"roster"`
	Catalog   string `yaml:"catalog" json:"catalog"`
	ReviewLog string `yaml:"review_log" json:"review_log"`
	Index     string `yaml:"index" json:"index"`
}

// PacerConfig bounds the adaptive request interval.
type PacerConfig struct {
	Floor         time.Duration `yaml:"floor" json:"floor"`
	Ceiling       time.Duration `yaml:"ceiling" json:"ceiling"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	RelaxFactor   float64       `yaml:"relax_factor" json:"relax_factor"`
	RelaxAfter    int           `yaml:"relax_after" json:"relax_after"`
}

// RetryConfig bounds per-request retries.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts" json:"max_attempts"`
	RetryAfterCap time.Duration `yaml:"retry_after_cap" json:"retry_after_cap"`
}

// ResolverConfig tunes identity resolution.
type ResolverConfig struct {
	SampleTitles     int  `yaml:"sample_titles" json:"sample_titles"`
	BatchSize        int  `yaml:"batch_size" json:"batch_size"`
	PaperResults     int  `yaml:"paper_results" json:"paper_results"`
	AuthorCandidates int  `yaml:"author_candidates" json:"author_candidates"`
	LooseMatch       bool `yaml:"loose_match" json:"loose_match"`
}

// IndexerConfig tunes the indexing run.
type IndexerConfig struct {
	Delay           time.Duration `yaml:"delay" json:"delay"`
	PapersPerAuthor int           `yaml:"papers_per_author" json:"papers_per_author"`
	MaxNames        int           `yaml:"max_names" json:"max_names"`
}

const (
	RosterFile    = "professors.json"
	CatalogFile   = "database.json"
	ReviewLogFile = "error.txt"
	IndexFile     = "index.db"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		S2: S2Config{
			BaseURL: "https://api.semanticscholar.org/graph/v1",
			Timeout: 45 * time.Second,
		},
		Paths: PathsConfig{
			DataDir:   DefaultDataDir(),
			Roster:    RosterFile,
			Catalog:   CatalogFile,
			ReviewLog: ReviewLogFile,
			Index:     IndexFile,
		},
		Pacer: PacerConfig{
			Floor:         1250 * time.Millisecond,
			Ceiling:       2 * time.Second,
			BackoffFactor: 1.2,
			RelaxFactor:   0.85,
			RelaxAfter:    1,
		},
		Retry: RetryConfig{
			MaxAttempts:   10,
			RetryAfterCap: 2 * time.Second,
		},
		Resolver: ResolverConfig{
			SampleTitles:     5,
			BatchSize:        5,
			PaperResults:     3,
			AuthorCandidates: 5,
		},
		Indexer: IndexerConfig{
			Delay:           time.Second,
			PapersPerAuthor: 120,
		},
		LogLevel: "info",
	}
}

// DefaultDataDir returns $XDG_DATA_HOME/fidx, falling back to
// ~/.local/share/fidx.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, GlobalConfigDir)
}

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate rejects settings the client or indexer cannot run with.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.S2.BaseURL != "", "s2.base_url is empty")
	check(c.S2.Timeout > 0, "s2.timeout must be positive")
	check(c.Paths.DataDir != "", "paths.data_dir is empty")
	check(c.Paths.Roster != "", "paths.roster is empty")
	check(c.Paths.Catalog != "", "paths.catalog is empty")
	check(c.Paths.ReviewLog != "", "paths.review_log is empty")
	check(c.Paths.Index != "", "paths.index is empty")
	check(c.Pacer.Floor > 0, "pacer.floor must be positive")
	check(c.Pacer.Ceiling >= c.Pacer.Floor, "pacer.ceiling must be at least pacer.floor")
	check(c.Pacer.BackoffFactor > 1, "pacer.backoff_factor must be greater than 1")
	check(c.Pacer.RelaxFactor > 0 && c.Pacer.RelaxFactor < 1, "pacer.relax_factor must be in (0, 1)")
	check(c.Pacer.RelaxAfter >= 1, "pacer.relax_after must be at least 1")
	check(c.Retry.MaxAttempts >= 1, "retry.max_attempts must be at least 1")
	check(c.Retry.RetryAfterCap > 0, "retry.retry_after_cap must be positive")
	check(c.Resolver.SampleTitles >= 0, "resolver.sample_titles must not be negative")
	check(c.Resolver.BatchSize >= 1, "resolver.batch_size must be at least 1")
	check(c.Resolver.AuthorCandidates >= 1, "resolver.author_candidates must be at least 1")
	check(c.Indexer.Delay >= 0, "indexer.delay must not be negative")
	check(c.Indexer.PapersPerAuthor >= 1, "indexer.papers_per_author must be at least 1")
	check(c.Indexer.MaxNames >= 0, "indexer.max_names must not be negative")
	check(validLevels[c.LogLevel], "log_level %q is not one of debug, info, warn, error", c.LogLevel)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// resolve expands ~ and anchors relative paths at the data directory.
func (c *Config) resolve(p string) string {
	p = ExpandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ExpandPath(c.Paths.DataDir), p)
}

// RosterPath returns the resolved roster file path.
func (c *Config) RosterPath() string { return c.resolve(c.Paths.Roster) }

// CatalogPath returns the resolved catalog file path.
func (c *Config) CatalogPath() string { return c.resolve(c.Paths.Catalog) }

// ReviewLogPath returns the resolved ambiguity log path.
func (c *Config) ReviewLogPath() string { return c.resolve(c.Paths.ReviewLog) }

// IndexPath returns the resolved SQLite index path.
func (c *Config) IndexPath() string { return c.resolve(c.Paths.Index) }

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
