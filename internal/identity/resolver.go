// Package identity maps local faculty names to external author ids.
//
// Resolution tries, in order: an identity already stored in the catalog,
// a vote over the authors of the person's own papers (found by title),
// and finally a direct author search that only accepts a unique hit.
package identity

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/facultyindex/facultyindex/internal/author"
	"github.com/facultyindex/facultyindex/internal/reviewlog"
	"github.com/facultyindex/facultyindex/internal/roster"
	"github.com/facultyindex/facultyindex/internal/s2"
	"github.com/facultyindex/facultyindex/internal/title"
	"go.uber.org/zap"
)

// Strategy names the step that produced a Resolution.
type Strategy string

const (
	StrategyNone    Strategy = "none"
	StrategyCatalog Strategy = "catalog"
	StrategyTitles  Strategy = "titles"
	StrategySearch  Strategy = "author-search"
)

// Resolution is the outcome of resolving one local name. IDs is empty when
// nothing was found or the result was ambiguous.
type Resolution struct {
	Name       string         `json:"name"`
	IDs        []string       `json:"authorIds"`
	Strategy   Strategy       `json:"strategy"`
	Ambiguous  bool           `json:"ambiguous,omitempty"`
	Votes      map[string]int `json:"votes,omitempty"`
	Candidates []s2.Author    `json:"candidates,omitempty"`
}

// API is the subset of the graph client the resolver needs.
type API interface {
	SearchPapersBulk(ctx context.Context, titles []string) ([]s2.Paper, error)
	SearchPapers(ctx context.Context, query string, limit int) ([]s2.Paper, error)
	SearchAuthors(ctx context.Context, name string, limit int) ([]s2.Author, error)
}

// Identities looks up previously stored identities.
type Identities interface {
	IdentityFor(name string) []string
}

// ReviewLog receives ambiguous resolutions.
type ReviewLog interface {
	Append(e reviewlog.Entry) error
}

// Config tunes resolution.
type Config struct {
	SampleTitles     int         // Titles used for the vote
	BatchSize        int         // Titles per bulk query
	PaperResults     int         // Results per single-title fallback query
	AuthorCandidates int         // Candidates requested from author search
	Mode             author.Mode // Name comparison mode for votes
	Refresh          bool        // Ignore stored identities
}

// DefaultConfig returns the production resolver settings.
func DefaultConfig() Config {
	return Config{
		SampleTitles:     5,
		BatchSize:        5,
		PaperResults:     s2.DefaultPaperSearchLimit,
		AuthorCandidates: s2.DefaultAuthorSearchLimit,
		Mode:             author.Strict,
	}
}

// Resolver resolves local names against the graph API.
type Resolver struct {
	api       API
	cfg       Config
	store     Identities
	review    ReviewLog
	extractor *title.Extractor
	logger    *zap.Logger
	runID     string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithIdentities enables reuse of stored identities.
func WithIdentities(s Identities) Option {
	return func(r *Resolver) {
		r.store = s
	}
}

// WithReviewLog sets where ambiguous resolutions are recorded.
func WithReviewLog(l ReviewLog) Option {
	return func(r *Resolver) {
		r.review = l
	}
}

// WithExtractor sets the title extractor used on citation entries.
func WithExtractor(e *title.Extractor) Option {
	return func(r *Resolver) {
		r.extractor = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithRunID tags review log entries with the given run id.
func WithRunID(id string) Option {
	return func(r *Resolver) {
		r.runID = id
	}
}

// NewResolver returns a Resolver. Zero-valued Config fields take their
// defaults.
func NewResolver(api API, cfg Config, opts ...Option) *Resolver {
	def := DefaultConfig()
	if cfg.SampleTitles <= 0 {
		cfg.SampleTitles = def.SampleTitles
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PaperResults <= 0 {
		cfg.PaperResults = def.PaperResults
	}
	if cfg.AuthorCandidates <= 0 {
		cfg.AuthorCandidates = def.AuthorCandidates
	}

	r := &Resolver{
		api:    api,
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.extractor == nil {
		r.extractor = title.NewExtractor(title.WithLogger(r.logger))
	}
	return r
}

// Resolve maps p to zero or more author ids. API failures inside a
// strategy degrade to "no data"; only context cancellation is returned as
// an error.
func (r *Resolver) Resolve(ctx context.Context, p roster.Person) (Resolution, error) {
	res := Resolution{Name: p.Name, Strategy: StrategyNone}
	log := r.logger.With(zap.String("name", p.Name))

	if !r.cfg.Refresh && r.store != nil {
		if ids := r.store.IdentityFor(p.Name); len(ids) > 0 {
			log.Debug("reusing stored identity", zap.Strings("ids", ids))
			res.IDs = ids
			res.Strategy = StrategyCatalog
			return res, nil
		}
	}

	titles := p.Titles(r.extractor, r.cfg.SampleTitles)
	if len(titles) > 0 {
		votes, err := r.voteByTitles(ctx, p.Name, titles)
		if err != nil {
			return res, err
		}
		if len(votes) > 0 {
			res.IDs = rankVotes(votes)
			res.Votes = votes
			res.Strategy = StrategyTitles
			log.Info("resolved by titles", zap.Strings("ids", res.IDs), zap.Int("titles", len(titles)))
			return res, nil
		}
		log.Debug("no title votes", zap.Int("titles", len(titles)))
	}

	return r.searchAuthor(ctx, p.Name, res, log)
}

func (r *Resolver) voteByTitles(ctx context.Context, name string, titles []string) (map[string]int, error) {
	m := author.NewMatcher(name, r.cfg.Mode)
	votes := make(map[string]int)
	counted := make(map[string]bool)

	tally := func(papers []s2.Paper) {
		for _, p := range papers {
			if p.PaperID != "" {
				if counted[p.PaperID] {
					continue
				}
				counted[p.PaperID] = true
			}
			voted := make(map[string]bool)
			for _, a := range p.Authors {
				if a.AuthorID == "" || voted[a.AuthorID] || !m.Matches(a.Name) {
					continue
				}
				voted[a.AuthorID] = true
				votes[a.AuthorID]++
			}
		}
	}

	for start := 0; start < len(titles); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(titles))
		batch := titles[start:end]

		papers, err := r.api.SearchPapersBulk(ctx, batch)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			r.logger.Warn("bulk title search failed", zap.String("name", name), zap.Error(err))
		}
		papers = matchingTitles(papers, batch)
		if err == nil && len(papers) > 0 {
			tally(papers)
			continue
		}

		for _, t := range batch {
			papers, err := r.api.SearchPapers(ctx, t, r.cfg.PaperResults)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err != nil {
				r.logger.Warn("title search failed",
					zap.String("name", name), zap.String("title", t), zap.Error(err))
				continue
			}
			tally(papers)
		}
	}
	return votes, nil
}

func (r *Resolver) searchAuthor(ctx context.Context, name string, res Resolution, log *zap.Logger) (Resolution, error) {
	candidates, err := r.api.SearchAuthors(ctx, name, r.cfg.AuthorCandidates)
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if err != nil {
		log.Warn("author search failed", zap.Error(err))
		return res, nil
	}

	var valid []s2.Author
	for _, c := range candidates {
		if c.AuthorID != "" {
			valid = append(valid, c)
		}
	}

	switch len(valid) {
	case 0:
		log.Info("no author candidates")
	case 1:
		res.IDs = []string{valid[0].AuthorID}
		res.Strategy = StrategySearch
		log.Info("resolved by author search", zap.String("id", valid[0].AuthorID))
	default:
		res.Strategy = StrategySearch
		res.Ambiguous = true
		res.Candidates = valid
		log.Warn("multiple author candidates", zap.Int("candidates", len(valid)))
		r.recordAmbiguity(name, valid, log)
	}
	return res, nil
}

func (r *Resolver) recordAmbiguity(name string, candidates []s2.Author, log *zap.Logger) {
	if r.review == nil {
		return
	}
	e := reviewlog.Entry{Name: name, RunID: r.runID}
	for _, c := range candidates {
		e.Candidates = append(e.Candidates, reviewlog.Candidate{
			AuthorID:      c.AuthorID,
			Name:          c.Name,
			Affiliations:  c.Affiliations,
			PaperCount:    c.PaperCount,
			CitationCount: c.CitationCount,
			URL:           c.URL,
		})
	}
	if err := r.review.Append(e); err != nil {
		log.Error("writing review log", zap.Error(err))
	}
}

// rankVotes orders ids by votes descending, then id ascending.
func rankVotes(votes map[string]int) []string {
	ids := make([]string, 0, len(votes))
	for id := range votes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if votes[ids[i]] != votes[ids[j]] {
			return votes[ids[i]] > votes[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// matchingTitles keeps bulk results whose title contains one of the
// queried titles, compared on letters and digits only.
func matchingTitles(papers []s2.Paper, titles []string) []s2.Paper {
	keys := make([]string, 0, len(titles))
	for _, t := range titles {
		if k := titleKey(t); k != "" {
			keys = append(keys, k)
		}
	}
	var out []s2.Paper
	for _, p := range papers {
		pk := titleKey(p.Title)
		for _, k := range keys {
			if strings.Contains(pk, k) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func titleKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
