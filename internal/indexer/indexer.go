// Package indexer runs the per-person pipeline: resolve the name, fetch
// the identity's papers, merge them into the catalog and persist.
package indexer

import (
	"context"
	"time"

	"github.com/facultyindex/facultyindex/internal/catalog"
	"github.com/facultyindex/facultyindex/internal/identity"
	"github.com/facultyindex/facultyindex/internal/roster"
	"github.com/facultyindex/facultyindex/internal/s2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Resolver maps a person to author ids.
type Resolver interface {
	Resolve(ctx context.Context, p roster.Person) (identity.Resolution, error)
}

// Fetcher fetches an author's papers.
type Fetcher interface {
	AuthorPapers(ctx context.Context, authorID string, limit int) ([]s2.Paper, error)
}

// Options tunes a run.
type Options struct {
	CatalogPath     string        // Where the catalog is saved after each person
	MaxNames        int           // Stop after this many persons (0 = all)
	Delay           time.Duration // Pause between persons
	PapersPerAuthor int           // Limit passed to the papers fetch
}

// Summary counts the outcomes of a run.
type Summary struct {
	RunID        string `json:"run_id"`
	Total        int    `json:"total"`
	Processed    int    `json:"processed"`
	Resolved     int    `json:"resolved"`
	Ambiguous    int    `json:"ambiguous"`
	Unresolved   int    `json:"unresolved"`
	Failed       int    `json:"failed"`
	PapersMerged int    `json:"papers_merged"`
	Canceled     bool   `json:"canceled,omitempty"`
}

// Indexer processes a roster one person at a time against a catalog.
type Indexer struct {
	cat      *catalog.Catalog
	resolver Resolver
	fetcher  Fetcher
	opts     Options
	logger   *zap.Logger
	runID    string
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(x *Indexer) {
		x.logger = l
	}
}

// WithRunID sets the run id; by default a random UUID is used.
func WithRunID(id string) Option {
	return func(x *Indexer) {
		x.runID = id
	}
}

// WithClock sets the time source for record stamps.
func WithClock(now func() time.Time) Option {
	return func(x *Indexer) {
		x.now = now
	}
}

// New returns an Indexer that mutates cat in place.
func New(cat *catalog.Catalog, resolver Resolver, fetcher Fetcher, opts Options, options ...Option) *Indexer {
	if opts.PapersPerAuthor <= 0 {
		opts.PapersPerAuthor = s2.DefaultAuthorPapersLimit
	}
	x := &Indexer{
		cat:      cat,
		resolver: resolver,
		fetcher:  fetcher,
		opts:     opts,
		logger:   zap.NewNop(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range options {
		opt(x)
	}
	if x.runID == "" {
		x.runID = uuid.NewString()
	}
	x.logger = x.logger.With(zap.String("run_id", x.runID))
	return x
}

// RunID returns the id attached to this run's logs and review entries.
func (x *Indexer) RunID() string {
	return x.runID
}

// Run processes r in its deterministic order. A person's failure is
// logged and counted; only cancellation stops the run early, in which
// case the summary so far is returned with ctx's error.
func (x *Indexer) Run(ctx context.Context, r roster.Roster) (Summary, error) {
	persons := r.Persons()
	if x.opts.MaxNames > 0 && len(persons) > x.opts.MaxNames {
		persons = persons[:x.opts.MaxNames]
	}
	sum := Summary{RunID: x.runID, Total: len(persons)}
	x.logger.Info("index run started", zap.Int("persons", len(persons)))

	for i, p := range persons {
		if err := ctx.Err(); err != nil {
			sum.Canceled = true
			return sum, err
		}

		if err := x.processPerson(ctx, p, &sum); err != nil {
			sum.Canceled = true
			return sum, err
		}
		sum.Processed++

		if i < len(persons)-1 && x.opts.Delay > 0 {
			if err := x.sleep(ctx, x.opts.Delay); err != nil {
				sum.Canceled = true
				return sum, err
			}
		}
	}

	x.logger.Info("index run finished",
		zap.Int("processed", sum.Processed),
		zap.Int("resolved", sum.Resolved),
		zap.Int("ambiguous", sum.Ambiguous),
		zap.Int("unresolved", sum.Unresolved),
		zap.Int("failed", sum.Failed),
		zap.Int("papers", sum.PapersMerged))
	return sum, nil
}

// processPerson returns an error only when ctx is done.
func (x *Indexer) processPerson(ctx context.Context, p roster.Person, sum *Summary) error {
	log := x.logger.With(
		zap.String("name", p.Name),
		zap.String("institution", p.Institution),
		zap.String("department", p.Department))
	log.Info("processing")

	res, err := x.resolver.Resolve(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("resolve failed", zap.Error(err))
		sum.Failed++
		return nil
	}

	switch {
	case res.Ambiguous:
		sum.Ambiguous++
		log.Warn("skipping ambiguous name", zap.Int("candidates", len(res.Candidates)))
		return nil
	case len(res.IDs) == 0:
		sum.Unresolved++
		log.Info("skipping unresolved name")
		return nil
	}
	sum.Resolved++

	now := x.now()
	x.cat.SetIdentity(p.Name, res.IDs)

	fetched, errs := x.fetchAll(ctx, res.IDs)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	failed := false
	for i, id := range res.IDs {
		if errs[i] != nil {
			failed = true
			log.Error("fetching papers", zap.String("author_id", id), zap.Error(errs[i]))
			continue
		}

		papers := fetched[i]
		ids := x.cat.MergePapers(id, p.Name, papers, now)
		x.cat.UpsertProfessor(id, p.Name, p.Institution, p.Department, ids, now)
		sum.PapersMerged += len(papers)
		log.Info("linked papers",
			zap.String("author_id", id),
			zap.Int("fetched", len(papers)),
			zap.Int("total", len(ids)),
			zap.String("strategy", string(res.Strategy)))
	}

	if err := x.cat.Save(x.opts.CatalogPath); err != nil {
		failed = true
		log.Error("saving catalog", zap.String("path", x.opts.CatalogPath), zap.Error(err))
	}
	if failed {
		sum.Failed++
	}
	return nil
}

// fetchAll fetches every id's papers concurrently. Requests still pass
// through the fetcher's shared pacer; results are returned in ids order
// so merging stays deterministic.
func (x *Indexer) fetchAll(ctx context.Context, ids []string) ([][]s2.Paper, []error) {
	papers := make([][]s2.Paper, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			papers[i], errs[i] = x.fetcher.AuthorPapers(ctx, id, x.opts.PapersPerAuthor)
			return nil
		})
	}
	_ = g.Wait()
	return papers, errs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
