package main

import (
	"net/http"

	"github.com/facultyindex/facultyindex/internal/author"
	"github.com/facultyindex/facultyindex/internal/config"
	"github.com/facultyindex/facultyindex/internal/identity"
	"github.com/facultyindex/facultyindex/internal/pacer"
	"github.com/facultyindex/facultyindex/internal/reviewlog"
	"github.com/facultyindex/facultyindex/internal/s2"
	"github.com/facultyindex/facultyindex/internal/title"
)

// newS2Client builds a paced graph client from the loaded configuration.
func newS2Client(cfg *config.Config) *s2.Client {
	pc := pacer.Config{
		Floor:         cfg.Pacer.Floor,
		Ceiling:       cfg.Pacer.Ceiling,
		BackoffFactor: cfg.Pacer.BackoffFactor,
		RelaxFactor:   cfg.Pacer.RelaxFactor,
		RelaxAfter:    cfg.Pacer.RelaxAfter,
	}
	policy := s2.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.RetryAfterCap = cfg.Retry.RetryAfterCap

	return s2.NewClient(
		s2.WithAPIKey(cfg.S2.APIKey),
		s2.WithBaseURL(cfg.S2.BaseURL),
		s2.WithHTTPClient(&http.Client{Timeout: cfg.S2.Timeout}),
		s2.WithPacer(pacer.New(pc, pacer.WithLogger(logger))),
		s2.WithRetryPolicy(policy),
		s2.WithLogger(logger),
	)
}

// resolverConfig maps the resolver section onto identity.Config.
func resolverConfig(cfg *config.Config, refresh bool) identity.Config {
	mode := author.Strict
	if cfg.Resolver.LooseMatch {
		mode = author.Loose
	}
	return identity.Config{
		SampleTitles:     cfg.Resolver.SampleTitles,
		BatchSize:        cfg.Resolver.BatchSize,
		PaperResults:     cfg.Resolver.PaperResults,
		AuthorCandidates: cfg.Resolver.AuthorCandidates,
		Mode:             mode,
		Refresh:          refresh,
	}
}

// newResolver wires a resolver with the review log and an optional
// identity store.
func newResolver(cfg *config.Config, client *s2.Client, store identity.Identities, runID string, refresh bool) *identity.Resolver {
	opts := []identity.Option{
		identity.WithReviewLog(reviewlog.New(cfg.ReviewLogPath())),
		identity.WithExtractor(title.NewExtractor(title.WithLogger(logger))),
		identity.WithLogger(logger),
		identity.WithRunID(runID),
	}
	if store != nil {
		opts = append(opts, identity.WithIdentities(store))
	}
	return identity.NewResolver(client, resolverConfig(cfg, refresh), opts...)
}
