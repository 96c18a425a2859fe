package main

import (
	"errors"
	"os"
	"time"

	"github.com/facultyindex/facultyindex/internal/catalog"
	"github.com/facultyindex/facultyindex/internal/config"
	"github.com/facultyindex/facultyindex/internal/indexer"
	"github.com/facultyindex/facultyindex/internal/roster"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	indexRefresh    bool
	indexLimitNames int
	indexRoster     string
)

func init() {
	indexCmd.Flags().BoolVar(&indexRefresh, "refresh", false, "Re-resolve names that already have stored identities")
	indexCmd.Flags().IntVar(&indexLimitNames, "limit-names", 0, "Process at most N names (0 = config value, or all)")
	indexCmd.Flags().StringVar(&indexRoster, "roster", "", "Roster file (default <data_dir>/professors.json)")
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Resolve every roster name and merge their papers into the catalog",
	Long: `Walk the roster one name at a time: resolve the name to author ids,
fetch each author's papers, merge them into the catalog and save it.

The catalog is saved after every name, so an interrupted run keeps all
completed work. Ambiguous names are appended to the review log and skipped.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

// IndexResult is the response for the index command.
type IndexResult struct {
	indexer.Summary
	Catalog   string `json:"catalog"`
	ReviewLog string `json:"review_log"`
	Elapsed   string `json:"elapsed"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	rosterPath := appConfig.RosterPath()
	if indexRoster != "" {
		rosterPath = config.ExpandPath(indexRoster)
	}
	r, err := roster.Load(rosterPath)
	if err != nil {
		exitWithError(ExitDataError, "loading roster: %v", err)
	}

	catPath := appConfig.CatalogPath()
	cat, err := catalog.Load(catPath)
	if err != nil {
		if errors.Is(err, catalog.ErrCorrupt) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "loading catalog: %v", err)
	}
	if err := os.MkdirAll(appConfig.Paths.DataDir, 0755); err != nil {
		exitWithError(ExitError, "creating data directory: %v", err)
	}

	runID := uuid.NewString()
	client := newS2Client(appConfig)
	resolver := newResolver(appConfig, client, cat, runID, indexRefresh)

	maxNames := appConfig.Indexer.MaxNames
	if indexLimitNames > 0 {
		maxNames = indexLimitNames
	}
	x := indexer.New(cat, resolver, client, indexer.Options{
		CatalogPath:     catPath,
		MaxNames:        maxNames,
		Delay:           appConfig.Indexer.Delay,
		PapersPerAuthor: appConfig.Indexer.PapersPerAuthor,
	}, indexer.WithLogger(logger), indexer.WithRunID(runID))

	logger.Info("starting index run",
		zap.String("run_id", runID),
		zap.String("roster", rosterPath),
		zap.Int("names", r.Len()))

	start := time.Now()
	sum, err := x.Run(cmd.Context(), r)
	if err != nil && !sum.Canceled {
		exitWithError(ExitError, "index run: %v", err)
	}

	result := IndexResult{
		Summary:   sum,
		Catalog:   catPath,
		ReviewLog: appConfig.ReviewLogPath(),
		Elapsed:   formatDuration(time.Since(start)),
	}
	if humanOutput {
		outputHuman("Run %s: %d/%d names processed in %s\n", sum.RunID, sum.Processed, sum.Total, result.Elapsed)
		outputHuman("  resolved:   %d\n", sum.Resolved)
		outputHuman("  ambiguous:  %d (see %s)\n", sum.Ambiguous, result.ReviewLog)
		outputHuman("  unresolved: %d\n", sum.Unresolved)
		outputHuman("  failed:     %d\n", sum.Failed)
		outputHuman("  papers:     %d merged into %s\n", sum.PapersMerged, catPath)
		if sum.Canceled {
			outputHuman("Interrupted; completed names were saved.\n")
		}
	} else {
		outputJSON(result)
	}

	if sum.Canceled {
		os.Exit(ExitInterrupted)
	}
	return nil
}
