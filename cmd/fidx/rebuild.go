package main

import (
	"errors"

	"github.com/facultyindex/facultyindex/internal/catalog"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query index from the catalog",
	Long: `Rebuild the SQLite query index from the JSON catalog.

The index is derived data; rebuild it after an index run or whenever it is
missing or stale.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	catalog.Stats
	Problems []string `json:"problems,omitempty"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Load(appConfig.CatalogPath())
	if err != nil {
		if errors.Is(err, catalog.ErrCorrupt) {
			exitWithError(ExitDataError, "%v", err)
		}
		exitWithError(ExitError, "loading catalog: %v", err)
	}

	idx, err := catalog.OpenIndex(appConfig.IndexPath())
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	defer idx.Close()

	stats, err := idx.Rebuild(cmd.Context(), cat)
	if err != nil {
		exitWithError(ExitError, "rebuilding index: %v", err)
	}

	result := RebuildResult{
		Status:   "rebuilt",
		Path:     appConfig.IndexPath(),
		Stats:    stats,
		Problems: cat.Check(),
	}
	if humanOutput {
		outputHuman("Rebuilt %s: %d professors, %d papers, %d links\n",
			result.Path, stats.Professors, stats.Papers, stats.PaperAuthors)
		for _, p := range result.Problems {
			outputHuman("  warning: %s\n", p)
		}
	} else {
		outputJSON(result)
	}
	return nil
}
