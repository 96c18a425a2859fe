package main

import (
	"github.com/facultyindex/facultyindex/internal/s2"
	"github.com/spf13/cobra"
)

var authorPapersLimit int

func init() {
	authorPapersCmd.Flags().IntVarP(&authorPapersLimit, "limit", "n", s2.DefaultAuthorPapersLimit, "Maximum papers to fetch")
	rootCmd.AddCommand(authorPapersCmd)
}

var authorPapersCmd = &cobra.Command{
	Use:   "author-papers <author-id>",
	Short: "Fetch an author's papers from Semantic Scholar",
	Long:  `Fetch the papers of one Semantic Scholar author id without touching the catalog.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthorPapers,
}

func runAuthorPapers(cmd *cobra.Command, args []string) error {
	papers, err := newS2Client(appConfig).AuthorPapers(cmd.Context(), args[0], authorPapersLimit)
	if err != nil {
		switch {
		case s2.IsNotFound(err):
			exitWithError(ExitAPIError, "author not found: %s", args[0])
		case s2.IsAuthError(err):
			exitWithError(ExitAPIError, "%v", err)
		}
		return err
	}

	if humanOutput {
		outputHuman("%d papers for %s\n", len(papers), args[0])
		for _, p := range papers {
			outputHuman("  %s  %-4s  %6s  %s\n", p.PaperID, formatOptInt(p.Year), formatOptInt(p.CitationCount), truncateString(p.Title, PapersTitleMaxLen))
		}
	} else {
		outputJSON(papers)
	}
	return nil
}
