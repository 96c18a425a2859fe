package main

import (
	"os"
	"strconv"

	"github.com/facultyindex/facultyindex/internal/catalog"
	"github.com/spf13/cobra"
)

var (
	topBy    string
	topLimit int
)

func init() {
	topCmd.Flags().StringVar(&topBy, "by", "", "Order: cited or recent (default both, cited first)")
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 5, "Papers per ordering")
	rootCmd.AddCommand(topCmd)
}

var topCmd = &cobra.Command{
	Use:   "top <author-id>",
	Short: "List a professor's most cited or most recent papers",
	Long: `Query the SQLite index for one author id's papers.

Run "fidx rebuild" first; the index is not updated by "fidx index".`,
	Args: cobra.ExactArgs(1),
	RunE: runTop,
}

func runTop(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(appConfig.IndexPath()); os.IsNotExist(err) {
		exitWithError(ExitConfigError, "index not found at %s; run 'fidx rebuild' first", appConfig.IndexPath())
	}

	idx, err := catalog.OpenIndex(appConfig.IndexPath())
	if err != nil {
		exitWithError(ExitError, "opening index: %v", err)
	}
	defer idx.Close()

	var papers []catalog.IndexedPaper
	if topBy == "" {
		papers, err = idx.TopPapers(cmd.Context(), args[0], topLimit)
	} else {
		order, perr := catalog.ParseOrder(topBy)
		if perr != nil {
			exitWithError(ExitError, "%v", perr)
		}
		papers, err = idx.ProfessorPapers(cmd.Context(), args[0], order, topLimit)
	}
	if err != nil {
		exitWithError(ExitError, "querying index: %v", err)
	}

	if humanOutput {
		if len(papers) == 0 {
			outputHuman("No papers for %s\n", args[0])
			return nil
		}
		for i, p := range papers {
			year := "-"
			if p.Year > 0 {
				year = strconv.Itoa(p.Year)
			}
			outputHuman("%d. %s (%s) [%d citations]\n", i+1, truncateString(p.Title, TopTitleMaxLen), year, p.Citations)
			if p.PDFURL != "" {
				outputHuman("   %s\n", p.PDFURL)
			}
		}
	} else {
		outputJSON(papers)
	}
	return nil
}
