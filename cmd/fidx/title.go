package main

import (
	"bufio"
	"os"
	"strings"

	"github.com/facultyindex/facultyindex/internal/title"
	"github.com/spf13/cobra"
)

var titleHTML bool

func init() {
	titleCmd.Flags().BoolVar(&titleHTML, "html", false, "Treat each input as an HTML list-item fragment")
	rootCmd.AddCommand(titleCmd)
}

var titleCmd = &cobra.Command{
	Use:   "title [citation...]",
	Short: "Extract paper titles from citation text",
	Long: `Extract the title from each citation argument, or from each line of
stdin when no arguments are given. No network access is needed.`,
	RunE: runTitle,
}

// TitleResult is one extraction in the title command output.
type TitleResult struct {
	Input string `json:"input"`
	Title string `json:"title,omitempty"`
	Stage string `json:"stage,omitempty"`
	Found bool   `json:"found"`
}

func runTitle(cmd *cobra.Command, args []string) error {
	inputs := args
	if len(inputs) == 0 {
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				inputs = append(inputs, line)
			}
		}
		if err := sc.Err(); err != nil {
			exitWithError(ExitDataError, "reading stdin: %v", err)
		}
	}

	ex := title.NewExtractor(title.WithLogger(logger))
	results := make([]TitleResult, 0, len(inputs))
	for _, in := range inputs {
		c := title.Citation{Text: in}
		if titleHTML {
			var err error
			if c, err = title.FromHTML(in); err != nil {
				exitWithError(ExitDataError, "%v", err)
			}
		}
		r, ok := ex.Extract(c)
		results = append(results, TitleResult{Input: in, Title: r.Title, Stage: r.Stage, Found: ok})
	}

	if humanOutput {
		for _, r := range results {
			if r.Found {
				outputHuman("%s\t[%s]\n", r.Title, r.Stage)
			} else {
				outputHuman("-\t[none]\n")
			}
		}
	} else {
		outputJSON(results)
	}
	return nil
}
