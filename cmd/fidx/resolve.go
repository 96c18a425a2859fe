package main

import (
	"strings"

	"github.com/facultyindex/facultyindex/internal/catalog"
	"github.com/facultyindex/facultyindex/internal/identity"
	"github.com/facultyindex/facultyindex/internal/roster"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	resolveTitles     []string
	resolveUseCatalog bool
)

func init() {
	resolveCmd.Flags().StringArrayVarP(&resolveTitles, "title", "t", nil, "Known paper title or citation (repeatable)")
	resolveCmd.Flags().BoolVar(&resolveUseCatalog, "catalog", false, "Reuse identities stored in the catalog")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Resolve one name to Semantic Scholar author ids",
	Long: `Resolve a single name without modifying the catalog.

Titles given with --title take part in the title vote; without them the
name goes straight to author search.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	p := roster.Person{Name: strings.Join(args, " ")}
	for _, t := range resolveTitles {
		p.Papers = append(p.Papers, roster.Entry{Citation: t})
	}

	var store identity.Identities
	if resolveUseCatalog {
		cat, err := catalog.Load(appConfig.CatalogPath())
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		store = cat
	}

	client := newS2Client(appConfig)
	res, err := newResolver(appConfig, client, store, uuid.NewString(), false).Resolve(cmd.Context(), p)
	if err != nil {
		return err
	}

	if humanOutput {
		outputHuman("%s: %s (%s)\n", res.Name, formatIDList(res.IDs), res.Strategy)
		if res.Strategy == identity.StrategyTitles {
			for _, id := range res.IDs {
				outputHuman("  vote %s: %d\n", id, res.Votes[id])
			}
		}
		if res.Ambiguous {
			outputHuman("  ambiguous, %d candidates:\n", len(res.Candidates))
			for _, c := range res.Candidates {
				outputHuman("    %s (%s) papers=%d citations=%d\n", c.Name, c.AuthorID, c.PaperCount, c.CitationCount)
			}
		}
	} else {
		outputJSON(res)
	}
	return nil
}
