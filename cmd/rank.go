package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print analyzed jobs ordered by fit score and preference",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntP("top", "n", 0, "print only the first n jobs")
	rankCmd.Flags().Bool("as-json", false, "print entries as json")
	rankCmd.Flags().BoolP("guidance", "g", false, "print the three sentence guidance under the table")
}

func rank(cmd *cobra.Command) error {
	ctx := context.Background()
	logger, config := setup()

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	all, err := store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	entries, err := ranking.Rank(all, config.Ranking)
	if errors.Is(err, jobs.ErrInsufficientData) {
		logger.Info("exiting", zap.String("reason", "no analyzed jobs, run the score command first"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("ranking jobs: %w", err)
	}

	if top, _ := cmd.Flags().GetInt("top"); top > 0 && top < len(entries) {
		entries = entries[:top]
	}

	asJSON, _ := cmd.Flags().GetBool("as-json")
	withGuidance, _ := cmd.Flags().GetBool("guidance")
	if err := printEntries(os.Stdout, entries, asJSON, withGuidance); err != nil {
		return fmt.Errorf("printing the ranking: %w", err)
	}
	return nil
}

func printEntries(w io.Writer, entries []ranking.Entry, asJSON, withGuidance bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCOMBINED\tFIT\tPREFERENCE\tRESUME\tTITLE\tCOMPANY\tURL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Rank, e.Combined, optionalInt(e.FitScore), optionalFloat(e.Preference),
			optionalString(e.RecommendedResume), e.Title, e.Company, e.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !withGuidance {
		return nil
	}
	for _, e := range entries {
		if e.Guidance == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%d. %s\n   %s\n", e.Rank, e.Title, e.Guidance); err != nil {
			return err
		}
	}
	return nil
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func optionalString(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
