package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recorded comparisons, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return history(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "number of comparisons to print, 0 prints all")
}

func history(cmd *cobra.Command) error {
	ctx := context.Background()
	logger, config := setup()

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	comparisons, err := store.ListComparisons(ctx)
	if err != nil {
		return fmt.Errorf("listing comparisons: %w", err)
	}

	all, err := store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}
	pool := jobs.NewPool(all)

	limit, _ := cmd.Flags().GetInt("limit")

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCHOSEN\tREJECTED")
	for i := len(comparisons) - 1; i >= 0; i-- {
		if limit > 0 && len(comparisons)-i > limit {
			break
		}
		c := comparisons[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			c.CreatedAt.Local().Format("2006-01-02 15:04"), label(pool, c.Chosen), label(pool, c.Rejected))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("printing the history: %w", err)
	}

	logger.Debug("comparisons listed", zap.Int("total", len(comparisons)))
	return nil
}

func label(pool *jobs.Pool, id uuid.UUID) string {
	if job := pool.FindByID(id); job != nil {
		return job.Label()
	}
	return id.String()
}
