package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/ai"
	"github.com/spigell/jobrank/internal/filtering"
	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/ranking"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score saved jobs against the stored resume with Gemini",
	Long: `Scores pending jobs and stores the fit score, reasoning, guidance, recommended
resume and extracted requirements. With --shortlist the best scored jobs are
printed afterwards, ordered by fit score only.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().BoolP("force", "f", false, "re-score jobs that already have a fit score")
	scoreCmd.Flags().Bool("dry-run", false, "only list the jobs that would be scored")
	scoreCmd.Flags().Int("max-batch-jobs", 0, "maximum number of jobs to score in one run (overrides filters.max-batch-jobs)")
	scoreCmd.Flags().IntP("shortlist", "s", 0, fmt.Sprintf("print the n best fitting jobs after scoring (1-%d)", ranking.MaxShortlist))
}

func score(cmd *cobra.Command) error {
	ctx := context.Background()
	log, config := setup()

	filters := config.Filters
	if force, _ := cmd.Flags().GetBool("force"); force {
		filters.Force = true
	}
	if limit, _ := cmd.Flags().GetInt("max-batch-jobs"); limit > 0 {
		filters.MaxBatchJobs = limit
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	shortlist, _ := cmd.Flags().GetInt("shortlist")
	if cmd.Flags().Changed("shortlist") && (shortlist < 1 || shortlist > ranking.MaxShortlist) {
		return fmt.Errorf("--shortlist must be between 1 and %d", ranking.MaxShortlist)
	}

	store, err := openStore(ctx, config, log)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	resume, err := store.LatestResume(ctx)
	if errors.Is(err, jobs.ErrNotFound) {
		return fmt.Errorf("no resume stored, run the resume command first: %w", err)
	}
	if err != nil {
		return fmt.Errorf("getting the resume: %w", err)
	}

	all, err := store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("listing jobs: %w", err)
	}

	steps := filtering.Default()
	deps := filtering.Deps{Logger: log, Resume: resume}

	if dryRun {
		filtering.DisableByName(steps, "ai_fit", "dry run")
	} else {
		scorer, err := newScorer(ctx, config, log)
		if err != nil {
			return fmt.Errorf("building the fit scorer: %w", err)
		}
		deps.Scorer = scorer
	}

	pool := jobs.NewPool(append([]*jobs.Job(nil), all...))
	left, assessments, err := filtering.Run(ctx, filters, deps, steps, pool)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	for _, status := range filtering.Describe(steps) {
		log.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	if dryRun {
		for _, job := range left.Items {
			fmt.Println(job.ID, job.Label())
		}
		log.Info("dry run finished", zap.Int("would_score", left.Len()))
		return nil
	}

	analyzed := applyAssessments(all, assessments, time.Now())
	if err := store.SaveAnalyses(ctx, analyzed); err != nil {
		return fmt.Errorf("saving the analyses: %w", err)
	}

	log.Info("scoring finished",
		zap.Int("scored", len(analyzed)),
		zap.Int("above_minimum", left.Len()),
	)

	if shortlist == 0 {
		return nil
	}

	entries, err := ranking.Shortlist(all, shortlist)
	if errors.Is(err, jobs.ErrInsufficientData) {
		log.Info("nothing to shortlist", zap.String("reason", "no scored jobs"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("building the shortlist: %w", err)
	}
	return printEntries(os.Stdout, entries, false, true)
}

// applyAssessments records every assessment on its job and returns the changed jobs
// in their listing order.
func applyAssessments(all []*jobs.Job, assessments map[uuid.UUID]*ai.FitAssessment, at time.Time) []*jobs.Job {
	var analyzed []*jobs.Job
	for _, job := range all {
		assessment, ok := assessments[job.ID]
		if !ok {
			continue
		}
		assessment.ApplyTo(job, at)
		analyzed = append(analyzed, job)
	}
	return analyzed
}
