package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/headhunter"
	"github.com/spigell/jobrank/internal/logger"
	"github.com/spigell/jobrank/internal/storage"
	"github.com/spigell/jobrank/internal/utils"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Search hh.ru and save the found vacancies as jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return ingest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("text", "t", "", "search text (overrides search.text)")
	ingestCmd.Flags().IntP("limit", "l", 0, "maximum number of vacancies to fetch (overrides search.limit)")
	ingestCmd.Flags().Bool("skip-applied", false, "skip vacancies you already applied to (requires a token)")
}

type ingestStats struct {
	created    int
	duplicates int
	failed     int
}

func ingest(cmd *cobra.Command) error {
	ctx := context.Background()
	log, config := setup()

	params := config.Search
	if text, _ := cmd.Flags().GetString("text"); text != "" {
		params.Text = text
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
		params.Limit = limit
	}
	skipApplied, _ := cmd.Flags().GetBool("skip-applied")

	hh, err := newHeadhunter(config, log, skipApplied)
	if err != nil {
		return fmt.Errorf("loading headhunter token: %w", err)
	}

	store, err := openStore(ctx, config, log)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	log.Info("starting the search", zap.String("search", params.Text))

	vacancies, err := hh.Search(ctx, params)
	if err != nil {
		return fmt.Errorf("searching vacancies: %w", err)
	}

	log.Info("getting vacancies", zap.Int("count", vacancies.Len()))

	if skipApplied {
		negotiations, err := hh.GetNegotiations(ctx)
		if err != nil {
			return fmt.Errorf("getting my negotiations: %w", err)
		}

		excluded := vacancies.Exclude(headhunter.VacancyIDField, negotiations.VacanciesIDs())
		if len(excluded) > 0 {
			log.Info("excluding vacancies based on my negotiations",
				zap.Strings("excluded_vacancies", excluded),
				zap.Int("vacancies_left", vacancies.Len()),
			)
		}
	}

	stats, err := saveVacancies(ctx, log, hh, store, vacancies)
	if err != nil {
		return fmt.Errorf("saving vacancies: %w", err)
	}

	log.Info("ingest finished",
		zap.Int("created", stats.created),
		zap.Int("duplicates", stats.duplicates),
		zap.Int("failed", stats.failed),
	)
	return nil
}

// saveVacancies fetches every vacancy in full and stores it. A vacancy that cannot be
// fetched or converted is skipped; a storage failure stops the run.
func saveVacancies(ctx context.Context, log *zap.Logger, hh *headhunter.Client, store storage.Catalog, vacancies *headhunter.Vacancies) (*ingestStats, error) {
	stats := &ingestStats{}

	for i, vacancy := range vacancies.Items {
		if i > 0 {
			if err := utils.WaitFor(ctx, hh.PageDelay); err != nil {
				return stats, err
			}
		}

		full, err := hh.GetVacancy(ctx, vacancy.ID)
		if err != nil {
			log.Warn("fetching vacancy failed", zap.String("vacancy_id", vacancy.ID), zap.Error(err))
			stats.failed++
			continue
		}

		job, err := full.ToJob()
		if err != nil {
			log.Warn("vacancy has no usable text", zap.String("vacancy_id", vacancy.ID), zap.Error(err))
			stats.failed++
			continue
		}

		stored, created, err := store.UpsertJob(ctx, job)
		if err != nil {
			return stats, err
		}

		if created {
			stats.created++
			log.Debug("job saved", logger.JobFields(stored)...)
		} else {
			stats.duplicates++
		}
	}

	return stats, nil
}
