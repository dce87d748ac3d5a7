package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/logger"
	"github.com/spigell/jobrank/internal/utils"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Save one job posting from a text file or stdin",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return add(cmd)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().StringP("file", "f", "-", "file with the job description, - reads stdin")
	addCmd.Flags().String("title", "", "job title (default is the first line of the description)")
	addCmd.Flags().String("company", "", "company name")
	addCmd.Flags().String("location", "", "job location")
	addCmd.Flags().String("url", "", "job posting url")
}

func add(cmd *cobra.Command) error {
	ctx := context.Background()
	log, config := setup()

	rawText, err := readInput(cmd.Flag("file").Value.String())
	if err != nil {
		return fmt.Errorf("reading the job description: %w", err)
	}

	title := cmd.Flag("title").Value.String()
	if title == "" {
		title = utils.FirstLine(rawText)
	}

	job, err := jobs.New(
		title,
		cmd.Flag("company").Value.String(),
		cmd.Flag("location").Value.String(),
		cmd.Flag("url").Value.String(),
		rawText,
	)
	if err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	store, err := openStore(ctx, config, log)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	stored, created, err := store.UpsertJob(ctx, job)
	if err != nil {
		return fmt.Errorf("saving the job: %w", err)
	}

	if !created {
		log.Info("job already saved", logger.JobFields(stored)...)
		return nil
	}
	log.Info("job saved", logger.JobFields(stored)...)
	return nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}

	data, err := os.ReadFile(path)
	return string(data), err
}
