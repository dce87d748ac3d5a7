package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Store the resume used for fit scoring",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return resume(cmd)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().StringP("file", "f", "", "file with the resume text, - reads stdin")
	resumeCmd.Flags().Bool("from-hh", false, "import one of your hh.ru resumes (requires a token)")
	resumeCmd.Flags().String("title", "", "title of the hh.ru resume to import (default is to ask)")
}

func resume(cmd *cobra.Command) error {
	ctx := context.Background()
	logger, config := setup()

	fromHH, _ := cmd.Flags().GetBool("from-hh")
	file, _ := cmd.Flags().GetString("file")
	if fromHH == (file != "") {
		return fmt.Errorf("exactly one of --file or --from-hh is required")
	}

	var text string
	var err error
	if fromHH {
		title, _ := cmd.Flags().GetString("title")
		text, err = resumeFromHH(ctx, config, logger, title)
	} else {
		text, err = readInput(file)
	}
	if err != nil {
		return fmt.Errorf("reading the resume: %w", err)
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	saved, err := store.SaveResume(ctx, text)
	if err != nil {
		return fmt.Errorf("saving the resume: %w", err)
	}

	logger.Info("resume saved",
		zap.String("resume_id", saved.ID.String()),
		zap.Int("length", len([]rune(saved.RawText))),
	)
	return nil
}

func resumeFromHH(ctx context.Context, config *Config, logger *zap.Logger, title string) (string, error) {
	hh, err := newHeadhunter(config, logger, true)
	if err != nil {
		return "", err
	}

	resumes, err := hh.GetMineResumes(ctx)
	if err != nil {
		return "", fmt.Errorf("getting mine resumes: %w", err)
	}

	logger.Info("getting mine resumes", zap.Int("count", resumes.Len()))

	if resumes.Len() == 0 {
		return "", fmt.Errorf("there are no resumes in the hh.ru account")
	}

	if title == "" {
		prompt := promptui.Select{
			Label: "Choose a resume and press ENTER",
			Items: resumes.Titles(),
		}
		if _, title, err = prompt.Run(); err != nil {
			return "", err
		}
	}

	selected := resumes.FindByTitle(title)
	if selected == nil {
		return "", fmt.Errorf("resume with title %q not found, existing titles: %v", title, resumes.Titles())
	}

	details, err := hh.GetResumeDetails(ctx, selected.ID)
	if err != nil {
		return "", fmt.Errorf("getting resume details: %w", err)
	}

	return details.Text()
}
