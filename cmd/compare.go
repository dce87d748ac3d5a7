package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobrank/internal/jobs"
	"github.com/spigell/jobrank/internal/preference"
)

const (
	PromptSkip = "Skip this pair"
	PromptQuit = "Quit"
)

var errExit = errors.New("exit requested")

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare jobs pairwise and update preference ratings",
	Long: `Without flags the command shows two jobs at a time and asks which one you prefer.
With --winner and --loser it records a single preference and exits.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return compare(cmd)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().IntP("rounds", "n", 0, "stop after this many comparisons (default is until quit)")
	compareCmd.Flags().String("winner", "", "id of the preferred job")
	compareCmd.Flags().String("loser", "", "id of the other job")
}

func compare(cmd *cobra.Command) error {
	ctx := context.Background()
	logger, config := setup()

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}
	defer store.Close()

	engine, err := newEngine(config, store, logger)
	if err != nil {
		return fmt.Errorf("building the preference engine: %w", err)
	}

	winner, _ := cmd.Flags().GetString("winner")
	loser, _ := cmd.Flags().GetString("loser")
	if winner != "" || loser != "" {
		if err := recordOne(ctx, engine, winner, loser); err != nil {
			return fmt.Errorf("recording the preference: %w", err)
		}
		return nil
	}

	rounds, _ := cmd.Flags().GetInt("rounds")
	done, err := compareRounds(rounds, func() (*preference.Outcome, error) {
		return compareOnce(ctx, engine)
	})
	logger.Debug("comparison session finished", zap.Int("recorded", done))

	switch {
	case errors.Is(err, errExit):
		return nil
	case errors.Is(err, jobs.ErrInsufficientData):
		logger.Info("exiting", zap.String("reason", "at least two jobs are needed to compare"))
		return nil
	case err != nil:
		return fmt.Errorf("comparing jobs: %w", err)
	}
	return nil
}

// compareRounds calls next until rounds outcomes are recorded or next fails.
// A nil outcome is a skipped pair and is not counted. Non-positive rounds means no limit.
func compareRounds(rounds int, next func() (*preference.Outcome, error)) (int, error) {
	done := 0
	for rounds <= 0 || done < rounds {
		outcome, err := next()
		if err != nil {
			return done, err
		}
		if outcome == nil {
			continue
		}

		done++
		fmt.Printf("winner %.1f, loser %.1f, %d other jobs moved\n",
			outcome.WinnerRating, outcome.LoserRating, outcome.SpreadUpdated)
	}
	return done, nil
}

// compareOnce asks for one choice. A skipped pair returns a nil outcome.
func compareOnce(ctx context.Context, engine *preference.Engine) (*preference.Outcome, error) {
	a, b, err := engine.NextPair(ctx)
	if err != nil {
		return nil, err
	}

	prompt := promptui.Select{
		Label: "Which job do you prefer?",
		Items: []string{a.Label(), b.Label(), PromptSkip, PromptQuit},
		Size:  4,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil, errExit
		}
		return nil, err
	}

	choice := jobs.Choice{JobA: a.ID, JobB: b.ID}
	switch idx {
	case 0:
		choice.Chosen = a.ID
	case 1:
		choice.Chosen = b.ID
	case 2:
		return nil, nil
	default:
		return nil, errExit
	}

	return engine.Submit(ctx, choice)
}

func recordOne(ctx context.Context, engine *preference.Engine, winner, loser string) error {
	winnerID, err := uuid.Parse(winner)
	if err != nil {
		return fmt.Errorf("%w: winner id: %v", jobs.ErrInvalidChoice, err)
	}
	loserID, err := uuid.Parse(loser)
	if err != nil {
		return fmt.Errorf("%w: loser id: %v", jobs.ErrInvalidChoice, err)
	}

	outcome, err := engine.RecordPreference(ctx, winnerID, loserID)
	if err != nil {
		return err
	}

	fmt.Printf("winner %.1f, loser %.1f, %d other jobs moved\n",
		outcome.WinnerRating, outcome.LoserRating, outcome.SpreadUpdated)
	return nil
}
