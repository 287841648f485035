package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ashureev/learnerbot/internal/domain"
	"github.com/ashureev/learnerbot/internal/progress"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show the local learner's level, XP, streak and badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *progress.Engine) error {
				p, err := e.Snapshot(cmd.Context())
				if err != nil {
					return err
				}
				printProgress(cmd.OutOrStdout(), p)
				return nil
			})
		},
	}

	streakCmd := &cobra.Command{
		Use:   "streak",
		Short: "Add one day to the learning streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *progress.Engine) error {
				p, err := e.IncrementStreak(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Streak: %d days\n", p.Streak)
				return nil
			})
		},
	}

	var correct bool
	quizCmd := &cobra.Command{
		Use:   "quiz",
		Short: "Record one answered quiz question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *progress.Engine) error {
				p, err := e.RecordQuizAnswer(cmd.Context(), correct)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Quiz: %d/%d correct (%d%%)\n", p.CorrectAnswers, p.TotalQuestions, p.Accuracy())
				return nil
			})
		},
	}
	quizCmd.Flags().BoolVar(&correct, "correct", false, "the answer was correct")

	cmd.AddCommand(streakCmd, quizCmd)
	RootCmd.AddCommand(cmd)
}

// withEngine opens the database and runs fn against the local profile.
func withEngine(ctx context.Context, fn func(e *progress.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kv, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore(kv)

	return fn(progress.NewEngine(progress.NewStore(kv), progress.StorageKey))
}

func printProgress(w io.Writer, p domain.UserProgress) {
	fmt.Fprintln(w, headingStyle.Render("Your progress"))
	fmt.Fprintf(w, "Level %d · %d XP · %d XP to next level\n", p.Level, p.XP, p.XPToNextLevel())
	fmt.Fprintf(w, "Streak: %d days\n", p.Streak)
	fmt.Fprintf(w, "Quiz: %d/%d correct (%d%%)\n", p.CorrectAnswers, p.TotalQuestions, p.Accuracy())
	fmt.Fprintf(w, "Badges: %d/%d\n", len(p.EarnedBadges()), len(p.Badges))
	for _, b := range p.Badges {
		if b.Earned {
			line := fmt.Sprintf("  %s %s", b.Emoji, b.Name)
			if b.EarnedAt != nil {
				line += mutedStyle.Render(" earned " + b.EarnedAt.Format("2006-01-02"))
			}
			fmt.Fprintln(w, badgeStyle.Render(line))
			continue
		}
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  🔒 %s: %s", b.Name, b.Description)))
	}
}
