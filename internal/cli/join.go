package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"quiz-portal-client/internal/app"
)

func NewJoinCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "join CODE",
		Short: "Look up a quiz by its code",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			joined, err := rt.quizzes.Join(ctx, args[0])
			if err != nil {
				return err
			}
			printQuizCard(cmd.OutOrStdout(), joined)
			return nil
		}),
	}
}

func printQuizCard(out io.Writer, joined app.JoinedQuiz) {
	quiz := joined.Quiz
	fmt.Fprintf(out, "%s (%s)\n", quiz.Name, joined.Status)
	if quiz.Description != "" {
		fmt.Fprintf(out, "  %s\n", quiz.Description)
	}
	fmt.Fprintf(out, "  window:    %s to %s\n", quiz.StartTime.Local().Format(time.RFC1123), quiz.EndTime.Local().Format(time.RFC1123))
	fmt.Fprintf(out, "  duration:  %d minutes\n", quiz.Duration)
	fmt.Fprintf(out, "  questions: %d (%d points)\n", len(quiz.Questions), quiz.TotalPoints())
}
