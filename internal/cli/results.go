package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/domain"
)

func NewHistoryCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show your quiz attempts",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			entries, summary, err := rt.quizzes.History(ctx)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), entries, summary)
		}),
	}
}

func printHistory(out io.Writer, entries []domain.HistoryEntry, summary app.HistorySummary) error {
	fmt.Fprintf(out, "Completed: %d  Pending: %d  Average: %d%%\n\n", summary.Completed, summary.Pending, summary.Average)
	if len(entries) == 0 {
		fmt.Fprintln(out, "No attempts yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tQUIZ\tSCORE\tTIME (MIN)\tDATE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", e.QuizID, e.QuizName, e.Score, e.TimeTaken, e.Date.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func NewResultCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "result CODE",
		Short: "Show your graded answers for a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			result, err := rt.quizzes.Result(ctx, args[0])
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		}),
	}
}

func printResult(out io.Writer, result app.QuizResult) {
	fmt.Fprintf(out, "Score: %d/%d (%d%%)\n", result.Score.Obtained, result.Score.Total, result.Score.Percentage)
	for i, d := range result.Details {
		verdict := "wrong"
		if d.Correct() {
			verdict = "correct"
		}
		answer := "(no answer)"
		if d.UserSelectedOption != nil {
			answer = *d.UserSelectedOption
		}
		fmt.Fprintf(out, "\n%d. %s [%s]\n", i+1, d.Question, verdict)
		fmt.Fprintf(out, "   your answer:    %s\n", answer)
		fmt.Fprintf(out, "   correct answer: %s\n", d.CorrectAnswer)
	}
}

func NewLeaderboardCmd(configPath *string) *cobra.Command {
	var filter, sortBy string
	cmd := &cobra.Command{
		Use:   "leaderboard CODE",
		Short: "Show the ranking of a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			view := app.LeaderboardView{Filter: app.LeaderboardFilter(filter), SortBy: app.LeaderboardSort(sortBy)}
			switch view.Filter {
			case app.FilterAll, app.FilterTop10, app.FilterTop50:
			default:
				return fmt.Errorf("unknown filter %q", filter)
			}
			switch view.SortBy {
			case app.SortByScore, app.SortByTime, app.SortByName:
			default:
				return fmt.Errorf("unknown sort %q", sortBy)
			}
			entries, err := rt.quizzes.Leaderboard(ctx, args[0], view)
			if err != nil {
				return err
			}
			return printLeaderboard(cmd.OutOrStdout(), entries)
		}),
	}
	cmd.Flags().StringVar(&filter, "filter", string(app.FilterAll), "all, top10 or top50")
	cmd.Flags().StringVar(&sortBy, "sort", string(app.SortByScore), "score, time or name")
	return cmd
}

func printLeaderboard(out io.Writer, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scores yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tSCORE\tTIME (MIN)")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s%%\t%d\n", i+1, e.Name, strconv.FormatFloat(e.Score, 'f', -1, 64), e.TimeTaken)
	}
	return w.Flush()
}
