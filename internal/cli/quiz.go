package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/domain"
)

// NewQuizCmd groups the admin authoring and review commands.
func NewQuizCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Create and manage quizzes (admin)",
	}
	cmd.AddCommand(
		newQuizCreateCmd(configPath),
		newQuizRandomCmd(configPath),
		newQuizListCmd(configPath),
		newQuizDeleteCmd(configPath),
		newQuizDetailCmd(configPath),
		newQuizCalculateCmd(configPath),
		newQuizPublishCmd(configPath),
	)
	return cmd
}

func newQuizCreateCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a quiz from a YAML draft",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			draft, err := app.LoadDraftFile(file)
			if err != nil {
				return err
			}
			quizID, err := rt.quizzes.CreateFromDraft(ctx, draft)
			if err != nil {
				return err
			}
			printCreated(cmd.OutOrStdout(), quizID)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "draft YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newQuizRandomCmd(configPath *string) *cobra.Command {
	var (
		req              app.RandomQuizRequest
		startRaw, endRaw string
	)
	cmd := &cobra.Command{
		Use:   "random",
		Short: "Create a quiz from Open Trivia DB questions",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			var err error
			if req.Meta.StartTime, err = parseOptionalTime(startRaw); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			if req.Meta.EndTime, err = parseOptionalTime(endRaw); err != nil {
				return fmt.Errorf("end: %w", err)
			}
			quizID, err := rt.quizzes.CreateRandom(ctx, req)
			if err != nil {
				return err
			}
			printCreated(cmd.OutOrStdout(), quizID)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&req.Meta.Name, "name", "", "quiz name")
	f.StringVar(&req.Meta.Description, "description", "", "quiz description")
	f.StringVar(&startRaw, "start", "", "start time, e.g. 2024-05-01T09:00")
	f.StringVar(&endRaw, "end", "", "end time")
	f.IntVar(&req.Meta.Duration, "duration", 10, "duration in minutes")
	f.IntVar(&req.Amount, "amount", 10, fmt.Sprintf("number of questions (%d-%d)", app.MinRandomQuestions, app.MaxRandomQuestions))
	f.StringVar(&req.Category, "category", "", "Open Trivia DB category id")
	f.StringVar(&req.Difficulty, "difficulty", "", "easy, medium or hard")
	f.StringVar(&req.Type, "type", "", "multiple or boolean")
	return cmd
}

func parseOptionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return app.ParseFormTime(raw)
}

func printCreated(out io.Writer, quizID string) {
	fmt.Fprintf(out, "Quiz created. Share this code with participants: %s\n", quizID)
}

func newQuizListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the quizzes you created",
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, _ []string) error {
			quizzes, err := rt.quizzes.AdminQuizzes(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(quizzes) == 0 {
				fmt.Fprintln(out, "No quizzes yet.")
				return nil
			}
			now := time.Now()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tSTATUS\tSTART\tQUESTIONS\tATTEMPTS")
			for _, q := range quizzes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", q.ID, q.Name, q.Status(now), q.StartTime.Local().Format("2006-01-02 15:04"), len(q.Questions), len(q.AttemptedBy))
			}
			return w.Flush()
		}),
	}
}

func newQuizDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CODE",
		Short: "Delete a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			if err := rt.quizzes.DeleteQuiz(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Quiz %s deleted.\n", args[0])
			return nil
		}),
	}
}

func newQuizDetailCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "detail CODE",
		Short: "Show a quiz with its attempts",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			detail, err := rt.quizzes.QuizDetail(ctx, args[0])
			if err != nil {
				return err
			}
			return printQuizDetail(cmd.OutOrStdout(), detail)
		}),
	}
}

func printQuizDetail(out io.Writer, detail app.QuizDetail) error {
	printQuizCard(out, app.JoinedQuiz{Quiz: detail.Quiz, Status: detail.Status})
	published := "no"
	if detail.ResultPublished {
		published = "yes"
	}
	fmt.Fprintf(out, "  results published: %s\n\n", published)

	if len(detail.Attempts) == 0 {
		fmt.Fprintln(out, "No attempts yet.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tNAME\tEMAIL\tSCORE\tTIME (MIN)")
	for _, a := range detail.Attempts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.UserID, a.Name, a.Email, a.Score, a.TimeTaken)
	}
	return w.Flush()
}

func newQuizCalculateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "calculate CODE",
		Short: "Grade every attempt of a quiz",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			if err := rt.quizzes.CalculateScores(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Scores calculated.")
			return nil
		}),
	}
}

func newQuizPublishCmd(configPath *string) *cobra.Command {
	var deny []string
	cmd := &cobra.Command{
		Use:   "publish CODE",
		Short: "Publish results to participants",
		Long:  "Publish results to every participant who attempted the quiz, except those listed with --deny.",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			detail, err := rt.quizzes.QuizDetail(ctx, args[0])
			if err != nil {
				return err
			}
			visibility := resultVisibility(detail.Attempts, deny)
			if len(visibility) == 0 {
				return errors.New("no attempts to publish")
			}
			if err := rt.quizzes.PublishResults(ctx, args[0], visibility); err != nil {
				return err
			}
			allowed := 0
			for _, v := range visibility {
				if v.IsAllowedToViewResult {
					allowed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Results published to %d of %d participants.\n", allowed, len(visibility))
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&deny, "deny", nil, "user ids that must not see their result")
	return cmd
}

// resultVisibility allows every attempt except the denied user ids.
func resultVisibility(attempts []domain.Attempt, deny []string) []domain.ResultVisibility {
	denied := make(map[string]bool, len(deny))
	for _, id := range deny {
		denied[id] = true
	}
	out := make([]domain.ResultVisibility, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, domain.ResultVisibility{UserID: a.UserID, IsAllowedToViewResult: !denied[a.UserID]})
	}
	return out
}
