package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"quiz-portal-client/internal/app"
	"quiz-portal-client/internal/domain"
)

var errAbandoned = errors.New("attempt abandoned, answers were not submitted")

func NewTakeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "take CODE",
		Short: "Take an active quiz in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(configPath, func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error {
			joined, err := rt.quizzes.Join(ctx, args[0])
			if err != nil {
				return err
			}
			session, err := rt.quizzes.StartSession(joined.Quiz)
			if err != nil {
				return err
			}
			defer session.Close()
			printQuizCard(cmd.OutOrStdout(), joined)
			return runAttempt(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
		}),
	}
}

const takeHelp = `commands:
  a VALUE   answer the current question (option number or text)
  n, p      next / previous question
  g N       go to question N
  m         mark or unmark the current question for review
  l         list questions with answered and marked flags
  t         show the remaining time
  s         submit
  q         quit without submitting
`

// attempt is the terminal view of one TakeSession.
type attempt struct {
	session    *app.TakeSession
	out        io.Writer
	confirming bool
	warned     map[int]bool
	lastErr    string
}

// runAttempt shows the instructions, waits for the participant to start and drives the
// session from input lines until it is submitted, expires or input ends.
func runAttempt(ctx context.Context, session *app.TakeSession, in io.Reader, out io.Writer) error {
	a := &attempt{session: session, out: out, warned: make(map[int]bool)}
	lines := readLines(ctx, in)

	quiz := session.Quiz()
	fmt.Fprintf(out, "\nYou have %s to answer %d questions. The quiz is submitted automatically when time runs out.\n", formatClock(session.Snapshot().RemainingSeconds), len(quiz.Questions))
	fmt.Fprint(out, "Press Enter to start.")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-lines:
		if !ok {
			return errAbandoned
		}
	}

	updates, cancel := session.Subscribe()
	defer cancel()
	if err := session.Start(ctx); err != nil {
		return err
	}
	fmt.Fprint(out, "\n", takeHelp)
	a.printQuestion()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				return errAbandoned
			}
			if done := a.onUpdate(snap); done {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				if a.session.Snapshot().State.Terminal() {
					return nil
				}
				return errAbandoned
			}
			quit, err := a.handle(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return errAbandoned
			}
			if a.session.Snapshot().State.Terminal() {
				a.printOutcome(a.session.Snapshot())
				return nil
			}
		}
	}
}

func (a *attempt) onUpdate(snap app.SessionSnapshot) bool {
	switch snap.State {
	case app.StateSubmitted, app.StateExpired:
		a.printOutcome(snap)
		return true
	}
	if snap.LastError != a.lastErr {
		a.lastErr = snap.LastError
		if snap.LastError != "" {
			fmt.Fprintf(a.out, "\nSubmission failed: %s. Enter s to retry.\n", snap.LastError)
		}
	}
	for _, mark := range []int{300, 60} {
		if snap.RemainingSeconds <= mark && snap.RemainingSeconds > 0 && !a.warned[mark] {
			a.warned[mark] = true
			fmt.Fprintf(a.out, "\n%s left.\n", formatClock(snap.RemainingSeconds))
		}
	}
	return false
}

func (a *attempt) printOutcome(snap app.SessionSnapshot) {
	if snap.Expired {
		fmt.Fprintln(a.out, "\nTime is up. Your answers were submitted.")
	} else {
		fmt.Fprintln(a.out, "\nQuiz submitted.")
	}
	fmt.Fprintf(a.out, "Answered %d of %d questions. Results appear in your history once published.\n", snap.Answered, snap.QuestionCount)
}

// handle applies one input line and reports whether the participant quit.
func (a *attempt) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	if a.confirming {
		a.confirming = false
		if strings.EqualFold(cmd, "y") || strings.EqualFold(cmd, "yes") {
			fmt.Fprintln(a.out, "Submitting...")
			if err := a.session.ConfirmSubmit(ctx); err != nil {
				a.lastErr = a.session.Snapshot().LastError
				return false, fmt.Errorf("%w (enter s to retry)", err)
			}
			return false, nil
		}
		a.session.CancelSubmit()
		fmt.Fprintln(a.out, "Submission cancelled.")
		return false, nil
	}

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "a":
		_, q := a.session.CurrentQuestion()
		value, err := resolveAnswer(q, arg)
		if err != nil {
			return false, err
		}
		if err := a.session.SelectAnswer(q.ID, value); err != nil {
			return false, err
		}
		fmt.Fprintf(a.out, "Answer saved: %s\n", value)
	case "n":
		a.session.Next()
		a.printQuestion()
	case "p":
		a.session.Prev()
		a.printQuestion()
	case "g":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("usage: g N")
		}
		a.session.Navigate(n - 1)
		a.printQuestion()
	case "m":
		idx, _ := a.session.CurrentQuestion()
		if err := a.session.ToggleMark(idx); err != nil {
			return false, err
		}
		a.printQuestion()
	case "l":
		a.printOverview()
	case "t":
		fmt.Fprintf(a.out, "%s left.\n", formatClock(a.session.Snapshot().RemainingSeconds))
	case "s":
		if err := a.session.RequestSubmit(); err != nil {
			return false, err
		}
		snap := a.session.Snapshot()
		if snap.State != app.StateConfirmingSubmit {
			return false, nil
		}
		a.confirming = true
		fmt.Fprintf(a.out, "You answered %d of %d questions. Submit now? [y/N] ", snap.Answered, snap.QuestionCount)
	case "q":
		return true, nil
	case "h", "help", "?":
		fmt.Fprint(a.out, takeHelp)
	default:
		return false, fmt.Errorf("unknown command %q, enter h for help", cmd)
	}
	return false, nil
}

func (a *attempt) printQuestion() {
	idx, q := a.session.CurrentQuestion()
	snap := a.session.Snapshot()
	flag := ""
	for _, m := range snap.Marked {
		if m == idx {
			flag = " [marked]"
		}
	}
	fmt.Fprintf(a.out, "\nQuestion %d/%d%s  (%s, %d pt, %s left)\n%s\n", idx+1, snap.QuestionCount, flag, q.Type, q.Worth(), formatClock(snap.RemainingSeconds), q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(a.out, "  %d) %s\n", i+1, opt)
	}
	if v, ok := snap.Answers[q.ID]; ok {
		fmt.Fprintf(a.out, "Your answer: %s\n", v)
	}
}

func (a *attempt) printOverview() {
	snap := a.session.Snapshot()
	marked := make(map[int]bool, len(snap.Marked))
	for _, m := range snap.Marked {
		marked[m] = true
	}
	for i, q := range a.session.Quiz().Questions {
		answered := " "
		if _, ok := snap.Answers[q.ID]; ok {
			answered = "x"
		}
		mark := ""
		if marked[i] {
			mark = " (marked)"
		}
		cursor := " "
		if i == snap.CurrentIndex {
			cursor = ">"
		}
		fmt.Fprintf(a.out, "%s [%s] %d. %s%s\n", cursor, answered, i+1, q.Text, mark)
	}
}

// resolveAnswer maps an option number or option text to the stored answer value.
func resolveAnswer(q domain.Question, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("usage: a VALUE")
	}
	if len(q.Options) == 0 {
		return input, nil
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(q.Options) {
			return "", fmt.Errorf("choose an option between 1 and %d", len(q.Options))
		}
		return q.Options[n-1], nil
	}
	for _, opt := range q.Options {
		if strings.EqualFold(opt, input) {
			return opt, nil
		}
	}
	if q.Type == domain.TrueFalse {
		switch strings.ToLower(input) {
		case "t":
			return q.Options[0], nil
		case "f":
			return q.Options[1], nil
		}
	}
	return "", fmt.Errorf("%q is not one of the options", input)
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// readLines feeds input lines to a channel that is closed at end of input.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
