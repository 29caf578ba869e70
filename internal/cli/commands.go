package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"quizgen-client/internal/api"
	"quizgen-client/internal/quiz"
	"quizgen-client/internal/review"
)

const dateLayout = "2006-01-02"

var errGenerationFailed = errors.New("quiz generation failed, please try again")

func (a *app) runWhoami(ctx context.Context) error {
	status, err := a.auth.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Authenticated || status.User == nil {
		fmt.Fprintln(a.out, a.loginPrompt())
		return nil
	}
	fmt.Fprintf(a.out, "signed in as %s <%s>\n", status.User.Name, status.User.Email)
	return nil
}

// runLogout names the user only when the status is already cached; it never
// fetches just to say goodbye.
func (a *app) runLogout(ctx context.Context) error {
	defer a.auth.Invalidate()
	status, cached := a.auth.Peek()
	if err := a.backend.Logout(ctx); err != nil {
		return err
	}
	if a.onLogout != nil {
		a.onLogout()
	}
	if cached && status.User != nil && status.User.Name != "" {
		fmt.Fprintf(a.out, "signed out %s.\n", status.User.Name)
		return nil
	}
	fmt.Fprintln(a.out, "signed out.")
	return nil
}

func (a *app) runQuizzes(ctx context.Context) error {
	items, err := a.backend.ListQuizzes(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No quizzes yet. Use 'generate' to create one.")
		return nil
	}

	fmt.Fprintln(a.out, "Your quizzes:")
	for idx, item := range items {
		fmt.Fprintf(a.out, "%d. %s (%s, created %s)\n", idx+1, item.Title, item.ID, item.CreatedAt.Format(dateLayout))
	}
	return nil
}

func (a *app) runFeed(ctx context.Context) error {
	items, err := a.backend.ListFeed(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No public quizzes.")
		return nil
	}

	fmt.Fprintln(a.out, "Public quizzes:")
	for idx, item := range items {
		creator := item.CreatorName
		if creator == "" {
			creator = "unknown"
		}
		fmt.Fprintf(a.out, "%d. %s by %s (%s)\n", idx+1, item.Title, creator, item.ID)
		if item.Description != "" {
			fmt.Fprintf(a.out, "   %s\n", item.Description)
		}
	}
	return nil
}

func (a *app) runShow(ctx context.Context, quizID string) error {
	q, err := a.backend.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", q.Title, q.ID)
	if q.Description != "" {
		fmt.Fprintln(a.out, q.Description)
	}
	if q.CreatorName != "" {
		fmt.Fprintf(a.out, "by %s\n", q.CreatorName)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d questions\n", len(q.Questions))
	return nil
}

func (a *app) runDelete(ctx context.Context, quizID string) error {
	confirmed, err := promptYesNo(a.reader, a.out, fmt.Sprintf("delete quiz %s? (yes/no): ", quizID))
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(a.out, "cancelled.")
		return nil
	}
	if err := a.backend.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted quiz %s\n", quizID)
	return nil
}

func parseGenerateArgs(args []string) (api.GenerateRequest, error) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	maxQuestions := fs.Int("max", 0, "maximum number of questions")
	difficulty := fs.String("difficulty", "", "easy, medium, hard or extreme")
	prompt := fs.String("prompt", "", "extra instructions for the generator")
	var videos stringList
	fs.Var(&videos, "video", "video URL, repeatable")
	if err := fs.Parse(args); err != nil {
		return api.GenerateRequest{}, err
	}

	parsedDifficulty, err := quiz.ParseDifficulty(*difficulty)
	if err != nil {
		return api.GenerateRequest{}, err
	}

	req := api.GenerateRequest{
		VideoURLs:    videos,
		MaxQuestions: *maxQuestions,
		Difficulty:   parsedDifficulty,
		CustomPrompt: *prompt,
	}
	for _, path := range fs.Args() {
		req.Files = append(req.Files, api.UploadFile{Path: path})
	}
	return req, nil
}

func (a *app) runGenerate(ctx context.Context, args []string) error {
	req, err := parseGenerateArgs(args)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "generating quiz, this can take a while...")
	resp, err := a.backend.GenerateQuiz(ctx, req)
	if err != nil {
		if api.IsUnauthorized(err) {
			return err
		}
		a.log.WithError(err).WithFields(logrus.Fields{
			"files":  len(req.Files),
			"videos": len(req.VideoURLs),
		}).Error("quiz generation failed")
		return errGenerationFailed
	}

	title := resp.Title
	if title == "" {
		title = "untitled quiz"
	}
	fmt.Fprintf(a.out, "created %s (%s)\n", title, resp.QuizID)
	fmt.Fprintf(a.out, "start it with: start %s\n", resp.QuizID)
	return nil
}

func (a *app) runAttempts(ctx context.Context) error {
	rows, err := a.backend.ListAttempts(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No attempts yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUIZ\tSCORE\tDATE\tQUIZ ID\tATTEMPT ID")
	for _, row := range rows {
		score := "N/A"
		if pct, ok := review.AttemptRowPercentage(row); ok {
			score = percent(pct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.QuizName, score, row.StartTime.Format(dateLayout), row.QuizID, row.AttemptID)
	}
	return tw.Flush()
}

func (a *app) runSummary(ctx context.Context, quizID, attemptID string) error {
	q, attempt, err := a.loadAttempt(ctx, quizID, attemptID)
	if err != nil {
		return err
	}

	summary, err := review.Summarize(q, attempt)
	if errors.Is(err, review.ErrNotFinished) {
		fmt.Fprintf(a.out, "attempt %s is not finished. Continue it with: resume %s %s\n", attemptID, quizID, attemptID)
		return nil
	}
	if err != nil {
		return err
	}
	renderSummary(a.out, summary)
	return nil
}

func (a *app) runFeedback(ctx context.Context, rawRating, content string) error {
	rating, err := parseRating(rawRating)
	if err != nil {
		return err
	}
	if err := a.backend.SubmitFeedback(ctx, content, rating); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "thanks for the feedback!")
	return nil
}

func (a *app) loadAttempt(ctx context.Context, quizID, attemptID string) (quiz.Quiz, quiz.QuizAttempt, error) {
	q, err := a.backend.GetQuiz(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, quiz.QuizAttempt{}, err
	}
	if err := q.Validate(); err != nil {
		return quiz.Quiz{}, quiz.QuizAttempt{}, err
	}
	attempt, err := a.backend.GetAttempt(ctx, attemptID)
	if err != nil {
		return quiz.Quiz{}, quiz.QuizAttempt{}, err
	}
	if err := attempt.Validate(); err != nil {
		return quiz.Quiz{}, quiz.QuizAttempt{}, fmt.Errorf("attempt %s: %w", attemptID, err)
	}
	if attempt.QuizID != "" && attempt.QuizID != q.ID {
		return quiz.Quiz{}, quiz.QuizAttempt{}, fmt.Errorf("attempt %s belongs to quiz %s", attemptID, attempt.QuizID)
	}
	return q, attempt, nil
}
