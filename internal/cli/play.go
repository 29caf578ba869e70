package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"quizgen-client/internal/api"
	"quizgen-client/internal/quiz"
	"quizgen-client/internal/review"
	"quizgen-client/internal/session"
)

func (a *app) newController(q quiz.Quiz, attempt quiz.QuizAttempt) (*session.Controller, error) {
	return session.New(q, attempt, session.Deps{
		Saver:    a.backend,
		Finisher: a.backend,
		Journal:  a.journal,
		Logger:   a.log.WithField("quiz_id", q.ID),
	})
}

func (a *app) runStart(ctx context.Context, quizID string) error {
	q, err := a.backend.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return err
	}

	attemptID, err := a.backend.CreateAttempt(ctx, q.ID)
	if err != nil {
		return err
	}
	ctrl, err := a.newController(q, quiz.QuizAttempt{ID: attemptID, QuizID: q.ID})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "started attempt %s for %s\n", attemptID, q.Title)
	return a.play(ctx, ctrl)
}

func (a *app) runResume(ctx context.Context, quizID, attemptID string) error {
	q, attempt, err := a.loadAttempt(ctx, quizID, attemptID)
	if err != nil {
		return err
	}
	if attempt.Finished() {
		fmt.Fprintf(a.out, "attempt %s is already finished.\n", attemptID)
		summary, err := review.Summarize(q, attempt)
		if err != nil {
			return err
		}
		renderSummary(a.out, summary)
		return nil
	}

	ctrl, err := a.newController(q, attempt)
	if err != nil {
		return err
	}
	replayed, err := ctrl.RecoverJournal(ctx)
	if err != nil {
		a.log.WithError(err).Warn("journal recovery failed")
	}
	if replayed > 0 {
		fmt.Fprintf(a.out, "restored %d unsaved answer(s) from the local journal\n", replayed)
	}
	if err := ctrl.JumpTo(ctrl.FirstUnansweredIndex()); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "resuming attempt %s for %s (%d of %d answered)\n", attemptID, q.Title, ctrl.AnsweredCount(), ctrl.QuestionCount())
	return a.play(ctx, ctrl)
}

// play runs the question loop until the attempt is finished, the user quits or
// input ends. Leaving early keeps the attempt open for resume.
func (a *app) play(ctx context.Context, ctrl *session.Controller) error {
	redraw := true
	for {
		if ctrl.Finished() {
			return a.finishSummary(ctx, ctrl)
		}

		view := ctrl.View()
		if redraw {
			renderQuestion(a.out, view)
		}
		redraw = true

		fmt.Fprint(a.out, playPrompt(view))
		line, readErr := a.reader.ReadString('\n')
		if readErr != nil && (!errors.Is(readErr, io.EOF) || strings.TrimSpace(line) == "") {
			a.printLeave(ctrl)
			return nil
		}
		input := strings.TrimSpace(line)

		switch strings.ToLower(input) {
		case "q", "quit":
			a.printLeave(ctrl)
			return nil
		case "p", "prev":
			if view.Index == 0 {
				fmt.Fprintln(a.out, "already at the first question.")
				redraw = false
			}
			ctrl.GoToPrevious()
		case "r", "retry":
			if err := ctrl.RetrySave(ctx); err != nil {
				a.reportPlay(ctrl, err)
			}
		case "", "n", "next":
			transition, err := ctrl.GoToNext(ctx)
			if err != nil {
				a.reportPlay(ctrl, err)
				redraw = !errors.Is(err, session.ErrCannotAdvance)
				continue
			}
			if transition == session.TransitionFinished {
				if score := ctrl.Score(); score != nil {
					fmt.Fprintf(a.out, "\nattempt finished: %d / %d correct\n", *score, ctrl.QuestionCount())
				}
			}
		default:
			a.selectByLetter(ctx, ctrl, view, input)
		}

		if readErr != nil {
			a.printLeave(ctrl)
			return nil
		}
	}
}

func (a *app) selectByLetter(ctx context.Context, ctrl *session.Controller, view session.QuestionView, input string) {
	idx, ok := session.LetterIndex(input)
	if !ok || idx >= len(view.Question.Options) {
		fmt.Fprintln(a.out, "Invalid input.")
		return
	}
	option := view.Question.Options[idx]

	err := ctrl.SelectOption(ctx, option.ID)
	switch {
	case err == nil:
		if option.IsCorrect {
			fmt.Fprintln(a.out, "Correct!")
		} else if correct, ok := view.Question.CorrectOption(); ok {
			fmt.Fprintf(a.out, "Wrong. Correct answer was %s\n", correct.Text)
		} else {
			fmt.Fprintln(a.out, "Wrong.")
		}
	case errors.Is(err, session.ErrAlreadyAnswered):
		fmt.Fprintln(a.out, "this question is already answered.")
	default:
		a.reportPlay(ctrl, err)
	}
}

func (a *app) reportPlay(ctrl *session.Controller, err error) {
	switch {
	case api.IsUnauthorized(err):
		a.auth.Invalidate()
		fmt.Fprintln(a.out, a.loginPrompt())
	case errors.Is(err, session.ErrCannotAdvance):
		fmt.Fprintln(a.out, "select an answer first.")
	case errors.Is(err, session.ErrNothingToRetry):
		fmt.Fprintln(a.out, "nothing to retry.")
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(a.out, "still saving, try again in a moment.")
	case errors.Is(err, quiz.ErrNoOptions):
		fmt.Fprintln(a.out, "this question has no options.")
	default:
		if msg := ctrl.LastError(); msg != "" {
			fmt.Fprintf(a.out, "error: %s (type r to retry, or n to try finishing again)\n", msg)
			return
		}
		fmt.Fprintf(a.out, "error: %s\n", a.describe(err))
	}
}

func (a *app) printLeave(ctrl *session.Controller) {
	q := ctrl.Quiz()
	fmt.Fprintf(a.out, "\nleft attempt %s. Continue with: resume %s %s\n", ctrl.AttemptID(), q.ID, ctrl.AttemptID())
}

// finishSummary prefers the backend's copy of the attempt and falls back to
// the controller's local view when it cannot be fetched.
func (a *app) finishSummary(ctx context.Context, ctrl *session.Controller) error {
	q := ctrl.Quiz()
	attempt, err := a.backend.GetAttempt(ctx, ctrl.AttemptID())
	if err != nil || !attempt.Finished() {
		if err != nil {
			a.log.WithError(err).WithField("attempt_id", ctrl.AttemptID()).Warn("reload finished attempt failed")
		}
		attempt = ctrl.Attempt()
	}

	summary, err := review.Summarize(q, attempt)
	if err != nil {
		return err
	}
	renderSummary(a.out, summary)
	return nil
}

func playPrompt(view session.QuestionView) string {
	choices := "n next"
	if view.IsLast {
		choices = "n finish"
	}
	if view.Err != nil || len(view.Options) == 0 {
		return fmt.Sprintf("[p previous, q quit, %s]: ", choices)
	}
	last := session.OptionLetter(len(view.Options) - 1)
	return fmt.Sprintf("Your answer (A-%s), %s, p previous, r retry, q quit: ", last, choices)
}
