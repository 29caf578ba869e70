package cli

import (
	"fmt"
	"io"
	"strings"

	"quizgen-client/internal/review"
	"quizgen-client/internal/session"
)

func renderQuestion(out io.Writer, view session.QuestionView) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Question %d of %d (%s) [%s]\n", view.Index+1, view.Total, percent(view.Progress), view.Question.Topic())
	fmt.Fprintf(out, "%s\n\n", view.Question.Text)

	if view.Err != nil {
		fmt.Fprintln(out, "This question has no options and cannot be answered.")
		return
	}

	for _, option := range view.Options {
		marker := optionMarker(option.State)
		if marker != "" {
			fmt.Fprintf(out, "%s. %s  %s\n", option.Letter, option.Option.Text, marker)
			continue
		}
		fmt.Fprintf(out, "%s. %s\n", option.Letter, option.Option.Text)
	}

	if view.LastError != "" {
		fmt.Fprintf(out, "\n! %s\n", view.LastError)
	}
}

func optionMarker(state session.OptionState) string {
	switch state {
	case session.StateSelectedPending:
		return "(saving...)"
	case session.StateCorrect:
		return "[correct]"
	case session.StateIncorrect:
		return "[your answer]"
	default:
		return ""
	}
}

func renderSummary(out io.Writer, summary review.Summary) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Results: %s\n", summary.QuizTitle)
	fmt.Fprintf(out, "Score: %s (%d / %d correct)\n", percent(summary.Percentage), summary.CorrectCount, summary.TotalQuestions)
	if summary.CompletedAt != nil {
		fmt.Fprintf(out, "Completed: %s\n", summary.CompletedAt.Format(dateLayout))
	}

	if len(summary.TopicsForReview) == 0 {
		fmt.Fprintln(out, "Topics to review: none, well done!")
	} else {
		fmt.Fprintf(out, "Topics to review: %s\n", strings.Join(summary.TopicsForReview, ", "))
	}

	fmt.Fprintln(out, "\nBy topic:")
	for _, topic := range summary.Topics {
		fmt.Fprintf(out, "  %s: %d/%d (%s)\n", topic.Topic, topic.Correct, topic.Total, percent(review.ScorePercentage(topic.Correct, topic.Total)))
	}

	fmt.Fprintln(out, "\nReview:")
	for _, item := range summary.Questions {
		fmt.Fprintf(out, "%d. %s\n", item.Index+1, item.Question.Text)
		switch item.Status {
		case review.StatusCorrect:
			fmt.Fprintln(out, "   correct")
		case review.StatusIncorrect:
			selected := "?"
			if item.Selected != nil {
				selected = item.Selected.Text
			}
			fmt.Fprintf(out, "   incorrect: you chose %s\n", selected)
		default:
			fmt.Fprintln(out, "   not answered")
		}
		if item.Status != review.StatusCorrect && item.Correct != nil {
			fmt.Fprintf(out, "   correct answer: %s\n", item.Correct.Text)
		}
		if item.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", item.Explanation)
		}
	}
}
