// Package review turns a finished attempt into display-ready aggregates.
//
// Everything here is a pure function of (quiz.Quiz, quiz.QuizAttempt): no
// network, no shared state, deterministic output order.
package review

import (
	"errors"
	"math"
	"time"

	"quizgen-client/internal/quiz"
)

var ErrNotFinished = errors.New("attempt has not been finished")

type Status string

const (
	StatusUnanswered Status = "unanswered"
	StatusCorrect    Status = "correct"
	StatusIncorrect  Status = "incorrect"
)

type TopicStats struct {
	Topic   string
	Correct int
	Total   int
}

func (s TopicStats) NeedsReview() bool {
	return s.Correct < s.Total
}

type QuestionReview struct {
	Index       int
	Question    quiz.Question
	Status      Status
	Selected    *quiz.Option
	Correct     *quiz.Option
	Explanation string
}

type Summary struct {
	QuizTitle       string
	CorrectCount    int
	TotalQuestions  int
	Percentage      int
	CompletedAt     *time.Time
	Topics          []TopicStats
	TopicsForReview []string
	Questions       []QuestionReview
}

// ScorePercentage rounds half away from zero, so 1/8 is 13 and 5/8 is 63.
func ScorePercentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

// OverallScorePercentage treats attempt.Score as a count of correct answers.
func OverallScorePercentage(q quiz.Quiz, attempt quiz.QuizAttempt) int {
	score := 0
	if attempt.Score != nil {
		score = *attempt.Score
	}
	return ScorePercentage(score, len(q.Questions))
}

// TopicPerformance lists topics in the order they first appear in the quiz.
// An unanswered question counts toward Total only.
func TopicPerformance(q quiz.Quiz, attempt quiz.QuizAttempt) []TopicStats {
	answers := attempt.AnswerMap()
	index := make(map[string]int)
	stats := make([]TopicStats, 0)

	for _, question := range q.Questions {
		topic := question.Topic()
		idx, ok := index[topic]
		if !ok {
			idx = len(stats)
			index[topic] = idx
			stats = append(stats, TopicStats{Topic: topic})
		}
		stats[idx].Total++
		if answer, ok := answers[question.ID]; ok && answer.IsCorrect {
			stats[idx].Correct++
		}
	}
	return stats
}

func TopicPerformanceMap(q quiz.Quiz, attempt quiz.QuizAttempt) map[string]TopicStats {
	stats := TopicPerformance(q, attempt)
	out := make(map[string]TopicStats, len(stats))
	for _, item := range stats {
		out[item.Topic] = item
	}
	return out
}

func TopicsNeedingReview(q quiz.Quiz, attempt quiz.QuizAttempt) []string {
	topics := make([]string, 0)
	for _, item := range TopicPerformance(q, attempt) {
		if item.NeedsReview() {
			topics = append(topics, item.Topic)
		}
	}
	return topics
}

func ReviewQuestions(q quiz.Quiz, attempt quiz.QuizAttempt) []QuestionReview {
	answers := attempt.AnswerMap()
	reviews := make([]QuestionReview, 0, len(q.Questions))

	for idx, question := range q.Questions {
		item := QuestionReview{
			Index:    idx,
			Question: question,
			Status:   StatusUnanswered,
		}
		if correct, ok := question.CorrectOption(); ok {
			item.Correct = &correct
			item.Explanation = correct.Explanation
		}

		if answer, ok := answers[question.ID]; ok {
			if answer.IsCorrect {
				item.Status = StatusCorrect
			} else {
				item.Status = StatusIncorrect
				if selected, found := question.Option(answer.SelectedAnswerID); found {
					item.Selected = &selected
				}
			}
		}
		reviews = append(reviews, item)
	}
	return reviews
}

func Summarize(q quiz.Quiz, attempt quiz.QuizAttempt) (Summary, error) {
	if attempt.Score == nil {
		return Summary{}, ErrNotFinished
	}

	return Summary{
		QuizTitle:       q.Title,
		CorrectCount:    *attempt.Score,
		TotalQuestions:  len(q.Questions),
		Percentage:      OverallScorePercentage(q, attempt),
		CompletedAt:     attempt.EndTime,
		Topics:          TopicPerformance(q, attempt),
		TopicsForReview: TopicsNeedingReview(q, attempt),
		Questions:       ReviewQuestions(q, attempt),
	}, nil
}

// AttemptRowPercentage returns false when the attempt has no score yet.
func AttemptRowPercentage(row quiz.UserAttempt) (int, bool) {
	if row.Score == nil {
		return 0, false
	}
	return ScorePercentage(*row.Score, row.TotalQuestions), true
}
