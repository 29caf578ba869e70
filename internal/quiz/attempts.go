package quiz

import "time"

type AttemptAnswer struct {
	QuestionID       string `json:"question_id"`
	SelectedAnswerID string `json:"selected_answer_id"`
	IsCorrect        bool   `json:"is_correct"`
}

// QuizAttempt is one user's run through a quiz. Score counts correct answers
// and is nil until the attempt is finished.
type QuizAttempt struct {
	ID        string          `json:"id"`
	QuizID    string          `json:"quiz_id"`
	UserID    string          `json:"user_id"`
	Score     *int            `json:"score"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time"`
	Answers   []AttemptAnswer `json:"answers"`
}

// UserAttempt is a row of the attempts listing.
type UserAttempt struct {
	AttemptID      string    `json:"attempt_id"`
	QuizID         string    `json:"quiz_id"`
	StartTime      time.Time `json:"start_time"`
	Score          *int      `json:"score"`
	QuizName       string    `json:"quiz_name"`
	TotalQuestions int       `json:"total_questions"`
}

type UserProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

type AuthStatus struct {
	Authenticated bool         `json:"authenticated"`
	User          *UserProfile `json:"user,omitempty"`
}

func (a QuizAttempt) Finished() bool {
	return a.Score != nil && a.EndTime != nil
}

func (a QuizAttempt) Validate() error {
	if (a.Score == nil) != (a.EndTime == nil) {
		return ErrInconsistentAttempt
	}
	return nil
}

// AnswerMap keys answers by question id. Saves are upserts on the backend, so
// a later entry for the same question replaces an earlier one.
func (a QuizAttempt) AnswerMap() map[string]AttemptAnswer {
	answers := make(map[string]AttemptAnswer, len(a.Answers))
	for _, answer := range a.Answers {
		if answer.QuestionID == "" || answer.SelectedAnswerID == "" {
			continue
		}
		answers[answer.QuestionID] = answer
	}
	return answers
}
