package quiz

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTopic groups questions that carry no topic label.
const DefaultTopic = "General"

type Option struct {
	ID          string `json:"id"`
	QuestionID  string `json:"question_id,omitempty"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

type Question struct {
	ID         string   `json:"id"`
	QuizID     string   `json:"quiz_id,omitempty"`
	Text       string   `json:"text"`
	Options    []Option `json:"options"`
	TopicTitle string   `json:"topic_title,omitempty"`
}

// Quiz is read-only for the lifetime of an attempt. Question order is the
// navigation order.
type Quiz struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Visibility     string     `json:"visibility,omitempty"`
	Questions      []Question `json:"questions"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CreatorName    string     `json:"creator_name,omitempty"`
	CreatorPicture string     `json:"creator_picture,omitempty"`
}

type QuizListItem struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type FeedItem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Visibility     string    `json:"visibility"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatorName    string    `json:"creator_name,omitempty"`
	CreatorPicture string    `json:"creator_picture,omitempty"`
}

// Topic returns the grouping label used for review aggregation.
func (q Question) Topic() string {
	if topic := strings.TrimSpace(q.TopicTitle); topic != "" {
		return topic
	}
	return DefaultTopic
}

func (q Question) Option(optionID string) (Option, bool) {
	for _, option := range q.Options {
		if option.ID == optionID {
			return option, true
		}
	}
	return Option{}, false
}

// CorrectOption returns the first option flagged correct. Exactly one is
// expected but the client does not enforce it.
func (q Question) CorrectOption() (Option, bool) {
	for _, option := range q.Options {
		if option.IsCorrect {
			return option, true
		}
	}
	return Option{}, false
}

func (q Question) Validate() error {
	if len(q.Options) == 0 {
		return fmt.Errorf("question %s: %w", q.ID, ErrNoOptions)
	}
	return nil
}

func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrNoQuestions
	}
	return nil
}

func (q Quiz) QuestionByID(questionID string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == questionID {
			return question, true
		}
	}
	return Question{}, false
}

type Difficulty string

const (
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExtreme Difficulty = "extreme"
)

// ParseDifficulty accepts the empty string as "not set".
func ParseDifficulty(value string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(value))); d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExtreme:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, value)
	}
}
