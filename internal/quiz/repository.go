package quiz

import "errors"

var (
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNoQuestions         = errors.New("quiz has no questions")
	ErrNoOptions           = errors.New("question has no options")
	ErrInconsistentAttempt = errors.New("attempt score and end time must be set together")
	ErrInvalidDifficulty   = errors.New("invalid difficulty")
)
