package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"quizgen-client/internal/quiz"
)

const (
	MinFeedbackRating = 1
	MaxFeedbackRating = 5
)

var (
	ErrMissingID      = errors.New("id is required")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrEmptyFeedback  = errors.New("feedback text is required")
	ErrEmptyAttemptID = errors.New("backend returned an empty attempt id")
)

type createAttemptResponse struct {
	AttemptID string `json:"attemptId"`
}

type saveAnswerRequest struct {
	QuestionID       string `json:"questionId"`
	SelectedAnswerID string `json:"selectedAnswerId"`
}

type FinishResponse struct {
	Message string `json:"message"`
	Score   int    `json:"score"`
}

type feedbackRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

func escapeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMissingID
	}
	return url.PathEscape(id), nil
}

// GetAuthStatus reports a 401 as signed out rather than as an error.
func (c *HTTPClient) GetAuthStatus(ctx context.Context) (quiz.AuthStatus, error) {
	var status quiz.AuthStatus
	err := c.doJSON(ctx, http.MethodGet, "/auth/status", nil, &status)
	if IsUnauthorized(err) {
		return quiz.AuthStatus{Authenticated: false}, nil
	}
	if err != nil {
		return quiz.AuthStatus{}, err
	}
	return status, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *HTTPClient) ListQuizzes(ctx context.Context) ([]quiz.QuizListItem, error) {
	items := make([]quiz.QuizListItem, 0)
	if err := c.doJSON(ctx, http.MethodGet, "/quizzes", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) ListFeed(ctx context.Context) ([]quiz.FeedItem, error) {
	items := make([]quiz.FeedItem, 0)
	if err := c.doJSON(ctx, http.MethodGet, "/quizzes/feed", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) GetQuiz(ctx context.Context, quizID string) (quiz.Quiz, error) {
	id, err := escapeID(quizID)
	if err != nil {
		return quiz.Quiz{}, err
	}

	var payload quiz.Quiz
	if err := c.doJSON(ctx, http.MethodGet, "/quizzes/"+id, nil, &payload); err != nil {
		return quiz.Quiz{}, notFound(err, quiz.ErrQuizNotFound)
	}
	return payload, nil
}

func (c *HTTPClient) DeleteQuiz(ctx context.Context, quizID string) error {
	id, err := escapeID(quizID)
	if err != nil {
		return err
	}
	return notFound(c.doJSON(ctx, http.MethodDelete, "/quizzes/"+id, nil, nil), quiz.ErrQuizNotFound)
}

func (c *HTTPClient) CreateAttempt(ctx context.Context, quizID string) (string, error) {
	id, err := escapeID(quizID)
	if err != nil {
		return "", err
	}

	var payload createAttemptResponse
	if err := c.doJSON(ctx, http.MethodPost, "/quizzes/"+id+"/attempts", nil, &payload); err != nil {
		return "", notFound(err, quiz.ErrQuizNotFound)
	}
	if strings.TrimSpace(payload.AttemptID) == "" {
		return "", ErrEmptyAttemptID
	}
	return payload.AttemptID, nil
}

func (c *HTTPClient) GetAttempt(ctx context.Context, attemptID string) (quiz.QuizAttempt, error) {
	id, err := escapeID(attemptID)
	if err != nil {
		return quiz.QuizAttempt{}, err
	}

	var payload quiz.QuizAttempt
	if err := c.doJSON(ctx, http.MethodGet, "/attempts/"+id, nil, &payload); err != nil {
		return quiz.QuizAttempt{}, notFound(err, quiz.ErrAttemptNotFound)
	}
	return payload, nil
}

func (c *HTTPClient) SaveAnswer(ctx context.Context, attemptID, questionID, optionID string) error {
	id, err := escapeID(attemptID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(questionID) == "" || strings.TrimSpace(optionID) == "" {
		return ErrMissingID
	}

	request := saveAnswerRequest{QuestionID: questionID, SelectedAnswerID: optionID}
	return c.doJSON(ctx, http.MethodPost, "/attempts/"+id+"/answers", request, nil)
}

func (c *HTTPClient) FinishAttempt(ctx context.Context, attemptID string) (FinishResponse, error) {
	id, err := escapeID(attemptID)
	if err != nil {
		return FinishResponse{}, err
	}

	var payload FinishResponse
	if err := c.doJSON(ctx, http.MethodPost, "/attempts/"+id+"/finish", nil, &payload); err != nil {
		return FinishResponse{}, err
	}
	return payload, nil
}

func (c *HTTPClient) ListAttempts(ctx context.Context) ([]quiz.UserAttempt, error) {
	rows := make([]quiz.UserAttempt, 0)
	if err := c.doJSON(ctx, http.MethodGet, "/attempts", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) SubmitFeedback(ctx context.Context, content string, rating int) error {
	if rating < MinFeedbackRating || rating > MaxFeedbackRating {
		return ErrInvalidRating
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyFeedback
	}
	return c.doJSON(ctx, http.MethodPost, "/feedback", feedbackRequest{Content: content, Rating: rating}, nil)
}

// notFound joins a 404 with the domain sentinel so callers can match either.
func notFound(err error, sentinel error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return errors.Join(sentinel, err)
	}
	return err
}
