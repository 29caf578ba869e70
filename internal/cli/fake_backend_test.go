package cli

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizgen-client/internal/api"
	"quizgen-client/internal/journal"
	"quizgen-client/internal/quiz"
)

type fakeBackend struct {
	mu sync.Mutex

	status      quiz.AuthStatus
	authCalls   int
	logoutCalls int

	quizzes  map[string]quiz.Quiz
	attempts map[string]quiz.QuizAttempt
	list     []quiz.QuizListItem
	feed     []quiz.FeedItem
	rows     []quiz.UserAttempt

	listErr     error
	generateErr error
	generated   []api.GenerateRequest
	saveErrs    []error
	saves       int
	finishes    int
	deleted     []string
	feedback    []string
	nextAttempt string
}

func newFakeBackend(quizzes ...quiz.Quiz) *fakeBackend {
	f := &fakeBackend{
		quizzes:     make(map[string]quiz.Quiz),
		attempts:    make(map[string]quiz.QuizAttempt),
		nextAttempt: "att-1",
	}
	for _, q := range quizzes {
		f.quizzes[q.ID] = q
	}
	return f
}

func (f *fakeBackend) GetAuthStatus(context.Context) (quiz.AuthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.status, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.status = quiz.AuthStatus{}
	return nil
}

func (f *fakeBackend) ListQuizzes(context.Context) ([]quiz.QuizListItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeBackend) ListFeed(context.Context) ([]quiz.FeedItem, error) {
	return f.feed, nil
}

func (f *fakeBackend) GetQuiz(_ context.Context, quizID string) (quiz.Quiz, error) {
	q, ok := f.quizzes[quizID]
	if !ok {
		return quiz.Quiz{}, &api.APIError{StatusCode: 404, Message: "Quiz not found"}
	}
	return q, nil
}

func (f *fakeBackend) DeleteQuiz(_ context.Context, quizID string) error {
	f.deleted = append(f.deleted, quizID)
	return nil
}

func (f *fakeBackend) GenerateQuiz(_ context.Context, req api.GenerateRequest) (api.GenerateResponse, error) {
	f.generated = append(f.generated, req)
	if f.generateErr != nil {
		return api.GenerateResponse{}, f.generateErr
	}
	return api.GenerateResponse{QuizID: "quiz-new", Title: "Fresh quiz"}, nil
}

func (f *fakeBackend) CreateAttempt(_ context.Context, quizID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextAttempt
	f.attempts[id] = quiz.QuizAttempt{ID: id, QuizID: quizID, StartTime: time.Unix(1700000000, 0).UTC()}
	return id, nil
}

func (f *fakeBackend) GetAttempt(_ context.Context, attemptID string) (quiz.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[attemptID]
	if !ok {
		return quiz.QuizAttempt{}, &api.APIError{StatusCode: 404, Message: "Attempt not found"}
	}
	return attempt, nil
}

func (f *fakeBackend) SaveAnswer(_ context.Context, attemptID, questionID, optionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if len(f.saveErrs) > 0 {
		err := f.saveErrs[0]
		f.saveErrs = f.saveErrs[1:]
		if err != nil {
			return err
		}
	}

	attempt := f.attempts[attemptID]
	q := f.quizzes[attempt.QuizID]
	question, _ := q.QuestionByID(questionID)
	option, _ := question.Option(optionID)

	answers := attempt.Answers[:0:0]
	for _, answer := range attempt.Answers {
		if answer.QuestionID != questionID {
			answers = append(answers, answer)
		}
	}
	attempt.Answers = append(answers, quiz.AttemptAnswer{QuestionID: questionID, SelectedAnswerID: optionID, IsCorrect: option.IsCorrect})
	f.attempts[attemptID] = attempt
	return nil
}

func (f *fakeBackend) FinishAttempt(_ context.Context, attemptID string) (api.FinishResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes++

	attempt := f.attempts[attemptID]
	score := 0
	for _, answer := range attempt.Answers {
		if answer.IsCorrect {
			score++
		}
	}
	end := time.Unix(1700000600, 0).UTC()
	attempt.Score = &score
	attempt.EndTime = &end
	f.attempts[attemptID] = attempt
	return api.FinishResponse{Message: "Quiz finished", Score: score}, nil
}

func (f *fakeBackend) ListAttempts(context.Context) ([]quiz.UserAttempt, error) {
	return f.rows, nil
}

func (f *fakeBackend) SubmitFeedback(_ context.Context, content string, rating int) error {
	f.feedback = append(f.feedback, content)
	return nil
}

type memJournal struct {
	entries map[string]journal.PendingAnswer
}

func newMemJournal() *memJournal {
	return &memJournal{entries: make(map[string]journal.PendingAnswer)}
}

func (m *memJournal) Record(_ context.Context, answer journal.PendingAnswer) error {
	m.entries[answer.AttemptID+"/"+answer.QuestionID] = answer
	return nil
}

func (m *memJournal) Confirm(_ context.Context, attemptID, questionID string) error {
	delete(m.entries, attemptID+"/"+questionID)
	return nil
}

func (m *memJournal) Pending(_ context.Context, attemptID string) ([]journal.PendingAnswer, error) {
	out := make([]journal.PendingAnswer, 0)
	for _, entry := range m.entries {
		if entry.AttemptID == attemptID {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}

func capitalsQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []quiz.Question{
			{
				ID:         "q1",
				Text:       "Capital of France?",
				TopicTitle: "Europe",
				Options: []quiz.Option{
					{ID: "q1-a", Text: "Paris", IsCorrect: true, Explanation: "Paris has been the capital since 987."},
					{ID: "q1-b", Text: "Lyon"},
				},
			},
			{
				ID:         "q2",
				Text:       "Capital of Spain?",
				TopicTitle: "Iberia",
				Options: []quiz.Option{
					{ID: "q2-a", Text: "Madrid", IsCorrect: true},
					{ID: "q2-b", Text: "Seville"},
				},
			},
		},
	}
}
