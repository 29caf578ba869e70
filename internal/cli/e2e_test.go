package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"quizgen-client/internal/api"
	"quizgen-client/internal/journal"
	"quizgen-client/internal/quiz"
)

// quizServer is a tiny in-memory backend speaking the real wire format.
type quizServer struct {
	mu      sync.Mutex
	quiz    quiz.Quiz
	attempt quiz.QuizAttempt
	saves   int
}

func (s *quizServer) routes() http.Handler {
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Get("/quizzes/{quizID}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "quizID") != s.quiz.ID {
				w.WriteHeader(http.StatusNotFound)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Quiz not found"})
				return
			}
			_ = json.NewEncoder(w).Encode(s.quiz)
		})
		r.Post("/quizzes/{quizID}/attempts", func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			s.attempt = quiz.QuizAttempt{ID: "att-e2e", QuizID: s.quiz.ID, StartTime: time.Now().UTC()}
			s.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"attemptId": "att-e2e"})
		})
		r.Post("/attempts/{attemptID}/answers", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				QuestionID       string `json:"questionId"`
				SelectedAnswerID string `json:"selectedAnswerId"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			question, _ := s.quiz.QuestionByID(body.QuestionID)
			option, _ := question.Option(body.SelectedAnswerID)

			s.mu.Lock()
			s.saves++
			s.attempt.Answers = append(s.attempt.Answers, quiz.AttemptAnswer{
				QuestionID:       body.QuestionID,
				SelectedAnswerID: body.SelectedAnswerID,
				IsCorrect:        option.IsCorrect,
			})
			s.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		})
		r.Post("/attempts/{attemptID}/finish", func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			score := 0
			for _, answer := range s.attempt.AnswerMap() {
				if answer.IsCorrect {
					score++
				}
			}
			end := time.Now().UTC()
			s.attempt.Score = &score
			s.attempt.EndTime = &end
			s.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]any{"message": "Quiz finished", "score": score})
		})
		r.Get("/attempts/{attemptID}", func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			_ = json.NewEncoder(w).Encode(s.attempt)
		})
	})
	return router
}

func TestStartAgainstHTTPBackend(t *testing.T) {
	backend := &quizServer{quiz: capitalsQuiz()}
	server := httptest.NewServer(backend.routes())
	defer server.Close()

	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	client := api.NewHTTPClient(server.URL+"/api", server.Client())
	var out bytes.Buffer
	err = Run(context.Background(), strings.NewReader("start quiz-1\nA\nn\na\nn\nshow nope\n"), &out, Deps{
		Backend:   client,
		Journal:   store,
		ServerURL: server.URL,
	})
	require.NoError(t, err)

	text := out.String()
	require.Contains(t, text, "started attempt att-e2e for Capitals")
	require.Contains(t, text, "Score: 100% (2 / 2 correct)")
	require.Contains(t, text, "Topics to review: none, well done!")
	require.Contains(t, text, "error: Quiz not found")
	require.Equal(t, 2, backend.saves)

	pending, err := store.Pending(context.Background(), "att-e2e")
	require.NoError(t, err)
	require.Empty(t, pending)
}
