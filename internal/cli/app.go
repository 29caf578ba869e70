// Package cli is the interactive terminal front end for the quiz backend.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"quizgen-client/internal/api"
	"quizgen-client/internal/auth"
	"quizgen-client/internal/logging"
	"quizgen-client/internal/quiz"
	"quizgen-client/internal/session"
)

// Backend is the subset of *api.HTTPClient the terminal needs.
type Backend interface {
	auth.StatusFetcher
	session.AnswerSaver
	session.AttemptFinisher
	Logout(ctx context.Context) error
	ListQuizzes(ctx context.Context) ([]quiz.QuizListItem, error)
	ListFeed(ctx context.Context) ([]quiz.FeedItem, error)
	GetQuiz(ctx context.Context, quizID string) (quiz.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID string) error
	GenerateQuiz(ctx context.Context, req api.GenerateRequest) (api.GenerateResponse, error)
	CreateAttempt(ctx context.Context, quizID string) (string, error)
	GetAttempt(ctx context.Context, attemptID string) (quiz.QuizAttempt, error)
	ListAttempts(ctx context.Context) ([]quiz.UserAttempt, error)
	SubmitFeedback(ctx context.Context, content string, rating int) error
}

type Deps struct {
	Backend   Backend
	Auth      *auth.Cache
	Journal   session.Journal
	Logger    logrus.FieldLogger
	ServerURL string
	LoginURL  string
	// OnLogout runs after a successful logout, e.g. to drop the session cookie.
	OnLogout func()
}

type app struct {
	backend   Backend
	auth      *auth.Cache
	journal   session.Journal
	log       logrus.FieldLogger
	serverURL string
	loginURL  string
	onLogout  func()

	reader *bufio.Reader
	out    io.Writer
}

var errMissingBackend = errors.New("backend is required")

func Run(ctx context.Context, in io.Reader, out io.Writer, deps Deps) error {
	if deps.Backend == nil {
		return errMissingBackend
	}

	a := &app{
		backend:   deps.Backend,
		auth:      deps.Auth,
		journal:   deps.Journal,
		log:       deps.Logger,
		serverURL: strings.TrimRight(strings.TrimSpace(deps.ServerURL), "/"),
		loginURL:  strings.TrimSpace(deps.LoginURL),
		onLogout:  deps.OnLogout,
		reader:    bufio.NewReader(in),
		out:       out,
	}
	if a.log == nil {
		a.log = logging.Discard()
	}
	if a.auth == nil {
		a.auth = auth.NewCache(a.backend, auth.DefaultTTL, time.Now)
	}
	if a.loginURL == "" && a.serverURL != "" {
		a.loginURL = a.serverURL + "/login"
	}

	fmt.Fprintf(out, "quiz-client\nserver=%s\n\n", a.serverURL)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := a.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		args := splitArgs(strings.TrimSpace(line))
		if len(args) == 0 {
			if eof {
				fmt.Fprintln(out)
				return nil
			}
			continue
		}

		if quit := a.dispatch(ctx, args); quit {
			return nil
		}
		if eof {
			fmt.Fprintln(out)
			return nil
		}
	}
}

func (a *app) dispatch(ctx context.Context, args []string) bool {
	command := strings.ToLower(args[0])

	switch command {
	case "help":
		printHelp(a.out)
	case "exit", "quit":
		return true
	case "whoami":
		a.report(a.runWhoami(ctx))
	case "logout":
		a.report(a.runLogout(ctx))
	case "quizzes":
		a.report(a.runQuizzes(ctx))
	case "feed":
		a.report(a.runFeed(ctx))
	case "show":
		if len(args) != 2 {
			fmt.Fprintln(a.out, "usage: show <quiz_id>")
			return false
		}
		a.report(a.runShow(ctx, args[1]))
	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(a.out, "usage: delete <quiz_id>")
			return false
		}
		a.report(a.runDelete(ctx, args[1]))
	case "generate":
		a.report(a.runGenerate(ctx, args[1:]))
	case "start":
		if len(args) != 2 {
			fmt.Fprintln(a.out, "usage: start <quiz_id>")
			return false
		}
		a.report(a.runStart(ctx, args[1]))
	case "resume":
		if len(args) != 3 {
			fmt.Fprintln(a.out, "usage: resume <quiz_id> <attempt_id>")
			return false
		}
		a.report(a.runResume(ctx, args[1], args[2]))
	case "attempts":
		a.report(a.runAttempts(ctx))
	case "summary":
		if len(args) != 3 {
			fmt.Fprintln(a.out, "usage: summary <quiz_id> <attempt_id>")
			return false
		}
		a.report(a.runSummary(ctx, args[1], args[2]))
	case "feedback":
		if len(args) < 3 {
			fmt.Fprintln(a.out, "usage: feedback <rating 1-5> <text>")
			return false
		}
		a.report(a.runFeedback(ctx, args[1], strings.Join(args[2:], " ")))
	default:
		fmt.Fprintln(a.out, "unknown command. type 'help' for usage.")
	}
	return false
}

// report prints a command failure. A 401 drops the cached auth status and
// points the user at the login page.
func (a *app) report(err error) {
	if err == nil {
		return
	}
	if api.IsUnauthorized(err) {
		a.auth.Invalidate()
		fmt.Fprintln(a.out, a.loginPrompt())
		return
	}
	fmt.Fprintf(a.out, "error: %s\n", a.describe(err))
}

func (a *app) describe(err error) string {
	if errors.Is(err, api.ErrServiceUnavailable) && a.serverURL != "" {
		return fmt.Sprintf("quiz service unavailable at %s", a.serverURL)
	}
	return api.UserMessage(err)
}

func (a *app) loginPrompt() string {
	return fmt.Sprintf("not signed in. Sign in at %s, then set QUIZ_SESSION", a.loginURL)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  whoami")
	fmt.Fprintln(out, "  logout")
	fmt.Fprintln(out, "  quizzes")
	fmt.Fprintln(out, "  feed")
	fmt.Fprintln(out, "  show <quiz_id>")
	fmt.Fprintln(out, "  delete <quiz_id>")
	fmt.Fprintln(out, "  generate [--max N] [--difficulty easy|medium|hard|extreme] [--prompt TEXT] [--video URL]... [file]...")
	fmt.Fprintln(out, "  start <quiz_id>")
	fmt.Fprintln(out, "  resume <quiz_id> <attempt_id>")
	fmt.Fprintln(out, "  attempts")
	fmt.Fprintln(out, "  summary <quiz_id> <attempt_id>")
	fmt.Fprintln(out, "  feedback <rating 1-5> <text>")
	fmt.Fprintln(out, "  exit")
}
