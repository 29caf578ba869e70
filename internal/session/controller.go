// Package session drives one attempt of a quiz: selecting options, moving
// between questions and finishing. A Controller is safe for concurrent use;
// network calls run outside its lock.
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"quizgen-client/internal/api"
	"quizgen-client/internal/journal"
	"quizgen-client/internal/logging"
	"quizgen-client/internal/quiz"
)

var (
	ErrBusy            = errors.New("another operation is in progress")
	ErrAlreadyAnswered = errors.New("question already answered")
	ErrUnknownOption   = errors.New("option does not belong to the current question")
	ErrFinished        = errors.New("attempt already finished")
	ErrCannotAdvance   = errors.New("answer the current question first")
	ErrNothingToRetry  = errors.New("no failed answer to retry")
	ErrIndexOutOfRange = errors.New("question index out of range")
	ErrQuizMismatch    = errors.New("attempt belongs to a different quiz")
	ErrMissingDeps     = errors.New("answer saver and attempt finisher are required")
)

type AnswerSaver interface {
	SaveAnswer(ctx context.Context, attemptID, questionID, optionID string) error
}

type AttemptFinisher interface {
	FinishAttempt(ctx context.Context, attemptID string) (api.FinishResponse, error)
}

// Journal keeps answers the backend has not confirmed yet.
type Journal interface {
	Record(ctx context.Context, answer journal.PendingAnswer) error
	Confirm(ctx context.Context, attemptID, questionID string) error
	Pending(ctx context.Context, attemptID string) ([]journal.PendingAnswer, error)
}

type Deps struct {
	Saver    AnswerSaver
	Finisher AttemptFinisher
	Journal  Journal
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

type Transition int

const (
	TransitionNone Transition = iota
	TransitionMoved
	TransitionFinished
)

type FinishResult struct {
	Message string
	Score   int
}

type entry struct {
	OptionID  string
	Confirmed bool
	IsCorrect *bool
}

type Controller struct {
	mu sync.Mutex

	quiz      quiz.Quiz
	attemptID string

	saver    AnswerSaver
	finisher AttemptFinisher
	journal  Journal
	log      logrus.FieldLogger
	now      func() time.Time

	current         int
	answers         map[string]entry
	savePending     bool
	pendingQuestion string
	finishPending   bool
	finished        bool
	score           *int
	lastError       string

	inflight sync.WaitGroup
}

func New(q quiz.Quiz, attempt quiz.QuizAttempt, deps Deps) (*Controller, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := attempt.Validate(); err != nil {
		return nil, fmt.Errorf("attempt %s: %w", attempt.ID, err)
	}
	if attempt.QuizID != "" && attempt.QuizID != q.ID {
		return nil, fmt.Errorf("attempt %s quiz %s: %w", attempt.ID, q.ID, ErrQuizMismatch)
	}
	if deps.Saver == nil || deps.Finisher == nil {
		return nil, ErrMissingDeps
	}

	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	c := &Controller{
		quiz:      q,
		attemptID: attempt.ID,
		saver:     deps.Saver,
		finisher:  deps.Finisher,
		journal:   deps.Journal,
		log:       log.WithField("attempt_id", attempt.ID),
		now:       now,
		answers:   make(map[string]entry, len(q.Questions)),
	}

	for questionID, answer := range attempt.AnswerMap() {
		if _, ok := q.QuestionByID(questionID); !ok {
			continue
		}
		isCorrect := answer.IsCorrect
		c.answers[questionID] = entry{
			OptionID:  answer.SelectedAnswerID,
			Confirmed: true,
			IsCorrect: &isCorrect,
		}
	}
	if attempt.Finished() {
		score := *attempt.Score
		c.score = &score
		c.finished = true
	}
	return c, nil
}

func (c *Controller) AttemptID() string {
	return c.attemptID
}

func (c *Controller) Quiz() quiz.Quiz {
	return c.quiz
}

func (c *Controller) SelectOption(ctx context.Context, optionID string) error {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return ErrFinished
	}
	if c.savePending || c.finishPending {
		c.mu.Unlock()
		return ErrBusy
	}
	question := c.quiz.Questions[c.current]
	if err := question.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, ok := c.answers[question.ID]; ok {
		c.mu.Unlock()
		return ErrAlreadyAnswered
	}
	option, ok := question.Option(optionID)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownOption
	}

	isCorrect := option.IsCorrect
	c.answers[question.ID] = entry{OptionID: option.ID, IsCorrect: &isCorrect}
	c.lastError = ""
	c.beginSaveLocked(question.ID)
	c.mu.Unlock()

	return c.save(ctx, question.ID, option.ID)
}

// RetrySave re-sends the current question's answer after a failed save.
func (c *Controller) RetrySave(ctx context.Context) error {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return ErrFinished
	}
	if c.savePending || c.finishPending {
		c.mu.Unlock()
		return ErrBusy
	}
	question := c.quiz.Questions[c.current]
	current, ok := c.answers[question.ID]
	if !ok || current.Confirmed {
		c.mu.Unlock()
		return ErrNothingToRetry
	}
	c.lastError = ""
	c.beginSaveLocked(question.ID)
	c.mu.Unlock()

	return c.save(ctx, question.ID, current.OptionID)
}

func (c *Controller) beginSaveLocked(questionID string) {
	c.savePending = true
	c.pendingQuestion = questionID
	c.inflight.Add(1)
}

func (c *Controller) save(ctx context.Context, questionID, optionID string) error {
	defer c.inflight.Done()

	c.recordPending(ctx, questionID, optionID, "")
	err := c.saver.SaveAnswer(ctx, c.attemptID, questionID, optionID)

	c.mu.Lock()
	c.savePending = false
	c.pendingQuestion = ""
	if err != nil {
		c.lastError = api.UserMessage(err)
		c.mu.Unlock()

		c.log.WithFields(logrus.Fields{"question_id": questionID}).WithError(err).Warn("save answer failed")
		c.recordPending(ctx, questionID, optionID, err.Error())
		return fmt.Errorf("save answer for question %s: %w", questionID, err)
	}
	c.markConfirmedLocked(questionID)
	c.mu.Unlock()

	c.confirmPending(ctx, questionID)
	return nil
}

func (c *Controller) markConfirmedLocked(questionID string) {
	current, ok := c.answers[questionID]
	if !ok {
		return
	}
	current.Confirmed = true
	c.answers[questionID] = current
}

// GoToNext moves forward, or finishes the attempt from the last question.
func (c *Controller) GoToNext(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return TransitionNone, ErrFinished
	}
	if !c.canAdvanceLocked() {
		c.mu.Unlock()
		return TransitionNone, ErrCannotAdvance
	}
	if c.current < len(c.quiz.Questions)-1 {
		c.current++
		c.mu.Unlock()
		return TransitionMoved, nil
	}
	c.mu.Unlock()

	if _, err := c.Finish(ctx); err != nil {
		return TransitionNone, err
	}
	return TransitionFinished, nil
}

func (c *Controller) GoToPrevious() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current > 0 {
		c.current--
	}
}

func (c *Controller) JumpTo(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.quiz.Questions) {
		return ErrIndexOutOfRange
	}
	c.current = index
	return nil
}

// Finish waits for in-flight saves, re-sends any unconfirmed answers once and
// then finishes the attempt. On failure the session stays open for another try.
func (c *Controller) Finish(ctx context.Context) (FinishResult, error) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return FinishResult{}, ErrFinished
	}
	if c.finishPending {
		c.mu.Unlock()
		return FinishResult{}, ErrBusy
	}
	c.finishPending = true
	c.lastError = ""
	c.mu.Unlock()

	c.inflight.Wait()

	for _, item := range c.unconfirmed() {
		c.recordPending(ctx, item.questionID, item.optionID, "")
		if err := c.saver.SaveAnswer(ctx, c.attemptID, item.questionID, item.optionID); err != nil {
			c.log.WithFields(logrus.Fields{"question_id": item.questionID}).WithError(err).Warn("resend answer before finish failed")
			c.recordPending(ctx, item.questionID, item.optionID, err.Error())
			return FinishResult{}, c.abortFinish(fmt.Errorf("save answer for question %s: %w", item.questionID, err))
		}
		c.mu.Lock()
		c.markConfirmedLocked(item.questionID)
		c.mu.Unlock()
		c.confirmPending(ctx, item.questionID)
	}

	resp, err := c.finisher.FinishAttempt(ctx, c.attemptID)
	if err != nil {
		c.log.WithError(err).Warn("finish attempt failed")
		return FinishResult{}, c.abortFinish(fmt.Errorf("finish attempt: %w", err))
	}

	c.mu.Lock()
	score := resp.Score
	c.score = &score
	c.finished = true
	c.finishPending = false
	c.mu.Unlock()

	return FinishResult{Message: resp.Message, Score: resp.Score}, nil
}

func (c *Controller) abortFinish(err error) error {
	c.mu.Lock()
	c.finishPending = false
	c.lastError = api.UserMessage(err)
	c.mu.Unlock()
	return err
}

type pendingSave struct {
	questionID string
	optionID   string
}

func (c *Controller) unconfirmed() []pendingSave {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]pendingSave, 0)
	for _, question := range c.quiz.Questions {
		current, ok := c.answers[question.ID]
		if ok && !current.Confirmed {
			out = append(out, pendingSave{questionID: question.ID, optionID: current.OptionID})
		}
	}
	return out
}

// RecoverJournal restores answers that were recorded locally but never
// confirmed, then re-sends them one at a time under the same guard as
// SelectOption. Entries the backend already has are dropped. It returns how
// many entries were re-applied; a save or finish already running stops the
// replay with ErrBusy and leaves the remaining entries in the journal.
func (c *Controller) RecoverJournal(ctx context.Context) (int, error) {
	if c.journal == nil {
		return 0, nil
	}
	pending, err := c.journal.Pending(ctx, c.attemptID)
	if err != nil {
		return 0, fmt.Errorf("load journal: %w", err)
	}

	replayed := 0
	for _, item := range pending {
		c.mu.Lock()
		if c.finished {
			c.mu.Unlock()
			c.confirmPending(ctx, item.QuestionID)
			continue
		}
		if c.savePending || c.finishPending {
			c.mu.Unlock()
			return replayed, ErrBusy
		}
		question, ok := c.quiz.QuestionByID(item.QuestionID)
		_, answered := c.answers[item.QuestionID]
		option, optionOK := question.Option(item.OptionID)
		if !ok || answered || !optionOK {
			c.mu.Unlock()
			c.confirmPending(ctx, item.QuestionID)
			continue
		}
		isCorrect := option.IsCorrect
		c.answers[question.ID] = entry{OptionID: option.ID, IsCorrect: &isCorrect}
		c.beginSaveLocked(question.ID)
		c.mu.Unlock()
		replayed++

		// A failed replay stays journalled with lastError set; keep going.
		_ = c.save(ctx, question.ID, option.ID)
	}
	return replayed, nil
}

func (c *Controller) recordPending(ctx context.Context, questionID, optionID, lastErr string) {
	if c.journal == nil {
		return
	}
	err := c.journal.Record(ctx, journal.PendingAnswer{
		AttemptID:  c.attemptID,
		QuestionID: questionID,
		OptionID:   optionID,
		RecordedAt: c.now(),
		LastError:  lastErr,
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{"question_id": questionID}).WithError(err).Warn("journal record failed")
	}
}

func (c *Controller) confirmPending(ctx context.Context, questionID string) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Confirm(ctx, c.attemptID, questionID); err != nil {
		c.log.WithFields(logrus.Fields{"question_id": questionID}).WithError(err).Warn("journal confirm failed")
	}
}

func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canAdvanceLocked()
}

func (c *Controller) canAdvanceLocked() bool {
	_, ok := c.answers[c.quiz.Questions[c.current].ID]
	return ok
}

func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) QuestionCount() int {
	return len(c.quiz.Questions)
}

func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return progress(c.current, len(c.quiz.Questions))
}

func progress(index, count int) int {
	if count <= 0 {
		return 0
	}
	return int(math.Round(float64(index+1) / float64(count) * 100))
}

func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Controller) Finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished
}

// Score is nil until the attempt is finished.
func (c *Controller) Score() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.score == nil {
		return nil
	}
	score := *c.score
	return &score
}

func (c *Controller) AnsweredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers)
}

// FirstUnansweredIndex returns the last index when every question has an answer.
func (c *Controller) FirstUnansweredIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for idx, question := range c.quiz.Questions {
		if _, ok := c.answers[question.ID]; !ok {
			return idx
		}
	}
	return len(c.quiz.Questions) - 1
}

// Attempt rebuilds the attempt as the controller sees it, for summaries.
// Only confirmed answers are included.
func (c *Controller) Attempt() quiz.QuizAttempt {
	c.mu.Lock()
	defer c.mu.Unlock()

	attempt := quiz.QuizAttempt{
		ID:      c.attemptID,
		QuizID:  c.quiz.ID,
		Answers: make([]quiz.AttemptAnswer, 0, len(c.answers)),
	}
	if c.score != nil {
		score := *c.score
		attempt.Score = &score
	}
	for _, question := range c.quiz.Questions {
		current, ok := c.answers[question.ID]
		if !ok || !current.Confirmed {
			continue
		}
		answer := quiz.AttemptAnswer{QuestionID: question.ID, SelectedAnswerID: current.OptionID}
		if current.IsCorrect != nil {
			answer.IsCorrect = *current.IsCorrect
		}
		attempt.Answers = append(attempt.Answers, answer)
	}
	return attempt
}

// View is a snapshot of everything needed to render the current question.
func (c *Controller) View() QuestionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	question := c.quiz.Questions[c.current]
	current, answered := c.answers[question.ID]
	pendingHere := c.savePending && c.pendingQuestion == question.ID

	view := QuestionView{
		Question:      question,
		Index:         c.current,
		Total:         len(c.quiz.Questions),
		Progress:      progress(c.current, len(c.quiz.Questions)),
		Err:           question.Validate(),
		Options:       make([]OptionView, 0, len(question.Options)),
		SelectedID:    current.OptionID,
		Confirmed:     answered && current.Confirmed,
		CanAdvance:    answered,
		IsLast:        c.current == len(c.quiz.Questions)-1,
		SavePending:   c.savePending,
		FinishPending: c.finishPending,
		LastError:     c.lastError,
	}
	for idx, option := range question.Options {
		selected := answered && option.ID == current.OptionID
		view.Options = append(view.Options, OptionView{
			Letter: OptionLetter(idx),
			Option: option,
			State:  ClassifyOption(answered, selected, pendingHere, option),
		})
	}
	return view
}
