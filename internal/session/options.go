package session

import (
	"strconv"

	"quizgen-client/internal/quiz"
)

type OptionState string

const (
	StateSelectable      OptionState = "selectable"
	StateSelectedPending OptionState = "selected_pending"
	StateCorrect         OptionState = "correct"
	StateIncorrect       OptionState = "incorrect"
	StateLocked          OptionState = "locked"
)

// ClassifyOption decides how one option renders. savePending only matters for
// the selected option of the current question while its save is in flight.
func ClassifyOption(answered, selected, savePending bool, option quiz.Option) OptionState {
	if !answered {
		return StateSelectable
	}
	if selected && savePending {
		return StateSelectedPending
	}
	if option.IsCorrect {
		return StateCorrect
	}
	if selected {
		return StateIncorrect
	}
	return StateLocked
}

type OptionView struct {
	Letter string
	Option quiz.Option
	State  OptionState
}

type QuestionView struct {
	Question      quiz.Question
	Index         int
	Total         int
	Progress      int
	Err           error
	Options       []OptionView
	SelectedID    string
	Confirmed     bool
	CanAdvance    bool
	IsLast        bool
	SavePending   bool
	FinishPending bool
	LastError     string
}

// OptionLetter maps 0 to "A". Past "Z" it falls back to a number.
func OptionLetter(idx int) string {
	if idx >= 0 && idx < 26 {
		return string(rune('A' + idx))
	}
	return strconv.Itoa(idx + 1)
}

// LetterIndex is the inverse of OptionLetter: a single letter in either case,
// or the number shown for options past "Z".
func LetterIndex(letter string) (int, bool) {
	if n, err := strconv.Atoi(letter); err == nil {
		if n <= 26 {
			return 0, false
		}
		return n - 1, true
	}
	if len(letter) != 1 {
		return 0, false
	}
	c := letter[0]
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A'), true
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), true
	default:
		return 0, false
	}
}
