package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"quizgen-client/internal/api"
)

// splitArgs splits on whitespace, keeping double-quoted runs together.
func splitArgs(line string) []string {
	args := make([]string, 0)
	var (
		current strings.Builder
		quoted  bool
		started bool
	)
	flush := func() {
		if started {
			args = append(args, current.String())
		}
		current.Reset()
		started = false
	}

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return args
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, "Please answer yes or no.")
	}
}

func parseRating(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < api.MinFeedbackRating || value > api.MaxFeedbackRating {
		return 0, api.ErrInvalidRating
	}
	return value, nil
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("value must not be empty")
	}
	*s = append(*s, value)
	return nil
}

func percent(value int) string {
	return strconv.Itoa(value) + "%"
}
