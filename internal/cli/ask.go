// Package cli provides the terminal front-ends: the three-question
// conversation and the result and history formatting shared by the commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/c-bata/go-prompt"
	"github.com/hession/coco/internal/config"
	"github.com/hession/coco/internal/logger"
	"github.com/hession/coco/internal/retrieval"
)

const (
	Version = "0.1.0"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// ErrEmptyAnswer is returned when a required question is left blank.
var ErrEmptyAnswer = errors.New("answer cannot be empty")

// Retriever answers a retrieval request. *retrieval.Engine implements it.
type Retriever interface {
	Retrieve(ctx context.Context, req *retrieval.Request) (*retrieval.Outcome, error)
}

// Asker reads the answer to one question.
type Asker interface {
	Ask(question string, suggestions []Suggestion) (string, error)
}

// Suggestion is an autocompletion candidate.
type Suggestion struct {
	Text        string
	Description string
}

// PromptAsker reads answers from the terminal with go-prompt.
type PromptAsker struct{}

func (PromptAsker) Ask(question string, suggestions []Suggestion) (string, error) {
	answer := prompt.Input(question, completer(suggestions),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionShowCompletionAtStart(),
	)
	return strings.TrimSpace(answer), nil
}

func completer(suggestions []Suggestion) prompt.Completer {
	s := make([]prompt.Suggest, len(suggestions))
	for i, sg := range suggestions {
		s[i] = prompt.Suggest{Text: sg.Text, Description: sg.Description}
	}
	return func(d prompt.Document) []prompt.Suggest {
		word := d.GetWordBeforeCursor()
		if word == "" {
			return nil
		}
		return prompt.FilterHasPrefix(s, word, true)
	}
}

// SubjectSuggestions, PlaceSuggestions and ExtraSuggestions seed completion
// for the three questions.
var (
	SubjectSuggestions = []Suggestion{
		{Text: "pizza"}, {Text: "sushi"}, {Text: "hamburguesa"}, {Text: "casado"},
		{Text: "ceviche"}, {Text: "tacos"}, {Text: "pasta"}, {Text: "café"},
	}
	PlaceSuggestions = []Suggestion{
		{Text: "san josé"}, {Text: "sabana"}, {Text: "escazú"}, {Text: "heredia"},
		{Text: "cartago"}, {Text: "alajuela"}, {Text: "san pedro"},
	}
	ExtraSuggestions = []Suggestion{
		{Text: "no", Description: "sin detalles extra"},
		{Text: "parqueo"}, {Text: "vegano"}, {Text: "wifi"}, {Text: "terraza"},
	}
)

// Session runs the conversation: what to eat, where, and any extras, then
// one retrieval.
type Session struct {
	retriever Retriever
	asker     Asker
	prompts   config.LanguagePrompts
	out       io.Writer
	user      string
}

func NewSession(r Retriever, asker Asker, prompts config.LanguagePrompts, out io.Writer, user string) *Session {
	return &Session{retriever: r, asker: asker, prompts: prompts, out: out, user: user}
}

// Run asks the three questions and prints the outcome. A request that fails
// to build prints the no-results message and returns the error.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintf(s.out, "\n%s%s%s\n", colorCyan, s.prompts.Welcome, colorReset)
	fmt.Fprintf(s.out, "%scoco v%s, Ctrl-C to quit%s\n\n", colorGray, Version, colorReset)

	subject, err := s.ask(s.prompts.AskSubject, SubjectSuggestions, true)
	if err != nil {
		return err
	}
	place, err := s.ask(s.prompts.AskPlace, PlaceSuggestions, true)
	if err != nil {
		return err
	}
	extra, err := s.ask(s.prompts.AskExtra, ExtraSuggestions, false)
	if err != nil {
		return err
	}
	extra = ExtrasAnswer(extra, s.prompts.NoExtras)

	fmt.Fprintf(s.out, "\n%s%s%s\n", colorGreen, s.prompts.Searching, colorReset)

	req := retrieval.NewRequest(s.user, subject, place, extra)
	logger.Info("user %s asked for %q in %q with extras %q (request %s)", req.User, subject, place, extra, req.ID)

	outcome, err := s.retriever.Retrieve(ctx, req)
	if err != nil {
		fmt.Fprintf(s.out, "%s%s%s\n", colorYellow, s.prompts.NoResults, colorReset)
		return err
	}
	fmt.Fprintln(s.out, FormatOutcome(outcome, s.prompts))
	return nil
}

func (s *Session) ask(question string, suggestions []Suggestion, required bool) (string, error) {
	answer, err := s.asker.Ask(question, suggestions)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if required && answer == "" {
		return "", fmt.Errorf("%s %w", strings.TrimSpace(question), ErrEmptyAnswer)
	}
	return answer, nil
}

// ExtrasAnswer returns "" when one of the words of answer is the refusal
// word, case-insensitively, and answer unchanged otherwise.
func ExtrasAnswer(answer, refusal string) string {
	if refusal == "" {
		refusal = "no"
	}
	refusal = strings.ToLower(refusal)
	words := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if slices.Contains(words, refusal) {
		return ""
	}
	return answer
}
