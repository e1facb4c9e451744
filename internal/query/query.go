// Package query turns the three answers of a request into a search string.
package query

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrConfig marks failures of the query configuration, such as a missing
// stopword list. Requests failing with it must not be retried.
var ErrConfig = errors.New("query configuration error")

// Connective joins the subject and the place in every query. Scoring skips it.
const Connective = "en"

// DefaultQualifier scopes every search to the country the bot serves.
const DefaultQualifier = "Costa Rica"

// Query is a normalized search string. It is built once per request.
type Query string

// Stopwords is a set of lowercase tokens removed from user phrases.
type Stopwords map[string]struct{}

// NewStopwords builds a set from a list of tokens.
func NewStopwords(words ...string) Stopwords {
	s := make(Stopwords, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Contains reports whether token is a stopword.
func (s Stopwords) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// LoadStopwords reads a newline-delimited stopword file.
func LoadStopwords(path string) (Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open stopwords %s: %v", ErrConfig, path, err)
	}
	defer f.Close()

	words := make(Stopwords)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimRight(scanner.Text(), "\r")
		if word == "" {
			continue
		}
		words[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read stopwords %s: %v", ErrConfig, path, err)
	}
	return words, nil
}

// RemoveStopwords drops every token of phrase that is exactly a stopword and
// rejoins the survivors with single spaces.
func RemoveStopwords(phrase string, stopwords Stopwords) string {
	tokens := strings.Fields(phrase)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !stopwords.Contains(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// Normalize composes the search string from already lowercased phrases:
// "<subject> en <place> <qualifier> <extra>".
func Normalize(subject, place, extra string, stopwords Stopwords, qualifier string) Query {
	var b strings.Builder
	b.WriteString(RemoveStopwords(subject, stopwords))
	b.WriteString(" " + Connective + " ")
	b.WriteString(RemoveStopwords(place, stopwords))
	b.WriteString(" " + qualifier + " ")
	b.WriteString(RemoveStopwords(extra, stopwords))
	return Query(b.String())
}

// Build loads the stopword file and normalizes the phrases in one step.
func Build(subject, place, extra, stopwordsPath, qualifier string) (Query, error) {
	stopwords, err := LoadStopwords(stopwordsPath)
	if err != nil {
		return "", err
	}
	return Normalize(subject, place, extra, stopwords, qualifier), nil
}

// Terms returns the lowercased tokens of q that take part in scoring.
// Tokens are split on single spaces; empty tokens and the connective are skipped.
func (q Query) Terms() []string {
	parts := strings.Split(string(q), " ")
	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == Connective {
			continue
		}
		terms = append(terms, strings.ToLower(p))
	}
	return terms
}

func (q Query) String() string {
	return string(q)
}
