package commands

import (
	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the similarity an utterance must strictly exceed to
// fuzzy-match a command phrase.
const DefaultThreshold = 0.85

// Kind tells a command apart from dictated text.
type Kind int

const (
	KindText Kind = iota
	KindCommand
)

func (k Kind) String() string {
	if k == KindCommand {
		return "command"
	}
	return "text"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Parsed is the classification of one final utterance.
type Parsed struct {
	Kind Kind `json:"kind"`
	// Action is set for commands.
	Action string `json:"action,omitempty"`
	// Phrase is the table phrase that matched (commands only).
	Phrase string `json:"phrase,omitempty"`
	// Text is the utterance as received: the original text of a command,
	// or the value to type for text.
	Text string `json:"text"`
	// Similarity of the matched phrase; 1 for exact matches.
	Similarity float64 `json:"similarity,omitempty"`
}

// IsCommand reports whether the utterance resolved to a command.
func (p Parsed) IsCommand() bool {
	return p.Kind == KindCommand
}

// Matcher classifies utterances against a Table.
type Matcher struct {
	table     *Table
	threshold float64
}

// NewMatcher creates a matcher over table using DefaultThreshold.
func NewMatcher(table *Table) *Matcher {
	return &Matcher{table: table, threshold: DefaultThreshold}
}

// Table returns the table the matcher reads from.
func (m *Matcher) Table() *Table {
	return m.table
}

// Classify resolves text to a command or plain text. An exact match on the
// normalized text wins; otherwise the first phrase in table order whose
// similarity is strictly above the threshold is taken.
func (m *Matcher) Classify(text string) Parsed {
	normalized := Normalize(text)
	s := m.table.load()

	if i, ok := s.index[normalized]; ok {
		e := s.entries[i]
		return Parsed{Kind: KindCommand, Action: e.Action, Phrase: e.Phrase, Text: text, Similarity: 1}
	}

	for _, e := range s.entries {
		if score := Similarity(normalized, e.Phrase); score > m.threshold {
			return Parsed{Kind: KindCommand, Action: e.Action, Phrase: e.Phrase, Text: text, Similarity: score}
		}
	}

	return Parsed{Kind: KindText, Text: text}
}

// Similarity returns 1 - distance/maxLen over runes. Two empty strings are
// identical.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return float64(longest-d) / float64(longest)
}
