package commands

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Entry maps a spoken phrase to an action identifier understood by the
// output actuator (a key name, a "+"-joined chord, or a literal character).
type Entry struct {
	Phrase string `json:"phrase" yaml:"phrase"`
	Action string `json:"action" yaml:"action"`
}

// snapshot is an immutable view of the table. Readers load it without locking.
type snapshot struct {
	entries []Entry
	index   map[string]int
}

func newSnapshot(entries []Entry) *snapshot {
	s := &snapshot{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		phrase := Normalize(e.Phrase)
		if phrase == "" {
			continue
		}
		if i, ok := s.index[phrase]; ok {
			s.entries[i].Action = e.Action
			continue
		}
		s.index[phrase] = len(s.entries)
		s.entries = append(s.entries, Entry{Phrase: phrase, Action: e.Action})
	}
	return s
}

// Table is an ordered phrase -> action map. Iteration order is insertion
// order, and that order decides fuzzy-match ties. Mutations publish a new
// snapshot, so a classification in progress always sees a consistent table.
type Table struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewTable creates a table holding entries in the given order. Phrases are
// normalized; a repeated phrase keeps its first position and its last action.
func NewTable(entries ...Entry) *Table {
	t := &Table{}
	t.current.Store(newSnapshot(entries))
	return t
}

// NewDefaultTable creates a table holding the built-in command set.
func NewDefaultTable() *Table {
	return NewTable(DefaultEntries()...)
}

func (t *Table) load() *snapshot {
	return t.current.Load()
}

// Add inserts or overwrites a command. Overwriting keeps the phrase's
// original position.
func (t *Table) Add(phrase, action string) {
	phrase = Normalize(phrase)
	if phrase == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.load()
	entries := make([]Entry, len(old.entries), len(old.entries)+1)
	copy(entries, old.entries)
	if i, ok := old.index[phrase]; ok {
		entries[i].Action = action
	} else {
		entries = append(entries, Entry{Phrase: phrase, Action: action})
	}
	t.current.Store(newSnapshot(entries))
}

// Remove deletes a command. Removing an absent phrase is a no-op.
func (t *Table) Remove(phrase string) bool {
	phrase = Normalize(phrase)

	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.load()
	i, ok := old.index[phrase]
	if !ok {
		return false
	}
	entries := make([]Entry, 0, len(old.entries)-1)
	entries = append(entries, old.entries[:i]...)
	entries = append(entries, old.entries[i+1:]...)
	t.current.Store(newSnapshot(entries))
	return true
}

// Replace swaps the whole table content, e.g. after a configuration reload.
func (t *Table) Replace(entries []Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Store(newSnapshot(entries))
}

// Lookup returns the action for an exact (normalized) phrase.
func (t *Table) Lookup(phrase string) (string, bool) {
	s := t.load()
	i, ok := s.index[Normalize(phrase)]
	if !ok {
		return "", false
	}
	return s.entries[i].Action, true
}

// Entries returns a copy of the table in insertion order.
func (t *Table) Entries() []Entry {
	s := t.load()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of commands.
func (t *Table) Len() int {
	return len(t.load().entries)
}

// Normalize lowercases and trims a phrase or utterance.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
