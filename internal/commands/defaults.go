package commands

// DefaultEntries returns the built-in command set. Order matters: it is the
// tie-break order for fuzzy matching.
func DefaultEntries() []Entry {
	return []Entry{
		// Navigation and editing keys
		{Phrase: "press enter", Action: "enter"},
		{Phrase: "new line", Action: "enter"},
		{Phrase: "press backspace", Action: "backspace"},
		{Phrase: "backspace", Action: "backspace"},
		{Phrase: "delete", Action: "backspace"},
		{Phrase: "press tab", Action: "tab"},
		{Phrase: "tab", Action: "tab"},

		// Editor shortcuts
		{Phrase: "select all", Action: "ctrl+a"},
		{Phrase: "copy", Action: "ctrl+c"},
		{Phrase: "paste", Action: "ctrl+v"},
		{Phrase: "cut", Action: "ctrl+x"},
		{Phrase: "undo", Action: "ctrl+z"},
		{Phrase: "redo", Action: "ctrl+y"},
		{Phrase: "save", Action: "ctrl+s"},

		// Punctuation
		{Phrase: "period", Action: "."},
		{Phrase: "comma", Action: ","},
		{Phrase: "question mark", Action: "?"},
		{Phrase: "exclamation mark", Action: "!"},
		{Phrase: "exclamation point", Action: "!"},
	}
}
