package keyboard

import (
	"fmt"
	"strings"
)

// ActionKind distinguishes typed text from key actions.
type ActionKind int

const (
	ActionType ActionKind = iota
	ActionKeys
)

func (k ActionKind) String() string {
	if k == ActionKeys {
		return "keys"
	}
	return "type"
}

// Action is one unit of output. Type actions carry literal text; key
// actions carry an identifier such as "enter", "ctrl+shift+t" or ".".
type Action struct {
	Kind ActionKind
	Text string
	Keys string
}

// TypeText builds an action that types text literally.
func TypeText(text string) Action {
	return Action{Kind: ActionType, Text: text}
}

// PressKeys builds an action that presses a key, a chord or types a
// single punctuation character.
func PressKeys(keys string) Action {
	return Action{Kind: ActionKeys, Keys: keys}
}

func (a Action) String() string {
	if a.Kind == ActionKeys {
		return "keys(" + a.Keys + ")"
	}
	return fmt.Sprintf("type(%q)", a.Text)
}

// UnknownKeyError reports a key name with no mapping.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %q", e.Key)
}

var modifiers = map[string]bool{
	"ctrl":  true,
	"shift": true,
	"alt":   true,
}

var namedKeys = map[string]bool{
	"enter":     true,
	"backspace": true,
	"tab":       true,
	"space":     true,
	"delete":    true,
	"home":      true,
	"end":       true,
	"pageup":    true,
	"pagedown":  true,
	"escape":    true,
	"up":        true,
	"down":      true,
	"left":      true,
	"right":     true,
}

var keyAliases = map[string]string{
	"control": "ctrl",
	"esc":     "escape",
	"return":  "enter",
	"del":     "delete",
}

func init() {
	for r := 'a'; r <= 'z'; r++ {
		namedKeys[string(r)] = true
	}
	for r := '0'; r <= '9'; r++ {
		namedKeys[string(r)] = true
	}
	for i := 1; i <= 12; i++ {
		namedKeys[fmt.Sprintf("f%d", i)] = true
	}
}

// CanonicalKey lowercases name and resolves aliases. ok is false for names
// with no mapping.
func CanonicalKey(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, found := keyAliases[key]; found {
		key = alias
	}
	return key, modifiers[key] || namedKeys[key]
}

// IsModifier reports whether key is ctrl, shift or alt.
func IsModifier(key string) bool {
	return modifiers[key]
}

// ParseChord splits a "+"-joined action into canonical key names.
func ParseChord(action string) ([]string, error) {
	parts := strings.Split(action, "+")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		key, ok := CanonicalKey(p)
		if !ok {
			return nil, &UnknownKeyError{Key: strings.TrimSpace(p)}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// isLiteral reports whether a key action is a single character to type
// rather than a key name, e.g. "." or "?".
func isLiteral(action string) bool {
	r := []rune(action)
	if len(r) != 1 {
		return false
	}
	_, named := CanonicalKey(action)
	return !named
}

// keyForRune maps a character onto the key that types it. Characters with
// no portable key mapping report ok=false and are pasted instead.
func keyForRune(r rune) (key string, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return string(r), false, true
	case r >= 'A' && r <= 'Z':
		return string(r + ('a' - 'A')), true, true
	case r == ' ':
		return "space", false, true
	case r == '\n':
		return "enter", false, true
	case r == '\t':
		return "tab", false, true
	}
	return "", false, false
}
