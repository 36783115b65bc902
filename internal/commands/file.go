package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// keyAliases maps cross-platform accelerator names onto actuator key names.
var keyAliases = map[string]string{
	"commandorcontrol": "ctrl",
	"cmdorctrl":        "ctrl",
	"control":          "ctrl",
	"command":          "ctrl",
	"cmd":              "ctrl",
	"option":           "alt",
	"return":           "enter",
	"esc":              "escape",
}

// NormalizeAction canonicalizes an action identifier: key names are
// lowercased, aliases resolved and chord parts joined with "+". A lone
// "+" is kept as a literal character.
func NormalizeAction(action string) string {
	action = strings.TrimSpace(action)
	if action == "+" || !strings.Contains(action, "+") {
		return normalizeKey(action)
	}
	parts := strings.Split(action, "+")
	for i, p := range parts {
		parts[i] = normalizeKey(p)
	}
	return strings.Join(parts, "+")
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if len([]rune(key)) == 1 {
		return strings.ToLower(key)
	}
	lower := strings.ToLower(key)
	if alias, ok := keyAliases[lower]; ok {
		return alias
	}
	return lower
}

// commandValue is one value in a commands file: either a bare action string
// or a structured {action, keys} mapping.
type commandValue struct {
	action string
}

func (v *commandValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v.action = NormalizeAction(node.Value)
		return nil
	case yaml.MappingNode:
		var structured struct {
			Action string   `yaml:"action"`
			Keys   []string `yaml:"keys"`
			Key    string   `yaml:"key"`
		}
		if err := node.Decode(&structured); err != nil {
			return err
		}
		action, err := structuredAction(structured.Action, structured.Keys, structured.Key)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		v.action = action
		return nil
	default:
		return fmt.Errorf("line %d: command must be a string or a mapping", node.Line)
	}
}

func structuredAction(kind string, keys []string, key string) (string, error) {
	switch strings.ToLower(kind) {
	case "", "hotkey", "shortcut":
		if len(keys) == 0 && key != "" {
			keys = []string{key}
		}
		if len(keys) == 0 {
			return "", fmt.Errorf("hotkey command needs at least one key")
		}
		return NormalizeAction(strings.Join(keys, "+")), nil
	case "key", "press":
		if key == "" && len(keys) == 1 {
			key = keys[0]
		}
		if key == "" {
			return "", fmt.Errorf("key command needs exactly one key")
		}
		return normalizeKey(key), nil
	default:
		return "", fmt.Errorf("unsupported command action %q", kind)
	}
}

// ParseFile decodes a commands document of the form
//
//	commands:
//	  open terminal: {action: hotkey, keys: [CommandOrControl, T]}
//	  next field: tab
//
// Entries keep document order.
func ParseFile(data []byte) ([]Entry, error) {
	var doc struct {
		Commands yaml.Node `yaml:"commands"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse commands file: %w", err)
	}

	node := doc.Commands
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("commands must be a mapping of phrase to action")
	}

	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		phrase := Normalize(node.Content[i].Value)
		if phrase == "" {
			return nil, fmt.Errorf("line %d: empty command phrase", node.Content[i].Line)
		}
		var v commandValue
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("command %q: %w", phrase, err)
		}
		if v.action == "" {
			return nil, fmt.Errorf("command %q: empty action", phrase)
		}
		entries = append(entries, Entry{Phrase: phrase, Action: v.action})
	}
	return entries, nil
}

// LoadFile reads and parses a commands file.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read commands file: %w", err)
	}
	return ParseFile(data)
}

// FromMap converts a phrase -> action map (as read from the environment)
// into entries. Maps carry no order, so phrases are sorted.
func FromMap(m map[string]string) []Entry {
	phrases := make([]string, 0, len(m))
	for phrase := range m {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	entries := make([]Entry, 0, len(phrases))
	for _, phrase := range phrases {
		action := NormalizeAction(m[phrase])
		if Normalize(phrase) == "" || action == "" {
			continue
		}
		entries = append(entries, Entry{Phrase: phrase, Action: action})
	}
	return entries
}

// Build assembles the effective command list: defaults first, then custom
// entries (which overwrite defaults with the same phrase in place).
func Build(custom ...[]Entry) []Entry {
	all := DefaultEntries()
	for _, c := range custom {
		all = append(all, c...)
	}
	return newSnapshot(all).entries
}
