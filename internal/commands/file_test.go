package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFile(t *testing.T) {
	data := []byte(`
commands:
  open terminal: {action: hotkey, keys: [CommandOrControl, Alt, T]}
  next field: Tab
  Go Home:
    action: key
    key: Home
  say plus: "+"
`)

	entries, err := ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile() failed: %v", err)
	}

	want := []Entry{
		{Phrase: "open terminal", Action: "ctrl+alt+t"},
		{Phrase: "next field", Action: "tab"},
		{Phrase: "go home", Action: "home"},
		{Phrase: "say plus", Action: "+"},
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("Entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}
}

func TestParseFile_Errors(t *testing.T) {
	tests := map[string]string{
		"not a mapping":      "commands: [a, b]",
		"unsupported action": "commands:\n  x: {action: launch, keys: [a]}",
		"hotkey no keys":     "commands:\n  x: {action: hotkey}",
		"invalid yaml":       "commands: {",
	}

	for name, doc := range tests {
		if _, err := ParseFile([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseFile_Empty(t *testing.T) {
	entries, err := ParseFile([]byte("other: 1\n"))
	if err != nil {
		t.Fatalf("ParseFile() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.yaml")
	if err := os.WriteFile(path, []byte("commands:\n  submit: enter\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "enter" {
		t.Errorf("Unexpected entries: %+v", entries)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestFromMap_SortedAndNormalized(t *testing.T) {
	entries := FromMap(map[string]string{
		"zoom in": "CmdOrCtrl+=",
		"find":    "Control+F",
		"ignored": "",
		"   ":     "enter",
	})

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Phrase != "find" || entries[0].Action != "ctrl+f" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Action != "ctrl+=" {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}
}

func TestBuild_CustomOverridesInPlace(t *testing.T) {
	entries := Build([]Entry{
		{Phrase: "Copy", Action: "ctrl+insert"},
		{Phrase: "open terminal", Action: "ctrl+alt+t"},
	})

	if len(entries) != 20 {
		t.Fatalf("Expected 20 entries, got %d", len(entries))
	}
	if entries[8].Phrase != "copy" || entries[8].Action != "ctrl+insert" {
		t.Errorf("Expected 'copy' overridden in place, got %+v", entries[8])
	}
	if entries[19].Phrase != "open terminal" {
		t.Errorf("Expected custom command appended last, got %+v", entries[19])
	}
}
