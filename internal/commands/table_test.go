package commands

import (
	"testing"
)

func TestDefaultTable_Order(t *testing.T) {
	entries := NewDefaultTable().Entries()
	if len(entries) != 19 {
		t.Fatalf("Expected 19 default commands, got %d", len(entries))
	}
	if entries[0].Phrase != "press enter" {
		t.Errorf("Expected first command 'press enter', got '%s'", entries[0].Phrase)
	}
	if entries[len(entries)-1].Phrase != "exclamation point" {
		t.Errorf("Expected last command 'exclamation point', got '%s'", entries[len(entries)-1].Phrase)
	}
}

func TestTable_AddNormalizes(t *testing.T) {
	table := NewTable()
	table.Add("  Open Terminal ", "ctrl+alt+t")

	action, ok := table.Lookup("open terminal")
	if !ok {
		t.Fatal("Expected command to be found")
	}
	if action != "ctrl+alt+t" {
		t.Errorf("Expected action 'ctrl+alt+t', got '%s'", action)
	}
}

func TestTable_OverwriteKeepsPosition(t *testing.T) {
	table := NewTable(
		Entry{Phrase: "one", Action: "f1"},
		Entry{Phrase: "two", Action: "f2"},
	)
	table.Add("one", "f9")

	entries := table.Entries()
	if entries[0].Phrase != "one" || entries[0].Action != "f9" {
		t.Errorf("Expected overwritten entry to stay first, got %+v", entries)
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", table.Len())
	}
}

func TestTable_Remove(t *testing.T) {
	table := NewDefaultTable()
	if !table.Remove("COPY") {
		t.Error("Expected remove of existing phrase to report true")
	}
	if _, ok := table.Lookup("copy"); ok {
		t.Error("Expected 'copy' to be removed")
	}
	if table.Remove("copy") {
		t.Error("Expected remove of absent phrase to report false")
	}
	if _, ok := table.Lookup("paste"); !ok {
		t.Error("Expected other commands to remain")
	}
}

func TestTable_EntriesIsCopy(t *testing.T) {
	table := NewDefaultTable()
	entries := table.Entries()
	entries[0].Action = "mutated"

	if action, _ := table.Lookup("press enter"); action != "enter" {
		t.Errorf("Expected table to be unaffected by caller mutation, got '%s'", action)
	}
}

func TestTable_Replace(t *testing.T) {
	table := NewDefaultTable()
	table.Replace([]Entry{{Phrase: "go", Action: "enter"}})

	if table.Len() != 1 {
		t.Errorf("Expected 1 entry after replace, got %d", table.Len())
	}
}
