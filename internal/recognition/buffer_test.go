package recognition

import "testing"

func TestUtteranceBuffer_Spacing(t *testing.T) {
	var b UtteranceBuffer
	b.Reset()

	if !b.IsEmpty() {
		t.Fatal("Expected empty buffer after reset")
	}
	if got := b.Append("hello"); got != "hello" {
		t.Errorf("Expected first fragment without leading space, got %q", got)
	}
	if got := b.Append("world"); got != " world" {
		t.Errorf("Expected second fragment with one leading space, got %q", got)
	}
	if b.String() != "hello world" {
		t.Errorf("Expected buffer 'hello world', got %q", b.String())
	}
	if b.IsEmpty() {
		t.Error("Expected non-empty buffer")
	}
}

func TestUtteranceBuffer_ResetStartsOver(t *testing.T) {
	var b UtteranceBuffer
	b.Append("one")
	b.Reset()

	if got := b.Append("two"); got != "two" {
		t.Errorf("Expected no leading space after reset, got %q", got)
	}
}

func TestUtteranceBuffer_ConcatenationMatchesContent(t *testing.T) {
	var b UtteranceBuffer
	typed := ""
	for _, f := range []string{"a", "b c", "d"} {
		typed += b.Append(f)
	}
	if typed != b.String() {
		t.Errorf("Expected typed text %q to equal buffer %q", typed, b.String())
	}
}
