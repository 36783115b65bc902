package keyboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// recordingBackend logs every call as "down:ctrl+a", "up:a+ctrl", "paste:…".
type recordingBackend struct {
	calls   []string
	downErr error
}

func (b *recordingBackend) KeyDown(keys []string) error {
	b.calls = append(b.calls, "down:"+strings.Join(keys, "+"))
	return b.downErr
}

func (b *recordingBackend) KeyUp(keys []string) error {
	b.calls = append(b.calls, "up:"+strings.Join(keys, "+"))
	return nil
}

func (b *recordingBackend) Paste(text string) error {
	b.calls = append(b.calls, "paste:"+text)
	return nil
}

func newTestActuator(backend Backend) *Actuator {
	a := New(backend, 0)
	a.settleDelay = 0
	a.holdDelay = 0
	return a
}

func assertCalls(t *testing.T, got []string, want ...string) {
	t.Helper()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Expected calls %v, got %v", want, got)
	}
}

func TestActuator_TypeText(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)

	if err := a.TypeText(context.Background(), " Hi"); err != nil {
		t.Fatalf("TypeText() failed: %v", err)
	}

	assertCalls(t, backend.calls,
		"down:space", "up:space",
		"down:shift+h", "up:h+shift",
		"down:i", "up:i",
	)
}

func TestActuator_TypeTextPastesUnmappedRuns(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)

	if err := a.TypeText(context.Background(), "a, é!b"); err != nil {
		t.Fatalf("TypeText() failed: %v", err)
	}

	assertCalls(t, backend.calls,
		"down:a", "up:a",
		"paste:,",
		"down:space", "up:space",
		"paste:é!",
		"down:b", "up:b",
	)
}

func TestActuator_TypingDelay(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)
	a.SetTypingDelay(20 * time.Millisecond)

	start := time.Now()
	_ = a.TypeText(context.Background(), "abc")

	// two gaps between three characters
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected at least 40ms of typing delay, took %v", elapsed)
	}
	if a.TypingDelay() != 20*time.Millisecond {
		t.Errorf("Expected typing delay 20ms, got %v", a.TypingDelay())
	}
}

func TestActuator_SettleDelayBeforeTyping(t *testing.T) {
	a := New(&recordingBackend{}, 0)
	a.holdDelay = 0

	start := time.Now()
	_ = a.TypeText(context.Background(), "a")
	if elapsed := time.Since(start); elapsed < DefaultSettleDelay {
		t.Errorf("Expected settle delay of %v, took %v", DefaultSettleDelay, elapsed)
	}
}

func TestActuator_PressKey(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)

	if err := a.Execute(context.Background(), PressKeys("Enter")); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	assertCalls(t, backend.calls, "down:enter", "up:enter")
}

func TestActuator_ChordReleasesInReverse(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)

	if err := a.Chord(context.Background(), "ctrl", "shift", "t"); err != nil {
		t.Fatalf("Chord() failed: %v", err)
	}
	assertCalls(t, backend.calls, "down:ctrl+shift+t", "up:t+shift+ctrl")
}

func TestActuator_ChordHoldsKeys(t *testing.T) {
	a := New(&recordingBackend{}, 0)
	a.settleDelay = 0

	start := time.Now()
	_ = a.Execute(context.Background(), PressKeys("ctrl+c"))
	if elapsed := time.Since(start); elapsed < DefaultHoldDelay {
		t.Errorf("Expected chord to be held for %v, took %v", DefaultHoldDelay, elapsed)
	}
}

func TestActuator_PunctuationIsTyped(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)

	for _, action := range []string{".", "?", "+"} {
		if err := a.Execute(context.Background(), PressKeys(action)); err != nil {
			t.Errorf("Execute(%q) failed: %v", action, err)
		}
	}
	assertCalls(t, backend.calls, "paste:.", "paste:?", "paste:+")
}

func TestActuator_UnknownKey(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)

	err := a.Execute(context.Background(), PressKeys("ctrl+hyper"))

	var unknown *UnknownKeyError
	if !errors.As(err, &unknown) {
		t.Fatalf("Expected UnknownKeyError, got %v", err)
	}
	if unknown.Key != "hyper" {
		t.Errorf("Expected unknown key 'hyper', got '%s'", unknown.Key)
	}
	if len(backend.calls) != 0 {
		t.Errorf("Expected no key events for an invalid action, got %v", backend.calls)
	}
}

func TestActuator_FailedPressReleasesKeys(t *testing.T) {
	backend := &recordingBackend{downErr: errors.New("device gone")}
	a := newTestActuator(backend)

	if err := a.Execute(context.Background(), PressKeys("ctrl+s")); err == nil {
		t.Fatal("Expected error from failed key down")
	}
	assertCalls(t, backend.calls, "down:ctrl+s", "up:s+ctrl")
}

func TestActuator_CancelledContextStopsTyping(t *testing.T) {
	backend := &recordingBackend{}
	a := newTestActuator(backend)
	a.SetTypingDelay(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := a.TypeText(ctx, "ab"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestParseChord(t *testing.T) {
	keys, err := ParseChord("Control+Shift+ESC")
	if err != nil {
		t.Fatalf("ParseChord() failed: %v", err)
	}
	if strings.Join(keys, "+") != "ctrl+shift+escape" {
		t.Errorf("Expected ctrl+shift+escape, got %v", keys)
	}

	for _, name := range []string{"f12", "pagedown", "9", "z", "alt"} {
		if _, ok := CanonicalKey(name); !ok {
			t.Errorf("Expected %q to be a known key", name)
		}
	}
}
