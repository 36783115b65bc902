//go:build (linux && cgo) || windows

package keyboard

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"

	"github.com/lexiqai/voice-typer/internal/resilience"
)

var keyCodes = map[string]int{
	"enter":     keybd_event.VK_ENTER,
	"backspace": keybd_event.VK_BACKSPACE,
	"tab":       keybd_event.VK_TAB,
	"space":     keybd_event.VK_SPACE,
	"delete":    keybd_event.VK_DELETE,
	"home":      keybd_event.VK_HOME,
	"end":       keybd_event.VK_END,
	"pageup":    keybd_event.VK_PAGEUP,
	"pagedown":  keybd_event.VK_PAGEDOWN,
	"escape":    keybd_event.VK_ESC,
	"up":        keybd_event.VK_UP,
	"down":      keybd_event.VK_DOWN,
	"left":      keybd_event.VK_LEFT,
	"right":     keybd_event.VK_RIGHT,

	"a": keybd_event.VK_A, "b": keybd_event.VK_B, "c": keybd_event.VK_C, "d": keybd_event.VK_D,
	"e": keybd_event.VK_E, "f": keybd_event.VK_F, "g": keybd_event.VK_G, "h": keybd_event.VK_H,
	"i": keybd_event.VK_I, "j": keybd_event.VK_J, "k": keybd_event.VK_K, "l": keybd_event.VK_L,
	"m": keybd_event.VK_M, "n": keybd_event.VK_N, "o": keybd_event.VK_O, "p": keybd_event.VK_P,
	"q": keybd_event.VK_Q, "r": keybd_event.VK_R, "s": keybd_event.VK_S, "t": keybd_event.VK_T,
	"u": keybd_event.VK_U, "v": keybd_event.VK_V, "w": keybd_event.VK_W, "x": keybd_event.VK_X,
	"y": keybd_event.VK_Y, "z": keybd_event.VK_Z,

	"0": keybd_event.VK_0, "1": keybd_event.VK_1, "2": keybd_event.VK_2, "3": keybd_event.VK_3,
	"4": keybd_event.VK_4, "5": keybd_event.VK_5, "6": keybd_event.VK_6, "7": keybd_event.VK_7,
	"8": keybd_event.VK_8, "9": keybd_event.VK_9,

	"f1": keybd_event.VK_F1, "f2": keybd_event.VK_F2, "f3": keybd_event.VK_F3, "f4": keybd_event.VK_F4,
	"f5": keybd_event.VK_F5, "f6": keybd_event.VK_F6, "f7": keybd_event.VK_F7, "f8": keybd_event.VK_F8,
	"f9": keybd_event.VK_F9, "f10": keybd_event.VK_F10, "f11": keybd_event.VK_F11, "f12": keybd_event.VK_F12,
}

// KeybdBackend injects events through the OS virtual keyboard (uinput on
// Linux, SendInput on Windows).
type KeybdBackend struct {
	mu sync.Mutex
	kb keybd_event.KeyBonding

	clipboardSettle  time.Duration
	clipboardRestore time.Duration
}

// NewKeybdBackend opens the virtual keyboard, retrying while the device is
// busy or not yet available.
func NewKeybdBackend(ctx context.Context, retry *resilience.RetryConfig) (*KeybdBackend, error) {
	var kb keybd_event.KeyBonding
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		var err error
		kb, err = keybd_event.NewKeyBonding()
		return err
	}, retry, IsRetryableDeviceError)
	if err != nil {
		return nil, fmt.Errorf("failed to open virtual keyboard: %w", err)
	}

	// uinput devices need a moment before the desktop picks them up
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}

	return &KeybdBackend{
		kb:               kb,
		clipboardSettle:  80 * time.Millisecond,
		clipboardRestore: 120 * time.Millisecond,
	}, nil
}

// configure loads keys into the key bonding. The caller holds b.mu.
func (b *KeybdBackend) configure(keys []string) error {
	b.kb.Clear()
	b.kb.HasCTRL(false)
	b.kb.HasSHIFT(false)
	b.kb.HasALT(false)

	codes := make([]int, 0, len(keys))
	for _, k := range keys {
		switch k {
		case "ctrl":
			b.kb.HasCTRL(true)
		case "shift":
			b.kb.HasSHIFT(true)
		case "alt":
			b.kb.HasALT(true)
		default:
			code, ok := keyCodes[k]
			if !ok {
				return &UnknownKeyError{Key: k}
			}
			codes = append(codes, code)
		}
	}
	b.kb.SetKeys(codes...)
	return nil
}

func (b *KeybdBackend) KeyDown(keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.configure(keys); err != nil {
		return err
	}
	return b.kb.Press()
}

func (b *KeybdBackend) KeyUp(keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.configure(keys); err != nil {
		return err
	}
	return b.kb.Release()
}

// Paste puts text on the clipboard, sends ctrl+v and restores the previous
// clipboard content.
func (b *KeybdBackend) Paste(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	orig, readErr := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	time.Sleep(b.clipboardSettle)

	if err := b.configure([]string{"ctrl", "v"}); err != nil {
		return err
	}
	if err := b.kb.Launching(); err != nil {
		return fmt.Errorf("failed to send paste shortcut: %w", err)
	}

	time.Sleep(b.clipboardRestore)
	if readErr == nil {
		_ = clipboard.WriteAll(orig)
	}
	return nil
}
