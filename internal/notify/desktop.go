// Package notify shows recognizer lifecycle changes as desktop
// notifications.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/recognition"
)

const (
	appTitle  = "Voice Typer"
	queueSize = 16
)

// NotifyFunc displays one notification.
type NotifyFunc func(title, message, appIcon string) error

// Desktop is a recognition.Observer that raises desktop notifications for
// started, stopped and error. Notifications are shown from a background
// goroutine so a slow notification daemon never delays the recognizer;
// when the queue is full new notifications are dropped.
type Desktop struct {
	notify NotifyFunc
	queue  chan recognition.Notification
	done   chan struct{}
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewDesktop creates a Desktop backed by the system notification service.
func NewDesktop() *Desktop {
	return NewDesktopWith(func(title, message, appIcon string) error {
		return beeep.Notify(title, message, appIcon)
	})
}

// NewDesktopWith creates a Desktop that shows notifications with fn.
func NewDesktopWith(fn NotifyFunc) *Desktop {
	d := &Desktop{
		notify: fn,
		queue:  make(chan recognition.Notification, queueSize),
		done:   make(chan struct{}),
		logger: observability.Component("notify"),
	}
	go d.run()
	return d
}

// Notify implements recognition.Observer.
func (d *Desktop) Notify(n recognition.Notification) {
	if _, ok := message(n); !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Debug().Str("kind", string(n.Kind)).Msg("Notification queue full, dropping")
	}
}

// Close stops the worker after it has shown what is already queued.
func (d *Desktop) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

func (d *Desktop) run() {
	defer close(d.done)

	for n := range d.queue {
		text, _ := message(n)
		if err := d.notify(appTitle, text, ""); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to show desktop notification")
		}
	}
}

func message(n recognition.Notification) (string, bool) {
	switch n.Kind {
	case recognition.NotifyStarted:
		return "Listening", true
	case recognition.NotifyStopped:
		return "Stopped listening", true
	case recognition.NotifyError:
		if n.Err == nil {
			return "Recognition error", true
		}
		return "Error: " + n.Err.Error(), true
	default:
		return "", false
	}
}
