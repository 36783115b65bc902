package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const (
	ffmpegStartupGrace = 250 * time.Millisecond
	ffmpegStopGrace    = 1200 * time.Millisecond
)

// FFmpegConfig selects the ffmpeg input to capture from.
type FFmpegConfig struct {
	Command         string // executable, default "ffmpeg"
	InputFormat     string // ffmpeg -f value, default "pulse"
	InputDevice     string // ffmpeg -i value, default "default"
	FramesPerBuffer int    // samples per delivered frame
}

func (c FFmpegConfig) withDefaults() FFmpegConfig {
	if c.Command == "" {
		c.Command = "ffmpeg"
	}
	if c.InputFormat == "" {
		c.InputFormat = "pulse"
	}
	if c.InputDevice == "" {
		c.InputDevice = "default"
	}
	if c.FramesPerBuffer <= 0 {
		c.FramesPerBuffer = 1024
	}
	return c
}

// Args returns the ffmpeg command line arguments for capture.
func (c FFmpegConfig) Args() []string {
	c = c.withDefaults()
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.InputFormat,
		"-i", c.InputDevice,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-",
	}
}

// NewFFmpegSource creates a source that reads PCM from an ffmpeg subprocess.
func NewFFmpegSource(cfg FFmpegConfig, vad *VADDetector) *Source {
	return NewSource("ffmpeg", FFmpegOpener(cfg), vad)
}

// FFmpegOpener starts ffmpeg and waits briefly so that a missing device
// fails Start instead of the first read.
func FFmpegOpener(cfg FFmpegConfig) Opener {
	cfg = cfg.withDefaults()
	return func(ctx context.Context) (Capture, error) {
		cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args()...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
		}

		waitErr := make(chan error, 1)
		go func() {
			waitErr <- cmd.Wait()
			close(waitErr)
		}()

		select {
		case err := <-waitErr:
			if err != nil {
				return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, trimOutput(stderr.String()))
			}
			return nil, errors.New("ffmpeg exited before capture started")
		case <-time.After(ffmpegStartupGrace):
		}

		return &ffmpegCapture{
			stdout:    stdout,
			stderr:    &stderr,
			process:   cmd.Process,
			waitErr:   waitErr,
			frameSize: cfg.FramesPerBuffer * BytesPerSample * Channels,
		}, nil
	}
}

type ffmpegCapture struct {
	stdout    io.ReadCloser
	stderr    *bytes.Buffer
	process   *os.Process
	waitErr   <-chan error
	frameSize int

	interruptOnce sync.Once
}

func (c *ffmpegCapture) ReadFrame() ([]byte, error) {
	buf := make([]byte, c.frameSize)
	n, err := io.ReadFull(c.stdout, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return buf[:n], err
}

// Interrupt asks ffmpeg to exit; stdout reaches EOF once it does.
func (c *ffmpegCapture) Interrupt() {
	c.interruptOnce.Do(func() {
		if c.process != nil {
			_ = c.process.Signal(os.Interrupt)
		}
	})
}

// Release waits for ffmpeg to exit, killing it after a grace period.
func (c *ffmpegCapture) Release() error {
	c.Interrupt()

	var stopErr error
	select {
	case err, ok := <-c.waitErr:
		if ok {
			stopErr = normalizeStopErr(err)
		}
	case <-time.After(ffmpegStopGrace):
		if c.process != nil {
			_ = c.process.Kill()
		}
		if err, ok := <-c.waitErr; ok {
			stopErr = normalizeStopErr(err)
		}
	}

	if closeErr := c.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && stopErr == nil {
		stopErr = closeErr
	}
	if stopErr != nil && c.stderr.Len() > 0 {
		stopErr = fmt.Errorf("%w: %s", stopErr, trimOutput(c.stderr.String()))
	}
	return stopErr
}

// normalizeStopErr ignores the non-zero exit an interrupted ffmpeg reports.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}
