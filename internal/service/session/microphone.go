package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// OpenMicrophone grants access unconditionally. Used when the client
// surface owns the capture device.
type OpenMicrophone struct{}

func (OpenMicrophone) Acquire(ctx context.Context) error {
	return ctx.Err()
}

// FFmpegCapture checks microphone access by opening the capture device with
// ffmpeg and releasing it once capture has started.
type FFmpegCapture struct {
	command     string
	inputFormat string
	inputDevice string
	settle      time.Duration
}

// NewFFmpegCapture creates a microphone check. Empty values default to ffmpeg reading
// the default pulse device.
func NewFFmpegCapture(command, inputFormat, inputDevice string) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	if inputFormat == "" {
		inputFormat = "pulse"
	}
	if inputDevice == "" {
		inputDevice = "default"
	}
	return &FFmpegCapture{
		command:     command,
		inputFormat: inputFormat,
		inputDevice: inputDevice,
		settle:      250 * time.Millisecond,
	}
}

const (
	// captureStopGrace is how long Acquire waits for the capture process to
	// exit after an interrupt before killing it.
	captureStopGrace = time.Second
	// captureWaitDelay bounds the wait for stderr once the capture process has
	// exited; children left holding the pipe are cut off.
	captureWaitDelay = 500 * time.Millisecond
)

var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"not authorized",
	"access denied",
}

// Acquire implements Microphone.
func (p *FFmpegCapture) Acquire(ctx context.Context) error {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", p.inputFormat,
		"-i", p.inputDevice,
		"-f", "null",
		"-",
	}

	cmd := exec.CommandContext(ctx, p.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = captureWaitDelay

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case err := <-waitErr:
		return classifyCaptureExit(err, stderr.String())
	case <-ctx.Done():
		<-waitErr
		return ctx.Err()
	case <-time.After(p.settle):
	}

	// Capture is running: access granted. Release the device.
	_ = cmd.Process.Signal(os.Interrupt)
	select {
	case <-waitErr:
	case <-time.After(captureStopGrace):
		_ = cmd.Process.Kill()
		<-waitErr
	}
	return nil
}

func classifyCaptureExit(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)
	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
		}
	}
	if err == nil {
		return errors.New("capture exited before capture started")
	}
	if detail != "" {
		return fmt.Errorf("capture exited before capture started: %w: %s", err, detail)
	}
	return fmt.Errorf("capture exited before capture started: %w", err)
}
