// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"fmt"
	stdlog "log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// captureCommand describes one platform recording tool: the binary and the
// arguments that make it record WAV to the trailing output path.
type captureCommand struct {
	bin  string
	args []string
}

// captureCandidates lists the tools tried in order when starting a capture.
func captureCandidates() []captureCommand {
	if runtime.GOOS == "darwin" {
		return []captureCommand{
			{bin: "sox", args: []string{"-q", "-d", "-r", "16000", "-c", "1"}},
			{bin: "rec", args: []string{"-q", "-r", "16000", "-c", "1"}},
		}
	}
	return []captureCommand{
		{bin: "arecord", args: []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav"}},
		{bin: "sox", args: []string{"-q", "-d", "-r", "16000", "-c", "1"}},
	}
}

// ExecRecorder captures microphone audio by running a platform recording
// tool writing WAV to a temp file. Safe for use from one goroutine at a
// time per the Recorder contract; internal state is still locked because
// Stop may race a UI timeout.
type ExecRecorder struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	path string
}

// NewExecRecorder creates a recorder backed by the platform audio tools.
func NewExecRecorder() *ExecRecorder {
	return &ExecRecorder{}
}

// Start begins a capture.
func (r *ExecRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrAlreadyRecording
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("anita-capture-%d.wav", time.Now().UnixNano()))

	var lastErr error
	for _, cand := range captureCandidates() {
		if _, err := exec.LookPath(cand.bin); err != nil {
			lastErr = ErrNoCaptureTool
			continue
		}
		cmd := exec.Command(cand.bin, append(cand.args, path)...)
		if err := cmd.Start(); err != nil {
			lastErr = fmt.Errorf("start %s: %w", cand.bin, err)
			continue
		}
		r.cmd = cmd
		r.path = path
		return nil
	}
	return lastErr
}

// Stop interrupts the capture tool, waits for it to flush, and returns
// the recorded clip. The temp file is removed afterwards.
func (r *ExecRecorder) Stop() (*Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return nil, ErrNotRecording
	}
	cmd, path := r.cmd, r.path
	r.cmd = nil
	r.path = ""

	// SIGINT lets arecord/sox finalize the WAV header before exiting.
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
	}
	if err := cmd.Wait(); err != nil {
		// Interrupted exits are expected; a missing file below is the
		// real failure signal.
		stdlog.Printf("VOICE: capture tool exit: %v", err)
	}

	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read capture: empty recording")
	}
	return &Clip{Data: data, MimeType: "audio/wav"}, nil
}

// Recording reports whether a capture is in progress.
func (r *ExecRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}
