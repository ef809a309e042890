// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	stdlog "log"
	"os/exec"
	"runtime"
	"sync"
)

// speechCandidates lists the text-to-speech tools tried in order.
func speechCandidates() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say"}
	}
	return []string{"espeak-ng", "espeak", "spd-say"}
}

// ExecSynthesizer speaks text by running the platform's text-to-speech
// tool. Playback runs in the background; a new Speak or a Stop interrupts
// whatever is currently playing.
type ExecSynthesizer struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecSynthesizer creates a synthesizer backed by the platform TTS tools.
func NewExecSynthesizer() *ExecSynthesizer {
	return &ExecSynthesizer{}
}

// Speak starts speaking the text aloud, interrupting any prior playback.
// A missing TTS tool is logged and otherwise ignored; speech output is a
// convenience, not a required channel.
func (s *ExecSynthesizer) Speak(text string) error {
	if text == "" {
		return nil
	}

	s.Stop()

	for _, bin := range speechCandidates() {
		if _, err := exec.LookPath(bin); err != nil {
			continue
		}
		cmd := exec.Command(bin, text)
		if err := cmd.Start(); err != nil {
			stdlog.Printf("VOICE: start %s: %v", bin, err)
			continue
		}

		s.mu.Lock()
		s.cmd = cmd
		s.mu.Unlock()

		go func() {
			cmd.Wait()
			s.mu.Lock()
			if s.cmd == cmd {
				s.cmd = nil
			}
			s.mu.Unlock()
		}()
		return nil
	}

	stdlog.Printf("VOICE: no text-to-speech tool found")
	return nil
}

// Stop interrupts playback in progress, if any.
func (s *ExecSynthesizer) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
}
