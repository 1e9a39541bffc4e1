// Copyright 2012 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nin

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// The Go runtime already polls file descriptors under the hood. Each running
// Subprocess has one goroutine blocked on a read of its output pipe; the
// result is forwarded as a pipeEvent on the channel shared by the
// SubprocessSet, which acts as the readiness multiplexer. All the other state
// is only touched by the goroutine calling the SubprocessSet methods.

type subprocessState int

const (
	// Process created but not yet added to a SubprocessSet.
	stateCreated subprocessState = iota
	// Output is being read.
	stateRunning
	// Output pipe closed, the process is not reaped yet.
	stateDraining
	// Process reaped by Finish().
	stateFinished
)

// pipeEvent is the result of one read on a Subprocess output pipe.
type pipeEvent struct {
	proc *Subprocess
	data []byte
	err  error
}

// Subprocess wraps a single async subprocess. It is entirely passive: the
// SubprocessSet notifies it when its output is ready, and the caller calls
// Finish() to reap the child once Done() is true.
type Subprocess struct {
	command  string
	cmd      *exec.Cmd
	pipe     *os.File
	buf      bytes.Buffer
	state    subprocessState
	exitCode int
	// rearm allows the reader goroutine to issue the next read.
	rearm chan struct{}
}

// Command returns the command line that was started.
func (s *Subprocess) Command() string {
	return s.command
}

// Done returns true once the output pipe was closed.
func (s *Subprocess) Done() bool {
	return s.state >= stateDraining
}

// Output returns the combined stdout and stderr captured so far.
func (s *Subprocess) Output() string {
	return s.buf.String()
}

// ExitCode returns the exit code retrieved by Finish(), -1 if the process was
// terminated by a signal.
func (s *Subprocess) ExitCode() int {
	return s.exitCode
}

// Finish waits for the process to terminate and returns true if it exited
// with code 0.
func (s *Subprocess) Finish() bool {
	err := s.cmd.Wait()
	s.state = stateFinished
	s.exitCode = s.cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fatalf("wait %q: %s", s.command, err)
	}
	return s.exitCode == 0
}

// readLoop forwards the pipe reads to events, one outstanding read at a
// time.
func (s *Subprocess) readLoop(events chan<- pipeEvent) {
	buf := make([]byte, 4<<10)
	for {
		n, err := s.pipe.Read(buf)
		events <- pipeEvent{proc: s, data: buf[:n], err: err}
		if err != nil {
			return
		}
		<-s.rearm
	}
}

// isEndOfOutput returns true for the read errors that mean the write end of
// the pipe was closed.
func isEndOfOutput(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}

// onPipeReady processes one read result.
func (s *Subprocess) onPipeReady(ev pipeEvent) {
	s.buf.Write(ev.data)
	if ev.err == nil {
		s.rearm <- struct{}{}
		return
	}
	if !isEndOfOutput(ev.err) {
		fatalf("read %q: %s", s.command, ev.err)
	}
	if s.pipe != nil {
		_ = s.pipe.Close()
	}
	s.state = stateDraining
}

//

// SubprocessSet runs a set of Subprocesses and multiplexes their output.
//
// DoWork() waits for any state change in subprocesses; finished subprocesses
// are queued in the order they finished.
//
// It is not safe for concurrent use.
type SubprocessSet struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	events   chan pipeEvent
	running  map[*Subprocess]struct{}
	finished []*Subprocess
}

func NewSubprocessSet() *SubprocessSet {
	return &SubprocessSet{
		Logger:  slog.Default(),
		events:  make(chan pipeEvent),
		running: map[*Subprocess]struct{}{},
	}
}

// Start spawns command through the shell, with stdout and stderr redirected
// to a single pipe. The process is not tracked until Add is called.
//
// Failure to spawn is fatal.
func (s *SubprocessSet) Start(command string) *Subprocess {
	r, w, err := os.Pipe()
	if err != nil {
		fatalf("pipe: %s", err)
		return nil
	}
	cmd := shellCommand(command)
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		fatalf("spawn %q: %s", command, err)
		return nil
	}
	// The child owns the write end now.
	_ = w.Close()
	s.Logger.Debug("subprocess started", "pid", cmd.Process.Pid, "command", command)
	return &Subprocess{
		command: command,
		cmd:     cmd,
		pipe:    r,
		rearm:   make(chan struct{}, 1),
	}
}

// Add enrolls a started Subprocess in the running set.
func (s *SubprocessSet) Add(p *Subprocess) {
	if p == nil {
		return
	}
	p.state = stateRunning
	s.running[p] = struct{}{}
	go p.readLoop(s.events)
}

// Running returns the number of subprocesses whose output is still read.
func (s *SubprocessSet) Running() int {
	return len(s.running)
}

// Finished returns the number of finished subprocesses not yet returned by
// NextFinished.
func (s *SubprocessSet) Finished() int {
	return len(s.finished)
}

// DoWork blocks until one running subprocess has output ready or closed its
// output, and processes it.
//
// It returns immediately if no subprocess is running.
func (s *SubprocessSet) DoWork() {
	if len(s.running) == 0 {
		return
	}
	defer metricRecord("subprocess wait")()
	s.dispatch(<-s.events)
}

func (s *SubprocessSet) dispatch(ev pipeEvent) {
	p := ev.proc
	p.onPipeReady(ev)
	if p.Done() {
		delete(s.running, p)
		s.finished = append(s.finished, p)
		s.Logger.Debug("subprocess output closed", "command", p.command, "bytes", p.buf.Len())
	}
}

// NextFinished returns the oldest finished subprocess, or nil if none is
// available.
func (s *SubprocessSet) NextFinished() *Subprocess {
	if len(s.finished) == 0 {
		return nil
	}
	p := s.finished[0]
	s.finished[0] = nil
	s.finished = s.finished[1:]
	return p
}

// Clear terminates and reaps all the running subprocesses. Subprocesses
// already finished stay queued.
func (s *SubprocessSet) Clear() {
	n := len(s.finished)
	for p := range s.running {
		if err := p.kill(); err != nil {
			s.Logger.Warn("failed to terminate subprocess", "command", p.command, "err", err)
		}
	}
	for len(s.running) != 0 {
		s.DoWork()
	}
	for _, p := range s.finished[n:] {
		p.Finish()
		s.Logger.Debug("subprocess reaped", "command", p.command, "exit", p.exitCode)
	}
	for i := n; i < len(s.finished); i++ {
		s.finished[i] = nil
	}
	s.finished = s.finished[:n]
}
