// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tool

import (
	"context"
	"sync"
)

// HandlerFunc simulates a single external program for a [Recorder].
type HandlerFunc func(cmd Cmd) ([]byte, error)

// Recorder is a [Runner] that records all invocations instead of running
// programs. Programs with a handler registered are simulated by it, all
// others succeed without output.
type Recorder struct {
	Handlers map[string]HandlerFunc

	mu    sync.Mutex
	calls []Cmd
}

var _ Runner = (*Recorder)(nil)

// Handle registers the handler for the given program name.
func (r *Recorder) Handle(name string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Handlers == nil {
		r.Handlers = make(map[string]HandlerFunc)
	}

	r.Handlers[name] = fn
}

// Run implements [Runner].
func (r *Recorder) Run(ctx context.Context, cmd Cmd) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	handler := r.Handlers[cmd.Name]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &ExternalToolError{Tool: cmd.Name, Args: cmd.Args, Err: err}
	}

	if handler == nil {
		return nil, nil
	}

	return handler(cmd)
}

// Calls returns all recorded invocations in order.
func (r *Recorder) Calls() []Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Cmd(nil), r.calls...)
}

// Names returns the program names of all recorded invocations in order.
func (r *Recorder) Names() []string {
	calls := r.Calls()

	names := make([]string, 0, len(calls))
	for _, call := range calls {
		names = append(names, call.Name)
	}

	return names
}

// Reset forgets all recorded invocations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = nil
}
