// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph   = errors.New("invalid stage graph")
	ErrCycleFound     = errors.New("cycle detected")
	ErrUnknownTarget  = errors.New("unknown target")
	ErrSourceRemoval  = errors.New("refusing to remove source input")
	ErrStageNoOutputs = errors.New("stage has no outputs")
)

// GraphError is returned if the stage definitions do not form a valid
// graph.
type GraphError struct {
	Kind error
	Msg  string
}

// Error implements the [error] interface.
func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}

	return e.Kind.Error() + ": " + e.Msg
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *GraphError) Unwrap() error {
	return e.Kind
}

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(stages []string) error {
	return &GraphError{
		Kind: ErrCycleFound,
		Msg:  "involving " + strings.Join(stages, ", "),
	}
}

// MissingInputError is returned if a source input of a stage does not
// exist.
type MissingInputError struct {
	Stage string
	Path  string
}

// Error implements the [error] interface.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("stage %s: missing input %s", e.Stage, e.Path)
}

// Is implements the [errors.Is] interface.
func (*MissingInputError) Is(other error) bool {
	_, ok := other.(*MissingInputError)
	return ok
}

// StageError is returned if a stage fails. It wraps the stage's error
// unchanged.
type StageError struct {
	Stage string
	Err   error
}

// Error implements the [error] interface.
func (e *StageError) Error() string {
	return "stage " + e.Stage + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*StageError) Is(other error) bool {
	_, ok := other.(*StageError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *StageError) Unwrap() error {
	return e.Err
}
