// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

import (
	"errors"
)

var (
	// ErrArgumentCollision is returned if two [Argument]s are considered equal.
	ErrArgumentCollision = errors.New("colliding args")

	// ErrBootMarkerMissing is returned if QEMU exited before the guest printed
	// the configured boot marker.
	ErrBootMarkerMissing = errors.New("boot marker not found in guest output")

	// ErrMediumInvalid is returned if a medium is unknown.
	ErrMediumInvalid = errors.New("unknown medium")

	// ErrAcceleratorInvalid is returned if an accelerator is unknown.
	ErrAcceleratorInvalid = errors.New("unknown accelerator")

	// ErrAcceleratorUnavailable is returned if an accelerator is not usable
	// on this host.
	ErrAcceleratorUnavailable = errors.New("accelerator not available")

	// ErrDebugModeInvalid is returned if a debug mode is unknown.
	ErrDebugModeInvalid = errors.New("unknown debug mode")
)

// ArgumentError indicates an issue with an input argument.
type ArgumentError struct {
	msg string
}

// Error implements the [error] interface.
func (e *ArgumentError) Error() string {
	return "argument error: " + e.msg
}

// Is implements the [errors.Is] interface.
func (*ArgumentError) Is(other error) bool {
	_, ok := other.(*ArgumentError)
	return ok
}

// CommandError wraps any error occurred during [Command] execution that is
// not a failure of the QEMU process itself.
type CommandError struct {
	Err   error
	Guest bool
}

// Error implements the [error] interface.
func (e *CommandError) Error() string {
	scope := "host"
	if e.Guest {
		scope = "guest"
	}

	return scope + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*CommandError) Is(other error) bool {
	_, ok := other.(*CommandError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *CommandError) Unwrap() error {
	return e.Err
}
