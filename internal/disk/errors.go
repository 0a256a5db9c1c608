// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"errors"
)

var (
	ErrLoopPoolExhausted    = errors.New("no free loop device")
	ErrAlreadyAttached      = errors.New("backing file already attached")
	ErrDeviceBusy           = errors.New("device busy")
	ErrLockHeld             = errors.New("lock held by another process")
	ErrNoDevice             = errors.New("no device reported")
	ErrImageTooSmall        = errors.New("image size below minimum")
	ErrImageSizeUnaligned   = errors.New("image size not a multiple of the sector size")
	ErrPayloadTargetOutside = errors.New("payload target outside of filesystem root")
	ErrNoGPT                = errors.New("no GUID partition table")
	ErrGPTChecksum          = errors.New("GUID partition table checksum mismatch")
	ErrLayoutMismatch       = errors.New("partition layout mismatch")
)

// ResourceError is returned if a host resource cannot be acquired. This is
// usually caused by resources leaked by other processes, so it names the
// resource.
type ResourceError struct {
	Resource string
	Err      error
}

// Error implements the [error] interface.
func (e *ResourceError) Error() string {
	return "acquire " + e.Resource + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*ResourceError) Is(other error) bool {
	_, ok := other.(*ResourceError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// StepError is returned if the transition into a [State] fails.
type StepError struct {
	State State
	Err   error
}

// Error implements the [error] interface.
func (e *StepError) Error() string {
	return e.State.String() + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*StepError) Is(other error) bool {
	_, ok := other.(*StepError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *StepError) Unwrap() error {
	return e.Err
}
