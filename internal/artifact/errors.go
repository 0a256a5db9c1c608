// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact

import (
	"errors"
)

var (
	ErrMissing          = errors.New("does not exist")
	ErrOutdated         = errors.New("older than input")
	ErrNoStamp          = errors.New("no completion stamp")
	ErrSizeMismatch     = errors.New("size does not match completion stamp")
	ErrDigestMismatch   = errors.New("digest does not match completion stamp")
	ErrInvalidStamp     = errors.New("invalid completion stamp")
	ErrNotRegularFile   = errors.New("not a regular file")
	ErrStageNameInvalid = errors.New("invalid stage name")
)

// StaleError is returned if an artifact has to be rebuilt.
type StaleError struct {
	Path   string
	Reason error
}

// Error implements the [error] interface.
func (e *StaleError) Error() string {
	return "stale artifact " + e.Path + ": " + e.Reason.Error()
}

// Is implements the [errors.Is] interface.
func (*StaleError) Is(other error) bool {
	_, ok := other.(*StaleError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *StaleError) Unwrap() error {
	return e.Reason
}

// IsStale reports whether err says that an artifact is stale.
func IsStale(err error) bool {
	return errors.Is(err, &StaleError{})
}
