// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tool

import (
	"errors"
	"fmt"
	"strings"
)

// ErrToolNotFound is returned if the program cannot be found in PATH.
var ErrToolNotFound = errors.New("program not found")

// ExternalToolError is returned if an external program could not be run or
// exited with a nonzero exit code.
type ExternalToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the [error] interface.
func (e *ExternalToolError) Error() string {
	msg := e.Tool
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" exited with code %d", e.ExitCode)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if line := lastLine(e.Stderr); line != "" {
		msg += ": " + line
	}

	return msg
}

// Is implements the [errors.Is] interface.
func (*ExternalToolError) Is(other error) bool {
	_, ok := other.(*ExternalToolError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// PrivilegeError is returned if an operation was rejected because the process
// lacks the required privileges. The pipeline never tries to acquire them.
type PrivilegeError struct {
	Tool string
	Err  error
}

// Error implements the [error] interface.
func (e *PrivilegeError) Error() string {
	return "insufficient privileges for " + e.Tool + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*PrivilegeError) Is(other error) bool {
	_, ok := other.(*PrivilegeError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *PrivilegeError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code of the first [ExternalToolError] in the
// chain of err. It returns 0 if there is none or the tool did not exit
// regularly.
func ExitCode(err error) int {
	var toolErr *ExternalToolError
	if errors.As(err, &toolErr) {
		return toolErr.ExitCode
	}

	return 0
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}

	return strings.TrimSpace(s)
}
