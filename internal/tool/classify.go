// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tool

import (
	"errors"
	"strings"

	"golang.org/x/sys/unix"
)

// Messages printed by util-linux, e2fsprogs and gdisk if they are denied
// access to devices or mount operations.
var privilegeMessages = []string{
	"permission denied",
	"operation not permitted",
	"must be superuser",
	"only root can",
	"you must be root",
	"requires root",
}

// isPrivilegeFailure reports whether the failure of a program is caused by
// missing privileges. It checks the error chain for EPERM and EACCES first
// and falls back to well-known messages on stderr.
func isPrivilegeFailure(err error, stderr string) bool {
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
		return true
	}

	lower := strings.ToLower(stderr)
	for _, msg := range privilegeMessages {
		if strings.Contains(lower, msg) {
			return true
		}
	}

	return false
}

// classify wraps a raw execution failure into the error taxonomy.
func classify(cmd Cmd, err error, exitCode int, stderr string) error {
	toolErr := &ExternalToolError{
		Tool:     cmd.Name,
		Args:     cmd.Args,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      err,
	}

	if isPrivilegeFailure(err, stderr) {
		return &PrivilegeError{Tool: cmd.Name, Err: toolErr}
	}

	return toolErr
}
