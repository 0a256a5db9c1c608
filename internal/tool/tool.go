// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tool

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Cmd describes a single invocation of an external program.
type Cmd struct {
	// Name of the program. It is looked up in PATH unless it contains a path
	// separator.
	Name string

	// Args passed to the program.
	Args []string

	// Dir is the working directory. Empty means the current one.
	Dir string
}

// String implements [fmt.Stringer].
func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs external programs synchronously.
//
// Run blocks until the program exited and returns what it wrote to stdout.
// If the program fails, the error is an [ExternalToolError] or a
// [PrivilegeError].
type Runner interface {
	Run(ctx context.Context, cmd Cmd) ([]byte, error)
}

// Exec is the [Runner] that executes programs on the host.
type Exec struct {
	// Output receives a copy of stdout and stderr of every program, if set.
	Output io.Writer
}

var _ Runner = (*Exec)(nil)

// Run implements [Runner].
func (e *Exec) Run(ctx context.Context, cmd Cmd) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	if e.Output != nil {
		execCmd.Stdout = io.MultiWriter(&stdout, e.Output)
		execCmd.Stderr = io.MultiWriter(&stderr, e.Output)
	}

	slog.Debug("Run external tool", slog.String("command", cmd.String()))

	err := execCmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	// A cancelled context kills the program. Report the cancellation rather
	// than the signal exit.
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	exitCode := 0

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
		err = nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		err = ErrToolNotFound
		exitCode = 127
	}

	return stdout.Bytes(), classify(cmd, err, exitCode, stderr.String())
}
