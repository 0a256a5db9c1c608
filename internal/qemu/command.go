// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"

	"github.com/aibor/bootforge/internal/tool"
	"golang.org/x/sync/errgroup"
)

// maxLineLength bounds a single line of guest output.
const maxLineLength = 1 << 20

// Command is a single QEMU command that can be run.
type Command struct {
	name       string
	args       []string
	bootMarker string
	serialLog  string

	// Stdin of the QEMU process. Nil means no input.
	Stdin io.Reader

	// Stdout receives the guest's serial output. Nil discards it.
	Stdout io.Writer

	// Stderr receives QEMU's own output and traces. Nil discards it.
	Stderr io.Writer
}

// NewCommand builds a new [Command] from the given [CommandSpec].
func NewCommand(spec CommandSpec) (*Command, error) {
	args, err := spec.Arguments()
	if err != nil {
		return nil, err
	}

	cmd := &Command{
		name:       spec.Executable,
		args:       args,
		bootMarker: spec.BootMarker,
	}

	if spec.Profile.Debug == DebugTrace {
		cmd.serialLog = spec.Media.SerialLog
	}

	return cmd, nil
}

// Name returns the executable.
func (c *Command) Name() string {
	return c.name
}

// Args returns a copy of the compiled arguments.
func (c *Command) Args() []string {
	return append([]string(nil), c.args...)
}

// String returns the command line.
func (c *Command) String() string {
	return strings.Join(append([]string{c.name}, c.args...), " ")
}

// Run runs QEMU and blocks until it exits.
//
// Stdout and stderr are streamed concurrently to [Command.Stdout] and
// [Command.Stderr]. A nonzero exit is returned as [tool.ExternalToolError].
// If a boot marker is configured and was not seen, a [CommandError] wrapping
// [ErrBootMarkerMissing] is returned.
func (c *Command) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = c.Stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	slog.Debug("Run QEMU", slog.String("command", c.String()))

	if err := cmd.Start(); err != nil {
		return c.toolError(ctx, err, "")
	}

	var (
		markerFound atomic.Bool
		lastStderr  string
		group       errgroup.Group
	)

	group.Go(func() error {
		return copyLines(c.Stdout, stdout, func(line string) {
			if c.bootMarker != "" && strings.Contains(line, c.bootMarker) {
				markerFound.Store(true)
			}
		})
	})

	group.Go(func() error {
		return copyLines(c.Stderr, stderr, func(line string) {
			if strings.TrimSpace(line) != "" {
				lastStderr = line
			}
		})
	})

	// All reads must be done before Wait closes the pipes.
	copyErr := group.Wait()

	if err := cmd.Wait(); err != nil {
		return c.toolError(ctx, err, lastStderr)
	}

	if copyErr != nil {
		return &CommandError{Err: copyErr}
	}

	if c.bootMarker == "" || markerFound.Load() {
		return nil
	}

	if c.serialLog != "" {
		found, err := fileContains(c.serialLog, c.bootMarker)
		if err != nil {
			return &CommandError{Err: err}
		}

		if found {
			return nil
		}
	}

	return &CommandError{Guest: true, Err: ErrBootMarkerMissing}
}

func (c *Command) toolError(ctx context.Context, err error, stderr string) error {
	toolErr := &tool.ExternalToolError{
		Tool:   c.name,
		Args:   c.Args(),
		Stderr: stderr,
		Err:    err,
	}

	var exitErr *exec.ExitError

	switch {
	case ctx.Err() != nil:
		toolErr.Err = ctx.Err()
	case errors.As(err, &exitErr):
		toolErr.ExitCode = exitErr.ExitCode()
		toolErr.Err = nil
	case errors.Is(err, exec.ErrNotFound):
		toolErr.ExitCode = 127
		toolErr.Err = tool.ErrToolNotFound
	}

	return toolErr
}

// copyLines copies src line by line to dst and calls fn for every line. It
// keeps draining src after dst failed, so the process never blocks on a full
// pipe. The first write error is returned.
func copyLines(dst io.Writer, src io.Reader, fn func(string)) error {
	var writeErr error

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)

	for scanner.Scan() {
		fn(scanner.Text())

		if dst == nil || writeErr != nil {
			continue
		}

		if _, err := fmt.Fprintln(dst, scanner.Text()); err != nil {
			writeErr = fmt.Errorf("write: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		// Drain the rest so QEMU can exit.
		_, _ = io.Copy(io.Discard, src)

		return errors.Join(writeErr, fmt.Errorf("read: %w", err))
	}

	return writeErr
}

func fileContains(path, marker string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open serial log: %w", err)
	}
	defer file.Close()

	var found bool

	err = copyLines(nil, file, func(line string) {
		found = found || strings.Contains(line, marker)
	})
	if err != nil {
		return false, fmt.Errorf("read serial log: %w", err)
	}

	return found, nil
}
