// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kernel runs the external kernel build.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aibor/bootforge/internal/tool"
)

var (
	ErrKernelBinaryMissing = errors.New("kernel binary missing")
	ErrNoCommand           = errors.New("no build command")
)

// Builder runs the kernel build command and checks its result.
type Builder struct {
	Runner tool.Runner

	// Command is the build command with its arguments.
	Command []string

	// Dir is the working directory of the build.
	Dir string

	// Binary is the path of the kernel the build produces.
	Binary string
}

// Build runs the build command. Afterwards, the binary must exist and be a
// regular file.
func (b *Builder) Build(ctx context.Context) error {
	if len(b.Command) == 0 {
		return ErrNoCommand
	}

	_, err := b.Runner.Run(ctx, tool.Cmd{
		Name: b.Command[0],
		Args: b.Command[1:],
		Dir:  b.Dir,
	})
	if err != nil {
		return fmt.Errorf("build kernel: %w", err)
	}

	info, err := os.Stat(b.Binary)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKernelBinaryMissing, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrKernelBinaryMissing, b.Binary)
	}

	slog.Debug("Kernel built", slog.String("binary", b.Binary))

	return nil
}
