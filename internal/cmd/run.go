// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/aibor/bootforge/internal/pipeline"
	"github.com/aibor/bootforge/internal/qemu"
	"github.com/aibor/bootforge/internal/tool"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// handleRunError logs the error and returns the exit code for it: the exit
// code of the failed external program if there is one, 1 otherwise.
func handleRunError(err error) int {
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		slog.Error("Stage failed",
			slog.String("stage", stageErr.Stage),
			slog.Any("error", stageErr.Err))
	} else {
		slog.Error(err.Error())
	}

	if errors.Is(err, qemu.ErrBootMarkerMissing) {
		slog.Warn("Guest did not boot, check the serial output")
	}

	if exitCode := tool.ExitCode(err); exitCode != 0 {
		return exitCode
	}

	return 1
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, streams IO) int {
	return run(ctx, args, streams, nil)
}

func run(ctx context.Context, args []string, streams IO, prepare func(*app)) int {
	// Logging is set up again once flags are parsed.
	setupLogging(streams.Stderr, false)

	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return handleRunError(err)
	}

	root := newRootCommand(streams, prepare)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		return handleRunError(err)
	}

	return 0
}
