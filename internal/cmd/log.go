// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"log/slog"
)

// setupLogging installs the default logger writing to writer. With debug,
// debug records are emitted including their source location.
func setupLogging(writer io.Writer, debug bool) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}

	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(writer, opts)))
}
