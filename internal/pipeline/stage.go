// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
)

// RunFunc produces the outputs of a stage.
type RunFunc func(ctx context.Context) error

// Stage is a unit of pipeline work.
type Stage struct {
	// Name identifies the stage. It is also the name of its completion
	// stamp.
	Name string

	// Inputs are the files and directories the stage reads, in order.
	Inputs []string

	// Outputs are the files the stage writes. At least one is required.
	Outputs []string

	// Cleanable stages have their outputs removed by [Orchestrator.Clean].
	Cleanable bool

	// Scratch directories are used by the stage while running and removed
	// by [Orchestrator.Clean] as well.
	Scratch []string

	Run RunFunc
}
