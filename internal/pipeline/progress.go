// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter renders the progress of a build.
type Reporter interface {
	// Start is called once the number of stages of a build is known.
	Start(total int)
	// Step is called whenever a stage has been handled.
	Step(stage string)
	// Finish is called when the build ended, successful or not.
	Finish()
}

// NewReporter returns a [Reporter] that draws a progress bar on w if w is a
// terminal. Otherwise it returns a reporter that does nothing.
func NewReporter(w io.Writer) Reporter {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nopReporter{}
	}

	return &barReporter{output: file}
}

type nopReporter struct{}

func (nopReporter) Start(int) {}

func (nopReporter) Step(string) {}

func (nopReporter) Finish() {}

type barReporter struct {
	output io.Writer
	bar    *progressbar.ProgressBar
}

func (r *barReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.output),
		progressbar.OptionSetDescription("build"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) Step(stage string) {
	if r.bar == nil {
		return
	}

	r.bar.Describe(stage)
	_ = r.bar.Add(1)
}

func (r *barReporter) Finish() {
	if r.bar == nil {
		return
	}

	_ = r.bar.Finish()
	r.bar = nil
}
