// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aibor/bootforge/internal/artifact"
)

// Orchestrator runs the stages of a [Graph]. Each stage runs at most once
// per Orchestrator.
type Orchestrator struct {
	Graph    *Graph
	Store    *artifact.Store
	Progress Reporter

	done map[string]bool
}

// NewOrchestrator creates an [Orchestrator] for the given graph that keeps
// its stamps in store.
func NewOrchestrator(graph *Graph, store *artifact.Store) *Orchestrator {
	return &Orchestrator{
		Graph:    graph,
		Store:    store,
		Progress: nopReporter{},
		done:     make(map[string]bool),
	}
}

// Build brings the target stage and all stages it depends on up to date.
//
// Stages are run in dependency order. A stage is skipped if all its outputs
// are fresh. The first failing stage stops the build and its error is
// returned wrapped in a [StageError]. Nothing is retried.
func (o *Orchestrator) Build(ctx context.Context, target string) error {
	order, err := o.Graph.Resolve(target)
	if err != nil {
		return err
	}

	o.Progress.Start(len(order))
	defer o.Progress.Finish()

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.runStage(ctx, name); err != nil {
			return err
		}

		o.Progress.Step(name)
	}

	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, name string) error {
	if o.done[name] {
		return nil
	}

	stage, _ := o.Graph.Stage(name)
	logger := slog.With(slog.String("stage", name))

	if err := o.checkInputs(stage); err != nil {
		return err
	}

	err := o.Store.Fresh(name, stage.Outputs, stage.Inputs)
	if err == nil {
		logger.Debug("Stage up to date",
			slog.Any("dependencies", o.Graph.Dependencies(name)))

		o.done[name] = true

		return nil
	}

	if !artifact.IsStale(err) {
		return &StageError{Stage: name, Err: err}
	}

	logger.Info("Run stage", slog.String("reason", err.Error()))

	if err := o.Store.Invalidate(name); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	if err := stage.Run(ctx); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	if err := o.Store.Record(name, stage.Outputs); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	logger.Debug("Stage completed")

	o.done[name] = true

	return nil
}

// checkInputs makes sure all source inputs of the stage exist. Inputs
// produced by other stages have been built before.
func (o *Orchestrator) checkInputs(stage Stage) error {
	for _, input := range stage.Inputs {
		if _, produced := o.Graph.Producer(input); produced {
			continue
		}

		_, err := os.Stat(input)
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingInputError{Stage: stage.Name, Path: input}
		} else if err != nil {
			return &StageError{Stage: stage.Name, Err: err}
		}
	}

	return nil
}

// Clean removes the outputs and scratch directories of all cleanable
// stages together with their stamps. Paths that do not exist are ignored.
//
// Nothing is removed if any of the paths is or contains a source input of
// any stage.
func (o *Orchestrator) Clean(ctx context.Context) error {
	sources := o.sourceInputs()

	var (
		paths  []string
		stages []string
	)

	for _, name := range o.Graph.Names() {
		stage, _ := o.Graph.Stage(name)
		if !stage.Cleanable {
			continue
		}

		stages = append(stages, name)
		paths = append(paths, stage.Outputs...)
		paths = append(paths, stage.Scratch...)
	}

	for _, path := range paths {
		for _, source := range sources {
			if containsPath(path, source) {
				return fmt.Errorf("%w: %s", ErrSourceRemoval, source)
			}
		}
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove: %w", err)
		}

		slog.Debug("Removed", slog.String("path", path))
	}

	for _, name := range stages {
		if err := o.Store.Invalidate(name); err != nil {
			return err
		}

		delete(o.done, name)
	}

	return nil
}

func (o *Orchestrator) sourceInputs() []string {
	var sources []string

	for _, a := range o.Graph.Artifacts() {
		if a.IsSource() {
			sources = append(sources, a.Path)
		}
	}

	return sources
}

// containsPath reports whether path is equal to other or a parent directory
// of it.
func containsPath(path, other string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true
	}

	absOther, err := filepath.Abs(other)
	if err != nil {
		return true
	}

	rel, err := filepath.Rel(absPath, absOther)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
