// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/aibor/bootforge/internal/artifact"
)

// Graph is a validated set of stages.
type Graph struct {
	stages    map[string]Stage
	producers map[string]string
	deps      map[string][]string
}

// NewGraph builds and validates a [Graph].
//
// It rejects empty or duplicate stage names, stages without outputs,
// outputs produced by more than one stage and cycles.
func NewGraph(stages ...Stage) (*Graph, error) {
	g := &Graph{
		stages:    make(map[string]Stage, len(stages)),
		producers: make(map[string]string),
		deps:      make(map[string][]string, len(stages)),
	}

	for _, stage := range stages {
		if stage.Name == "" {
			return nil, invalidf("stage name is required")
		}

		if _, exists := g.stages[stage.Name]; exists {
			return nil, invalidf("duplicate stage name: %q", stage.Name)
		}

		if len(stage.Outputs) == 0 {
			return nil, &GraphError{Kind: ErrStageNoOutputs, Msg: stage.Name}
		}

		for _, output := range stage.Outputs {
			output = filepath.Clean(output)
			if producer, exists := g.producers[output]; exists {
				return nil, invalidf("%s produced by %q and %q", output, producer, stage.Name)
			}

			g.producers[output] = stage.Name
		}

		g.stages[stage.Name] = stage
	}

	for name, stage := range g.stages {
		var deps []string

		for _, input := range stage.Inputs {
			producer, ok := g.producers[filepath.Clean(input)]
			if !ok || slices.Contains(deps, producer) {
				continue
			}

			if producer == name {
				return nil, cycleError([]string{name})
			}

			deps = append(deps, producer)
		}

		slices.Sort(deps)
		g.deps[name] = deps
	}

	if _, err := g.order(g.Names()); err != nil {
		return nil, err
	}

	return g, nil
}

// Names returns the names of all stages in lexical order.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.stages))
	for name := range g.stages {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Stage returns the stage with the given name.
func (g *Graph) Stage(name string) (Stage, bool) {
	stage, ok := g.stages[name]
	return stage, ok
}

// Dependencies returns the names of the stages the given stage directly
// depends on, in lexical order.
func (g *Graph) Dependencies(name string) []string {
	return slices.Clone(g.deps[name])
}

// Producer returns the name of the stage that writes path. It returns
// false for source inputs.
func (g *Graph) Producer(path string) (string, bool) {
	producer, ok := g.producers[filepath.Clean(path)]
	return producer, ok
}

// Artifacts returns every path named by any stage, sorted by path. Outputs
// carry their producer and its inputs, all other paths are sources.
func (g *Graph) Artifacts() []artifact.Artifact {
	seen := make(map[string]artifact.Artifact)

	for _, name := range g.Names() {
		stage := g.stages[name]

		for _, output := range stage.Outputs {
			seen[filepath.Clean(output)] = artifact.Artifact{
				Path:     filepath.Clean(output),
				Producer: name,
				Inputs:   slices.Clone(stage.Inputs),
			}
		}
	}

	for _, name := range g.Names() {
		for _, input := range g.stages[name].Inputs {
			path := filepath.Clean(input)
			if _, exists := seen[path]; !exists {
				seen[path] = artifact.Artifact{Path: path}
			}
		}
	}

	artifacts := make([]artifact.Artifact, 0, len(seen))
	for _, a := range seen {
		artifacts = append(artifacts, a)
	}

	slices.SortFunc(artifacts, func(a, b artifact.Artifact) int {
		return strings.Compare(a.Path, b.Path)
	})

	return artifacts
}

// Resolve returns the target and all stages it transitively depends on in
// the order they must be run. Among stages that are ready at the same time
// the lexically smaller name comes first, so the order is the same for
// every call.
func (g *Graph) Resolve(target string) ([]string, error) {
	if _, ok := g.stages[target]; !ok {
		return nil, &GraphError{Kind: ErrUnknownTarget, Msg: target}
	}

	needed := map[string]bool{}
	queue := []string{target}

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if needed[name] {
			continue
		}

		needed[name] = true

		queue = append(queue, g.deps[name]...)
	}

	names := make([]string, 0, len(needed))
	for name := range needed {
		names = append(names, name)
	}

	return g.order(names)
}

// order sorts the given stages topologically using Kahn's algorithm.
// Dependencies outside of the given set are ignored.
func (g *Graph) order(names []string) ([]string, error) {
	inSet := make(map[string]bool, len(names))
	for _, name := range names {
		inSet[name] = true
	}

	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))

	for _, name := range names {
		for _, dep := range g.deps[name] {
			if !inSet[dep] {
				continue
			}

			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string

	for _, name := range names {
		if indegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(names))

	for len(ready) > 0 {
		slices.Sort(ready)

		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(names) {
		var remaining []string

		for _, name := range names {
			if indegree[name] > 0 {
				remaining = append(remaining, name)
			}
		}

		slices.Sort(remaining)

		return nil, cycleError(remaining)
	}

	return order, nil
}
