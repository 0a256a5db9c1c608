// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/aibor/bootforge/internal/artifact"
	"github.com/aibor/bootforge/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir   string
	runs  map[string]int
	fail  map[string]error
	store *artifact.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	f := &fixture{
		dir:   dir,
		runs:  map[string]int{},
		fail:  map[string]error{},
		store: &artifact.Store{Dir: filepath.Join(dir, ".bootforge")},
	}

	f.write(t, "limine.conf", "timeout: 0")
	f.write(t, "src/main.rs", "fn main() {}")
	f.write(t, "x86_64.json", "{}")

	return f
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()

	path := f.path(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (f *fixture) touch(t *testing.T, name string, offset time.Duration) {
	t.Helper()

	ts := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(f.path(name), ts, ts))
}

// producer returns a stage that writes all its outputs when run.
func (f *fixture) producer(name string, inputs, outputs []string, cleanable bool) pipeline.Stage {
	abs := func(names []string) []string {
		paths := make([]string, 0, len(names))
		for _, name := range names {
			paths = append(paths, f.path(name))
		}

		return paths
	}

	return pipeline.Stage{
		Name:      name,
		Inputs:    abs(inputs),
		Outputs:   abs(outputs),
		Cleanable: cleanable,
		Run: func(context.Context) error {
			f.runs[name]++

			if err := f.fail[name]; err != nil {
				return err
			}

			for _, output := range abs(outputs) {
				if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
					return err
				}

				if err := os.WriteFile(output, []byte(name+" output"), 0o600); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func (f *fixture) orchestrator(t *testing.T) *pipeline.Orchestrator {
	t.Helper()

	iso := f.producer("iso",
		[]string{"kernel", "limine.conf", "limine/limine-bios.sys"},
		[]string{"os.iso"},
		true,
	)
	iso.Scratch = []string{f.path("iso_root")}

	graph, err := pipeline.NewGraph(
		f.producer("bootloader", nil, []string{"limine/limine-bios.sys"}, false),
		f.producer("kernel", []string{"src"}, []string{"kernel"}, false),
		iso,
		f.producer("disk", []string{"x86_64.json"}, []string{"disk.img"}, true),
	)
	require.NoError(t, err)

	return pipeline.NewOrchestrator(graph, f.store)
}

func TestOrchestratorBuild(t *testing.T) {
	t.Run("second build runs nothing", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "iso"))
		assert.Equal(t, map[string]int{"bootloader": 1, "kernel": 1, "iso": 1}, f.runs)

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "iso"))
		assert.Equal(t, map[string]int{"bootloader": 1, "kernel": 1, "iso": 1}, f.runs)
	})

	t.Run("same orchestrator runs stages once", func(t *testing.T) {
		f := newFixture(t)
		orchestrator := f.orchestrator(t)

		require.NoError(t, orchestrator.Build(t.Context(), "iso"))
		f.touch(t, "kernel", time.Hour)
		require.NoError(t, orchestrator.Build(t.Context(), "iso"))
		assert.Equal(t, 1, f.runs["iso"])
	})

	t.Run("touched kernel rebuilds only iso", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "iso"))

		f.touch(t, "kernel", time.Hour)

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "iso"))
		assert.Equal(t, map[string]int{"bootloader": 1, "kernel": 1, "iso": 2}, f.runs)
	})

	t.Run("truncated output is rebuilt", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "disk"))
		f.write(t, "disk.img", "dis")
		f.touch(t, "disk.img", time.Hour)

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "disk"))
		assert.Equal(t, 2, f.runs["disk"])
	})

	t.Run("failure stops build", func(t *testing.T) {
		f := newFixture(t)
		f.fail["kernel"] = assert.AnError

		err := f.orchestrator(t).Build(t.Context(), "iso")
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorIs(t, err, &pipeline.StageError{})

		var stageErr *pipeline.StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, "kernel", stageErr.Stage)
		assert.Equal(t, map[string]int{"bootloader": 1, "kernel": 1}, f.runs)
		assert.NoFileExists(t, f.store.StampPath("kernel"))

		delete(f.fail, "kernel")

		require.NoError(t, f.orchestrator(t).Build(t.Context(), "iso"))
		assert.Equal(t, map[string]int{"bootloader": 1, "kernel": 2, "iso": 1}, f.runs)
	})

	t.Run("missing source input", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.Remove(f.path("limine.conf")))

		err := f.orchestrator(t).Build(t.Context(), "iso")

		var missingErr *pipeline.MissingInputError
		require.ErrorAs(t, err, &missingErr)
		assert.Equal(t, "iso", missingErr.Stage)
		assert.Equal(t, f.path("limine.conf"), missingErr.Path)
		assert.Zero(t, f.runs["iso"])
	})

	t.Run("cancelled", func(t *testing.T) {
		f := newFixture(t)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := f.orchestrator(t).Build(ctx, "iso")
		require.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, f.runs)
	})
}

func TestOrchestratorClean(t *testing.T) {
	t.Run("empty tree", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.orchestrator(t).Clean(t.Context()))
	})

	t.Run("after build", func(t *testing.T) {
		f := newFixture(t)
		orchestrator := f.orchestrator(t)

		require.NoError(t, orchestrator.Build(t.Context(), "iso"))
		require.NoError(t, orchestrator.Build(t.Context(), "disk"))
		f.write(t, "iso_root/boot/kernel", "stale")

		require.NoError(t, orchestrator.Clean(t.Context()))

		assert.NoFileExists(t, f.path("os.iso"))
		assert.NoFileExists(t, f.path("disk.img"))
		assert.NoDirExists(t, f.path("iso_root"))
		assert.NoFileExists(t, f.store.StampPath("iso"))
		assert.NoFileExists(t, f.store.StampPath("disk"))

		assert.FileExists(t, f.path("kernel"))
		assert.FileExists(t, f.path("limine/limine-bios.sys"))
		assert.FileExists(t, f.path("limine.conf"))
		assert.FileExists(t, f.path("x86_64.json"))
		assert.DirExists(t, f.path("src"))

		require.NoError(t, orchestrator.Build(t.Context(), "iso"))
		assert.Equal(t, 2, f.runs["iso"])
		assert.Equal(t, 1, f.runs["kernel"])
	})

	t.Run("refuses source inputs", func(t *testing.T) {
		f := newFixture(t)
		f.write(t, "generated/out", "x")

		graph, err := pipeline.NewGraph(
			pipeline.Stage{
				Name:      "gen",
				Inputs:    []string{f.path("generated/input.txt")},
				Outputs:   []string{f.path("out.bin")},
				Scratch:   []string{f.path("generated")},
				Cleanable: true,
			},
		)
		require.NoError(t, err)

		err = pipeline.NewOrchestrator(graph, f.store).Clean(t.Context())
		require.ErrorIs(t, err, pipeline.ErrSourceRemoval)
		assert.FileExists(t, f.path("generated/out"))
	})
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) Start(total int) {
	r.events = append(r.events, "start "+strconv.Itoa(total))
}

func (r *recordingReporter) Step(stage string) {
	r.events = append(r.events, stage)
}

func (r *recordingReporter) Finish() {
	r.events = append(r.events, "finish")
}

func TestOrchestratorProgress(t *testing.T) {
	f := newFixture(t)
	reporter := &recordingReporter{}

	orchestrator := f.orchestrator(t)
	orchestrator.Progress = reporter

	require.NoError(t, orchestrator.Build(t.Context(), "iso"))
	assert.Equal(t,
		[]string{"start 3", "bootloader", "kernel", "iso", "finish"},
		reporter.events)

	// Not a terminal, nothing is drawn.
	var buf bytes.Buffer

	quiet := pipeline.NewReporter(&buf)
	quiet.Start(2)
	quiet.Step("kernel")
	quiet.Finish()
	assert.Empty(t, buf.String())
}
