// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aibor/bootforge/internal/artifact"
	"github.com/aibor/bootforge/internal/bootloader"
	"github.com/aibor/bootforge/internal/config"
	"github.com/aibor/bootforge/internal/disk"
	"github.com/aibor/bootforge/internal/iso"
	"github.com/aibor/bootforge/internal/kernel"
	"github.com/aibor/bootforge/internal/pipeline"
	"github.com/aibor/bootforge/internal/qemu"
	"github.com/aibor/bootforge/internal/tool"
	"golang.org/x/term"
)

// Stage names.
const (
	stageBootloader = "bootloader"
	stageKernel     = "kernel"
	stageISO        = "iso"
	stageDisk       = "disk"
)

// app wires the configured components into pipeline stages.
type app struct {
	cfg    *config.Config
	runner tool.Runner
	io     IO
}

func newApp(cfg *config.Config, streams IO) *app {
	return &app{
		cfg:    cfg,
		runner: &tool.Exec{},
		io:     streams,
	}
}

func (a *app) bootloader() *bootloader.Provisioner {
	return &bootloader.Provisioner{
		Runner:     a.runner,
		Repository: a.cfg.Bootloader.Repository,
		Revision:   a.cfg.Bootloader.Revision,
		Dir:        a.cfg.Bootloader.Dir,
		PinFile:    filepath.Join(a.cfg.StateDir, "bootloader.revision"),
	}
}

func (a *app) kernel() *kernel.Builder {
	return &kernel.Builder{
		Runner:  a.runner,
		Command: a.cfg.Kernel.Command,
		Dir:     a.cfg.Kernel.Dir,
		Binary:  a.cfg.Kernel.Binary,
	}
}

func (a *app) assembler() *iso.Assembler {
	modules := make([]iso.Module, 0, len(a.cfg.ISO.Modules))
	for _, module := range a.cfg.ISO.Modules {
		modules = append(modules, iso.Module{
			Source: module.Source,
			Name:   module.Name,
		})
	}

	return &iso.Assembler{
		Runner:        a.runner,
		Xorriso:       a.cfg.ISO.Xorriso,
		BootloaderDir: a.cfg.Bootloader.Dir,
		Kernel:        a.cfg.Kernel.Binary,
		Config:        a.cfg.ISO.Config,
		Modules:       modules,
		ScratchDir:    a.cfg.ISO.ScratchDir,
		Output:        a.cfg.ISO.Output,
	}
}

func (a *app) provisioner() *disk.Provisioner {
	payload := make([]disk.Payload, 0, len(a.cfg.Disk.Payload))
	for _, p := range a.cfg.Disk.Payload {
		payload = append(payload, disk.Payload{
			Source: p.Source,
			Target: p.Target,
		})
	}

	return &disk.Provisioner{
		Runner:       a.runner,
		Image:        a.cfg.Disk.Image,
		Size:         a.cfg.Disk.Size.Bytes(),
		LoopDevice:   a.cfg.Disk.LoopDevice,
		MountDir:     a.cfg.Disk.MountDir,
		LockFile:     a.cfg.DiskLockFile(),
		Filesystem:   a.cfg.Disk.Filesystem,
		Payload:      payload,
		VerifyLayout: true,
		Progress:     terminal(a.io.Stderr),
	}
}

func (a *app) stages() []pipeline.Stage {
	loader := a.bootloader()
	builder := a.kernel()
	assembler := a.assembler()
	provisioner := a.provisioner()

	payloadSources := make([]string, 0, len(provisioner.Payload))
	for _, p := range provisioner.Payload {
		payloadSources = append(payloadSources, p.Source)
	}

	return []pipeline.Stage{
		{
			Name:    stageBootloader,
			Inputs:  loader.Inputs(),
			Outputs: loader.Outputs(),
			Run:     loader.Provision,
		},
		{
			Name:    stageKernel,
			Inputs:  a.cfg.Kernel.Inputs,
			Outputs: []string{builder.Binary},
			Run:     builder.Build,
		},
		{
			Name:      stageISO,
			Inputs:    assembler.Inputs(),
			Outputs:   []string{assembler.Output},
			Cleanable: true,
			Scratch:   []string{assembler.ScratchDir},
			Run:       assembler.Assemble,
		},
		{
			Name:      stageDisk,
			Inputs:    payloadSources,
			Outputs:   []string{provisioner.Image},
			Cleanable: true,
			Run:       provisioner.Provision,
		},
	}
}

func (a *app) orchestrator() (*pipeline.Orchestrator, error) {
	graph, err := pipeline.NewGraph(a.stages()...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	orchestrator := pipeline.NewOrchestrator(graph, &artifact.Store{
		Dir: a.cfg.StateDir,
	})
	orchestrator.Progress = pipeline.NewReporter(a.io.Stderr)

	return orchestrator, nil
}

// build brings the ISO and, if requested, the disk image up to date.
func (a *app) build(ctx context.Context, withDisk bool) error {
	// A changed revision makes the pin newer than the bootloader build.
	if err := a.bootloader().Pin(); err != nil {
		return fmt.Errorf("pin bootloader: %w", err)
	}

	orchestrator, err := a.orchestrator()
	if err != nil {
		return err
	}

	targets := []string{stageISO}
	if withDisk {
		targets = append(targets, stageDisk)
	}

	for _, target := range targets {
		if err := orchestrator.Build(ctx, target); err != nil {
			return fmt.Errorf("build %s: %w", target, err)
		}
	}

	return nil
}

// clean removes all generated images, their stamps and scratch directories.
func (a *app) clean(ctx context.Context) error {
	orchestrator, err := a.orchestrator()
	if err != nil {
		return err
	}

	return orchestrator.Clean(ctx)
}

// launch runs QEMU with the given profile against the built media.
func (a *app) launch(ctx context.Context, profile qemu.RunProfile) error {
	if !profile.Accelerator.Available() {
		return fmt.Errorf("%w: %s", qemu.ErrAcceleratorUnavailable, profile.Accelerator)
	}

	extraArgs, err := qemu.ParseArguments(a.cfg.QEMU.ExtraArgs)
	if err != nil {
		return fmt.Errorf("qemu extra args: %w", err)
	}

	spec := qemu.NewCommandSpec(profile, qemu.Media{
		ISO:       a.cfg.ISO.Output,
		Disk:      a.cfg.Disk.Image,
		SerialLog: a.cfg.QEMU.SerialLog,
	})
	spec.Executable = a.cfg.QEMU.Executable
	spec.Machine = a.cfg.QEMU.Machine
	spec.Memory = a.cfg.QEMU.Memory
	spec.GDBPort = a.cfg.QEMU.GDBPort
	spec.BootMarker = a.cfg.QEMU.BootMarker
	spec.ExtraArgs = extraArgs

	cmd, err := qemu.NewCommand(spec)
	if err != nil {
		return fmt.Errorf("qemu command: %w", err)
	}

	cmd.Stdin = a.io.Stdin
	cmd.Stdout = a.io.Stdout
	cmd.Stderr = a.io.Stderr

	slog.Info("Launch QEMU",
		slog.String("profile", profile.String()),
		slog.String("command", cmd.String()))

	if err := cmd.Run(ctx); err != nil {
		return fmt.Errorf("qemu: %w", err)
	}

	return nil
}

// terminal returns w if it is a terminal and nil otherwise.
func terminal(w io.Writer) io.Writer {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nil
	}

	return file
}
