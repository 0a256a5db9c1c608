// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bootloader provides the Limine bootloader binaries.
package bootloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aibor/bootforge/internal/tool"
)

// Files of a built Limine binary release.
const (
	BIOSSys   = "limine-bios.sys"
	BIOSCD    = "limine-bios-cd.bin"
	UEFICD    = "limine-uefi-cd.bin"
	EFIBoot   = "BOOTX64.EFI"
	Installer = "limine"

	// RevisionFile records the revision a directory was built from.
	RevisionFile = ".bootforge-revision"
)

// ErrOutputMissing is returned if the build did not produce all files.
var ErrOutputMissing = errors.New("bootloader file missing after build")

// Provisioner fetches a pinned Limine revision and builds it once.
type Provisioner struct {
	Runner tool.Runner

	// Repository is the git URL to clone from.
	Repository string

	// Revision is the branch or tag to check out.
	Revision string

	// Dir receives the built files.
	Dir string

	// PinFile, if set, holds the wanted revision. It is only rewritten when
	// the revision changes, so it can serve as the input of a build stage.
	PinFile string
}

// Outputs returns the paths of all files the provisioner provides.
func (p *Provisioner) Outputs() []string {
	names := []string{BIOSSys, BIOSCD, UEFICD, EFIBoot, Installer, RevisionFile}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(p.Dir, name))
	}

	return paths
}

// Inputs returns the pin file, if any.
func (p *Provisioner) Inputs() []string {
	if p.PinFile == "" {
		return nil
	}

	return []string{p.PinFile}
}

// Pin writes the revision to the pin file unless it holds it already.
func (p *Provisioner) Pin() error {
	if p.PinFile == "" {
		return nil
	}

	pinned, err := os.ReadFile(p.PinFile)
	if err == nil && string(pinned) == p.Revision {
		return nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read pin: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(p.PinFile), 0o755); err != nil {
		return fmt.Errorf("create pin dir: %w", err)
	}

	if err := os.WriteFile(p.PinFile, []byte(p.Revision), 0o644); err != nil {
		return fmt.Errorf("write pin: %w", err)
	}

	slog.Debug("Bootloader revision pinned", slog.String("revision", p.Revision))

	return nil
}

// Present reports whether all outputs exist and were built from Revision.
func (p *Provisioner) Present() (bool, error) {
	for _, path := range p.Outputs() {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		} else if err != nil {
			return false, fmt.Errorf("stat: %w", err)
		}
	}

	built, err := os.ReadFile(filepath.Join(p.Dir, RevisionFile))
	if err != nil {
		return false, fmt.Errorf("read revision: %w", err)
	}

	return string(built) == p.Revision, nil
}

// Provision makes sure all outputs exist. If they do, nothing is done.
//
// Otherwise the repository is cloned and built in a temporary directory
// next to Dir, which then replaces Dir. If anything fails, the temporary
// directory is removed and Dir stays untouched.
func (p *Provisioner) Provision(ctx context.Context) error {
	present, err := p.Present()
	if err != nil {
		return err
	}

	if present {
		slog.Debug("Bootloader present", slog.String("dir", p.Dir))
		return nil
	}

	parent := filepath.Dir(p.Dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tmpDir, err := os.MkdirTemp(parent, "."+filepath.Base(p.Dir)+"-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	if err := p.build(ctx, tmpDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return err
	}

	if err := os.RemoveAll(p.Dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("remove old bootloader dir: %w", err)
	}

	if err := os.Rename(tmpDir, p.Dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("move bootloader dir: %w", err)
	}

	slog.Info("Bootloader built",
		slog.String("revision", p.Revision),
		slog.String("dir", p.Dir),
	)

	return nil
}

func (p *Provisioner) build(ctx context.Context, dir string) error {
	// git clone refuses non-empty targets, the temp dir is empty.
	_, err := p.Runner.Run(ctx, tool.Cmd{
		Name: "git",
		Args: []string{
			"clone",
			"--depth=1",
			"--branch=" + p.Revision,
			p.Repository,
			dir,
		},
	})
	if err != nil {
		return fmt.Errorf("fetch bootloader: %w", err)
	}

	_, err = p.Runner.Run(ctx, tool.Cmd{
		Name: "make",
		Args: []string{"-C", dir},
	})
	if err != nil {
		return fmt.Errorf("build bootloader: %w", err)
	}

	for _, name := range []string{BIOSSys, BIOSCD, UEFICD, EFIBoot, Installer} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("%w: %s", ErrOutputMissing, name)
		}
	}

	err = os.WriteFile(filepath.Join(dir, RevisionFile), []byte(p.Revision), 0o644)
	if err != nil {
		return fmt.Errorf("record revision: %w", err)
	}

	return nil
}
