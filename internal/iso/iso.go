// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package iso

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aibor/bootforge/internal/bootloader"
	"github.com/aibor/bootforge/internal/tool"
	"github.com/otiai10/copy"
)

// Paths inside the image.
const (
	KernelPath        = "boot/kernel"
	ConfigPath        = "limine.conf"
	BootloaderDirPath = "boot/limine"
	EFIDirPath        = "EFI/BOOT"
	ModulesPath       = "boot/modules.cpio"
)

// Assembler builds a hybrid bootable ISO image.
type Assembler struct {
	Runner tool.Runner

	// Xorriso is the ISO mastering program.
	Xorriso string

	// BootloaderDir contains the Limine binaries including the installer.
	BootloaderDir string

	// Kernel binary to boot.
	Kernel string

	// Config is the Limine configuration file.
	Config string

	// Modules are optional files packed into an archive next to the kernel.
	Modules []Module

	// ScratchDir is where the image content is staged. It is removed
	// before and after assembly.
	ScratchDir string

	// Output is the path of the resulting image.
	Output string
}

func (a *Assembler) bootloaderFile(name string) string {
	return filepath.Join(a.BootloaderDir, name)
}

// Inputs returns all files the image is built from.
func (a *Assembler) Inputs() []string {
	inputs := []string{
		a.Kernel,
		a.Config,
		a.bootloaderFile(bootloader.BIOSSys),
		a.bootloaderFile(bootloader.BIOSCD),
		a.bootloaderFile(bootloader.UEFICD),
		a.bootloaderFile(bootloader.EFIBoot),
		a.bootloaderFile(bootloader.Installer),
	}

	for _, module := range a.Modules {
		inputs = append(inputs, module.Source)
	}

	return inputs
}

// Validate checks the configuration of the assembler.
func (a *Assembler) Validate() error {
	for _, module := range a.Modules {
		if module.Name == "" || !fs.ValidPath(module.Name) {
			return fmt.Errorf("%w: %q", ErrInvalidModuleName, module.Name)
		}
	}

	scratch, err := filepath.Abs(a.ScratchDir)
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}

	output, err := filepath.Abs(a.Output)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}

	if output == scratch || strings.HasPrefix(output, scratch+string(filepath.Separator)) {
		return ErrScratchNotIsolated
	}

	return nil
}

// Assemble stages all files, masters the image and installs the BIOS
// bootstrap code. The image is written to a temporary file first and only
// renamed to Output if all steps succeeded.
func (a *Assembler) Assemble(ctx context.Context) (err error) {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := os.RemoveAll(a.ScratchDir); err != nil {
		return fmt.Errorf("remove scratch dir: %w", err)
	}

	defer func() {
		if rmErr := os.RemoveAll(a.ScratchDir); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove scratch dir: %w", rmErr))
		}
	}()

	if err := a.stage(); err != nil {
		return err
	}

	tmpImage := a.Output + ".part"

	if err := os.Remove(tmpImage); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove partial image: %w", err)
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmpImage)
		}
	}()

	if err := a.master(ctx, tmpImage); err != nil {
		return err
	}

	_, err = a.Runner.Run(ctx, tool.Cmd{
		Name: a.bootloaderFile(bootloader.Installer),
		Args: []string{"bios-install", tmpImage},
	})
	if err != nil {
		return fmt.Errorf("install bios bootstrap: %w", err)
	}

	if err := os.Rename(tmpImage, a.Output); err != nil {
		return fmt.Errorf("move image: %w", err)
	}

	slog.Info("ISO image assembled", slog.String("image", a.Output))

	return nil
}

// stage copies all files to their place in the scratch dir.
func (a *Assembler) stage() error {
	files := []struct {
		source string
		dest   string
	}{
		{a.Kernel, KernelPath},
		{a.Config, ConfigPath},
		{a.bootloaderFile(bootloader.BIOSSys), path.Join(BootloaderDirPath, bootloader.BIOSSys)},
		{a.bootloaderFile(bootloader.BIOSCD), path.Join(BootloaderDirPath, bootloader.BIOSCD)},
		{a.bootloaderFile(bootloader.UEFICD), path.Join(BootloaderDirPath, bootloader.UEFICD)},
		{a.bootloaderFile(bootloader.EFIBoot), path.Join(EFIDirPath, bootloader.EFIBoot)},
	}

	for _, file := range files {
		dest := filepath.Join(a.ScratchDir, filepath.FromSlash(file.dest))

		if err := copy.Copy(file.source, dest); err != nil {
			return fmt.Errorf("stage %s: %w", file.dest, err)
		}
	}

	if len(a.Modules) == 0 {
		return nil
	}

	return writeModuleArchive(filepath.Join(a.ScratchDir, filepath.FromSlash(ModulesPath)), a.Modules)
}

// MasterArgs returns the xorriso arguments for a hybrid image with the
// content of root written to output.
func MasterArgs(root, output string) []string {
	return []string{
		"-as", "mkisofs",
		"-R", "-r", "-J",
		"-b", path.Join(BootloaderDirPath, bootloader.BIOSCD),
		"-no-emul-boot",
		"-boot-load-size", "4",
		"-boot-info-table",
		"-hfsplus",
		"-apm-block-size", "2048",
		"--efi-boot", path.Join(BootloaderDirPath, bootloader.UEFICD),
		"-efi-boot-part",
		"--efi-boot-image",
		"--protective-msdos-label",
		root,
		"-o", output,
	}
}

func (a *Assembler) master(ctx context.Context, output string) error {
	_, err := a.Runner.Run(ctx, tool.Cmd{
		Name: a.Xorriso,
		Args: MasterArgs(a.ScratchDir, output),
	})
	if err != nil {
		return fmt.Errorf("master image: %w", err)
	}

	return nil
}
