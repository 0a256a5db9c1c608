// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"path/filepath"
	"slices"

	"github.com/aibor/bootforge/internal/qemu"
	"github.com/osbuild/images/pkg/datasizes"
)

// DefaultFile is the config file used if none is given explicitly.
const DefaultFile = "bootforge.toml"

// Config is the complete pipeline configuration.
type Config struct {
	// StateDir holds stage stamps and the disk lock file.
	StateDir string `toml:"state_dir" yaml:"state_dir"`

	Bootloader Bootloader `toml:"bootloader" yaml:"bootloader"`
	Kernel     Kernel     `toml:"kernel"     yaml:"kernel"`
	ISO        ISO        `toml:"iso"        yaml:"iso"`
	Disk       Disk       `toml:"disk"       yaml:"disk"`
	QEMU       QEMU       `toml:"qemu"       yaml:"qemu"`
}

// Bootloader configures where Limine is fetched from.
type Bootloader struct {
	Repository string `toml:"repository" yaml:"repository"`
	Revision   string `toml:"revision"   yaml:"revision"`
	Dir        string `toml:"dir"        yaml:"dir"`
}

// Kernel configures the kernel build.
type Kernel struct {
	Command []string `toml:"command" yaml:"command"`
	Dir     string   `toml:"dir"     yaml:"dir"`
	Binary  string   `toml:"binary"  yaml:"binary"`

	// Inputs are the files and directories the build depends on.
	Inputs []string `toml:"inputs" yaml:"inputs"`
}

// Module is a boot module file.
type Module struct {
	Source string `toml:"source" yaml:"source"`
	Name   string `toml:"name"   yaml:"name"`
}

// ISO configures the boot image.
type ISO struct {
	Output     string   `toml:"output"      yaml:"output"`
	ScratchDir string   `toml:"scratch_dir" yaml:"scratch_dir"`
	Config     string   `toml:"config"      yaml:"config"`
	Xorriso    string   `toml:"xorriso"     yaml:"xorriso"`
	Modules    []Module `toml:"modules"     yaml:"modules"`
}

// Payload is a file copied onto the disk image.
type Payload struct {
	Source string `toml:"source" yaml:"source"`
	Target string `toml:"target" yaml:"target"`
}

// Disk configures the disk image.
type Disk struct {
	Image      string `toml:"image"       yaml:"image"`
	Size       Size   `toml:"size"        yaml:"size"`
	MountDir   string `toml:"mount_dir"   yaml:"mount_dir"`
	Filesystem string `toml:"filesystem"  yaml:"filesystem"`

	// LoopDevice is a fixed device node like "/dev/loop7". Empty means the
	// first free one.
	LoopDevice string `toml:"loop_device" yaml:"loop_device"`

	// LockFile defaults to "disk.lock" in the state directory.
	LockFile string `toml:"lock_file" yaml:"lock_file"`

	Payload []Payload `toml:"payload" yaml:"payload"`
}

// QEMU configures the test harness.
type QEMU struct {
	Executable string          `toml:"executable"  yaml:"executable"`
	Machine    string          `toml:"machine"     yaml:"machine"`
	Memory     uint64          `toml:"memory"      yaml:"memory"`
	SerialLog  string          `toml:"serial_log"  yaml:"serial_log"`
	GDBPort    uint16          `toml:"gdb_port"    yaml:"gdb_port"`
	BootMarker string          `toml:"boot_marker" yaml:"boot_marker"`
	ExtraArgs  []string        `toml:"extra_args"  yaml:"extra_args"`
	Profile    qemu.RunProfile `toml:"profile"     yaml:"profile"`
}

// Default returns the configuration used for values not set in a file.
func Default() *Config {
	return &Config{
		StateDir: ".bootforge",
		Bootloader: Bootloader{
			Repository: "https://github.com/limine-bootloader/limine.git",
			Revision:   "v9.x-binary",
			Dir:        "limine",
		},
		Kernel: Kernel{
			Command: []string{"cargo", "build", "--release"},
			Dir:     ".",
			Binary:  "target/x86_64-unknown-none/release/kernel",
			Inputs: []string{
				"Cargo.toml",
				"src",
				"x86_64.json",
				"linker.ld",
			},
		},
		ISO: ISO{
			Output:     "os.iso",
			ScratchDir: "iso_root",
			Config:     "limine.conf",
			Xorriso:    "xorriso",
		},
		Disk: Disk{
			Image:      "disk.img",
			Size:       64 * datasizes.MiB,
			MountDir:   "mnt",
			Filesystem: "ext2",
			Payload: []Payload{
				{Source: "x86_64.json", Target: "home/x86_64.json"},
				{Source: "linker.ld", Target: "home/linker.ld"},
			},
		},
		QEMU: QEMU{
			Executable: qemu.DefaultExecutable,
			Machine:    qemu.DefaultMachine,
			Memory:     qemu.DefaultMemory,
			SerialLog:  "serial.log",
			GDBPort:    qemu.DefaultGDBPort,
			Profile:    qemu.DefaultProfile(),
		},
	}
}

// DiskLockFile returns the lock file path, falling back to the state
// directory.
func (c *Config) DiskLockFile() string {
	if c.Disk.LockFile != "" {
		return c.Disk.LockFile
	}

	return filepath.Join(c.StateDir, "disk.lock")
}

// Validate checks all fields and reports every problem found.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	required := []struct {
		name  string
		value string
	}{
		{"state_dir", c.StateDir},
		{"bootloader.repository", c.Bootloader.Repository},
		{"bootloader.revision", c.Bootloader.Revision},
		{"bootloader.dir", c.Bootloader.Dir},
		{"kernel.binary", c.Kernel.Binary},
		{"iso.output", c.ISO.Output},
		{"iso.scratch_dir", c.ISO.ScratchDir},
		{"iso.config", c.ISO.Config},
		{"iso.xorriso", c.ISO.Xorriso},
		{"disk.image", c.Disk.Image},
		{"disk.mount_dir", c.Disk.MountDir},
		{"disk.filesystem", c.Disk.Filesystem},
		{"qemu.executable", c.QEMU.Executable},
		{"qemu.machine", c.QEMU.Machine},
	}

	for _, field := range required {
		if field.value == "" {
			verr.add(field.name + " must not be empty")
		}
	}

	if len(c.Kernel.Command) == 0 {
		verr.add("kernel.command must not be empty")
	}

	if c.Disk.Size == 0 {
		verr.add("disk.size must not be 0")
	}

	if c.QEMU.Memory == 0 {
		verr.add("qemu.memory must not be 0")
	}

	if err := c.QEMU.Profile.Validate(); err != nil {
		verr.add("qemu.profile: " + err.Error())
	}

	if slices.Contains(c.Kernel.Inputs, c.ISO.Output) ||
		slices.Contains(c.Kernel.Inputs, c.Disk.Image) {
		verr.add("generated images must not be kernel inputs")
	}

	for _, payload := range c.Disk.Payload {
		if payload.Source == "" {
			verr.add("disk.payload: source must not be empty")
		}

		if !filepath.IsLocal(payload.Target) {
			verr.add("disk.payload: target must be a relative path inside the image: " + payload.Target)
		}
	}

	if len(verr.Problems) > 0 {
		return verr
	}

	return nil
}
