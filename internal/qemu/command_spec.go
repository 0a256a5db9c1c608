// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

import (
	"fmt"
	"strconv"
)

// Defaults used by [NewCommandSpec].
const (
	DefaultExecutable = "qemu-system-x86_64"
	DefaultMachine    = "q35"
	DefaultMemory     = 512
	DefaultGDBPort    = 1234
)

// Media are the images attached to the guest.
type Media struct {
	// ISO is the hybrid boot image. It is always attached as CD-ROM.
	ISO string

	// Disk is the raw disk image. Only attached if the [Medium] requests it.
	Disk string

	// SerialLog receives the serial console output for [DebugTrace], since
	// the interrupt trace is written to stderr.
	SerialLog string
}

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path to the qemu-system binary.
	Executable string

	// QEMU machine type to use.
	Machine string

	// Memory for the machine in MB.
	Memory uint64

	// Port the GDB stub listens on for [DebugGDB].
	GDBPort uint16

	Profile RunProfile
	Media   Media

	// ExtraArgs are appended to the generated arguments. Colliding with
	// any of them is an error.
	ExtraArgs []Argument

	// BootMarker is searched for in the guest's serial output. If set and
	// not found before QEMU exits, the run fails.
	BootMarker string
}

// NewCommandSpec returns a [CommandSpec] for the given profile and media with
// all other fields set to their defaults.
func NewCommandSpec(profile RunProfile, media Media) CommandSpec {
	return CommandSpec{
		Executable: DefaultExecutable,
		Machine:    DefaultMachine,
		Memory:     DefaultMemory,
		GDBPort:    DefaultGDBPort,
		Profile:    profile,
		Media:      media,
	}
}

// Validate checks for missing and incompatible parameters.
func (s *CommandSpec) Validate() error {
	if err := s.Profile.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	switch {
	case s.Executable == "":
		return &ArgumentError{"no executable"}
	case s.Machine == "":
		return &ArgumentError{"no machine type"}
	case s.Memory == 0:
		return &ArgumentError{"memory must not be 0"}
	case s.Media.ISO == "":
		return &ArgumentError{"no iso image"}
	case s.Profile.Medium.WithDisk() && s.Media.Disk == "":
		return &ArgumentError{"medium " + s.Profile.Medium.String() + " requires a disk image"}
	case s.Profile.Debug == DebugTrace && s.Media.SerialLog == "":
		return &ArgumentError{"trace requires a serial log file"}
	case s.Profile.Debug == DebugGDB && s.GDBPort == 0:
		return &ArgumentError{"gdb requires a port"}
	}

	return nil
}

// Arguments compiles the ordered argument list for the QEMU command.
//
// Equal specs produce equal lists.
func (s *CommandSpec) Arguments() ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return BuildArgumentStrings(s.arguments())
}

func (s *CommandSpec) arguments() []Argument {
	machine := []string{s.Machine}
	if s.Profile.Debug == DebugTrace {
		machine = append(machine, "smm=off")
	}

	args := []Argument{
		UniqueArg("machine", machine...),
		UniqueArg("m", strconv.FormatUint(s.Memory, 10)),
		UniqueArg("accel", s.Profile.Accelerator.String()),
	}

	if s.Profile.Accelerator.HostCPU() {
		args = append(args, UniqueArg("cpu", "host"))
	}

	args = append(args, UniqueArg("cdrom", s.Media.ISO))

	if s.Profile.Medium.WithDisk() {
		args = append(args,
			RepeatableArg("drive",
				"id=disk",
				"file="+s.Media.Disk,
				"format=raw",
				"if=none",
			),
			RepeatableArg("device", "ahci", "id=ahci"),
			RepeatableArg("device", "ide-hd", "drive=disk", "bus=ahci.0"),
		)
	}

	serial := "stdio"
	if s.Profile.Debug == DebugTrace {
		serial = "file:" + s.Media.SerialLog
	}

	args = append(args,
		RepeatableArg("serial", serial),
		// Guest must not reboot on triple faults.
		UniqueArg("no-reboot"),
	)

	switch s.Profile.Debug {
	case DebugTrace:
		args = append(args,
			RepeatableArg("d", "int"),
			UniqueArg("no-shutdown"),
		)
	case DebugGDB:
		args = append(args,
			UniqueArg("S"),
			UniqueArg("gdb", fmt.Sprintf("tcp::%d", s.GDBPort)),
		)
	case DebugNone:
	}

	return append(args, s.ExtraArgs...)
}
