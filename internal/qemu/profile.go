// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

import (
	"slices"
)

const (
	// MediumCDROM boots from the ISO image only.
	MediumCDROM Medium = "cdrom"
	// MediumCDROMDisk boots from the ISO image and attaches the disk image
	// as AHCI hard disk.
	MediumCDROMDisk Medium = "cdrom+disk"
)

// Medium represents the boot media attached to the guest.
type Medium string

func (m Medium) isKnown() bool {
	return slices.Contains([]Medium{MediumCDROM, MediumCDROMDisk}, m)
}

// String implements [fmt.Stringer].
func (m Medium) String() string {
	if !m.isKnown() {
		return ""
	}

	return string(m)
}

// MarshalText implements [encoding.TextMarshaler].
func (m Medium) MarshalText() ([]byte, error) {
	return marshalKnown(m.String(), ErrMediumInvalid)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (m *Medium) UnmarshalText(text []byte) error {
	medium := Medium(text)
	if !medium.isKnown() {
		return ErrMediumInvalid
	}

	*m = medium

	return nil
}

// WithDisk reports whether the disk image is attached.
func (m Medium) WithDisk() bool {
	return m == MediumCDROMDisk
}

const (
	// AcceleratorTCG is the software emulator.
	AcceleratorTCG Accelerator = "tcg"
	// AcceleratorKVM is the Linux hardware virtualization.
	AcceleratorKVM Accelerator = "kvm"
	// AcceleratorHVF is the macOS hardware virtualization.
	AcceleratorHVF Accelerator = "hvf"
)

// Accelerator represents the QEMU execution backend.
type Accelerator string

func (a Accelerator) isKnown() bool {
	known := []Accelerator{AcceleratorTCG, AcceleratorKVM, AcceleratorHVF}
	return slices.Contains(known, a)
}

// String implements [fmt.Stringer].
func (a Accelerator) String() string {
	if !a.isKnown() {
		return ""
	}

	return string(a)
}

// MarshalText implements [encoding.TextMarshaler].
func (a Accelerator) MarshalText() ([]byte, error) {
	return marshalKnown(a.String(), ErrAcceleratorInvalid)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (a *Accelerator) UnmarshalText(text []byte) error {
	accel := Accelerator(text)
	if !accel.isKnown() {
		return ErrAcceleratorInvalid
	}

	*a = accel

	return nil
}

// HostCPU reports whether the guest uses the host CPU model. Hardware
// accelerators require it.
func (a Accelerator) HostCPU() bool {
	return a == AcceleratorKVM || a == AcceleratorHVF
}

const (
	// DebugNone runs the guest without debugging aids.
	DebugNone DebugMode = "none"
	// DebugTrace logs interrupts and keeps QEMU alive on guest shutdown.
	// System management mode is disabled so its interrupts do not flood the
	// trace.
	DebugTrace DebugMode = "trace"
	// DebugGDB starts the guest paused with a remote debugging stub.
	DebugGDB DebugMode = "gdb"
)

// DebugMode represents the debugging aids enabled for the guest.
type DebugMode string

func (d DebugMode) isKnown() bool {
	return slices.Contains([]DebugMode{DebugNone, DebugTrace, DebugGDB}, d)
}

// String implements [fmt.Stringer].
func (d DebugMode) String() string {
	if !d.isKnown() {
		return ""
	}

	return string(d)
}

// MarshalText implements [encoding.TextMarshaler].
func (d DebugMode) MarshalText() ([]byte, error) {
	return marshalKnown(d.String(), ErrDebugModeInvalid)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *DebugMode) UnmarshalText(text []byte) error {
	mode := DebugMode(text)
	if !mode.isKnown() {
		return ErrDebugModeInvalid
	}

	*d = mode

	return nil
}

func marshalKnown(s string, invalid error) ([]byte, error) {
	if s == "" {
		return nil, invalid
	}

	return []byte(s), nil
}

// RunProfile selects how the guest is launched.
type RunProfile struct {
	Medium      Medium      `toml:"medium"      yaml:"medium"`
	Accelerator Accelerator `toml:"accelerator" yaml:"accelerator"`
	Debug       DebugMode   `toml:"debug"       yaml:"debug"`
}

// DefaultProfile boots the ISO with software emulation.
func DefaultProfile() RunProfile {
	return RunProfile{
		Medium:      MediumCDROM,
		Accelerator: AcceleratorTCG,
		Debug:       DebugNone,
	}
}

// Validate checks that all fields are known values.
func (p RunProfile) Validate() error {
	switch {
	case !p.Medium.isKnown():
		return ErrMediumInvalid
	case !p.Accelerator.isKnown():
		return ErrAcceleratorInvalid
	case !p.Debug.isKnown():
		return ErrDebugModeInvalid
	default:
		return nil
	}
}

// String returns a compact representation like "cdrom/tcg/none".
func (p RunProfile) String() string {
	return string(p.Medium) + "/" + string(p.Accelerator) + "/" + string(p.Debug)
}
