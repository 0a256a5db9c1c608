// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

// NewRawCommand returns a [Command] running an arbitrary program, so the
// process handling can be tested without QEMU.
func NewRawCommand(name string, args []string, marker, serialLog string) *Command {
	return &Command{
		name:       name,
		args:       args,
		bootMarker: marker,
		serialLog:  serialLog,
	}
}

// SetKVMDevice replaces the KVM device node and returns a function restoring
// the previous one.
func SetKVMDevice(path string) func() {
	prev := kvmDevice
	kvmDevice = path

	return func() { kvmDevice = prev }
}
