// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

// Package qemu maps a [RunProfile] and the produced boot media to a QEMU
// system emulator invocation and launches it. It expects the QEMU binary to
// be present on the system.
//
// The argument list is built deterministically: equal inputs always produce
// the same ordered arguments. The guest kernel is expected to log to the
// first serial port. Optionally, the output is scanned for a boot marker
// that signals the guest reached its entry point.
package qemu
