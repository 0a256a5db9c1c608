// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

import (
	"os"
	"runtime"
)

// kvmDevice is a variable so tests can point it to a fake device node.
var kvmDevice = "/dev/kvm"

// Available checks if the accelerator can be used on this host. Software
// emulation is always available.
func (a Accelerator) Available() bool {
	switch a {
	case AcceleratorTCG:
		return true
	case AcceleratorKVM:
		if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
			return false
		}

		f, err := os.OpenFile(kvmDevice, os.O_WRONLY, 0)
		if err != nil {
			return false
		}

		_ = f.Close()

		return true
	case AcceleratorHVF:
		return runtime.GOOS == "darwin"
	default:
		return false
	}
}
