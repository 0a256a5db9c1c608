// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/aibor/bootforge/internal/config"
	"github.com/aibor/bootforge/internal/disk"
	"github.com/google/uuid"
)

// ErrNotRegularFile is returned if the inspected image is not a regular file.
var ErrNotRegularFile = errors.New("not a regular file")

// inspect prints the partition table of the image and verifies it has the
// layout the provisioner creates.
func (a *app) inspect(image string) error {
	info, err := os.Stat(image)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("inspect %s: %w", image, ErrNotRegularFile)
	}

	layout, err := disk.ReadGPT(image)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", image, err)
	}

	if _, err := layout.WriteTo(a.io.Stdout); err != nil {
		return fmt.Errorf("print layout: %w", err)
	}

	size := uint64(info.Size())

	plan, err := disk.PlanLayout(size, a.cfg.Disk.Filesystem, layout.DiskGUID, uuid.Nil)
	if err != nil {
		return fmt.Errorf("plan layout: %w", err)
	}

	if err := layout.Verify(plan); err != nil {
		return fmt.Errorf("verify %s: %w", image, err)
	}

	_, err = fmt.Fprintf(a.io.Stdout, "layout ok: single partition spanning %s image\n", config.Size(size))
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}

	return nil
}
