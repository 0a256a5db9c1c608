// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
)

// Payload is a file copied onto the disk image.
type Payload struct {
	// Source path on the host.
	Source string
	// Target path relative to the filesystem root.
	Target string
}

// Validate checks that the target stays inside the filesystem root.
func (p Payload) Validate() error {
	if !filepath.IsLocal(p.Target) {
		return fmt.Errorf("%w: %s", ErrPayloadTargetOutside, p.Target)
	}

	return nil
}

// Populate copies all payloads into the tree at root. Parent directories
// are created as needed.
func Populate(ctx context.Context, root string, payloads []Payload) error {
	for _, payload := range payloads {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := payload.Validate(); err != nil {
			return err
		}

		dest := filepath.Join(root, payload.Target)

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}

		err := copy.Copy(payload.Source, dest, copy.Options{Sync: true})
		if err != nil {
			return fmt.Errorf("copy %s: %w", payload.Source, err)
		}
	}

	return nil
}
