// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aibor/bootforge/internal/tool"
)

// Mount is a mounted filesystem.
type Mount struct {
	Dir    string
	Source string

	mounted bool
	runner  tool.Runner
}

// MountDevice mounts source at dir. The directory is created if missing.
//
// Like [AttachLoop], the mount ignores cancellation of ctx, so a mount that
// happened is always returned to the caller.
func MountDevice(ctx context.Context, runner tool.Runner, source, dir string) (*Mount, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mount dir: %w", err)
	}

	_, err := runner.Run(context.WithoutCancel(ctx), tool.Cmd{
		Name: "mount",
		Args: []string{source, dir},
	})
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", source, err)
	}

	return &Mount{
		Dir:     dir,
		Source:  source,
		mounted: true,
		runner:  runner,
	}, nil
}

// Unmount unmounts the filesystem. If that fails, the filesystem is
// detached lazily, so it does not stay visible, but the original error is
// returned anyway.
func (m *Mount) Unmount(ctx context.Context) error {
	if !m.mounted {
		return nil
	}

	_, err := m.runner.Run(ctx, tool.Cmd{
		Name: "umount",
		Args: []string{m.Dir},
	})
	if err == nil {
		m.mounted = false
		return nil
	}

	slog.Warn("Unmount failed, detach lazily",
		slog.String("dir", m.Dir),
		slog.Any("error", err),
	)

	_, lazyErr := m.runner.Run(ctx, tool.Cmd{
		Name: "umount",
		Args: []string{"--lazy", m.Dir},
	})
	if lazyErr == nil {
		m.mounted = false
	}

	return fmt.Errorf("unmount %s: %w", m.Dir, errors.Join(err, lazyErr))
}
