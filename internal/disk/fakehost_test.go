// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk_test

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aibor/bootforge/internal/disk"
	"github.com/aibor/bootforge/internal/tool"
	"github.com/google/uuid"
	osdisk "github.com/osbuild/images/pkg/disk"
	"github.com/stretchr/testify/assert"
)

// fakeHost simulates the loop device table and the mount table of a host
// together with the tools manipulating them.
type fakeHost struct {
	*tool.Recorder

	mu       sync.Mutex
	pool     []string
	loops    map[string]string
	mounts   map[string]string
	failures map[string]error
	onMount  func()
	onAttach func()
}

func newFakeHost(poolSize int) *fakeHost {
	host := &fakeHost{
		Recorder: &tool.Recorder{},
		loops:    map[string]string{},
		mounts:   map[string]string{},
		failures: map[string]error{},
	}

	for i := range poolSize {
		host.pool = append(host.pool, fmt.Sprintf("/dev/loop%d", i))
	}

	host.Handle("losetup", host.losetup)
	host.Handle("sgdisk", host.sgdisk)
	host.Handle("mkfs.ext2", host.mkfs)
	host.Handle("mount", host.mount)
	host.Handle("umount", host.umount)

	return host
}

// fail makes the given operation fail with err.
func (h *fakeHost) fail(operation string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failures[operation] = err
}

func (h *fakeHost) failure(operation string) error {
	return h.failures[operation]
}

func (h *fakeHost) attachedLoops() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return maps.Clone(h.loops)
}

func (h *fakeHost) activeMounts() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return maps.Clone(h.mounts)
}

// assertReleased asserts that no loop device and no mount is left.
func (h *fakeHost) assertReleased(t *testing.T) {
	t.Helper()

	assert.Empty(t, h.attachedLoops(), "loop devices left attached")
	assert.Empty(t, h.activeMounts(), "mounts left active")
}

func toolFailure(name, stderr string, code int) error {
	return &tool.ExternalToolError{Tool: name, ExitCode: code, Stderr: stderr}
}

func (h *fakeHost) losetup(cmd tool.Cmd) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	args := cmd.Args

	switch {
	case len(args) == 2 && args[0] == "--associated":
		var out strings.Builder

		for _, dev := range h.pool {
			if backing, ok := h.loops[dev]; ok && backing == args[1] {
				fmt.Fprintf(&out, "%s: []: (%s)\n", dev, backing)
			}
		}

		return []byte(out.String()), nil
	case len(args) == 4 && args[0] == "--show" && args[1] == "--partscan":
		if err := h.failure("attach"); err != nil {
			return nil, err
		}

		dev, backing := args[2], args[3]

		if dev == "--find" {
			idx := slices.IndexFunc(h.pool, func(dev string) bool {
				_, used := h.loops[dev]
				return !used
			})
			if idx < 0 {
				return nil, toolFailure(cmd.Name, "losetup: could not find any free loop device\n", 1)
			}

			dev = h.pool[idx]
		} else if _, used := h.loops[dev]; used {
			return nil, toolFailure(cmd.Name,
				"losetup: "+dev+": failed to set up loop device: Device or resource busy\n", 1)
		}

		h.loops[dev] = backing

		if h.onAttach != nil {
			h.onAttach()
		}

		return []byte(dev + "\n"), nil
	case len(args) == 2 && args[0] == "--detach":
		if err := h.failure("detach"); err != nil {
			return nil, err
		}

		if _, ok := h.loops[args[1]]; !ok {
			return nil, toolFailure(cmd.Name, "losetup: "+args[1]+": detach failed: No such device or address\n", 1)
		}

		delete(h.loops, args[1])

		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected losetup call: %s", cmd)
	}
}

func (h *fakeHost) sgdisk(cmd tool.Cmd) ([]byte, error) {
	if err := h.failure("sgdisk"); err != nil {
		return nil, err
	}

	var diskGUID, partGUID uuid.UUID

	for _, arg := range cmd.Args {
		switch {
		case strings.HasPrefix(arg, "--disk-guid="):
			diskGUID = uuid.MustParse(strings.TrimPrefix(arg, "--disk-guid="))
		case strings.HasPrefix(arg, "--partition-guid=1:"):
			partGUID = uuid.MustParse(strings.TrimPrefix(arg, "--partition-guid=1:"))
		}
	}

	image := cmd.Args[len(cmd.Args)-1]

	stat, err := os.Stat(image)
	if err != nil {
		return nil, toolFailure(cmd.Name, "Problem opening "+image+" for reading!\n", 1)
	}

	part := disk.PartitionEntry{
		TypeGUID: uuid.MustParse(osdisk.FilesystemDataGUID),
		GUID:     partGUID,
		FirstLBA: 2048,
		LastLBA:  uint64(stat.Size())/512 - 34,
	}

	return nil, disk.WriteGPT(image, diskGUID, []disk.PartitionEntry{part})
}

func (h *fakeHost) attachedPartition(node string) bool {
	for dev := range h.loops {
		if node == dev+"p1" {
			return true
		}
	}

	return false
}

func (h *fakeHost) mkfs(cmd tool.Cmd) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.failure("mkfs"); err != nil {
		return nil, err
	}

	node := cmd.Args[len(cmd.Args)-1]
	if !h.attachedPartition(node) {
		return nil, toolFailure(cmd.Name, "mke2fs: No such file or directory while trying to determine filesystem size\n", 1)
	}

	return nil, nil
}

func (h *fakeHost) mount(cmd tool.Cmd) ([]byte, error) {
	h.mu.Lock()

	if err := h.failure("mount"); err != nil {
		h.mu.Unlock()
		return nil, err
	}

	source, dir := cmd.Args[0], cmd.Args[1]

	if !h.attachedPartition(source) {
		h.mu.Unlock()
		return nil, toolFailure(cmd.Name, "mount: "+dir+": special device "+source+" does not exist.\n", 32)
	}

	if _, ok := h.mounts[dir]; ok {
		h.mu.Unlock()
		return nil, toolFailure(cmd.Name, "mount: "+dir+": "+source+" already mounted.\n", 32)
	}

	h.mounts[dir] = source
	onMount := h.onMount
	h.mu.Unlock()

	if onMount != nil {
		onMount()
	}

	return nil, nil
}

func (h *fakeHost) umount(cmd tool.Cmd) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dir := cmd.Args[len(cmd.Args)-1]
	lazy := cmd.Args[0] == "--lazy"

	operation := "umount"
	if lazy {
		operation = "lazy"
	}

	if err := h.failure(operation); err != nil {
		return nil, err
	}

	if _, ok := h.mounts[dir]; !ok {
		return nil, toolFailure(cmd.Name, "umount: "+dir+": not mounted.\n", 32)
	}

	delete(h.mounts, dir)

	return nil, nil
}

var errInjected = errors.New("injected failure")
