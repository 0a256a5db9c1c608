// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aibor/bootforge/internal/tool"
)

const losetup = "losetup"

// Messages printed by losetup if the requested device cannot be used.
var (
	loopExhaustedMessages = []string{
		"could not find any free loop device",
		"cannot find an unused loop device",
	}
	loopBusyMessages = []string{
		"device or resource busy",
		"resource busy",
	}
)

// LoopDevice is a file attached as block device.
type LoopDevice struct {
	Backing string
	Device  string

	runner tool.Runner
}

// EnsureDetached fails with a [ResourceError] wrapping [ErrAlreadyAttached]
// if backing is attached to any loop device.
func EnsureDetached(ctx context.Context, runner tool.Runner, backing string) error {
	out, err := runner.Run(ctx, tool.Cmd{
		Name: losetup,
		Args: []string{"--associated", backing},
	})
	if err != nil {
		return fmt.Errorf("query loop devices: %w", err)
	}

	if existing := strings.TrimSpace(string(out)); existing != "" {
		return &ResourceError{
			Resource: backing,
			Err:      fmt.Errorf("%w: %s", ErrAlreadyAttached, firstField(existing)),
		}
	}

	return nil
}

// AttachLoop attaches backing as loop device with partition scanning
// enabled. If device is empty, the first free device is used.
//
// It fails with a [ResourceError] if backing is attached already, no free
// device is left or the requested device is in use. Existing attachments
// are never reused.
//
// The attach itself ignores cancellation of ctx. Otherwise losetup might be
// killed after attaching but before printing the device name, leaving a
// device nobody knows about. Callers check ctx once the device is tracked.
func AttachLoop(ctx context.Context, runner tool.Runner, backing, device string) (*LoopDevice, error) {
	if err := EnsureDetached(ctx, runner, backing); err != nil {
		return nil, err
	}

	args := []string{"--show", "--partscan"}
	if device == "" {
		args = append(args, "--find")
	} else {
		args = append(args, device)
	}

	args = append(args, backing)

	out, err := runner.Run(context.WithoutCancel(ctx), tool.Cmd{Name: losetup, Args: args})
	if err != nil {
		return nil, classifyAttachError(backing, device, err)
	}

	attached := strings.TrimSpace(string(out))
	if attached == "" {
		attached = device
	}

	if attached == "" {
		return nil, fmt.Errorf("attach %s: %w", backing, ErrNoDevice)
	}

	return &LoopDevice{
		Backing: backing,
		Device:  attached,
		runner:  runner,
	}, nil
}

func classifyAttachError(backing, device string, err error) error {
	if errors.Is(err, &tool.PrivilegeError{}) {
		return err
	}

	var toolErr *tool.ExternalToolError
	if !errors.As(err, &toolErr) {
		return fmt.Errorf("attach %s: %w", backing, err)
	}

	stderr := strings.ToLower(toolErr.Stderr)

	switch {
	case containsAny(stderr, loopExhaustedMessages):
		return &ResourceError{
			Resource: "loop device",
			Err:      fmt.Errorf("%w: %w", ErrLoopPoolExhausted, err),
		}
	case containsAny(stderr, loopBusyMessages):
		resource := device
		if resource == "" {
			resource = "loop device"
		}

		return &ResourceError{
			Resource: resource,
			Err:      fmt.Errorf("%w: %w", ErrDeviceBusy, err),
		}
	default:
		return fmt.Errorf("attach %s: %w", backing, err)
	}
}

// Partition returns the device node of the partition with the given number.
func (l *LoopDevice) Partition(number int) string {
	return l.Device + "p" + strconv.Itoa(number)
}

// Detach detaches the loop device.
func (l *LoopDevice) Detach(ctx context.Context) error {
	_, err := l.runner.Run(ctx, tool.Cmd{
		Name: losetup,
		Args: []string{"--detach", l.Device},
	})
	if err != nil {
		return fmt.Errorf("detach %s: %w", l.Device, err)
	}

	return nil
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}

	return false
}

func firstField(s string) string {
	if idx := strings.IndexByte(s, ':'); idx > 0 {
		return s[:idx]
	}

	return s
}
