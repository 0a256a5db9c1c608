// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aibor/bootforge/internal/tool"
	"github.com/google/uuid"
	"github.com/osbuild/images/pkg/disk"
	"github.com/schollz/progressbar/v3"
)

// Provisioner creates a populated disk image.
type Provisioner struct {
	Runner tool.Runner

	// Image is the path of the backing file.
	Image string

	// Size of the image in bytes.
	Size uint64

	// LoopDevice is the device node to attach the image to. If empty, the
	// first free device is used.
	LoopDevice string

	// MountDir is the directory the partition is mounted at while
	// populating.
	MountDir string

	// LockFile serializes provisioning across processes.
	LockFile string

	// Filesystem type the partition is formatted with.
	Filesystem string

	Payload []Payload

	// DiskGUID and PartitionGUID are written into the partition table.
	// Random ones are used if unset.
	DiskGUID      uuid.UUID
	PartitionGUID uuid.UUID

	// VerifyLayout reads the partition table back after partitioning and
	// compares it with the planned layout.
	VerifyLayout bool

	// Progress receives a progress bar while the image is zero-filled, if
	// set.
	Progress io.Writer

	state State
}

// State returns the state the last call of [Provisioner.Provision] reached.
func (p *Provisioner) State() State {
	return p.state
}

// Provision runs all steps from [Unallocated] to [Ready].
//
// If a step fails or ctx is cancelled, all resources acquired so far are
// released in reverse order before it returns. Release failures are logged
// and joined to the returned error.
func (p *Provisioner) Provision(ctx context.Context) (err error) {
	p.state = Unallocated

	plan, err := p.plan()
	if err != nil {
		return err
	}

	for _, payload := range p.Payload {
		if err := payload.Validate(); err != nil {
			return err
		}
	}

	lock, err := AcquireLock(ctx, p.LockFile)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("Release lock failed", slog.Any("error", releaseErr))
		}
	}()

	var resources cleanupStack

	defer func() {
		if err == nil {
			return
		}

		// Resources must be released even if the context is cancelled.
		unwindErr := resources.unwind(context.WithoutCancel(ctx))
		if unwindErr != nil {
			err = errors.Join(err, unwindErr)
		}
	}()

	if err := p.step(Sized, func() error {
		// A leaked attachment of an existing image is reported before the
		// image is touched.
		if err := p.ensureDetached(ctx); err != nil {
			return err
		}

		return p.zeroFill(ctx)
	}); err != nil {
		return err
	}

	if err := p.step(Partitioned, func() error {
		return p.partition(ctx, plan)
	}); err != nil {
		return err
	}

	var loop *LoopDevice

	if err := p.step(LoopAttached, func() error {
		var err error

		loop, err = AttachLoop(ctx, p.Runner, p.Image, p.LoopDevice)
		if err != nil {
			return err
		}

		resources.push("loop device "+loop.Device, loop.Detach)

		return ctx.Err()
	}); err != nil {
		return err
	}

	partition := loop.Partition(1)

	if err := p.step(Formatted, func() error {
		return p.format(ctx, partition)
	}); err != nil {
		return err
	}

	if err := p.step(Mounted, func() error {
		mount, err := MountDevice(ctx, p.Runner, partition, p.MountDir)
		if err != nil {
			return err
		}

		resources.push("mount "+mount.Dir, mount.Unmount)

		return ctx.Err()
	}); err != nil {
		return err
	}

	if err := p.step(Populated, func() error {
		return Populate(ctx, p.MountDir, p.Payload)
	}); err != nil {
		return err
	}

	// Release in order, without the caller's cancellation, so a late
	// interrupt does not skip the detach.
	releaseCtx := context.WithoutCancel(ctx)

	if err := p.step(Unmounted, func() error {
		return resources.pop(releaseCtx)
	}); err != nil {
		return err
	}

	if err := p.step(LoopDetached, func() error {
		return resources.pop(releaseCtx)
	}); err != nil {
		return err
	}

	p.state = Ready

	slog.Info("Disk image ready", slog.String("image", p.Image))

	return nil
}

// step runs the transition into state and records it if successful.
func (p *Provisioner) step(state State, fn func() error) error {
	slog.Debug("Disk provisioning step", slog.String("state", state.String()))

	if err := fn(); err != nil {
		return &StepError{State: state, Err: err}
	}

	p.state = state

	return nil
}

func (p *Provisioner) plan() (*disk.PartitionTable, error) {
	if p.DiskGUID == uuid.Nil {
		p.DiskGUID = uuid.New()
	}

	if p.PartitionGUID == uuid.Nil {
		p.PartitionGUID = uuid.New()
	}

	return PlanLayout(p.Size, p.Filesystem, p.DiskGUID, p.PartitionGUID)
}

func (p *Provisioner) ensureDetached(ctx context.Context) error {
	_, err := os.Stat(p.Image)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}

	return EnsureDetached(ctx, p.Runner, p.Image)
}

func (p *Provisioner) zeroFill(ctx context.Context) error {
	file, err := os.Create(p.Image)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer file.Close()

	var writer io.Writer = file

	if p.Progress != nil {
		bar := progressbar.NewOptions64(int64(p.Size),
			progressbar.OptionSetWriter(p.Progress),
			progressbar.OptionSetDescription("zero-fill "+p.Image),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()

		writer = io.MultiWriter(file, bar)
	}

	if _, err := io.CopyN(writer, zeroReader{ctx}, int64(p.Size)); err != nil {
		return fmt.Errorf("zero-fill image: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}

	return nil
}

func (p *Provisioner) partition(ctx context.Context, plan *disk.PartitionTable) error {
	_, err := p.Runner.Run(ctx, tool.Cmd{
		Name: "sgdisk",
		Args: []string{
			"--clear",
			"--disk-guid=" + p.DiskGUID.String(),
			"--new=1:0:0",
			"--typecode=1:" + disk.FilesystemDataGUID,
			"--partition-guid=1:" + p.PartitionGUID.String(),
			p.Image,
		},
	})
	if err != nil {
		return fmt.Errorf("partition: %w", err)
	}

	if !p.VerifyLayout {
		return nil
	}

	layout, err := ReadGPT(p.Image)
	if err != nil {
		return err
	}

	return layout.Verify(plan)
}

func (p *Provisioner) format(ctx context.Context, partition string) error {
	_, err := p.Runner.Run(ctx, tool.Cmd{
		Name: "mkfs." + p.Filesystem,
		Args: []string{"-F", "-q", partition},
	})
	if err != nil {
		return fmt.Errorf("format %s: %w", partition, err)
	}

	return nil
}

// zeroReader reads zeros until its context is done.
type zeroReader struct {
	ctx context.Context //nolint:containedctx
}

func (z zeroReader) Read(p []byte) (int, error) {
	if err := z.ctx.Err(); err != nil {
		return 0, err
	}

	clear(p)

	return len(p), nil
}
