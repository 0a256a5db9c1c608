// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/osbuild/images/pkg/datasizes"
	"github.com/osbuild/images/pkg/disk"
)

// MinImageSize is the smallest supported image size. The first partition
// starts after the 1 MiB alignment reserve, so anything smaller leaves no
// room for a filesystem.
const MinImageSize = 2 * datasizes.MebiByte

// PlanLayout returns the partition table an image of the given size gets:
// a GPT with a single Linux data partition that starts at the 1 MiB
// boundary and ends at the last usable sector.
func PlanLayout(size uint64, fsType string, diskGUID, partGUID uuid.UUID) (*disk.PartitionTable, error) {
	if size < MinImageSize {
		return nil, fmt.Errorf("%w: %d < %d", ErrImageTooSmall, size, MinImageSize)
	}

	if size%disk.DefaultSectorSize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrImageSizeUnaligned, size)
	}

	pt := &disk.PartitionTable{
		Size:       size,
		UUID:       diskGUID.String(),
		Type:       disk.PT_GPT,
		SectorSize: disk.DefaultSectorSize,
	}

	// Space for the backup header and partition entries at the end.
	end := size - pt.HeaderSize()
	start := disk.DefaultGrainBytes

	pt.Partitions = []disk.Partition{
		{
			Start: start,
			Size:  end - start,
			Type:  disk.FilesystemDataGUID,
			UUID:  partGUID.String(),
			Payload: &disk.Filesystem{
				Type:       fsType,
				Mountpoint: "/",
			},
		},
	}

	return pt, nil
}

// PartitionLBAs returns the first and last sector of the partition.
func PartitionLBAs(pt *disk.PartitionTable, part disk.Partition) (uint64, uint64) {
	first := pt.BytesToSectors(part.Start)
	last := pt.BytesToSectors(part.Start+part.Size) - 1

	return first, last
}
