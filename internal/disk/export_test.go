// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
)

// WriteGPT writes a primary GUID partition table with 128 entries into the
// image at path, the way sgdisk lays it out.
func WriteGPT(path string, diskGUID uuid.UUID, parts []PartitionEntry) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}

	const entries, entrySize = 128, 128

	sectors := uint64(stat.Size()) / sectorSize
	if sectors < 68 {
		return fmt.Errorf("image too small: %d sectors", sectors)
	}

	table := make([]byte, entries*entrySize)

	for idx, part := range parts {
		raw := table[idx*entrySize : (idx+1)*entrySize]
		copy(raw[0:16], guidToDisk(part.TypeGUID))
		copy(raw[16:32], guidToDisk(part.GUID))
		binary.LittleEndian.PutUint64(raw[32:40], part.FirstLBA)
		binary.LittleEndian.PutUint64(raw[40:48], part.LastLBA)

		for i, unit := range utf16.Encode([]rune(part.Name)) {
			binary.LittleEndian.PutUint16(raw[56+2*i:], unit)
		}
	}

	header := make([]byte, sectorSize)
	copy(header[0:8], gptSignature)
	binary.LittleEndian.PutUint32(header[8:12], 0x00010000)
	binary.LittleEndian.PutUint32(header[12:16], gptHeaderMinLen)
	binary.LittleEndian.PutUint64(header[24:32], 1)
	binary.LittleEndian.PutUint64(header[32:40], sectors-1)
	binary.LittleEndian.PutUint64(header[40:48], 34)
	binary.LittleEndian.PutUint64(header[48:56], sectors-34)
	copy(header[56:72], guidToDisk(diskGUID))
	binary.LittleEndian.PutUint64(header[72:80], 2)
	binary.LittleEndian.PutUint32(header[80:84], entries)
	binary.LittleEndian.PutUint32(header[84:88], entrySize)
	binary.LittleEndian.PutUint32(header[88:92], crc32.ChecksumIEEE(table))
	binary.LittleEndian.PutUint32(header[16:20], crc32.ChecksumIEEE(header[:gptHeaderMinLen]))

	file, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteAt(header, sectorSize); err != nil {
		return err
	}

	if _, err := file.WriteAt(table, 2*sectorSize); err != nil {
		return err
	}

	return file.Close()
}

// MountActive reports whether m is still mounted.
func MountActive(m *Mount) bool {
	return m.mounted
}

// SetLockPollInterval changes how often a held lock is retried.
func SetLockPollInterval(d time.Duration) func() {
	old := lockPollInterval
	lockPollInterval = d

	return func() { lockPollInterval = old }
}

func guidToDisk(guid uuid.UUID) []byte {
	raw := guid[:]
	reverse(raw[0:4])
	reverse(raw[4:6])
	reverse(raw[6:8])

	return raw
}
