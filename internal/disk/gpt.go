// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/osbuild/images/pkg/disk"
)

const (
	sectorSize      = disk.DefaultSectorSize
	gptSignature    = "EFI PART"
	gptHeaderMinLen = 92
	gptEntryMinLen  = 128
	gptEntryMaxLen  = 1024
	gptMaxEntries   = 1024
)

// Layout is a partition table as read from an image.
type Layout struct {
	DiskGUID       uuid.UUID
	Sectors        uint64
	FirstUsableLBA uint64
	LastUsableLBA  uint64
	Partitions     []PartitionEntry
}

// PartitionEntry is a used entry of a GUID partition table.
type PartitionEntry struct {
	Number   int
	TypeGUID uuid.UUID
	GUID     uuid.UUID
	FirstLBA uint64
	LastLBA  uint64
	Name     string
}

// Size returns the size of the partition in bytes.
func (p PartitionEntry) Size() uint64 {
	return (p.LastLBA - p.FirstLBA + 1) * sectorSize
}

// ReadGPT reads the primary GUID partition table from the image at path.
// Checksums of header and entries are verified.
func ReadGPT(path string) (*Layout, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	header := make([]byte, sectorSize)
	if _, err := file.ReadAt(header, sectorSize); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrNoGPT, err)
	}

	layout, entries, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	layout.Sectors = uint64(stat.Size()) / sectorSize

	table := make([]byte, entries.count*entries.size)
	if _, err := file.ReadAt(table, int64(entries.lba*sectorSize)); err != nil {
		return nil, fmt.Errorf("%w: read entries: %w", ErrNoGPT, err)
	}

	if crc32.ChecksumIEEE(table) != entries.checksum {
		return nil, fmt.Errorf("%w: partition entries", ErrGPTChecksum)
	}

	for idx := range entries.count {
		raw := table[idx*entries.size : (idx+1)*entries.size]

		typeGUID := guidFromDisk(raw[0:16])
		if typeGUID == uuid.Nil {
			continue
		}

		layout.Partitions = append(layout.Partitions, PartitionEntry{
			Number:   int(idx) + 1,
			TypeGUID: typeGUID,
			GUID:     guidFromDisk(raw[16:32]),
			FirstLBA: binary.LittleEndian.Uint64(raw[32:40]),
			LastLBA:  binary.LittleEndian.Uint64(raw[40:48]),
			Name:     decodeName(raw[56:128]),
		})
	}

	return layout, nil
}

type entryTable struct {
	lba      uint64
	count    uint64
	size     uint64
	checksum uint32
}

func parseHeader(header []byte) (*Layout, entryTable, error) {
	var entries entryTable

	if string(header[0:8]) != gptSignature {
		return nil, entries, ErrNoGPT
	}

	headerLen := binary.LittleEndian.Uint32(header[12:16])
	if headerLen < gptHeaderMinLen || headerLen > sectorSize {
		return nil, entries, fmt.Errorf("%w: header size %d", ErrNoGPT, headerLen)
	}

	checksum := binary.LittleEndian.Uint32(header[16:20])

	raw := bytes.Clone(header[:headerLen])
	clear(raw[16:20])

	if crc32.ChecksumIEEE(raw) != checksum {
		return nil, entries, fmt.Errorf("%w: header", ErrGPTChecksum)
	}

	entries = entryTable{
		lba:      binary.LittleEndian.Uint64(header[72:80]),
		count:    uint64(binary.LittleEndian.Uint32(header[80:84])),
		size:     uint64(binary.LittleEndian.Uint32(header[84:88])),
		checksum: binary.LittleEndian.Uint32(header[88:92]),
	}

	if entries.size < gptEntryMinLen || entries.size > gptEntryMaxLen || entries.count > gptMaxEntries {
		return nil, entries, fmt.Errorf("%w: %d entries of size %d", ErrNoGPT, entries.count, entries.size)
	}

	layout := &Layout{
		FirstUsableLBA: binary.LittleEndian.Uint64(header[40:48]),
		LastUsableLBA:  binary.LittleEndian.Uint64(header[48:56]),
		DiskGUID:       guidFromDisk(header[56:72]),
	}

	return layout, entries, nil
}

// guidFromDisk converts the on-disk GUID representation. The first three
// fields are stored little-endian.
func guidFromDisk(raw []byte) uuid.UUID {
	var guid uuid.UUID

	copy(guid[:], raw)
	reverse(guid[0:4])
	reverse(guid[4:6])
	reverse(guid[6:8])

	return guid
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func decodeName(raw []byte) string {
	units := make([]uint16, 0, len(raw)/2)

	for i := 0; i+1 < len(raw); i += 2 {
		unit := binary.LittleEndian.Uint16(raw[i:])
		if unit == 0 {
			break
		}

		units = append(units, unit)
	}

	return string(utf16.Decode(units))
}

// Verify checks that the layout matches the planned partition table: one
// partition of the planned type, starting at the planned sector and ending
// at the last usable one.
func (l *Layout) Verify(plan *disk.PartitionTable) error {
	if want := plan.BytesToSectors(plan.Size); l.Sectors != want {
		return fmt.Errorf("%w: %d sectors, want %d", ErrLayoutMismatch, l.Sectors, want)
	}

	if len(l.Partitions) != 1 || len(plan.Partitions) != 1 {
		return fmt.Errorf("%w: %d partitions, want 1", ErrLayoutMismatch, len(l.Partitions))
	}

	planned := plan.Partitions[0]
	actual := l.Partitions[0]
	first, last := PartitionLBAs(plan, planned)

	switch {
	case !strings.EqualFold(actual.TypeGUID.String(), planned.Type):
		return fmt.Errorf("%w: type %s, want %s", ErrLayoutMismatch, actual.TypeGUID, planned.Type)
	case actual.FirstLBA != first:
		return fmt.Errorf("%w: first sector %d, want %d", ErrLayoutMismatch, actual.FirstLBA, first)
	case actual.LastLBA != last:
		return fmt.Errorf("%w: last sector %d, want %d", ErrLayoutMismatch, actual.LastLBA, last)
	case actual.LastLBA != l.LastUsableLBA:
		return fmt.Errorf("%w: last sector %d, last usable %d", ErrLayoutMismatch, actual.LastLBA, l.LastUsableLBA)
	}

	return nil
}

// WriteTo prints the layout in a human readable form.
func (l *Layout) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "disk %s: %d sectors, usable %d-%d\n",
		l.DiskGUID, l.Sectors, l.FirstUsableLBA, l.LastUsableLBA)

	for _, part := range l.Partitions {
		fmt.Fprintf(&buf, "  %d: %s type %s sectors %d-%d (%d bytes)",
			part.Number, part.GUID, part.TypeGUID, part.FirstLBA, part.LastLBA, part.Size())

		if part.Name != "" {
			fmt.Fprintf(&buf, " %q", part.Name)
		}

		buf.WriteByte('\n')
	}

	return buf.WriteTo(w)
}
