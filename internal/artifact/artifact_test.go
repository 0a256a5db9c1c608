// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibor/bootforge/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	writeFile(t, filepath.Join(dir, "src", "main.rs"), "fn main", base)
	writeFile(t, filepath.Join(dir, "src", "arch", "x86_64.rs"), "asm", base.Add(time.Hour))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src", "arch"), base, base))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src"), base, base))

	t.Run("missing", func(t *testing.T) {
		info, err := artifact.Stat(filepath.Join(dir, "nope"))
		require.NoError(t, err)
		assert.False(t, info.Exists)
	})

	t.Run("file", func(t *testing.T) {
		info, err := artifact.Stat(filepath.Join(dir, "src", "main.rs"))
		require.NoError(t, err)
		assert.True(t, info.Exists)
		assert.False(t, info.Dir)
		assert.EqualValues(t, 7, info.Size)
		assert.True(t, base.Equal(info.ModTime))
	})

	t.Run("directory uses newest entry", func(t *testing.T) {
		info, err := artifact.Stat(filepath.Join(dir, "src"))
		require.NoError(t, err)
		assert.True(t, info.Dir)
		assert.True(t, base.Add(time.Hour).Equal(info.ModTime))
	})
}

func TestNewest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := filepath.Join(dir, "linker.ld")
	newer := filepath.Join(dir, "x86_64.json")

	writeFile(t, older, "SECTIONS", base)
	writeFile(t, newer, "{}", base.Add(time.Minute))

	info, err := artifact.Newest([]string{older, filepath.Join(dir, "missing"), newer})
	require.NoError(t, err)
	assert.Equal(t, newer, info.Path)

	info, err = artifact.Newest(nil)
	require.NoError(t, err)
	assert.False(t, info.Exists)
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel")

	writeFile(t, path, "ELF", time.Now())

	first, err := artifact.HashFile(path)
	require.NoError(t, err)

	second, err := artifact.HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first.String(), 64)

	writeFile(t, path, "ELF2", time.Now())

	third, err := artifact.HashFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	_, err = artifact.HashFile(dir)
	require.ErrorIs(t, err, artifact.ErrNotRegularFile)
}

func TestStampEncoding(t *testing.T) {
	stamp := &artifact.Stamp{
		Stage: "iso",
		Outputs: []artifact.Entry{
			{Path: "os.iso", Size: 4096, ModTime: 1234, Digest: artifact.Digest{1, 2, 3}},
		},
	}

	first, err := artifact.MarshalStamp(stamp)
	require.NoError(t, err)

	second, err := artifact.MarshalStamp(stamp)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	decoded, err := artifact.UnmarshalStamp(first)
	require.NoError(t, err)
	assert.Equal(t, stamp, decoded)

	_, err = artifact.UnmarshalStamp([]byte("garbage"))
	require.ErrorIs(t, err, artifact.ErrInvalidStamp)
}

func TestCheck(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	digest := artifact.Digest{0xaa}

	output := artifact.Info{Path: "os.iso", Exists: true, Size: 10, ModTime: base}
	entry := &artifact.Entry{Path: "os.iso", Size: 10, ModTime: base.UnixNano(), Digest: digest}

	sameDigest := func() (artifact.Digest, error) { return digest, nil }
	otherDigest := func() (artifact.Digest, error) { return artifact.Digest{0xbb}, nil }
	noDigest := func() (artifact.Digest, error) {
		t.Fatal("digest must not be computed")
		return artifact.Digest{}, nil
	}

	tests := []struct {
		name     string
		output   artifact.Info
		input    artifact.Info
		entry    *artifact.Entry
		digest   artifact.DigestFunc
		expected error
	}{
		{
			name:   "fresh",
			output: output,
			input:  artifact.Info{Exists: true, ModTime: base.Add(-time.Second)},
			entry:  entry,
			digest: noDigest,
		},
		{
			name:   "equal timestamps are fresh",
			output: output,
			input:  artifact.Info{Exists: true, ModTime: base},
			entry:  entry,
			digest: noDigest,
		},
		{
			name:   "no inputs",
			output: output,
			entry:  entry,
			digest: noDigest,
		},
		{
			name:     "missing",
			output:   artifact.Info{Path: "os.iso"},
			entry:    entry,
			digest:   noDigest,
			expected: artifact.ErrMissing,
		},
		{
			name:     "input newer",
			output:   output,
			input:    artifact.Info{Exists: true, ModTime: base.Add(time.Second)},
			entry:    entry,
			digest:   noDigest,
			expected: artifact.ErrOutdated,
		},
		{
			name:     "no stamp",
			output:   output,
			digest:   noDigest,
			expected: artifact.ErrNoStamp,
		},
		{
			name:     "truncated",
			output:   artifact.Info{Path: "os.iso", Exists: true, Size: 3, ModTime: base},
			entry:    entry,
			digest:   noDigest,
			expected: artifact.ErrSizeMismatch,
		},
		{
			name:   "touched but same content",
			output: artifact.Info{Path: "os.iso", Exists: true, Size: 10, ModTime: base.Add(time.Hour)},
			entry:  entry,
			digest: sameDigest,
		},
		{
			name:     "rewritten with same size",
			output:   artifact.Info{Path: "os.iso", Exists: true, Size: 10, ModTime: base.Add(time.Hour)},
			entry:    entry,
			digest:   otherDigest,
			expected: artifact.ErrDigestMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := artifact.Check(tt.output, tt.input, tt.entry, tt.digest)
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.expected)
			assert.True(t, artifact.IsStale(err))
		})
	}
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	store := &artifact.Store{Dir: filepath.Join(dir, ".bootforge")}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	kernel := filepath.Join(dir, "kernel")
	iso := filepath.Join(dir, "os.iso")

	writeFile(t, kernel, "ELF", base)
	writeFile(t, iso, "CD001", base.Add(time.Minute))

	inputs := []string{kernel}
	outputs := []string{iso}

	err := store.Fresh("iso", outputs, inputs)
	require.ErrorIs(t, err, artifact.ErrNoStamp, "no stamp yet")

	require.NoError(t, store.Record("iso", outputs))
	require.FileExists(t, store.StampPath("iso"))
	require.NoError(t, store.Fresh("iso", outputs, inputs))

	t.Run("touched input", func(t *testing.T) {
		require.NoError(t, os.Chtimes(kernel, base.Add(time.Hour), base.Add(time.Hour)))
		t.Cleanup(func() { require.NoError(t, os.Chtimes(kernel, base, base)) })

		err := store.Fresh("iso", outputs, inputs)
		require.ErrorIs(t, err, artifact.ErrOutdated)
	})

	t.Run("truncated output", func(t *testing.T) {
		writeFile(t, iso, "CD", base.Add(time.Minute))
		t.Cleanup(func() { writeFile(t, iso, "CD001", base.Add(time.Minute)) })

		err := store.Fresh("iso", outputs, inputs)
		require.ErrorIs(t, err, artifact.ErrSizeMismatch)
	})

	t.Run("invalid stamp", func(t *testing.T) {
		path := store.StampPath("kernel")
		require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00}, 0o600))

		err := store.Fresh("kernel", []string{kernel}, nil)
		require.ErrorIs(t, err, artifact.ErrNoStamp)
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, store.Invalidate("iso"))
		require.NoFileExists(t, store.StampPath("iso"))
		require.NoError(t, store.Invalidate("iso"), "missing stamp")

		err := store.Fresh("iso", outputs, inputs)
		require.ErrorIs(t, err, artifact.ErrNoStamp)
	})

	t.Run("record missing output", func(t *testing.T) {
		err := store.Record("disk", []string{filepath.Join(dir, "disk.img")})
		require.ErrorIs(t, err, artifact.ErrMissing)
		require.NoFileExists(t, store.StampPath("disk"))
	})

	t.Run("invalid stage name", func(t *testing.T) {
		require.ErrorIs(t, store.Record("../iso", outputs), artifact.ErrStageNameInvalid)
	})
}
