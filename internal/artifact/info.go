// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Artifact is a file tracked by the pipeline. Its path is its identity.
type Artifact struct {
	Path string

	// Producer is the name of the stage that creates the artifact. It is
	// empty for source inputs.
	Producer string

	// Inputs are the paths the artifact is built from.
	Inputs []string
}

// IsSource reports whether the artifact is a source input that is never
// written by the pipeline.
func (a Artifact) IsSource() bool {
	return a.Producer == ""
}

// Info is the state of an artifact on disk.
type Info struct {
	Path    string
	Exists  bool
	Dir     bool
	Size    int64
	ModTime time.Time
}

// Stat returns the current state of the file or directory at path. A
// missing path is not an error.
//
// For directories, ModTime is the newest modification time of any entry
// below it, so a changed file deep in a source tree makes the directory
// newer as well.
func Stat(path string) (Info, error) {
	info := Info{Path: path}

	fileInfo, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	} else if err != nil {
		return info, fmt.Errorf("stat: %w", err)
	}

	info.Exists = true
	info.Size = fileInfo.Size()
	info.ModTime = fileInfo.ModTime()

	if !fileInfo.IsDir() {
		return info, nil
	}

	info.Dir = true

	err = filepath.WalkDir(path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		entryInfo, err := entry.Info()
		if err != nil {
			return err
		}

		if entryInfo.ModTime().After(info.ModTime) {
			info.ModTime = entryInfo.ModTime()
		}

		return nil
	})
	if err != nil {
		return info, fmt.Errorf("walk %s: %w", path, err)
	}

	return info, nil
}

// Newest returns the [Info] of the most recently modified of the given
// paths. Missing paths are ignored. If none exists, the returned Info has
// Exists false.
func Newest(paths []string) (Info, error) {
	var newest Info

	for _, path := range paths {
		info, err := Stat(path)
		if err != nil {
			return newest, err
		}

		if !info.Exists {
			continue
		}

		if !newest.Exists || info.ModTime.After(newest.ModTime) {
			newest = info
		}
	}

	return newest, nil
}
