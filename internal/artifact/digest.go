// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is the BLAKE3 hash of an artifact's content.
type Digest [32]byte

// String returns the digest hex encoded.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// HashFile computes the [Digest] of the regular file at path.
func HashFile(path string) (Digest, error) {
	var digest Digest

	file, err := os.Open(path)
	if err != nil {
		return digest, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return digest, fmt.Errorf("stat: %w", err)
	}

	if !stat.Mode().IsRegular() {
		return digest, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	hasher := blake3.New()

	if _, err := io.Copy(hasher, file); err != nil {
		return digest, fmt.Errorf("read %s: %w", path, err)
	}

	copy(digest[:], hasher.Sum(nil))

	return digest, nil
}
