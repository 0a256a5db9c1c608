// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact

// DigestFunc computes the digest of an output on demand.
type DigestFunc func() (Digest, error)

// Check decides if a single output is fresh. It returns nil if it is,
// a [StaleError] if it is not, or any other error if the digest could not
// be computed.
//
// newestInput is the most recent of the output's inputs. entry is the
// output's record from the producer's completion stamp, or nil if there is
// none. The digest is only computed if size or modification time differ
// from the recorded ones.
func Check(output Info, newestInput Info, entry *Entry, digest DigestFunc) error {
	if !output.Exists {
		return &StaleError{Path: output.Path, Reason: ErrMissing}
	}

	if newestInput.Exists && output.ModTime.Before(newestInput.ModTime) {
		return &StaleError{Path: output.Path, Reason: ErrOutdated}
	}

	if entry == nil {
		return &StaleError{Path: output.Path, Reason: ErrNoStamp}
	}

	if entry.Size != output.Size {
		return &StaleError{Path: output.Path, Reason: ErrSizeMismatch}
	}

	if entry.Matches(output) {
		return nil
	}

	actual, err := digest()
	if err != nil {
		return err
	}

	if actual != entry.Digest {
		return &StaleError{Path: output.Path, Reason: ErrDigestMismatch}
	}

	return nil
}
