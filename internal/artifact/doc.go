// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package artifact tracks the files produced by pipeline stages and decides
// whether they have to be rebuilt.
//
// An artifact is fresh if it exists and is not older than any of its
// declared inputs. In addition, each stage leaves a completion stamp with
// size and digest of its outputs after it succeeded. Outputs that do not
// match their stamp, for example because a previous run was interrupted
// while writing them, are stale as well.
package artifact
