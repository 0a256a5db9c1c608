// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tool runs the external programs the pipeline depends on (compilers,
// git, xorriso, sgdisk, losetup, mount, ...) and classifies their failures.
//
// All programs are treated as black boxes that signal success via exit status.
// A nonzero exit is reported as [ExternalToolError]. Failures caused by missing
// privileges are reported as [PrivilegeError] so callers can tell them apart
// from ordinary tool failures. Nothing is retried.
package tool
