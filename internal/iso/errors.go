// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package iso

import "errors"

var (
	ErrNotRegularFile     = errors.New("not a regular file")
	ErrInvalidModuleName  = errors.New("invalid module name")
	ErrScratchNotIsolated = errors.New("scratch dir must not contain the output")
)
