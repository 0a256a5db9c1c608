// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline runs build stages in dependency order.
//
// Stages declare the files they read and the files they write. A stage
// depends on another stage if one of its inputs is an output of the other
// one. The dependencies of a target are resolved into a deterministic order
// and only stages with stale outputs are run.
package pipeline
