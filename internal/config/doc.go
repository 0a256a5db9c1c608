// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config provides the pipeline configuration.
//
// The configuration is read from a TOML or YAML file, chosen by the file
// extension. Values that are not present in the file keep their defaults. A
// missing default file is not an error.
package config
