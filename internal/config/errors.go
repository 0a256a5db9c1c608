// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"strings"
)

var (
	// ErrUnknownFormat is returned if the file extension is neither TOML nor
	// YAML.
	ErrUnknownFormat = errors.New("unknown config file format")

	// ErrUnknownKeys is returned if a TOML file contains keys that do not
	// map to any configuration field.
	ErrUnknownKeys = errors.New("unknown keys")
)

// ValidationError lists all invalid fields of a [Config].
type ValidationError struct {
	Problems []string
}

// Error implements the [error] interface.
func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// Is implements the [errors.Is] interface.
func (*ValidationError) Is(other error) bool {
	_, ok := other.(*ValidationError)
	return ok
}

func (e *ValidationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}
