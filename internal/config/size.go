// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strconv"

	"github.com/osbuild/images/pkg/datasizes"
	"gopkg.in/yaml.v3"
)

// Size is a data size in bytes. In config files it is given either as plain
// number or as string with unit, like "64 MiB".
type Size uint64

// Bytes returns the size in bytes.
func (s Size) Bytes() uint64 {
	return uint64(s)
}

// String implements [fmt.Stringer]. It uses the largest binary unit the size
// is a multiple of.
func (s Size) String() string {
	units := []struct {
		name string
		size uint64
	}{
		{"TiB", datasizes.TiB},
		{"GiB", datasizes.GiB},
		{"MiB", datasizes.MiB},
		{"KiB", datasizes.KiB},
	}

	for _, unit := range units {
		if s != 0 && uint64(s)%unit.size == 0 {
			return fmt.Sprintf("%d %s", uint64(s)/unit.size, unit.name)
		}
	}

	return strconv.FormatUint(uint64(s), 10)
}

// UnmarshalTOML implements [toml.Unmarshaler].
func (s *Size) UnmarshalTOML(data any) error {
	return (*datasizes.Size)(s).UnmarshalTOML(data)
}

// UnmarshalYAML implements [yaml.Unmarshaler].
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: size must be a scalar", value.Line)
	}

	parsed, err := datasizes.Parse(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*s = Size(parsed)

	return nil
}
