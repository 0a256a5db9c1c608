// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a config file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf derives the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads the config file at path on top of the [Default] values and
// validates the result.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Default()

	if err := Decode(file, format, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOptional is like [Load] but returns the [Default] config if the file
// does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Config file not found, using defaults",
			slog.String("path", path))

		return Default(), nil
	}

	return cfg, err
}

// Decode reads the config from r into cfg. Fields not present in the input
// keep their value. Unknown keys are an error.
func Decode(r io.Reader, format Format, cfg *Config) error {
	switch format {
	case FormatTOML:
		meta, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}

			return fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
		}

		return nil
	case FormatYAML:
		decoder := yaml.NewDecoder(r)
		decoder.KnownFields(true)

		err := decoder.Decode(cfg)
		if errors.Is(err, io.EOF) {
			// Empty document.
			return nil
		}

		return err //nolint:wrapcheck
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
