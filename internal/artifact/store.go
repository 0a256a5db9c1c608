// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const stampSuffix = ".stamp"

// Store keeps the completion stamps of all stages in a state directory.
type Store struct {
	Dir string
}

// StampPath returns the path of the completion stamp of the given stage.
func (s *Store) StampPath(stage string) string {
	return filepath.Join(s.Dir, stage+stampSuffix)
}

func validateStage(stage string) error {
	if stage == "" || strings.ContainsAny(stage, `/\`) || stage == "." || stage == ".." {
		return fmt.Errorf("%w: %q", ErrStageNameInvalid, stage)
	}

	return nil
}

// Load reads the completion stamp of the given stage. It returns nil
// without error if the stage has none.
func (s *Store) Load(stage string) (*Stamp, error) {
	if err := validateStage(stage); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.StampPath(stage))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil
	} else if err != nil {
		return nil, fmt.Errorf("read stamp: %w", err)
	}

	stamp, err := UnmarshalStamp(data)
	if err != nil {
		return nil, fmt.Errorf("stamp of %s: %w", stage, err)
	}

	if stamp.Stage != stage {
		return nil, fmt.Errorf("stamp of %s: %w: recorded for %q", stage, ErrInvalidStamp, stamp.Stage)
	}

	return stamp, nil
}

// Fresh checks all outputs of a stage against its inputs and its
// completion stamp. It returns nil if all outputs are fresh and a
// [StaleError] for the first output that is not.
//
// An unreadable stamp is treated like a missing one.
func (s *Store) Fresh(stage string, outputs, inputs []string) error {
	stamp, err := s.Load(stage)
	if errors.Is(err, ErrInvalidStamp) {
		slog.Warn("Ignore invalid stamp", slog.String("stage", stage), slog.Any("error", err))

		stamp = nil
	} else if err != nil {
		return err
	}

	newestInput, err := Newest(inputs)
	if err != nil {
		return err
	}

	for _, path := range outputs {
		output, err := Stat(path)
		if err != nil {
			return err
		}

		var entry *Entry

		if stamp != nil {
			if recorded, ok := stamp.Lookup(path); ok {
				entry = &recorded
			}
		}

		err = Check(output, newestInput, entry, func() (Digest, error) {
			return HashFile(path)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Record writes the completion stamp for a stage whose outputs have just
// been produced. The stamp is written to a temporary file first and renamed
// into place, so a stamp is either complete or absent.
func (s *Store) Record(stage string, outputs []string) error {
	if err := validateStage(stage); err != nil {
		return err
	}

	stamp := Stamp{
		Stage:   stage,
		Outputs: make([]Entry, 0, len(outputs)),
	}

	for _, path := range outputs {
		entry, err := NewEntry(path)
		if err != nil {
			return fmt.Errorf("record %s: %w", stage, err)
		}

		stamp.Outputs = append(stamp.Outputs, entry)
	}

	data, err := MarshalStamp(&stamp)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, stage+stampSuffix+".*")
	if err != nil {
		return fmt.Errorf("create stamp: %w", err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), s.StampPath(stage))
	}

	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write stamp: %w", err)
	}

	slog.Debug("Stamp recorded", slog.String("stage", stage))

	return nil
}

// Invalidate removes the completion stamp of the stage. All its outputs are
// stale afterwards until [Store.Record] is called again.
func (s *Store) Invalidate(stage string) error {
	if err := validateStage(stage); err != nil {
		return err
	}

	err := os.Remove(s.StampPath(stage))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stamp: %w", err)
	}

	return nil
}
