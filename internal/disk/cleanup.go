// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import (
	"context"
	"errors"
	"log/slog"
)

type release struct {
	resource string
	fn       func(ctx context.Context) error
}

// cleanupStack holds the release functions of all acquired resources.
type cleanupStack struct {
	releases []release
}

func (s *cleanupStack) push(resource string, fn func(ctx context.Context) error) {
	s.releases = append(s.releases, release{resource: resource, fn: fn})
}

func (s *cleanupStack) len() int {
	return len(s.releases)
}

// pop releases the most recently acquired resource. It is removed from the
// stack even if the release fails.
func (s *cleanupStack) pop(ctx context.Context) error {
	if len(s.releases) == 0 {
		return nil
	}

	last := s.releases[len(s.releases)-1]
	s.releases = s.releases[:len(s.releases)-1]

	return last.fn(ctx)
}

// unwind releases all resources in reverse order of acquisition. A failing
// release does not stop the remaining ones. All errors are returned joined.
func (s *cleanupStack) unwind(ctx context.Context) error {
	var errs []error

	for len(s.releases) > 0 {
		resource := s.releases[len(s.releases)-1].resource

		if err := s.pop(ctx); err != nil {
			slog.Warn("Release failed",
				slog.String("resource", resource),
				slog.Any("error", err),
			)

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
