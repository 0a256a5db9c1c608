// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package iso

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/cavaliergopher/cpio"
)

const numLinks = 2

// Module is a file loaded by the bootloader next to the kernel.
type Module struct {
	// Source path on the host.
	Source string
	// Name of the file in the module archive.
	Name string
}

// moduleWriter writes boot modules into a newc cpio archive.
type moduleWriter struct {
	cpioWriter *cpio.Writer
	dirs       map[string]bool
}

func newModuleWriter(w io.Writer) *moduleWriter {
	return &moduleWriter{
		cpioWriter: cpio.NewWriter(w),
		dirs:       map[string]bool{},
	}
}

func (w *moduleWriter) Close() error {
	if err := w.cpioWriter.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

func (w *moduleWriter) writeHeader(hdr *cpio.Header) error {
	if err := w.cpioWriter.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header for %s: %w", hdr.Name, err)
	}

	return nil
}

// writeParents adds directory entries for all parents of name not written
// yet.
func (w *moduleWriter) writeParents(name string) error {
	dir := path.Dir(name)
	if dir == "." || w.dirs[dir] {
		return nil
	}

	if err := w.writeParents(dir); err != nil {
		return err
	}

	w.dirs[dir] = true

	return w.writeHeader(&cpio.Header{
		Name:  dir,
		Mode:  cpio.TypeDir | 0o755,
		Links: numLinks,
	})
}

// WriteModule copies the module's source file into the archive.
func (w *moduleWriter) WriteModule(module Module) error {
	source, err := os.Open(module.Source)
	if err != nil {
		return fmt.Errorf("open module: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("read info: %w", err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, module.Source)
	}

	if err := w.writeParents(module.Name); err != nil {
		return err
	}

	hdr, err := cpio.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create header: %w", err)
	}

	hdr.Name = module.Name

	if err := w.writeHeader(hdr); err != nil {
		return err
	}

	if _, err := io.Copy(w.cpioWriter, source); err != nil {
		return fmt.Errorf("write body for %s: %w", module.Name, err)
	}

	return nil
}

// writeModuleArchive writes all modules into a new archive at dest.
func writeModuleArchive(dest string, modules []Module) error {
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create module archive: %w", err)
	}
	defer file.Close()

	writer := newModuleWriter(file)

	for _, module := range modules {
		if err := writer.WriteModule(module); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close module archive: %w", err)
	}

	return nil
}
