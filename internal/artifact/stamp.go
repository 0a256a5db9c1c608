// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package artifact

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Entry is the recorded state of a single output.
type Entry struct {
	Path    string `cbor:"1,keyasint"`
	Size    int64  `cbor:"2,keyasint"`
	ModTime int64  `cbor:"3,keyasint"`
	Digest  Digest `cbor:"4,keyasint"`
}

// Matches reports whether the entry was recorded for exactly this content
// and modification time.
func (e Entry) Matches(info Info) bool {
	return e.Size == info.Size && e.ModTime == info.ModTime.UnixNano()
}

// Stamp is written after a stage completed successfully. It records the
// outputs the stage produced.
type Stamp struct {
	Stage   string  `cbor:"1,keyasint"`
	Outputs []Entry `cbor:"2,keyasint"`
}

// Lookup returns the entry for the given path.
func (s *Stamp) Lookup(path string) (Entry, bool) {
	for _, entry := range s.Outputs {
		if entry.Path == path {
			return entry, true
		}
	}

	return Entry{}, false
}

// NewEntry records the current state of the output at path.
func NewEntry(path string) (Entry, error) {
	info, err := Stat(path)
	if err != nil {
		return Entry{}, err
	}

	if !info.Exists {
		return Entry{}, &StaleError{Path: path, Reason: ErrMissing}
	}

	digest, err := HashFile(path)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Path:    path,
		Size:    info.Size,
		ModTime: info.ModTime.UnixNano(),
		Digest:  digest,
	}, nil
}

var (
	stampEncMode cbor.EncMode
	stampDecMode cbor.DecMode
)

func init() {
	var err error

	stampEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("artifact: CBOR encoder initialization failed: " + err.Error())
	}

	stampDecMode, err = cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic("artifact: CBOR decoder initialization failed: " + err.Error())
	}
}

// MarshalStamp encodes the stamp deterministically. Equal stamps always
// produce identical bytes.
func MarshalStamp(stamp *Stamp) ([]byte, error) {
	data, err := stampEncMode.Marshal(stamp)
	if err != nil {
		return nil, fmt.Errorf("encode stamp: %w", err)
	}

	return data, nil
}

// UnmarshalStamp decodes a stamp written by [MarshalStamp].
func UnmarshalStamp(data []byte) (*Stamp, error) {
	var stamp Stamp

	if err := stampDecMode.Unmarshal(data, &stamp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStamp, err)
	}

	return &stamp, nil
}
