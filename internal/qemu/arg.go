// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: MIT

package qemu

import (
	"fmt"
	"slices"
	"strings"
)

// Argument is a single QEMU option like "-m 512" or "-no-reboot".
//
// Unless created with [RepeatableArg], its name may occur only once in an
// argument list.
type Argument struct {
	name       string
	value      string
	repeatable bool
}

// String implements [fmt.Stringer].
func (a Argument) String() string {
	s := "-" + a.name
	if a.value != "" {
		s += " " + a.value
	}

	return s
}

// Name returns the name of the [Argument].
func (a Argument) Name() string {
	return a.name
}

// Value returns the value of the [Argument].
func (a Argument) Value() string {
	return a.value
}

// Equal reports whether both arguments would collide. Unique arguments
// collide by name, repeatable ones only if the value is the same as well.
func (a Argument) Equal(other Argument) bool {
	switch {
	case a.name != other.name:
		return false
	case a.repeatable:
		return a.value == other.value
	default:
		return true
	}
}

// UniqueArg creates an [Argument] that may be given only once. Multiple
// values are joined by commas.
func UniqueArg(name string, value ...string) Argument {
	return Argument{name: name, value: strings.Join(value, ",")}
}

// RepeatableArg creates an [Argument] that may be given multiple times with
// different values. Multiple values are joined by commas.
func RepeatableArg(name string, value ...string) Argument {
	return Argument{name: name, value: strings.Join(value, ","), repeatable: true}
}

// uniqueNames are the names of arguments QEMU accepts only once. Extra
// arguments using them collide with the ones set by [CommandSpec].
var uniqueNames = []string{
	"accel",
	"cdrom",
	"cpu",
	"gdb",
	"m",
	"machine",
	"no-reboot",
	"no-shutdown",
	"S",
}

// ParseArguments converts raw command line words like "-device",
// "virtio-rng-pci" into [Argument]s. A word starting with "-" is a name, an
// immediately following word that does not is its value.
func ParseArguments(words []string) ([]Argument, error) {
	args := make([]Argument, 0, len(words))

	for idx := 0; idx < len(words); idx++ {
		name, isName := strings.CutPrefix(words[idx], "-")
		if !isName || name == "" {
			return nil, &ArgumentError{"expected argument name: " + words[idx]}
		}

		var value string

		if next := idx + 1; next < len(words) &&
			!strings.HasPrefix(words[next], "-") {
			value = words[next]
			idx = next
		}

		arg := RepeatableArg(name, value)
		if slices.Contains(uniqueNames, name) {
			arg = UniqueArg(name, value)
		}

		args = append(args, arg)
	}

	return args, nil
}

// BuildArgumentStrings flattens the [Argument]s into the words of a command
// line in the given order. It fails with [ErrArgumentCollision] if any two
// arguments collide.
func BuildArgumentStrings(args []Argument) ([]string, error) {
	words := make([]string, 0, 2*len(args))

	for idx, arg := range args {
		earlier := slices.IndexFunc(args[:idx], arg.Equal)
		if earlier >= 0 {
			return nil, fmt.Errorf("%w: %s and %s",
				ErrArgumentCollision, args[earlier], arg)
		}

		words = append(words, "-"+arg.name)
		if arg.value != "" {
			words = append(words, arg.value)
		}
	}

	return words, nil
}
