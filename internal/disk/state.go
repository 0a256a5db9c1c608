// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package disk

import "strconv"

// State of a [Provisioner]. States are entered strictly in order.
type State int

const (
	Unallocated State = iota
	Sized
	Partitioned
	LoopAttached
	Formatted
	Mounted
	Populated
	Unmounted
	LoopDetached
	Ready
)

var stateNames = [...]string{
	Unallocated:  "unallocated",
	Sized:        "sized",
	Partitioned:  "partitioned",
	LoopAttached: "loop-attached",
	Formatted:    "formatted",
	Mounted:      "mounted",
	Populated:    "populated",
	Unmounted:    "unmounted",
	LoopDetached: "loop-detached",
	Ready:        "ready",
}

// String implements [fmt.Stringer].
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "state(" + strconv.Itoa(int(s)) + ")"
	}

	return stateNames[s]
}
