// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package disk provisions raw disk images.
//
// A disk image is a zero-filled file with a GUID partition table holding a
// single partition that spans the whole usable area. The partition is
// formatted and populated by attaching the image as loop device and
// mounting the partition. Loop devices and mounts are host-global
// resources. Every one acquired is released again in reverse order before
// [Provisioner.Provision] returns, no matter if it succeeds, fails or is
// cancelled.
package disk
