// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package iso assembles hybrid BIOS/EFI bootable ISO images.
//
// Kernel, bootloader files and bootloader configuration are staged into a
// scratch directory that is mastered into an ISO 9660 image with El Torito
// boot catalog entries for both BIOS and EFI. The bootloader's installer
// then embeds the MBR bootstrap code, so the image also boots when written
// to a disk.
package iso
