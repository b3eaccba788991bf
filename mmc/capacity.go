// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of cdimaged.
//
// cdimaged is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cdimaged is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cdimaged.  If not, see <https://www.gnu.org/licenses/>.

package mmc

// handleReadCapacity implements READ CAPACITY (25h), per spec.md
// §4.G: returns the last LBA (capacity - 1) and the logical block
// size, 2048.
func handleReadCapacity(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	buf := make([]byte, 8)
	putBE32(buf[0:4], uint32(dev.d.LastLBA()))
	putBE32(buf[4:8], 2048)
	n := clamp(len(buf), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}
