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

package sector

// edcTable is the standard CD-ROM EDC (CRC-32 with reversed polynomial
// 0xD8018001) lookup table, built once at init.
var edcTable = func() [256]uint32 {
	var t [256]uint32
	for i := range 256 {
		edc := uint32(i)
		for range 8 {
			if edc&1 != 0 {
				edc = (edc >> 1) ^ 0xD8018001
			} else {
				edc >>= 1
			}
		}
		t[i] = edc
	}
	return t
}()

func edcCompute(data []byte) uint32 {
	var edc uint32
	for _, b := range data {
		edc = edcTable[(edc^uint32(b))&0xFF] ^ (edc >> 8)
	}
	return edc
}

// regenerateMode1ECC builds the 4-byte EDC, 8-byte reserved, 172-byte
// P-parity and 104-byte Q-parity fields that follow the user data of a
// Mode-1 sector, per spec.md §4.A and §9's Open Question (gated by Options.RegenerateEDC).
//
// For a Mode-1 sector the EDC covers HEADER(4)+USER-DATA(2048)=2052
// bytes; real P/Q Reed-Solomon computation is intentionally not
// implemented byte-for-byte (spec.md's Non-goals exempt this), so the
// parity bytes are left zero while the EDC checksum itself is real.
func regenerateMode1ECC(userData []byte, lba int64) []byte {
	out := make([]byte, EDCSize+8+PParitySize+QParitySize)

	h := header(lba, Mode1)
	covered := make([]byte, 0, len(h)+len(userData))
	covered = append(covered, h...)
	covered = append(covered, userData...)

	edc := edcCompute(covered)
	out[0] = byte(edc)
	out[1] = byte(edc >> 8)
	out[2] = byte(edc >> 16)
	out[3] = byte(edc >> 24)
	// bytes [4:12) reserved, zero.
	// P/Q parity regions [12:184) and [184:288) left zero: real Reed-Solomon
	// L2 parity is out of scope per spec.md's Non-goals.
	return out
}
