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

package mediadb

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestSerialFromVolumeID(t *testing.T) {
	cases := []struct {
		volumeID string
		want     string
	}{
		{"", ""},
		{"SLUS-01234", "SLUS_01234"},
		{"SLUS_012_34_56", "SLUS_012"},
		{"SCES00001", "SCES00001"},
	}
	for _, c := range cases {
		if got := SerialFromVolumeID(c.volumeID); got != c.want {
			t.Errorf("SerialFromVolumeID(%q) = %q, want %q", c.volumeID, got, c.want)
		}
	}
}

func TestSerialFromFilename(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/games/Example Game.iso", "Example Game"},
		{"/games/Example Game.iso.gz", "Example Game"},
		{"disc.chd", "disc"},
	}
	for _, c := range cases {
		if got := SerialFromFilename(c.path); got != c.want {
			t.Errorf("SerialFromFilename(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

// writeMinimalISO writes a small ISO9660 image with the given volume
// ID to path, enough for iso9660.Open to parse its PVD.
func writeMinimalISO(t *testing.T, path, volumeID string) {
	t.Helper()
	const blockSize = 2048
	const totalBlocks = 20
	data := make([]byte, totalBlocks*blockSize)

	pvdOffset := 16 * blockSize
	data[pvdOffset] = 0x01
	copy(data[pvdOffset+1:], "CD001")
	data[pvdOffset+6] = 0x01
	copy(data[pvdOffset+40:], volumeID)

	binary.LittleEndian.PutUint32(data[pvdOffset+80:], totalBlocks)
	binary.BigEndian.PutUint32(data[pvdOffset+84:], totalBlocks)
	binary.LittleEndian.PutUint16(data[pvdOffset+120:], 1)
	binary.BigEndian.PutUint16(data[pvdOffset+122:], 1)
	binary.LittleEndian.PutUint16(data[pvdOffset+124:], 1)
	binary.BigEndian.PutUint16(data[pvdOffset+126:], 1)
	binary.LittleEndian.PutUint16(data[pvdOffset+128:], uint16(blockSize))
	binary.BigEndian.PutUint16(data[pvdOffset+130:], uint16(blockSize))
	binary.LittleEndian.PutUint32(data[pvdOffset+132:], 10)
	binary.BigEndian.PutUint32(data[pvdOffset+136:], 10)
	binary.LittleEndian.PutUint32(data[pvdOffset+140:], 18)

	rootDirOffset := pvdOffset + 156
	data[rootDirOffset] = 34
	binary.LittleEndian.PutUint32(data[rootDirOffset+2:], 19)
	binary.BigEndian.PutUint32(data[rootDirOffset+6:], 19)
	binary.LittleEndian.PutUint32(data[rootDirOffset+10:], uint32(blockSize))
	binary.BigEndian.PutUint32(data[rootDirOffset+14:], uint32(blockSize))
	data[rootDirOffset+25] = 0x02
	data[rootDirOffset+32] = 1

	rootOffset := 19 * blockSize
	data[rootOffset] = 34
	binary.LittleEndian.PutUint32(data[rootOffset+2:], 19)
	binary.BigEndian.PutUint32(data[rootOffset+6:], 19)
	binary.LittleEndian.PutUint32(data[rootOffset+10:], uint32(blockSize))
	binary.BigEndian.PutUint32(data[rootOffset+14:], uint32(blockSize))
	data[rootOffset+25] = 0x02
	data[rootOffset+32] = 1

	parentOffset := rootOffset + 34
	data[parentOffset] = 34
	binary.LittleEndian.PutUint32(data[parentOffset+2:], 19)
	binary.BigEndian.PutUint32(data[parentOffset+6:], 19)
	binary.LittleEndian.PutUint32(data[parentOffset+10:], uint32(blockSize))
	binary.BigEndian.PutUint32(data[parentOffset+14:], uint32(blockSize))
	data[parentOffset+25] = 0x02
	data[parentOffset+32] = 1
	data[parentOffset+33] = 0x01

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("write test ISO: %v", err)
	}
}

func TestIdentifyTitleFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.iso")
	writeMinimalISO(t, path, "SLUS-01234")

	db := NewDatabase()
	db.Titles["SLUS_01234"] = "Test Game"

	serial, title, found, err := IdentifyTitle(db, path)
	if err != nil {
		t.Fatalf("IdentifyTitle: %v", err)
	}
	if serial != "SLUS_01234" {
		t.Errorf("serial = %q, want SLUS_01234", serial)
	}
	if !found || title != "Test Game" {
		t.Errorf("title = (%q, %v), want (Test Game, true)", title, found)
	}
}

func TestIdentifyTitleNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.iso")
	writeMinimalISO(t, path, "SLUS-99999")

	db := NewDatabase()
	_, _, found, err := IdentifyTitle(db, path)
	if err != nil {
		t.Fatalf("IdentifyTitle: %v", err)
	}
	if found {
		t.Fatal("found = true for a serial not present in the database")
	}
}
