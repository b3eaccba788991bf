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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cdimaged/cdimaged/iso9660"
)

// SerialFromVolumeID normalizes an ISO9660 volume ID into the serial
// form used as a database key, adapted from the teacher's
// identifier/psx.go serialFromVolumeID: trailing NUL padding is dropped,
// dashes become underscores, and a volume ID carrying more than one
// underscore-separated suffix is truncated to its first two parts (e.g.
// a region/version tag dropped).
func SerialFromVolumeID(volumeID string) string {
	volumeID = strings.TrimRight(volumeID, "\x00")
	if volumeID == "" {
		return ""
	}
	serial := strings.ReplaceAll(volumeID, "-", "_")
	parts := strings.Split(serial, "_")
	if len(parts) > 2 {
		serial = strings.Join(parts[:2], "_")
	}
	return serial
}

// SerialFromFilename derives a fallback serial from an image's file
// name when its volume ID is empty or unrecognized, adapted from the
// teacher's serialFromFilename.
func SerialFromFilename(sourcePath string) string {
	name := filepath.Base(sourcePath)
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return name
}

// openForVolumeID opens path with the ISO9660 reader matching its
// extension, mirroring the teacher's openPlayStationISO dispatch: a
// cue sheet or CHD image is mounted through its own loader, anything
// else is treated as a plain ISO9660 image.
func openForVolumeID(path string) (*iso9660.ISO9660, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return iso9660.OpenCue(path)
	case ".chd":
		return iso9660.OpenCHD(path)
	default:
		return iso9660.Open(path)
	}
}

// IdentifyTitle opens the image at path, derives its serial from the
// volume ID (falling back to the file name), and looks up a title in
// db. It returns the serial it computed even when no title is found,
// so callers can still report the disc's identity.
func IdentifyTitle(db *Database, path string) (serial string, title string, found bool, err error) {
	iso, err := openForVolumeID(path)
	if err != nil {
		return "", "", false, fmt.Errorf("mediadb: open image: %w", err)
	}
	defer func() { _ = iso.Close() }()

	serial = SerialFromVolumeID(iso.GetVolumeID())
	if serial == "" {
		serial = SerialFromFilename(path)
	}

	title, found = db.Lookup(serial)
	return serial, title, found, nil
}
