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

package image

import (
	"fmt"
	"os"
	"strings"

	"github.com/cdimaged/cdimaged/archive"
	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/sector"
)

// ParseRaw builds a single-track Mode-1 disc out of a plain .iso/.img/
// .bin file, per spec.md §4.B's simplest case: one data track of
// 2048-byte user-data sectors with no sync/header bytes stored. A
// trailing ".xz"/".zst" suffix is transparently decompressed through
// this package's xzfragment/zstdfragment wrappers.
func ParseRaw(path string) (*disc.Disc, error) {
	reader, size, closer, err := openPossiblyCompressed(path)
	if err != nil {
		return nil, err
	}
	_ = closer // kept open for the process lifetime; the daemon never closes a mounted image early

	return buildRawDisc(reader, size)
}

func parseRawFromArchive(arc archive.Archive, internalPath string) (*disc.Disc, error) {
	reader, size, _, err := arc.OpenReaderAt(internalPath)
	if err != nil {
		return nil, fmt.Errorf("image: open archive member %s: %w", internalPath, err)
	}
	return buildRawDisc(reader, size)
}

func buildRawDisc(reader readerAt, size int64) (*disc.Disc, error) {
	const sectorSize = 2048
	length := size / sectorSize
	if length == 0 {
		return nil, fmt.Errorf("image: raw image too small (%d bytes)", size)
	}

	frag := disc.NewBinaryFragment(reader, length, disc.BinaryFragmentOptions{
		MainSectorSize: sectorSize,
		HasSyncHeader:  false,
	})
	track, err := disc.NewTrack(1, sector.Mode1, disc.FlagDataTrack, []disc.Fragment{frag})
	if err != nil {
		return nil, fmt.Errorf("image: build track: %w", err)
	}
	session, err := disc.NewSession(disc.SessionCDROM, 1, 0, 0, []*disc.Track{track})
	if err != nil {
		return nil, fmt.Errorf("image: build session: %w", err)
	}
	return disc.NewDisc(disc.MediumCD, []*disc.Session{session})
}

// openPossiblyCompressed opens path for random access, transparently
// decompressing a ".xz" or ".zst" suffix via the corresponding
// sub-package, per SPEC_FULL.md §3's xz/zstd DOMAIN STACK entries.
func openPossiblyCompressed(path string) (readerAt, int64, func() error, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".xz"):
		return openXZ(path)
	case strings.HasSuffix(strings.ToLower(path), ".zst"):
		return openZstd(path)
	default:
		f, err := os.Open(path) //nolint:gosec // path comes from a trusted CLI/config source
		if err != nil {
			return nil, 0, nil, fmt.Errorf("image: open %s: %w", path, err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, 0, nil, fmt.Errorf("image: stat %s: %w", path, err)
		}
		return f, info.Size(), f.Close, nil
	}
}

// readerAt is the minimal interface buildRawDisc needs; both *os.File
// and archive.Archive's OpenReaderAt results satisfy it.
type readerAt interface {
	ReadAt(p []byte, off int64) (int, error)
}
