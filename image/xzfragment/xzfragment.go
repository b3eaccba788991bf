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

// Package xzfragment adapts an xz-compressed image file into an
// io.ReaderAt, so a ".iso.xz"/".bin.xz" source can back a disc.Fragment
// the same way a plain file does. xz has no seek table, so the whole
// stream is decompressed once into memory at open time; this mirrors
// the teacher's archive.bufferFile strategy for archive members that
// otherwise couldn't support random access (SPEC_FULL.md §3).
package xzfragment

import (
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// Open decompresses the xz stream at path fully into memory and returns
// a ReaderAt over the decoded bytes along with their total length.
func Open(path string) (io.ReaderAt, int64, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a trusted CLI/config source
	if err != nil {
		return nil, 0, fmt.Errorf("xzfragment: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, 0, fmt.Errorf("xzfragment: new xz reader: %w", err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("xzfragment: decompress %s: %w", path, err)
	}
	return bytesReaderAt(data), int64(len(data)), nil
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("xzfragment: negative offset %d", off)
	}
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
