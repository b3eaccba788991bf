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

// Package zstdfragment adapts a zstd-compressed image file into an
// io.ReaderAt, the zstd counterpart of image/xzfragment, grounded on
// the teacher's own use of github.com/klauspost/compress for CHD hunk
// decompression (chd/codec_zstd.go).
package zstdfragment

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Open decompresses the zstd stream at path fully into memory and
// returns a ReaderAt over the decoded bytes along with their length.
func Open(path string) (io.ReaderAt, int64, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a trusted CLI/config source
	if err != nil {
		return nil, 0, fmt.Errorf("zstdfragment: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, 0, fmt.Errorf("zstdfragment: new zstd reader: %w", err)
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("zstdfragment: decompress %s: %w", path, err)
	}
	return bytesReaderAt(data), int64(len(data)), nil
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("zstdfragment: negative offset %d", off)
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
