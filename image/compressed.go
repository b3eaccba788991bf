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

	"github.com/cdimaged/cdimaged/image/xzfragment"
	"github.com/cdimaged/cdimaged/image/zstdfragment"
)

func openXZ(path string) (readerAt, int64, func() error, error) {
	r, size, err := xzfragment.Open(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("image: %w", err)
	}
	return r, size, func() error { return nil }, nil
}

func openZstd(path string) (readerAt, int64, func() error, error) {
	r, size, err := zstdfragment.Open(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("image: %w", err)
	}
	return r, size, func() error { return nil }, nil
}
