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

import "errors"

// Device-supervisor errors, per spec.md §4.I.
var (
	ErrAlreadyLoaded = errors.New("mmc: device already has a disc loaded")
	ErrLocked        = errors.New("mmc: medium removal prevented, device is locked")
	ErrUnknownOption = errors.New("mmc: unrecognized device option")
	ErrParser        = errors.New("mmc: image parser error")
)
