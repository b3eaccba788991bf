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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRawSingleTrack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.iso")
	data := make([]byte, 10*2048)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("write test image: %v", err)
	}

	d, err := ParseRaw(path)
	if err != nil {
		t.Fatalf("ParseRaw: %v", err)
	}
	if got := d.LastLBA(); got != 9 {
		t.Errorf("LastLBA = %d, want 9", got)
	}
	if len(d.Sessions) != 1 || len(d.Sessions[0].Tracks) != 1 {
		t.Fatalf("expected a single session/track, got %+v", d.Sessions)
	}
}

func TestParseRawTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.iso")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("write test image: %v", err)
	}
	if _, err := ParseRaw(path); err == nil {
		t.Fatal("expected error for an image smaller than one sector")
	}
}

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.xyz")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("write test file: %v", err)
	}
	_, err := Open(path)
	var unsupported ErrUnsupportedFormat
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
}
