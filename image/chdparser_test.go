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
	"testing"

	"github.com/cdimaged/cdimaged/sector"
)

func TestChdTrackMode(t *testing.T) {
	cases := []struct {
		trackType string
		wantMode  sector.Mode
	}{
		{"AUDIO", sector.ModeAudio},
		{"MODE1/2048", sector.Mode1},
		{"MODE1/2352", sector.Mode1},
		{"MODE2/2048", sector.Mode2Form1},
		{"MODE2/2336", sector.Mode2Formless},
		{"MODE2/2352", sector.Mode2Formless},
	}
	for _, c := range cases {
		mode, _, err := chdTrackMode(c.trackType)
		if err != nil {
			t.Errorf("chdTrackMode(%q): %v", c.trackType, err)
			continue
		}
		if mode != c.wantMode {
			t.Errorf("chdTrackMode(%q) = %v, want %v", c.trackType, mode, c.wantMode)
		}
	}
}

func TestChdTrackModeUnknown(t *testing.T) {
	if _, _, err := chdTrackMode("NONSENSE"); err == nil {
		t.Fatal("expected error for unrecognized CHD track type")
	}
}
