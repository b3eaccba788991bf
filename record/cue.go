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

// Package record implements spec.md §4.J's recording emulation boundary:
// SEND CUE SHEET parses a Session-At-Once cue sheet into a synthetic
// session layout, and a Recorder tracks sequential writes against it
// with a next-writable-address, so burner tools probing a blank
// recordable medium see plausible READ DISC/TRACK INFORMATION data.
// The line-scanning style is grounded on iso9660/cue.go's ParseCue
// (bufio.Scanner, lower-cased prefix matching), extended here to read
// TRACK/INDEX/ISRC/FLAGS lines from an in-memory byte slice instead of a
// file path, since the cue sheet arrives as SCSI CDB data-out rather
// than on disk.
package record

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/sector"
)

// ErrMalformedCue is returned when a cue sheet line cannot be parsed.
var ErrMalformedCue = fmt.Errorf("record: malformed cue sheet")

// CueTrack is one TRACK block of a parsed cue sheet.
type CueTrack struct {
	Number  int
	Mode    sector.Mode
	Flags   disc.TrackFlags
	ISRC    string
	Indices []disc.IndexPoint
}

// CueSheet is the parsed form of a SEND CUE SHEET payload.
type CueSheet struct {
	Tracks []CueTrack
}

// ParseCueSheet parses a SAO cue sheet out of data, per spec.md §4.J.
// Only the fields the recording emulation needs are recognized: TRACK
// (number + mode token), INDEX (number + MM:SS:FF), ISRC, and FLAGS;
// FILE lines are accepted but ignored since recorded data is never
// actually read back from a real backing file.
func ParseCueSheet(data []byte) (*CueSheet, error) {
	sheet := &CueSheet{}
	var cur *CueTrack

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		keyword := strings.ToUpper(fields[0])

		switch keyword {
		case "FILE":
			continue

		case "TRACK":
			if cur != nil {
				sheet.Tracks = append(sheet.Tracks, *cur)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: TRACK line %q", ErrMalformedCue, line)
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w: TRACK number %q", ErrMalformedCue, fields[1])
			}
			mode, flags, err := parseModeToken(fields[2])
			if err != nil {
				return nil, err
			}
			cur = &CueTrack{Number: number, Mode: mode, Flags: flags}

		case "INDEX":
			if cur == nil {
				return nil, fmt.Errorf("%w: INDEX before TRACK", ErrMalformedCue)
			}
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: INDEX line %q", ErrMalformedCue, line)
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w: INDEX number %q", ErrMalformedCue, fields[1])
			}
			m, s, f, err := parseMSF(fields[2])
			if err != nil {
				return nil, err
			}
			// Cue sheet INDEX times count from the start of the program
			// area, so 00:00:00 is LBA 0 (no 150-sector lead-in offset).
			cur.Indices = append(cur.Indices, disc.IndexPoint{
				Number: number,
				LBA:    (int64(m)*60+int64(s))*75 + int64(f),
			})

		case "ISRC":
			if cur == nil {
				return nil, fmt.Errorf("%w: ISRC before TRACK", ErrMalformedCue)
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: ISRC line %q", ErrMalformedCue, line)
			}
			cur.ISRC = fields[1]

		case "FLAGS":
			if cur == nil {
				return nil, fmt.Errorf("%w: FLAGS before TRACK", ErrMalformedCue)
			}
			for _, flag := range fields[1:] {
				switch strings.ToUpper(flag) {
				case "DCP":
					cur.Flags |= disc.FlagCopyPermitted
				case "4CH":
					cur.Flags |= disc.FlagFourChannel
				case "PRE":
					cur.Flags |= disc.FlagPreEmphasis
				}
			}

		default:
			// REM, CATALOG, PERFORMER, TITLE and other descriptive lines
			// carry no recording-emulation semantics; ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("record: scan cue sheet: %w", err)
	}
	if cur != nil {
		sheet.Tracks = append(sheet.Tracks, *cur)
	}
	if len(sheet.Tracks) == 0 {
		return nil, fmt.Errorf("%w: no TRACK lines", ErrMalformedCue)
	}
	return sheet, nil
}

// parseModeToken maps a cue sheet TRACK mode token to a sector.Mode and
// the control bits it implies (AUDIO tracks carry no data-track flag;
// every MODE1/MODE2 variant does), per spec.md §4.J.
func parseModeToken(tok string) (sector.Mode, disc.TrackFlags, error) {
	switch strings.ToUpper(tok) {
	case "AUDIO":
		return sector.ModeAudio, 0, nil
	case "MODE1/2048", "MODE1/2352":
		return sector.Mode1, disc.FlagDataTrack, nil
	case "MODE2/2336", "MODE2/2352":
		return sector.Mode2Formless, disc.FlagDataTrack, nil
	case "CDI/2336", "CDI/2352":
		return sector.Mode2Form1, disc.FlagDataTrack, nil
	default:
		return 0, 0, fmt.Errorf("%w: TRACK mode %q", ErrMalformedCue, tok)
	}
}

// parseMSF parses an "MM:SS:FF" timestamp.
func parseMSF(tok string) (m, s, f byte, err error) {
	parts := strings.Split(tok, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: timestamp %q", ErrMalformedCue, tok)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, convErr := strconv.Atoi(p)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: timestamp %q", ErrMalformedCue, tok)
		}
		vals[i] = v
	}
	return byte(vals[0]), byte(vals[1]), byte(vals[2]), nil
}
