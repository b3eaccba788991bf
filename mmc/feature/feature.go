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

// Package feature implements the MMC-3 GET CONFIGURATION feature table:
// persistent-vs-current feature bits and profile transitions, per
// spec.md §4.C. The sorted-index-vector design replaces the original
// daemon's hand-rolled linked list (spec.md §9 Design Note).
package feature

import "sort"

// Code is a 16-bit MMC feature code.
type Code uint16

// Feature codes implemented, per spec.md §4.C.
const (
	ProfileList        Code = 0x0000
	Core               Code = 0x0001
	Morphing           Code = 0x0002
	RemovableMedium    Code = 0x0003
	RandomReadable     Code = 0x0010
	MultiRead          Code = 0x001D
	CDRead             Code = 0x001E
	DVDRead            Code = 0x001F
	PowerManagement    Code = 0x0100
	CDExternalAudio    Code = 0x0103
	DVDCSS             Code = 0x0106
	RealTimeStreaming  Code = 0x0107
)

// Profile is an MMC profile number, per spec.md §4.C's transition model.
type Profile uint16

const (
	ProfileNone   Profile = 0x0000
	ProfileCDROM  Profile = 0x0008
	ProfileDVDROM Profile = 0x0010
)

// cdromFeatures and dvdromFeatures are the fixed sets whose current bit
// is set when the profile transitions to CDROM/DVDROM, per spec.md §4.C.
var (
	cdromFeatures = map[Code]bool{
		RandomReadable:  true,
		MultiRead:       true,
		CDRead:          true,
		CDExternalAudio: true,
		RealTimeStreaming: true,
	}
	dvdromFeatures = map[Code]bool{
		RandomReadable:    true,
		DVDRead:           true,
		DVDCSS:            true,
		RealTimeStreaming: true,
	}
)

// Feature is a single GET CONFIGURATION descriptor, per spec.md §4.C/§6
// of SPEC_FULL.md ("cdemu-device-features.c" payload layouts).
type Feature struct {
	Code       Code
	Persistent bool
	Current    bool
	Version    byte
	Payload    []byte
}

// Table holds the sorted feature list and supports O(1) lookup by code
// and O(k) iteration for GET CONFIGURATION, per spec.md §9 Design Note.
type Table struct {
	features []Feature   // sorted ascending by Code
	index    map[Code]int
	profile  Profile
}

// NewTable constructs the feature table with every code spec.md §4.C
// names, starting in ProfileNone.
func NewTable() *Table {
	t := &Table{index: make(map[Code]int)}
	codes := []Feature{
		{Code: ProfileList, Persistent: true, Current: true, Payload: profileListPayload(ProfileNone)},
		{Code: Core, Persistent: true, Current: true, Version: 2, Payload: []byte{0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00}},
		{Code: Morphing, Persistent: true, Current: true, Payload: []byte{0x02, 0x00, 0x00, 0x00}},
		{Code: RemovableMedium, Persistent: true, Current: true, Payload: []byte{0x29, 0x00, 0x00, 0x00}},
		{Code: RandomReadable},
		{Code: MultiRead},
		{Code: CDRead, Payload: []byte{0x00, 0x00, 0x00, 0x00}},
		{Code: DVDRead, Payload: []byte{0x00, 0x00, 0x00, 0x00}},
		{Code: PowerManagement, Persistent: true, Current: true},
		{Code: CDExternalAudio, Payload: []byte{0x00, 0x00, 0x00, 0x00}},
		{Code: DVDCSS, Payload: []byte{0x00, 0x00, 0x00, 0x01}},
		{Code: RealTimeStreaming},
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
	t.features = codes
	for i, f := range t.features {
		t.index[f.Code] = i
	}
	return t
}

// Get returns the feature with the given code, if present.
func (t *Table) Get(code Code) (Feature, bool) {
	i, ok := t.index[code]
	if !ok {
		return Feature{}, false
	}
	return t.features[i], true
}

// CurrentProfile returns the profile most recently set via SetProfile.
func (t *Table) CurrentProfile() Profile { return t.profile }

// SetProfile performs the profile transition described in spec.md §4.C:
// clear current on all non-persistent features, then set current on the
// fixed set belonging to the new profile, and update the Profile List
// feature's payload to match.
func (t *Table) SetProfile(p Profile) {
	for i := range t.features {
		if !t.features[i].Persistent {
			t.features[i].Current = false
		}
	}

	var set map[Code]bool
	switch p {
	case ProfileCDROM:
		set = cdromFeatures
	case ProfileDVDROM:
		set = dvdromFeatures
	default:
		set = nil
	}
	for code, want := range set {
		if i, ok := t.index[code]; ok && want {
			t.features[i].Current = true
		}
	}

	t.profile = p
	if i, ok := t.index[ProfileList]; ok {
		t.features[i].Payload = profileListPayload(p)
	}
}

// profileListPayload builds the 0x0000 Profile List feature's payload:
// one 4-byte descriptor per known profile (2-byte number, current bit,
// reserved byte), matching the layout original_source/cdemu-device-features.c
// uses (SPEC_FULL.md §6).
func profileListPayload(current Profile) []byte {
	profiles := []Profile{ProfileCDROM, ProfileDVDROM}
	out := make([]byte, 0, 4*len(profiles))
	for _, p := range profiles {
		cur := byte(0)
		if p == current {
			cur = 0x01
		}
		out = append(out, byte(p>>8), byte(p), cur, 0x00)
	}
	return out
}

// Select implements GET CONFIGURATION's RT field, per spec.md §4.C:
// RT=0 returns all features, RT=1 returns only current features, RT=2
// returns exactly one feature matching startingFeature (or none).
func (t *Table) Select(rt byte, startingFeature Code) []Feature {
	switch rt {
	case 2:
		if f, ok := t.Get(startingFeature); ok {
			return []Feature{f}
		}
		return nil
	case 1:
		var out []Feature
		for _, f := range t.features {
			if f.Code >= startingFeature && f.Current {
				out = append(out, f)
			}
		}
		return out
	default:
		var out []Feature
		for _, f := range t.features {
			if f.Code >= startingFeature {
				out = append(out, f)
			}
		}
		return out
	}
}
