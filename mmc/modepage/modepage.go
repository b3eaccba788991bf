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

// Package modepage implements the MMC-3 mode page store: a
// current/default/mask triplet per page with validated MODE SELECT
// writes, per spec.md §4.D. Field layouts are grounded on
// original_source/cdemu-daemon/src/cdemud-mode-pages.h (SPEC_FULL.md §6)
// rather than invented, since spec.md names the pages but not their
// internal byte offsets.
package modepage

import (
	"errors"
	"fmt"
	"sort"
)

// Code identifies a mode page.
type Code byte

// Pages implemented, per spec.md §4.D.
const (
	ErrorRecovery   Code = 0x01
	CDDeviceParams  Code = 0x0D
	CDAudioControl  Code = 0x0E
	PowerCondition  Code = 0x1A
	Capabilities    Code = 0x2A
)

// PC selects which variant MODE SENSE returns, per the SCSI PC field.
type PC byte

const (
	PCCurrent  PC = 0
	PCChangeable PC = 1
	PCDefault  PC = 2
	PCSaved    PC = 3
)

// ErrUnknownPage is returned for a page code the store doesn't implement.
var ErrUnknownPage = errors.New("modepage: unknown page code")

// ErrInvalidParameterList is returned by Select when the proposed bytes
// fail validation, surfaced by the dispatcher as ILLEGAL REQUEST /
// INVALID FIELD IN PARAMETER LIST (26h), per spec.md §4.D.
var ErrInvalidParameterList = errors.New("modepage: invalid parameter list")

// Validator checks a proposed page body (including the 2-byte code/length
// header) for internal consistency beyond what the mask already enforces.
type Validator func(proposed []byte) error

// page holds one page's triplet and validator.
type page struct {
	code      Code
	current   []byte
	def       []byte
	mask      []byte
	validator Validator
}

// Store holds every mode page a device exposes, per spec.md §4.D.
type Store struct {
	pages []*page
	index map[Code]int
}

// NewStore builds the default page set: 0x01, 0x0D, 0x0E, 0x1A, 0x2A.
func NewStore(medium MediumKind) *Store {
	s := &Store{index: make(map[Code]int)}
	s.add(newErrorRecoveryPage())
	s.add(newCDDeviceParamsPage())
	s.add(newCDAudioControlPage())
	s.add(newPowerConditionPage())
	s.add(newCapabilitiesPage(medium))

	sort.Slice(s.pages, func(i, j int) bool { return s.pages[i].code < s.pages[j].code })
	for i, p := range s.pages {
		s.index[p.code] = i
	}
	return s
}

// MediumKind distinguishes CD vs DVD defaults for page 0x2A / the medium
// type byte MODE SENSE's header reports, per spec.md §4.G.
type MediumKind int

const (
	MediumKindCD MediumKind = iota
	MediumKindDVD
)

func (s *Store) add(p *page) { s.pages = append(s.pages, p) }

// Codes returns every page code in ascending order.
func (s *Store) Codes() []Code {
	out := make([]Code, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.code
	}
	return out
}

// Sense returns the page bytes for the requested PC variant, per
// spec.md §4.D: PCCurrent/PCSaved return current, PCDefault returns
// default, PCChangeable returns the mask.
func (s *Store) Sense(code Code, pc PC) ([]byte, error) {
	i, ok := s.index[code]
	if !ok {
		return nil, fmt.Errorf("%w: %#02x", ErrUnknownPage, code)
	}
	p := s.pages[i]
	switch pc {
	case PCDefault:
		return append([]byte(nil), p.def...), nil
	case PCChangeable:
		return append([]byte(nil), p.mask...), nil
	default: // PCCurrent, PCSaved
		return append([]byte(nil), p.current...), nil
	}
}

// Select applies a MODE SELECT write to one page, per spec.md §4.D:
// reject size/code mismatches, apply
// proposed = (current & ~mask) | (proposed & mask), then validate.
func (s *Store) Select(code Code, proposed []byte) error {
	i, ok := s.index[code]
	if !ok {
		return fmt.Errorf("%w: %#02x", ErrUnknownPage, code)
	}
	p := s.pages[i]
	if len(proposed) != len(p.current) {
		return fmt.Errorf("%w: page %#02x length %d, want %d", ErrInvalidParameterList, code, len(proposed), len(p.current))
	}

	merged := make([]byte, len(p.current))
	for i := range merged {
		merged[i] = (p.current[i] &^ p.mask[i]) | (proposed[i] & p.mask[i])
	}

	if p.validator != nil {
		if err := p.validator(merged); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParameterList, err)
		}
	}

	p.current = merged
	return nil
}

// GetBit reads a single bit (0-7, 0 = LSB) from a byte.
func GetBit(b byte, bit uint) bool {
	return b&(1<<bit) != 0
}

// SetBit sets or clears a single bit (0-7, 0 = LSB) in *b.
func SetBit(b *byte, bit uint, v bool) {
	if v {
		*b |= 1 << bit
	} else {
		*b &^= 1 << bit
	}
}
