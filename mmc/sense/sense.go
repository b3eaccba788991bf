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

// Package sense implements the deferred sense slot, unit-attention
// queue, and media-event bitset of spec.md §4.E. The fixed 18-byte
// REQUEST SENSE layout is grounded on original_source/cdemu-daemon/src/
// cdemu-device-kernel-io.c's cdemu_device_write_sense_full (SPEC_FULL.md
// §6), which fixes response code 0x70, the ASC/ASCQ split, the ILI bit,
// and big-endian command-info bytes.
package sense

import "sync"

// Key is a SCSI sense key (low nibble of byte 2 in fixed sense data).
type Key byte

const (
	KeyNoSense        Key = 0x00
	KeyNotReady       Key = 0x02
	KeyMediumError    Key = 0x03
	KeyIllegalRequest Key = 0x05
	KeyUnitAttention  Key = 0x06
)

// Common ASC/ASCQ pairs referenced by spec.md §7's error table, packed
// as (ASC<<8 | ASCQ).
const (
	ASCInvalidFieldInCDB           uint16 = 0x2400
	ASCInvalidFieldInParameterList uint16 = 0x2600
	ASCMediumNotPresent            uint16 = 0x3A00
	ASCLogicalUnitNotReady         uint16 = 0x0400
	ASCUnrecoveredReadError        uint16 = 0x1100
	ASCPowerOnResetOccurred        uint16 = 0x2900
	ASCNotReadyToReadyTransition   uint16 = 0x2800
	ASCIllegalModeForThisTrack     uint16 = 0x6400
	ASCMediumRemovalPrevented      uint16 = 0x5302
)

// Data is one pending sense condition: (key, asc, ascq, ili, cmd_info),
// per spec.md §4.E.
type Data struct {
	Key        Key
	ASCASCQ    uint16
	ILI        bool
	CommandInfo uint32
}

// fixedSenseLength is the REQUEST SENSE fixed format's total length,
// per spec.md §6's "REQUEST SENSE fixed format (18 bytes)".
const fixedSenseLength = 18

// Bytes renders d into the 18-byte fixed sense format: response code
// 0x70, sense key in the low nibble of byte 2 (ILI in bit 5), command
// info at bytes 3-6 big-endian, additional sense length 10 at byte 7,
// ASC at byte 12, ASCQ at byte 13.
func (d Data) Bytes() []byte {
	b := make([]byte, fixedSenseLength)
	b[0] = 0x70
	b[2] = byte(d.Key) & 0x0F
	if d.ILI {
		b[2] |= 0x20
	}
	b[3] = byte(d.CommandInfo >> 24)
	b[4] = byte(d.CommandInfo >> 16)
	b[5] = byte(d.CommandInfo >> 8)
	b[6] = byte(d.CommandInfo)
	b[7] = 10
	b[12] = byte(d.ASCASCQ >> 8)
	b[13] = byte(d.ASCASCQ)
	return b
}

// MediaEvent is a bit in the media-event class spec.md §4.E names,
// tracked per class so GET EVENT/STATUS NOTIFICATION can report and
// clear the highest-priority pending one.
type MediaEvent uint8

const (
	EventNone           MediaEvent = 0
	EventNewMedia       MediaEvent = 1 << 0
	EventMediaRemoval   MediaEvent = 1 << 1
	EventEjectRequest   MediaEvent = 1 << 2
)

// State holds one device's deferred sense slot, unit-attention flag,
// and pending media-event bitset, guarded by a mutex since it is
// touched from both the MMC dispatcher goroutine and the audio engine
// task, per spec.md §4.E/§4.I.
type State struct {
	mu sync.Mutex

	pending    *Data
	unitAttn   *Data
	mediaEvents MediaEvent
}

// New returns a State with no pending sense and no unit attention.
func New() *State {
	return &State{}
}

// Defer latches a sense condition, overwriting whatever REQUEST SENSE
// has not yet consumed; this mirrors every MMC handler calling
// cdemu_device_write_sense on failure.
func (s *State) Defer(d Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := d
	s.pending = &cp
}

// DeferSimple is a convenience wrapper for the common (key, ascAscq)
// case with ILI clear and no command info.
func (s *State) DeferSimple(key Key, ascAscq uint16) {
	s.Defer(Data{Key: key, ASCASCQ: ascAscq})
}

// TakePending returns and clears the latched sense condition for
// REQUEST SENSE, per spec.md §4.E. If nothing is pending, it returns
// the all-zero NO SENSE condition REQUEST SENSE reports when idle.
func (s *State) TakePending() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Data{Key: KeyNoSense}
	}
	d := *s.pending
	s.pending = nil
	return d
}

// RaiseUnitAttention arms a unit-attention condition that the dispatcher's
// precondition check emits as a synthetic CHECK CONDITION on the first
// non-REQUEST-SENSE / non-INQUIRY command, per spec.md §4.G step 1.
func (s *State) RaiseUnitAttention(ascAscq uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitAttn = &Data{Key: KeyUnitAttention, ASCASCQ: ascAscq}
}

// TakeUnitAttention returns and clears the pending unit-attention
// condition, if any. The dispatcher calls this once per command,
// before any opcode-specific handling.
func (s *State) TakeUnitAttention() (Data, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unitAttn == nil {
		return Data{}, false
	}
	d := *s.unitAttn
	s.unitAttn = nil
	return d, true
}

// SetMediaEvent latches a media-event class bit, per spec.md §4.E
// ("when a disc is loaded or unloaded, the new-medium / medium-removal
// bit is set").
func (s *State) SetMediaEvent(e MediaEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaEvents |= e
}

// TakeMediaEvent returns the highest-priority pending media-event bit
// (lowest bit value wins ties, matching the class-request mask priority
// spec.md §4.E describes) and clears only that bit, leaving any others
// pending for a later GET EVENT/STATUS NOTIFICATION call.
func (s *State) TakeMediaEvent(classMask MediaEvent) (MediaEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.mediaEvents & classMask
	if pending == 0 {
		return EventNone, false
	}
	for bit := MediaEvent(1); bit != 0; bit <<= 1 {
		if pending&bit != 0 {
			s.mediaEvents &^= bit
			return bit, true
		}
	}
	return EventNone, false
}
