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

import (
	"bytes"

	"github.com/cdimaged/cdimaged/internal/binary"
	"github.com/cdimaged/cdimaged/mmc/sense"
)

// Opcode is an MMC CDB operation code.
type Opcode byte

// Opcodes implemented, per spec.md §1 and §4.G.
const (
	OpTestUnitReady            Opcode = 0x00
	OpRequestSense             Opcode = 0x03
	OpInquiry                  Opcode = 0x12
	OpModeSelect6              Opcode = 0x15
	OpModeSense6               Opcode = 0x1A
	OpStartStopUnit            Opcode = 0x1B
	OpPreventAllowMediumRemove Opcode = 0x1E
	OpReadCapacity             Opcode = 0x25
	OpWrite10                  Opcode = 0x2A
	OpRead10                   Opcode = 0x28
	OpPlayAudio10              Opcode = 0x45
	OpPlayAudioMSF             Opcode = 0x47
	OpGetConfiguration         Opcode = 0x46
	OpPauseResume              Opcode = 0x4B
	OpStopPlay                 Opcode = 0x4E
	OpGetEventStatusNotify     Opcode = 0x4A
	OpReadSubChannel           Opcode = 0x42
	OpReadTOC                  Opcode = 0x43
	OpReadHeader               Opcode = 0x44
	OpReadDiscInformation      Opcode = 0x51
	OpReadTrackInformation     Opcode = 0x52
	OpModeSelect10             Opcode = 0x55
	OpModeSense10              Opcode = 0x5A
	OpCloseTrackSession        Opcode = 0x5B
	OpSendCueSheet             Opcode = 0x5D
	OpSendKey                  Opcode = 0xA3
	OpReportKey                Opcode = 0xA4
	OpPlayAudio12              Opcode = 0xA5
	OpRead12                   Opcode = 0xA8
	OpReadDVDStructure         Opcode = 0xAD
	OpSetCDSpeed               Opcode = 0xBB
	OpMechanismStatus          Opcode = 0xBD
	OpReadCD                   Opcode = 0xBE
)

// opcodesNotRequiringMedia is the set of opcodes allowed with no medium
// present, per spec.md §4.G precondition 2.
var opcodesNotRequiringMedia = map[Opcode]bool{
	OpInquiry:                  true,
	OpTestUnitReady:            true,
	OpRequestSense:             true,
	OpGetConfiguration:         true,
	OpGetEventStatusNotify:     true,
	OpPreventAllowMediumRemove: true,
	OpStartStopUnit:            true,
	OpModeSense6:               true,
	OpModeSense10:              true,
	OpModeSelect6:              true,
	OpModeSelect10:             true,
	OpMechanismStatus:          true,
	OpReadDVDStructure:         true,
}

// CDB is a fixed-size 12-byte command descriptor block, per spec.md
// §4.G's execute entry point.
type CDB [12]byte

// Opcode returns the command's operation code.
func (c CDB) Opcode() Opcode { return Opcode(c[0]) }

// handler executes one opcode against dev, writing up to len(out) bytes
// and returning the number of bytes actually written.
type handler func(dev *Device, cdb CDB, in []byte, out []byte) (Status, int)

// dispatch is the constant array indexed by opcode described in
// spec.md §4.G ("Dispatch table is a constant array indexed by
// opcode"). Go arrays are fixed size and zero-valued by default, which
// gives every unimplemented opcode a nil handler for free.
var dispatch [256]handler

func init() {
	dispatch[OpTestUnitReady] = handleTestUnitReady
	dispatch[OpRequestSense] = handleRequestSense
	dispatch[OpInquiry] = handleInquiry
	dispatch[OpModeSelect6] = handleModeSelect6
	dispatch[OpModeSense6] = handleModeSense6
	dispatch[OpStartStopUnit] = handleStartStopUnit
	dispatch[OpPreventAllowMediumRemove] = handlePreventAllow
	dispatch[OpReadCapacity] = handleReadCapacity
	dispatch[OpRead10] = handleRead10
	dispatch[OpRead12] = handleRead12
	dispatch[OpReadCD] = handleReadCD
	dispatch[OpReadTOC] = handleReadTOC
	dispatch[OpReadSubChannel] = handleReadSubChannel
	dispatch[OpReadDiscInformation] = handleReadDiscInformation
	dispatch[OpReadTrackInformation] = handleReadTrackInformation
	dispatch[OpGetConfiguration] = handleGetConfiguration
	dispatch[OpGetEventStatusNotify] = handleGetEventStatusNotification
	dispatch[OpModeSelect10] = handleModeSelect10
	dispatch[OpModeSense10] = handleModeSense10
	dispatch[OpPlayAudio10] = handlePlayAudio10
	dispatch[OpPlayAudio12] = handlePlayAudio12
	dispatch[OpPlayAudioMSF] = handlePlayAudioMSF
	dispatch[OpPauseResume] = handlePauseResume
	dispatch[OpStopPlay] = handleStopPlay
	dispatch[OpSetCDSpeed] = handleSetCDSpeed
	dispatch[OpReportKey] = handleReportKey
	dispatch[OpSendKey] = handleSendKey
	dispatch[OpMechanismStatus] = handleMechanismStatus
	dispatch[OpReadDVDStructure] = handleReadDVDStructure
	dispatch[OpSendCueSheet] = handleSendCueSheet
	dispatch[OpWrite10] = handleWrite10
	dispatch[OpCloseTrackSession] = handleCloseTrackSession
}

// Execute runs one CDB against dev, per spec.md §4.G's precondition
// ordering: unit attention first, then medium presence, then the
// removal-lock check, before the opcode's own handler runs.
func (dev *Device) Execute(cdb CDB, in []byte, out []byte) (Status, int) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	op := cdb.Opcode()

	if op != OpInquiry && op != OpRequestSense {
		if ua, ok := dev.Sense.TakeUnitAttention(); ok {
			dev.Sense.Defer(sense.Data{Key: ua.Key, ASCASCQ: ua.ASCASCQ})
			return StatusCheckCondition, 0
		}
	}

	if dev.d == nil && !opcodesNotRequiringMedia[op] {
		dev.Sense.DeferSimple(sense.KeyNotReady, sense.ASCMediumNotPresent)
		return StatusCheckCondition, 0
	}

	if op == OpStartStopUnit && dev.locked {
		loej := cdb[4]&0x02 != 0
		start := cdb[4]&0x01 != 0
		if loej && !start {
			dev.Sense.DeferSimple(sense.KeyIllegalRequest, sense.ASCMediumRemovalPrevented)
			return StatusCheckCondition, 0
		}
	}

	h := dispatch[op]
	if h == nil {
		dev.Sense.DeferSimple(sense.KeyIllegalRequest, 0x2000)
		return StatusCheckCondition, 0
	}

	return h(dev, cdb, in, out)
}

// failIllegalField latches ILLEGAL REQUEST / INVALID FIELD IN CDB
// (24h), per spec.md §4.G precondition 4.
func failIllegalField(dev *Device) (Status, int) {
	dev.Sense.DeferSimple(sense.KeyIllegalRequest, sense.ASCInvalidFieldInCDB)
	return StatusCheckCondition, 0
}

// failLBAOutOfRange latches ILLEGAL REQUEST / LBA OUT OF RANGE
// (21/00), per spec.md §4.G's READ handler contract.
func failLBAOutOfRange(dev *Device) (Status, int) {
	dev.Sense.DeferSimple(sense.KeyIllegalRequest, 0x2100)
	return StatusCheckCondition, 0
}

// failMediumError latches MEDIUM ERROR / UNRECOVERED READ ERROR, per
// spec.md §7's error table.
func failMediumError(dev *Device) (Status, int) {
	dev.Sense.DeferSimple(sense.KeyMediumError, sense.ASCUnrecoveredReadError)
	return StatusCheckCondition, 0
}

// clamp returns n bounded to [0, max].
func clamp(n, max int) int {
	if n > max {
		return max
	}
	if n < 0 {
		return 0
	}
	return n
}

// be16/be32 extract big-endian SCSI fields from a CDB or data-out
// buffer using the teacher's internal/binary reader (ReadUint16BEAt /
// ReadUint32BEAt), wrapping the slice in a bytes.Reader to satisfy its
// io.ReaderAt contract. There is no matching writer in internal/binary,
// so putBE16/putBE32 below still hand-roll the opposite direction.
func be16(b []byte) uint16 {
	v, _ := binary.ReadUint16BEAt(bytes.NewReader(b), 0)
	return v
}

func be32(b []byte) uint32 {
	v, _ := binary.ReadUint32BEAt(bytes.NewReader(b), 0)
	return v
}

func putBE16(b []byte, v uint16) { b[0] = byte(v >> 8); b[1] = byte(v) }
func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
