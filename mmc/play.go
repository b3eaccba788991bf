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
	"github.com/cdimaged/cdimaged/audio"
	"github.com/cdimaged/cdimaged/sector"
)

// startPlay validates [begin, end] lies within a single audio track and
// starts the audio engine, per spec.md §4.G's PLAY AUDIO contract.
func startPlay(dev *Device, begin, end int64) (Status, int) {
	if !readRangeWithinAudioTrack(dev.d, begin, end) {
		return failIllegalField(dev)
	}
	if err := dev.Audio.Start(begin, end, dev.d); err != nil {
		return failIllegalField(dev)
	}
	return StatusGood, 0
}

// handlePlayAudio10 implements PLAY AUDIO(10) (45h): LBA + block count.
func handlePlayAudio10(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	begin := int64(be32(cdb[2:6]))
	count := int64(be16(cdb[7:9]))
	if count == 0 {
		return StatusGood, 0
	}
	return startPlay(dev, begin, begin+count-1)
}

// handlePlayAudio12 implements PLAY AUDIO(12) (A5h): LBA + 32-bit count.
func handlePlayAudio12(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	begin := int64(be32(cdb[2:6]))
	count := int64(be32(cdb[6:10]))
	if count == 0 {
		return StatusGood, 0
	}
	return startPlay(dev, begin, begin+count-1)
}

// handlePlayAudioMSF implements PLAY AUDIO MSF (47h): start/end MSF
// addresses.
func handlePlayAudioMSF(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	begin := sector.MSFToLBA(cdb[3], cdb[4], cdb[5])
	end := sector.MSFToLBA(cdb[6], cdb[7], cdb[8])
	if end < begin {
		return StatusGood, 0
	}
	return startPlay(dev, begin, end)
}

// handlePauseResume implements PAUSE/RESUME (4Bh): bit 0 of byte 8
// selects resume (1) vs pause (0).
func handlePauseResume(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	resume := cdb[8]&0x01 != 0
	var err error
	if resume {
		err = dev.Audio.Resume()
	} else {
		err = dev.Audio.Pause()
	}
	if err != nil {
		return failIllegalField(dev)
	}
	return StatusGood, 0
}

// handleStopPlay implements STOP PLAY/SCAN (4Eh).
func handleStopPlay(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	dev.Audio.Stop()
	return StatusGood, 0
}

// audioStateByte maps the audio engine's State to the AUDIO STATUS byte
// MECHANISM STATUS and other status opcodes surface.
func audioStateByte(s audio.State) byte {
	switch s {
	case audio.Playing:
		return 0x11
	case audio.Paused:
		return 0x12
	case audio.Completed:
		return 0x13
	case audio.Error:
		return 0x14
	default:
		return 0x00
	}
}
