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
	"github.com/cdimaged/cdimaged/mmc/feature"
	"github.com/cdimaged/cdimaged/mmc/sense"
)

// handleGetConfiguration implements GET CONFIGURATION (46h), per
// spec.md §4.C/§4.G: an 8-byte header (data length, current profile,
// reserved) followed by one descriptor per selected feature.
func handleGetConfiguration(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	rt := cdb[1] & 0x03
	startingFeature := uint16(cdb[2])<<8 | uint16(cdb[3])

	feats := dev.Features.Select(rt, feature.Code(startingFeature))

	var body []byte
	for _, f := range feats {
		desc := make([]byte, 4)
		putBE16(desc[0:2], uint16(f.Code))
		desc[2] = f.Version << 2
		if f.Persistent {
			desc[2] |= 0x02
		}
		if f.Current {
			desc[2] |= 0x01
		}
		desc[3] = byte(len(f.Payload))
		desc = append(desc, f.Payload...)
		body = append(body, desc...)
	}

	header := make([]byte, 8)
	putBE32(header[0:4], uint32(4+len(body)))
	putBE16(header[6:8], uint16(dev.Features.CurrentProfile()))
	buf := append(header, body...)

	n := clamp(len(buf), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

// handleGetEventStatusNotification implements GET EVENT/STATUS
// NOTIFICATION (4Ah), per spec.md §4.E: returns the highest-priority
// pending media-event class the requested class mask selects, and
// clears it.
func handleGetEventStatusNotification(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	classMask := mediaEventMask(cdb[4])

	event, ok := dev.Sense.TakeMediaEvent(classMask)
	body := make([]byte, 4)
	if !ok {
		body[2] = 0x00 // NEA (no event available)
		body[3] = 0x04 // notification class: media
		n := clamp(len(body), len(out))
		copy(out[:n], body[:n])
		return StatusGood, n
	}

	body[2] = 0x04 // media event class
	body[3] = 0x04

	eventDescriptor := make([]byte, 4)
	eventDescriptor[0] = mediaEventCode(event)
	buf := append(body, eventDescriptor...)
	putBE16(buf[0:2], uint16(len(buf)-2))

	n := clamp(len(buf), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

// mediaEventMask converts the notification class request byte into the
// sense package's media-event bitmask; only the media-status class
// (bit 4) is implemented here, per spec.md §4.E's scope.
func mediaEventMask(requestByte byte) sense.MediaEvent {
	if requestByte&0x10 == 0 {
		return sense.EventNone
	}
	return sense.EventNewMedia | sense.EventMediaRemoval | sense.EventEjectRequest
}

func mediaEventCode(e sense.MediaEvent) byte {
	switch e {
	case sense.EventNewMedia:
		return 0x02 // new media
	case sense.EventMediaRemoval:
		return 0x03 // media removal
	case sense.EventEjectRequest:
		return 0x01 // eject request
	default:
		return 0x00
	}
}
