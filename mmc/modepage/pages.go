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

package modepage

// Page byte layouts below follow ModePage_0x01/0x0D/0x0E/0x1A/0x2A in
// original_source/cdemu-daemon/src/cdemud-mode-pages.h byte-for-byte
// (code|ps in byte 0 bits 0-5/7, length in byte 1, then the fields in
// declaration order), per SPEC_FULL.md §6.

// newErrorRecoveryPage builds mode page 0x01 (R/W Error Recovery),
// 12 bytes total (code/length header + 10 data bytes).
func newErrorRecoveryPage() *page {
	cur := make([]byte, 12)
	cur[0] = byte(ErrorRecovery)
	cur[1] = 10
	cur[2] = 0x00 // awre/arre/tb/rc/per/dte/dcr all clear
	cur[3] = 0x00 // read_retry
	// bytes [4:8) reserved
	cur[8] = 0x00 // write_retry
	// byte 9 reserved
	// bytes [10:12) recovery time limit (big-endian)

	mask := make([]byte, 12)
	mask[2] = 0xFF
	mask[3] = 0xFF
	mask[8] = 0xFF
	mask[10], mask[11] = 0xFF, 0xFF

	return &page{code: ErrorRecovery, current: cur, def: append([]byte(nil), cur...), mask: mask}
}

// newCDDeviceParamsPage builds the legacy CD Device Parameters page
// (0x0D), 8 bytes total.
func newCDDeviceParamsPage() *page {
	cur := make([]byte, 8)
	cur[0] = byte(CDDeviceParams)
	cur[1] = 6
	// byte 2 reserved
	cur[3] = 0x05 // inactivity timer multiplier (low nibble)
	cur[4], cur[5] = 0x00, 0x3C // seconds-per-MSF-minute = 60 (big-endian)
	cur[6], cur[7] = 0x00, 0x4B // frames-per-MSF-second = 75 (big-endian)

	mask := make([]byte, 8)
	mask[3] = 0x0F

	return &page{code: CDDeviceParams, current: cur, def: append([]byte(nil), cur...), mask: mask}
}

// newCDAudioControlPage builds the CD Audio Control page (0x0E), 16
// bytes total. Port 0/1 default to full volume on both stereo channels,
// matching a typical drive's power-on default.
func newCDAudioControlPage() *page {
	cur := make([]byte, 16)
	cur[0] = byte(CDAudioControl)
	cur[1] = 14
	cur[2] = 0x04 // immed=1, sotc=0
	// bytes [3:8) reserved
	cur[8] = 0x01  // port0 channel select = channel 0
	cur[9] = 0xFF  // port0 volume
	cur[10] = 0x02 // port1 channel select = channel 1
	cur[11] = 0xFF // port1 volume
	cur[12] = 0x00 // port2 channel select = mute
	cur[13] = 0x00
	cur[14] = 0x00 // port3 channel select = mute
	cur[15] = 0x00

	mask := make([]byte, 16)
	mask[2] = 0x04
	for i := 8; i < 16; i++ {
		mask[i] = 0xFF
	}

	return &page{code: CDAudioControl, current: cur, def: append([]byte(nil), cur...), mask: mask}
}

// newPowerConditionPage builds the Power Condition page (0x1A), 12
// bytes total.
func newPowerConditionPage() *page {
	cur := make([]byte, 12)
	cur[0] = byte(PowerCondition)
	cur[1] = 10
	// byte 2 reserved
	cur[3] = 0x00 // idle=0, stdby=0
	// bytes [4:8) idle timer (big-endian, unused when idle=0)
	// bytes [8:12) standby timer (big-endian, unused when stdby=0)

	mask := make([]byte, 12)
	mask[3] = 0x03
	for i := 4; i < 12; i++ {
		mask[i] = 0xFF
	}

	return &page{code: PowerCondition, current: cur, def: append([]byte(nil), cur...), mask: mask}
}

// newCapabilitiesPage builds the CD/DVD Capabilities page (0x2A), 32
// bytes total, with read/write capability bits reflecting the medium
// kind the device was constructed for.
func newCapabilitiesPage(medium MediumKind) *page {
	cur := make([]byte, 32)
	cur[0] = byte(Capabilities)
	cur[1] = 30

	// byte 2: cdr_read | cdrw_read | method2 | dvdrom_read | dvdr_read | dvdram_read
	cur[2] = 0x01 | 0x02 // CD-R + CD-RW read
	if medium == MediumKindDVD {
		cur[2] |= 0x08 // dvdrom_read
	}
	// byte 3: write capability bits, all clear (read-only emulated drive)
	cur[3] = 0x00
	// byte 4: audio_play | composite | mode2_form1 | mode2_form2 | multisession
	cur[4] = 0x01 | 0x08 | 0x10 | 0x20 // audio_play, mode2_form1, mode2_form2, multisession
	// byte 5: cdda_cmds | cdda_acc_stream | rw_supported | isrc | upc | c2pointers
	cur[5] = 0x01 | 0x02 | 0x20 | 0x40 // cdda_cmds, cdda_acc_stream, isrc, upc
	// byte 6: lock | lock_state | prvnt_jmp | eject | load_mech
	cur[6] = 0x08 | (0x01 << 5) // eject=1, load_mech=tray(1)
	// byte 7: sep_vol_lvls | sep_mute | discpresent | sw_slot | side_change | rw_in_leadin
	cur[7] = 0x01 | 0x02 // sep_vol_lvls, sep_mute

	putBE16(cur[8:10], 706)  // max_read_speed (176x*4 KB/s-ish placeholder, legacy field)
	putBE16(cur[10:12], 255) // vol_lvls
	putBE16(cur[12:14], 0)   // buf_size (no cache reported)
	putBE16(cur[14:16], 706) // cur_read_speed

	// byte 16 reserved
	cur[17] = 0x00 // word_length/lsbf/rck/bckf all clear (no digital port)

	putBE16(cur[18:20], 0) // max_write_speed (no write support)
	putBE16(cur[20:22], 0) // cur_write_speed
	putBE16(cur[22:24], 0) // copy_man_rev
	// bytes [24:27) reserved
	cur[27] = 0x00 // rot_ctl_sel
	putBE16(cur[28:30], 0) // cur_wspeed
	putBE16(cur[30:32], 0) // wsp_descriptors

	mask := make([]byte, 32)
	mask[14], mask[15] = 0xFF, 0xFF // current read speed is settable via SET CD SPEED

	return &page{code: Capabilities, current: cur, def: append([]byte(nil), cur...), mask: mask}
}

func putBE16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
