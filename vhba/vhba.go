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

// Package vhba implements the framed request/response transport of
// spec.md §4.H: one goroutine per device reading struct vhba_request
// frames from a control file descriptor and writing struct
// vhba_response frames back. The wire layout is grounded byte-for-byte
// on original_source/vhba.c's struct vhba_request/vhba_response
// (SPEC_FULL.md §6); the request/response-sharing-one-buffer contract
// and the per-device read loop follow
// original_source/cdemu-daemon/src/cdemu-device-kernel-io.c's
// cdemu_device_io_handler.
package vhba

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	intbinary "github.com/cdimaged/cdimaged/internal/binary"
)

// MaxCommandSize is the CDB array size in struct vhba_request, per
// original_source/vhba.c.
const MaxCommandSize = 16

// requestHeaderSize is sizeof(struct vhba_request) on the wire: tag(4)
// + lun(4) + cdb(16) + cdb_len(1, padded to 4) + data_len(4), matching
// the C struct's natural alignment.
const requestHeaderSize = 4 + 4 + MaxCommandSize + 4 + 4

// responseHeaderSize is sizeof(struct vhba_response): tag(4) +
// status(4) + data_len(4).
const responseHeaderSize = 4 + 4 + 4

// Request is the decoded form of struct vhba_request.
type Request struct {
	Tag     uint32
	LUN     uint32
	CDB     [MaxCommandSize]byte
	CDBLen  uint8
	DataLen uint32
}

// Response is the decoded form of struct vhba_response.
type Response struct {
	Tag     uint32
	Status  uint32
	DataLen uint32
}

// ErrShortFrame is returned when fewer than requestHeaderSize bytes are
// available, per spec.md §4.H step 1 ("if shorter than the header, log
// and continue without consuming the callback").
var ErrShortFrame = errors.New("vhba: frame shorter than request header")

// DecodeRequest parses a request header from the front of buf, per
// original_source/vhba.c's struct vhba_request field order (all
// little-endian, matching the kernel's native __u32 layout on every
// architecture VHBA targets). Field extraction goes through the
// teacher's internal/binary reader rather than hand-indexing buf.
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) < requestHeaderSize {
		return Request{}, ErrShortFrame
	}
	r := bytes.NewReader(buf)
	var req Request
	req.Tag, _ = intbinary.ReadUint32LEAt(r, 0)
	req.LUN, _ = intbinary.ReadUint32LEAt(r, 4)
	copy(req.CDB[:], buf[8:8+MaxCommandSize])
	req.CDBLen = buf[8+MaxCommandSize]
	req.DataLen, _ = intbinary.ReadUint32LEAt(r, int64(requestHeaderSize-4))
	return req, nil
}

// EncodeResponse writes resp's header into the front of buf, which must
// be at least responseHeaderSize long, per spec.md §4.H step 5.
func EncodeResponse(buf []byte, resp Response) error {
	if len(buf) < responseHeaderSize {
		return fmt.Errorf("vhba: response buffer too small (%d < %d)", len(buf), responseHeaderSize)
	}
	binary.LittleEndian.PutUint32(buf[0:4], resp.Tag)
	binary.LittleEndian.PutUint32(buf[4:8], resp.Status)
	binary.LittleEndian.PutUint32(buf[8:12], resp.DataLen)
	return nil
}

// BufferSize computes the control-device I/O buffer size spec.md §4.H
// specifies: max_sectors_per_io * 512 bytes of payload plus room for
// the largest sense response and a response header, rounded up to a
// 512-byte block.
func BufferSize(maxSectorsPerIO, maxSense int) int {
	payload := maxSectorsPerIO * 512
	tail := ((maxSense+responseHeaderSize)/512 + 1) * 512
	return payload + tail
}

// Handler executes one decoded CDB against a device, writing the
// response payload into out and returning the SCSI status and the
// number of bytes actually written. It is the seam between this
// package and package mmc, avoiding an import cycle.
type Handler func(cdb [12]byte, in []byte, out []byte) (status byte, n int)

// ServeOnce reads one frame from r, runs handle against it, and writes
// the response frame (plus payload) to w, using buf as scratch space
// for both directions, per spec.md §4.H's shared-buffer contract: "the
// implementation MUST NOT read in after it has started writing out."
//
// It returns ErrShortFrame (not a fatal error) when the read frame is
// too small to contain a request header.
func ServeOnce(r io.Reader, w io.Writer, buf []byte, handle Handler) error {
	n, err := r.Read(buf)
	if err != nil {
		return fmt.Errorf("vhba: read request: %w", err)
	}
	if n < requestHeaderSize {
		return ErrShortFrame
	}

	req, err := DecodeRequest(buf[:n])
	if err != nil {
		return err
	}

	var cdb [12]byte
	cdbLen := int(req.CDBLen)
	if cdbLen > len(cdb) {
		cdbLen = len(cdb)
	}
	copy(cdb[:cdbLen], req.CDB[:cdbLen])

	inStart := requestHeaderSize
	inEnd := inStart + int(req.DataLen)
	if inEnd > len(buf) {
		inEnd = len(buf)
	}
	in := append([]byte(nil), buf[inStart:inEnd]...) // copy: handler writes into the same buf region as out

	outBuf := buf[responseHeaderSize:]
	status, written := handle(cdb, in, outBuf)

	if err := EncodeResponse(buf, Response{Tag: req.Tag, Status: uint32(status), DataLen: uint32(written)}); err != nil {
		return err
	}

	total := responseHeaderSize + written
	if _, err := w.Write(buf[:total]); err != nil {
		return fmt.Errorf("vhba: write response: %w", err)
	}
	return nil
}
