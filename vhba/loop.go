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

package vhba

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"time"
)

// watchdogInterval is the idle-detection period spec.md §4.H specifies:
// "a timer fires every 30s; if no request has been handled in the
// interval, emit a device-inactive event upward."
const watchdogInterval = 30 * time.Second

// ReadWriter is the control file descriptor's I/O contract: one device
// reads requests and writes responses through the same handle.
type ReadWriter interface {
	io.Reader
	io.Writer
}

// Loop runs ServeOnce repeatedly on rw until ctx is canceled or a
// non-EOF, non-ErrShortFrame error occurs, per spec.md §4.H's "read
// loop per device." onIdle is invoked from the watchdog goroutine every
// time 30 seconds pass with no frame served; it resets on every frame,
// per spec.md §4.H.
func Loop(ctx context.Context, rw ReadWriter, bufSize int, handle Handler, onIdle func(), logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	buf := make([]byte, bufSize)

	var lastActivity atomic.Int64
	lastActivity.Store(time.Now().UnixNano())

	watchdogCtx, cancelWatchdog := context.WithCancel(ctx)
	defer cancelWatchdog()
	go runWatchdog(watchdogCtx, &lastActivity, onIdle)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := ServeOnce(rw, rw, buf, handle)
		switch {
		case err == nil:
			lastActivity.Store(time.Now().UnixNano())
		case errors.Is(err, ErrShortFrame):
			logger.Printf("vhba: short frame from control device, ignoring")
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// runWatchdog fires onIdle whenever watchdogInterval elapses since the
// last recorded activity, per spec.md §4.H.
func runWatchdog(ctx context.Context, lastActivity *atomic.Int64, onIdle func()) {
	if onIdle == nil {
		return
	}
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			since := time.Since(time.Unix(0, lastActivity.Load()))
			if since >= watchdogInterval {
				onIdle()
			}
		}
	}
}
