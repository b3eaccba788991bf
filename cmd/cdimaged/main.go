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

// Command cdimaged is the daemon entry point of spec.md §6: it opens
// one VHBA control file descriptor per emulated device, wires each one
// to a package mmc Device through package vhba's framed transport, and
// serves requests until SIGINT/SIGTERM. A "status" subcommand offers
// the offline self-check / database-annotated image inspection named
// in SPEC_FULL.md's component table, independent of a running daemon.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/cdimaged/cdimaged/audio"
	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/image"
	"github.com/cdimaged/cdimaged/mediadb"
	"github.com/cdimaged/cdimaged/mmc"
	"github.com/cdimaged/cdimaged/mmc/modepage"
	"github.com/cdimaged/cdimaged/vhba"
)

const appVersion = "0.1.0"

var (
	numDevices   = flag.Int("num-devices", 1, "number of emulated optical drives to serve")
	ctlDevice    = flag.String("ctl-device", "/dev/vhba_ctl", "path to the VHBA control device")
	audioDriver  = flag.String("audio-driver", "null", "PCM sink to use for PLAY AUDIO: null")
	bus          = flag.String("bus", "session", "control-surface bus: session or system (accepted for compatibility, unused)")
	logfile      = flag.String("logfile", "", "path to append daemon log lines to (stderr if empty)")
	cdemuMask    = flag.String("default-cdemu-debug-mask", "", "initial debug mask, accepted for compatibility")
	mirageMask   = flag.String("default-mirage-debug-mask", "", "initial debug mask, accepted for compatibility")
	maxSectorsIO = flag.Int("max-sectors-per-io", 32, "max_sectors_per_io used to size the control-device buffer")
	images       = flag.String("images", "", "comma-separated disc image paths, one per device, preloaded at startup")

	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "       %s status -i <image> [-db <path>] [-json]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Emulates one or more ATAPI/MMC-3 optical drives over VHBA.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --num-devices 2 --images game1.chd,game2.cue\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s status -i game.chd -db titles.gob.gz\n", os.Args[0])
	}

	if len(os.Args) > 1 && os.Args[1] == "status" {
		runStatus(os.Args[2:])
		return
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cdimaged version %s\n", appVersion)
		os.Exit(0)
	}

	logger, closeLog := newLogger(*logfile)
	defer closeLog()

	if err := run(logger); err != nil {
		logger.Printf("cdimaged: %v", err)
		os.Exit(-1)
	}
}

// newLogger builds the daemon's logger per spec.md §6's --logfile flag,
// in the teacher's caller-supplied-*log.Logger style
// (rabidaudio-audiocd.Audio's Logger field).
func newLogger(path string) (*log.Logger, func()) {
	if path == "" {
		return log.New(os.Stderr, "cdimaged: ", log.LstdFlags), func() {}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l := log.New(os.Stderr, "cdimaged: ", log.LstdFlags)
		l.Printf("cdimaged: cannot open logfile %s, falling back to stderr: %v", path, err)
		return l, func() {}
	}
	return log.New(f, "cdimaged: ", log.LstdFlags), func() { f.Close() }
}

// run constructs every emulated device and its VHBA transport, then
// blocks until SIGINT/SIGTERM, per spec.md §5's "daemon shutdown joins
// every device task" and §4.I's device supervisor responsibilities,
// which this module implements directly on mmc.Device rather than a
// separate device.Supervisor type (DESIGN.md Open Question decision 3).
func run(logger *log.Logger) error {
	if *numDevices < 1 {
		return fmt.Errorf("--num-devices must be at least 1")
	}

	sink := newAudioSink(*audioDriver, logger)

	imagePaths := splitImages(*images)
	if len(imagePaths) > 0 && len(imagePaths) != *numDevices {
		return fmt.Errorf("--images lists %d paths for %d devices", len(imagePaths), *numDevices)
	}

	// REQUEST SENSE's fixed format is 18 bytes, per spec.md §6.
	const maxSenseLength = 18
	bufSize := vhba.BufferSize(*maxSectorsIO, maxSenseLength)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	errc := make(chan error, *numDevices)

	for i := 0; i < *numDevices; i++ {
		dev := mmc.NewDevice(i, modepage.MediumKindCD, sink)

		if len(imagePaths) > 0 {
			d, err := image.Open(imagePaths[i])
			if err != nil {
				return fmt.Errorf("device %d: load %s: %w", i, imagePaths[i], err)
			}
			if err := dev.Load(d, []string{imagePaths[i]}); err != nil {
				return fmt.Errorf("device %d: load %s: %w", i, imagePaths[i], err)
			}
		}

		ctl, err := os.OpenFile(*ctlDevice, os.O_RDWR, 0)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("device %d: open control device %s: %w", i, *ctlDevice, err)
		}

		wg.Add(1)
		go func(number int, dev *mmc.Device, ctl *os.File) {
			defer wg.Done()
			defer ctl.Close()

			handle := func(cdb [12]byte, in []byte, out []byte) (byte, int) {
				status, n := dev.Execute(mmc.CDB(cdb), in, out)
				return byte(status), n
			}
			onIdle := func() {
				logger.Printf("device %d: idle, no request in 30s", number)
			}

			if err := vhba.Loop(ctx, ctl, bufSize, handle, onIdle, logger); err != nil {
				errc <- fmt.Errorf("device %d: %w", number, err)
				return
			}
			errc <- nil
		}(i, dev, ctl)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Printf("received %s, shutting down", s)
		cancel()
	case err := <-errc:
		if err != nil {
			logger.Printf("device loop failed: %v", err)
		}
		cancel()
	}

	wg.Wait()
	close(errc)
	for err := range errc {
		if err != nil {
			logger.Printf("device loop failed: %v", err)
		}
	}
	return nil
}

// newAudioSink selects a PcmSink per spec.md §1's out-of-scope audio
// output contract: the core only requires a null/sleep sink, so a real
// hardware backend named by --audio-driver falls back to NullSink with
// a logged notice rather than failing startup.
func newAudioSink(name string, logger *log.Logger) audio.Sink {
	switch strings.ToLower(name) {
	case "", "null", "none":
	default:
		logger.Printf("audio driver %q not built in, falling back to null sink", name)
	}
	return audio.NullSink{}
}

func splitImages(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// statusResult is the status subcommand's JSON/text report, combining
// the disc model's TOC summary with an optional mediadb title lookup.
type statusResult struct {
	Path     string `json:"path"`
	Serial   string `json:"serial,omitempty"`
	Title    string `json:"title,omitempty"`
	Sessions int    `json:"sessions"`
	Tracks   int    `json:"tracks"`
	LastLBA  int64  `json:"last_lba"`
	Medium   string `json:"medium"`
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	img := fs.String("i", "", "image path to inspect (required)")
	dbPath := fs.String("db", "", "optional mediadb path (gob.gz) to annotate the title")
	jsonOut := fs.Bool("json", false, "emit JSON instead of text")
	fs.Parse(args)

	if *img == "" {
		fmt.Fprintf(os.Stderr, "Error: image path required (-i)\n")
		os.Exit(1)
	}

	d, err := image.Open(*img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res := statusResult{
		Path:     *img,
		Sessions: len(d.Sessions),
		Tracks:   len(d.AllTracks()),
		LastLBA:  d.LastLBA(),
		Medium:   mediumString(d.Medium),
	}

	var db *mediadb.Database
	if *dbPath != "" {
		db, err = mediadb.LoadDatabase(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading database: %v\n", err)
			os.Exit(1)
		}
	}

	serial, title, found, err := mediadb.IdentifyTitle(db, *img)
	if err == nil {
		res.Serial = serial
		if found {
			res.Title = title
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printStatusText(res)
}

func printStatusText(res statusResult) {
	fmt.Printf("Path: %s\n", res.Path)
	fmt.Printf("Medium: %s\n", res.Medium)
	fmt.Printf("Sessions: %d, Tracks: %d, Last LBA: %d\n", res.Sessions, res.Tracks, res.LastLBA)
	if res.Serial != "" {
		fmt.Printf("Serial: %s\n", res.Serial)
	}
	if res.Title != "" {
		fmt.Printf("Title: %s\n", res.Title)
	}
}

func mediumString(m disc.Medium) string {
	switch m {
	case disc.MediumCD:
		return "CD"
	case disc.MediumDVD:
		return "DVD"
	case disc.MediumBD:
		return "BD"
	default:
		return "unknown"
	}
}
