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

// Package image is the "external parser registry" spec.md §4.I's load()
// operation dispatches into: it turns one or more on-disk image paths
// into a populated *disc.Disc. Extension dispatch (.cue/.chd/plain) is
// grounded on the teacher's identifier/psx.go openPlayStationISO, and
// archive-member and compressed-stream handling reuses the teacher's
// archive package and the pack's xz/zstd collaborators (SPEC_FULL.md
// §3 DOMAIN STACK) rather than anything invented for this daemon.
package image

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cdimaged/cdimaged/archive"
	"github.com/cdimaged/cdimaged/disc"
)

// ErrUnsupportedFormat is returned when no parser recognizes an image's
// extension, the ParserError condition of spec.md §4.I's load().
type ErrUnsupportedFormat struct {
	Path string
}

func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("image: unsupported format: %s", e.Path)
}

// Parser turns a source path into a *disc.Disc. Each concrete parser in
// this package implements one on-disk format.
type Parser interface {
	Parse(path string) (*disc.Disc, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(path string) (*disc.Disc, error)

// Parse calls f(path).
func (f ParserFunc) Parse(path string) (*disc.Disc, error) { return f(path) }

// registry maps a lowercased file extension to the parser responsible
// for it. Populated in init() below, one entry per concrete parser file
// in this package.
var registry = map[string]Parser{}

func register(ext string, p Parser) { registry[ext] = p }

func init() {
	register(".iso", ParserFunc(ParseRaw))
	register(".img", ParserFunc(ParseRaw))
	register(".bin", ParserFunc(ParseRaw))
	register(".cue", ParserFunc(ParseCue))
	register(".chd", ParserFunc(ParseCHD))
}

// Open loads path into a *disc.Disc, dispatching on extension per
// spec.md §4.I's load() operation. An archive-member path (MiSTer-style
// "archive.zip/game.cue", per archive.ParsePath) is transparently
// unpacked first; a compressed single-file image (".xz"/".zst" suffix)
// is wrapped through this package's xzfragment/zstdfragment readers by
// the concrete parser responsible for its inner extension.
func Open(path string) (*disc.Disc, error) {
	if archivePath, err := archive.ParsePath(path); err != nil {
		return nil, fmt.Errorf("image: resolve archive path: %w", err)
	} else if archivePath != nil {
		return openFromArchive(archivePath)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xz" || ext == ".zst" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	p, ok := registry[ext]
	if !ok {
		return nil, ErrUnsupportedFormat{Path: path}
	}
	return p.Parse(path)
}

// openFromArchive resolves the archive member to parse. When
// ap.InternalPath is empty the member is picked by the teacher's
// archive.DetectGameFile, whose extension list covers cartridge ROM
// formats only; a member found that way is rejected as unsupported, so
// a disc image inside an archive loads only when its path is named.
func openFromArchive(ap *archive.Path) (*disc.Disc, error) {
	arc, err := archive.Open(ap.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("image: open archive: %w", err)
	}
	defer func() { _ = arc.Close() }()

	internalPath := ap.InternalPath
	if internalPath == "" {
		internalPath, err = archive.DetectGameFile(arc)
		if err != nil {
			return nil, fmt.Errorf("image: detect archive member: %w", err)
		}
	}

	ext := strings.ToLower(filepath.Ext(internalPath))
	switch ext {
	case ".iso", ".img", ".bin":
		return parseRawFromArchive(arc, internalPath)
	case ".cue":
		return parseCueFromArchive(arc, internalPath)
	default:
		return nil, ErrUnsupportedFormat{Path: ap.ArchivePath + "/" + internalPath}
	}
}
