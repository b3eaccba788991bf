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

// Package mediadb provides an optional disc-serial-to-title lookup for
// the status CLI (SPEC_FULL.md §5's "status/game database" component),
// so a loaded image can be annotated with a human-readable title. The
// gob+gzip persistence format and load/save shape are adapted directly
// from the teacher's root-level database.go; only the schema changes,
// from per-console keyed maps to a single serial->title map, since this
// daemon identifies one disc by its ISO9660 serial/volume ID rather than
// a cartridge console family.
package mediadb

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Database is a serial (or volume ID) to title lookup table.
type Database struct {
	Titles map[string]string
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{Titles: make(map[string]string)}
}

// LoadDatabase loads a database from a gob.gz file, per the teacher's
// database.go LoadDatabase.
func LoadDatabase(path string) (*Database, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from a trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("mediadb: open database: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadDatabaseFromReader(f)
}

// LoadDatabaseFromReader loads a database from a gzip-compressed gob
// stream.
func LoadDatabaseFromReader(r io.Reader) (*Database, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("mediadb: gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	db := NewDatabase()
	if err := gob.NewDecoder(gz).Decode(db); err != nil {
		return nil, fmt.Errorf("mediadb: decode database: %w", err)
	}
	return db, nil
}

// SaveDatabase writes the database to a gob.gz file.
func (db *Database) SaveDatabase(path string) error {
	f, err := os.Create(path) //nolint:gosec // path comes from a trusted CLI flag
	if err != nil {
		return fmt.Errorf("mediadb: create database: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz := gzip.NewWriter(f)
	defer func() { _ = gz.Close() }()

	if err := gob.NewEncoder(gz).Encode(db); err != nil {
		return fmt.Errorf("mediadb: encode database: %w", err)
	}
	return nil
}

// Lookup returns the title registered for serial, if any. A nil db
// (no --db flag given) is a valid "no database loaded" value and
// always misses, mirroring the teacher's optional *GameDatabase
// parameter accepted throughout cmd/gameid.
func (db *Database) Lookup(serial string) (string, bool) {
	if db == nil {
		return "", false
	}
	title, ok := db.Titles[serial]
	return title, ok
}
