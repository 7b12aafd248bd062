/*
pwlookup - account and shadow database lookup diagnostic.
Copyright © 2019-2020 Max Mazurov <fox.cpp@disroot.org>, Maddy Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package pwent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrClosed = errors.New("pwent: database is closed")

// FileDB is an open handle to a passwd(5) file.
//
// The file is opened once by OpenFile and rewound before each request.
// Close must be called when the handle is no longer needed.
type FileDB struct {
	path string
	f    *os.File
}

func OpenFile(path string) (*FileDB, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pwent: %w", err)
	}
	return &FileDB{path: path, f: f}, nil
}

func (db *FileDB) rewind() error {
	if db.f == nil {
		return ErrClosed
	}
	if _, err := db.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pwent: %w", err)
	}
	return nil
}

func (db *FileDB) LookupName(_ context.Context, name string) (*Entry, error) {
	if err := db.rewind(); err != nil {
		return nil, err
	}
	return Find(db.f, name)
}

// All returns every well-formed entry, malformed lines are skipped as
// getpwent does.
func (db *FileDB) All(_ context.Context) ([]Entry, error) {
	if err := db.rewind(); err != nil {
		return nil, err
	}
	scnr := NewScanner(db.f)
	var res []Entry
	for scnr.Scan() {
		res = append(res, scnr.Entry())
	}
	return res, scnr.Err()
}

// Close releases the file handle. Calling Close twice is a no-op.
func (db *FileDB) Close() error {
	if db.f == nil {
		return nil
	}
	err := db.f.Close()
	db.f = nil
	return err
}
